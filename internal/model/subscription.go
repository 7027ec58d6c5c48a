package model

import (
	"time"
)

// 套餐类型
const (
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
	PlanFree         = "free"
)

// 支付渠道
const (
	ProviderPayPal       = "paypal"
	ProviderLemonSqueezy = "lemonsqueezy"
	ProviderKeepz        = "keepz"
	ProviderFake         = "fake"
)

// 订阅状态
const (
	SubscriptionPending   = "pending"
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

type Subscription struct {
	ID                     int64      `gorm:"primaryKey" json:"id"`
	UserID                 int64      `gorm:"not null;index" json:"user_id"`
	PlanType               string     `gorm:"size:20;not null" json:"plan_type"` // starter, professional, enterprise
	Provider               string     `gorm:"size:20;not null" json:"provider"`  // paypal, lemonsqueezy, keepz, fake
	Status                 string     `gorm:"size:20;default:pending;index" json:"status"`
	ProviderSubscriptionID string     `gorm:"size:128;index" json:"provider_subscription_id,omitempty"`
	Amount                 float64    `gorm:"type:decimal(10,2)" json:"amount,omitempty"`
	Currency               string     `gorm:"size:8" json:"currency,omitempty"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanRefund              bool       `gorm:"default:false" json:"can_refund"`
	RefundEligibleUntil    *time.Time `json:"refund_eligible_until,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	CampaignID             *int64     `gorm:"index" json:"campaign_id,omitempty"`
	UTMSource              string     `gorm:"column:utm_source;size:100" json:"utm_source,omitempty"`
	UTMMedium              string     `gorm:"column:utm_medium;size:100" json:"utm_medium,omitempty"`
	UTMCampaign            string     `gorm:"column:utm_campaign;size:100" json:"utm_campaign,omitempty"`
	CreatedAt              time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// IsTerminal 判断订阅是否处于终态
func (s *Subscription) IsTerminal() bool {
	return s.Status == SubscriptionCancelled || s.Status == SubscriptionExpired
}
