package model

import (
	"time"
)

// 事件分类
const (
	EventSubscriptionCreated   = "subscription_created"
	EventSubscriptionActivated = "subscription_activated"
	EventSubscriptionCancelled = "subscription_cancelled"
	EventSubscriptionExpired   = "subscription_expired"
	EventPaymentCompleted      = "payment_completed"
	EventRefundIssued          = "refund_issued"
)

// SubscriptionEvent 订阅审计日志，只追加不修改
type SubscriptionEvent struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	SubscriptionID int64     `gorm:"not null;index" json:"subscription_id"`
	EventType      string    `gorm:"size:50;not null;index" json:"event_type"`
	Provider       string    `gorm:"size:20" json:"provider,omitempty"`
	RawPayload     string    `gorm:"type:text" json:"raw_payload,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (SubscriptionEvent) TableName() string {
	return "subscription_events"
}
