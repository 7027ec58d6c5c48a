package model

import (
	"time"
)

// UserPlan 当前权益的反范式记录，每个用户一行。
// 路由守卫只读这张表，不需要关联订阅历史。
type UserPlan struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	UserID         int64      `gorm:"not null;uniqueIndex" json:"user_id"`
	PlanType       string     `gorm:"size:20;not null;default:free" json:"plan_type"`
	SubscriptionID *int64     `json:"subscription_id,omitempty"`
	Provider       string     `gorm:"size:20" json:"provider,omitempty"`
	ExpiresAt      *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (UserPlan) TableName() string {
	return "user_plans"
}
