package model

import (
	"time"
)

// WebhookEvent 已处理的渠道事件，EventID 唯一索引用于去重，
// 重放的 webhook 在插入这张表时就会被拦下。
type WebhookEvent struct {
	EventID     string    `gorm:"primaryKey;size:128;uniqueIndex;not null" json:"event_id"`
	Provider    string    `gorm:"size:20;index;not null" json:"provider"`
	EventType   string    `gorm:"size:64;index" json:"event_type"`
	Matched     bool      `gorm:"default:false" json:"matched"` // 是否匹配到本地订阅
	ProcessedAt time.Time `json:"processed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
