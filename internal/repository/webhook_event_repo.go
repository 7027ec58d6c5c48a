package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

// ErrDuplicateEvent 表示同一渠道事件已经处理过
var ErrDuplicateEvent = errors.New("webhook 事件已处理")

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record 先插入再处理，主键冲突即视为重放
func (r *WebhookEventRepository) Record(provider, eventID, eventType string) error {
	event := &model.WebhookEvent{
		EventID:     eventID,
		Provider:    provider,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}

	err := r.db.Create(event).Error
	if err != nil && isDuplicateKeyError(err) {
		return ErrDuplicateEvent
	}
	return err
}

// Delete 移除事件记录。处理失败时撤掉去重屏障，
// 渠道的重试才不会被当成重放丢弃。
func (r *WebhookEventRepository) Delete(eventID string) error {
	return r.db.Where("event_id = ?", eventID).Delete(&model.WebhookEvent{}).Error
}

// MarkMatched 标记事件已匹配到本地订阅
func (r *WebhookEventRepository) MarkMatched(eventID string) error {
	return r.db.Model(&model.WebhookEvent{}).Where("event_id = ?", eventID).
		Update("matched", true).Error
}

func (r *WebhookEventRepository) Exists(eventID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.WebhookEvent{}).Where("event_id = ?", eventID).Count(&count).Error
	return count > 0, err
}

// isDuplicateKeyError 兼容 MySQL 和 SQLite 的唯一约束错误
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
