package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

type SubscriptionEventRepository struct {
	db *gorm.DB
}

func NewSubscriptionEventRepository(db *gorm.DB) *SubscriptionEventRepository {
	return &SubscriptionEventRepository{db: db}
}

func (r *SubscriptionEventRepository) Create(event *model.SubscriptionEvent) error {
	return r.db.Create(event).Error
}

func (r *SubscriptionEventRepository) ListBySubscriptionID(subscriptionID int64) ([]model.SubscriptionEvent, error) {
	var events []model.SubscriptionEvent
	err := r.db.Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC").Find(&events).Error
	return events, err
}

func (r *SubscriptionEventRepository) WithTx(tx *gorm.DB) *SubscriptionEventRepository {
	return &SubscriptionEventRepository{db: tx}
}
