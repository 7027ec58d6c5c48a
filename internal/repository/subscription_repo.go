package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByProviderSubscriptionID(provider, providerSubID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("provider = ? AND provider_subscription_id = ?", provider, providerSubID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetActiveByUserID(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ? AND status = ?", userID, model.SubscriptionActive).
		Order("created_at DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListByUserID(userID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) Update(sub *model.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *SubscriptionRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Subscription{}).Where("id = ?", id).Updates(fields).Error
}

// ListExpired 查询周期已结束但状态还是 active 的订阅，供到期扫描使用
func (r *SubscriptionRepository) ListExpired(now time.Time, limit int) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.Where("status = ? AND current_period_end IS NOT NULL AND current_period_end < ?",
		model.SubscriptionActive, now).
		Limit(limit).Find(&subs).Error
	return subs, err
}

// WithTx 返回使用指定事务的仓库实例
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

// DB 暴露底层连接，供服务层开启事务
func (r *SubscriptionRepository) DB() *gorm.DB {
	return r.db
}
