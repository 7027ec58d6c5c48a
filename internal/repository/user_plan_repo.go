package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

type UserPlanRepository struct {
	db *gorm.DB
}

func NewUserPlanRepository(db *gorm.DB) *UserPlanRepository {
	return &UserPlanRepository{db: db}
}

// GetByUserID 查询用户权益，没有记录时返回免费版
func (r *UserPlanRepository) GetByUserID(userID int64) (*model.UserPlan, error) {
	var plan model.UserPlan
	err := r.db.Where("user_id = ?", userID).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.UserPlan{UserID: userID, PlanType: model.PlanFree}, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Upsert 写入或覆盖用户权益（user_id 唯一）
func (r *UserPlanRepository) Upsert(plan *model.UserPlan) error {
	var existing model.UserPlan
	err := r.db.Where("user_id = ?", plan.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(plan).Error
	}
	if err != nil {
		return err
	}

	return r.db.Model(&model.UserPlan{}).Where("user_id = ?", plan.UserID).Updates(map[string]interface{}{
		"plan_type":       plan.PlanType,
		"subscription_id": plan.SubscriptionID,
		"provider":        plan.Provider,
		"expires_at":      plan.ExpiresAt,
	}).Error
}

// Downgrade 将用户权益重置为免费版
func (r *UserPlanRepository) Downgrade(userID int64) error {
	return r.db.Model(&model.UserPlan{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"plan_type":       model.PlanFree,
		"subscription_id": nil,
		"provider":        "",
		"expires_at":      nil,
	}).Error
}

func (r *UserPlanRepository) WithTx(tx *gorm.DB) *UserPlanRepository {
	return &UserPlanRepository{db: tx}
}
