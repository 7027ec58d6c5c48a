package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

type PaymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) Create(pm *model.PaymentMethod) error {
	return r.db.Create(pm).Error
}

func (r *PaymentMethodRepository) GetByID(id int64) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod
	err := r.db.Where("id = ?", id).First(&pm).Error
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

// ListByUserID 只返回已完成绑卡的记录，pending 占位行不对外暴露
func (r *PaymentMethodRepository) ListByUserID(userID int64) ([]model.PaymentMethod, error) {
	var pms []model.PaymentMethod
	err := r.db.Where("user_id = ? AND card_mask <> ?", userID, model.CardMaskPending).
		Order("created_at DESC").Find(&pms).Error
	return pms, err
}

// GetPendingByUserID 取用户最近一条等待回调的绑卡占位记录
func (r *PaymentMethodRepository) GetPendingByUserID(userID int64) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod
	err := r.db.Where("user_id = ? AND card_mask = ?", userID, model.CardMaskPending).
		Order("created_at DESC").First(&pm).Error
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

func (r *PaymentMethodRepository) Update(pm *model.PaymentMethod) error {
	return r.db.Save(pm).Error
}

func (r *PaymentMethodRepository) Delete(id, userID int64) error {
	return r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.PaymentMethod{}).Error
}

// DeleteStalePending 删除超时未完成绑卡的占位记录，返回删除数量
func (r *PaymentMethodRepository) DeleteStalePending(before time.Time) (int64, error) {
	result := r.db.Where("card_mask = ? AND created_at < ?", model.CardMaskPending, before).
		Delete(&model.PaymentMethod{})
	return result.RowsAffected, result.Error
}
