package model

import (
	"time"
)

// CardMaskPending 存卡跳转前写入的占位掩码，等待 Keepz 回调补全
const CardMaskPending = "pending"

// PaymentMethod Keepz 绑卡记录
type PaymentMethod struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	UserID        int64     `gorm:"not null;index" json:"user_id"`
	Provider      string    `gorm:"size:20;not null;default:keepz" json:"provider"`
	ProviderToken string    `gorm:"size:128;index" json:"-"`
	CardMask      string    `gorm:"size:20;not null" json:"card_mask"` // pending 表示尚未完成绑卡
	CardBrand     string    `gorm:"size:20" json:"card_brand,omitempty"`
	IsDefault     bool      `gorm:"default:false" json:"is_default"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (PaymentMethod) TableName() string {
	return "user_payment_methods"
}
