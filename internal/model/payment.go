package model

import (
	"time"
)

// 交易状态
const (
	TransactionCompleted = "completed"
	TransactionRefunded  = "refunded"
)

type PaymentTransaction struct {
	ID                    int64     `gorm:"primaryKey" json:"id"`
	UserID                int64     `gorm:"not null;index" json:"user_id"`
	SubscriptionID        int64     `gorm:"not null;index" json:"subscription_id"`
	Provider              string    `gorm:"size:20;not null" json:"provider"`
	ProviderTransactionID string    `gorm:"size:128;uniqueIndex" json:"provider_transaction_id"`
	Amount                float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency              string    `gorm:"size:8;not null" json:"currency"`
	Status                string    `gorm:"size:20;default:completed;index" json:"status"` // completed, refunded
	CreatedAt             time.Time `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// Invoice 开票记录，客户字段是开票时刻的快照
type Invoice struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	InvoiceNumber string    `gorm:"size:40;uniqueIndex;not null" json:"invoice_number"`
	UserID        int64     `gorm:"not null;index" json:"user_id"`
	TransactionID int64     `gorm:"not null;uniqueIndex" json:"transaction_id"`
	PlanType      string    `gorm:"size:20" json:"plan_type"`
	Amount        float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency      string    `gorm:"size:8;not null" json:"currency"`
	CustomerEmail string    `gorm:"size:100" json:"customer_email"`
	CustomerName  string    `gorm:"size:100" json:"customer_name"`
	Company       string    `gorm:"size:100" json:"company,omitempty"`
	IssuedAt      time.Time `gorm:"not null" json:"issued_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}
