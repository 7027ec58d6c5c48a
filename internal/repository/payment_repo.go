package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) CreateTransaction(tx *model.PaymentTransaction) error {
	return r.db.Create(tx).Error
}

func (r *PaymentRepository) GetTransactionByID(id int64) (*model.PaymentTransaction, error) {
	var tx model.PaymentTransaction
	err := r.db.Where("id = ?", id).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *PaymentRepository) GetTransactionByProviderID(providerTxID string) (*model.PaymentTransaction, error) {
	var tx model.PaymentTransaction
	err := r.db.Where("provider_transaction_id = ?", providerTxID).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetLatestTransaction 取订阅下最近一笔已完成交易，退款时用
func (r *PaymentRepository) GetLatestTransaction(subscriptionID int64) (*model.PaymentTransaction, error) {
	var tx model.PaymentTransaction
	err := r.db.Where("subscription_id = ? AND status = ?", subscriptionID, model.TransactionCompleted).
		Order("created_at DESC").First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *PaymentRepository) ListTransactionsByUserID(userID int64) ([]model.PaymentTransaction, error) {
	var txs []model.PaymentTransaction
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&txs).Error
	return txs, err
}

func (r *PaymentRepository) MarkTransactionRefunded(id int64) error {
	return r.db.Model(&model.PaymentTransaction{}).Where("id = ?", id).
		Update("status", model.TransactionRefunded).Error
}

func (r *PaymentRepository) CreateInvoice(invoice *model.Invoice) error {
	return r.db.Create(invoice).Error
}

func (r *PaymentRepository) GetInvoiceByID(id int64) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.Where("id = ?", id).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *PaymentRepository) GetInvoiceByTransactionID(transactionID int64) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.Where("transaction_id = ?", transactionID).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *PaymentRepository) ListInvoicesByUserID(userID int64) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.Where("user_id = ?", userID).Order("issued_at DESC").Find(&invoices).Error
	return invoices, err
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}
