package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

var ErrTransactionNotFound = errors.New("交易记录不存在")

// InvoiceService 发票开具与查询
type InvoiceService struct {
	db               *gorm.DB
	cfg              *config.BillingConfig
	subscriptionRepo *repository.SubscriptionRepository
	paymentRepo      *repository.PaymentRepository
	userRepo         *repository.UserRepository
}

func NewInvoiceService(
	db *gorm.DB,
	cfg *config.BillingConfig,
	subscriptionRepo *repository.SubscriptionRepository,
	paymentRepo *repository.PaymentRepository,
	userRepo *repository.UserRepository,
) *InvoiceService {
	return &InvoiceService{
		db:               db,
		cfg:              cfg,
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		userRepo:         userRepo,
	}
}

// IssueTx 在调用方事务内为一笔交易开票。
// 客户字段取开票时刻的快照，之后改资料不影响历史发票。
func (s *InvoiceService) IssueTx(tx *gorm.DB, sub *model.Subscription, payment *model.PaymentTransaction) (*model.Invoice, error) {
	user, err := s.userRepo.GetByID(sub.UserID)
	if err != nil {
		return nil, err
	}

	invoice := &model.Invoice{
		InvoiceNumber: s.nextNumber(),
		UserID:        sub.UserID,
		TransactionID: payment.ID,
		PlanType:      sub.PlanType,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		CustomerName:  user.FullName,
		Company:       user.Company,
		IssuedAt:      time.Now(),
	}
	if invoice.CustomerName == "" {
		invoice.CustomerName = user.Username
	}
	if user.Email != nil {
		invoice.CustomerEmail = *user.Email
	}

	if err := s.paymentRepo.WithTx(tx).CreateInvoice(invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// Generate 为一笔交易补开发票。已开过的直接返回原票，
// 他人的交易按不存在处理。
func (s *InvoiceService) Generate(userID, transactionID int64) (*dto.InvoiceItem, error) {
	payment, err := s.paymentRepo.GetTransactionByID(transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrTransactionNotFound
	}

	if existing, err := s.paymentRepo.GetInvoiceByTransactionID(transactionID); err == nil {
		return invoiceItem(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub, err := s.subscriptionRepo.GetByID(payment.SubscriptionID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.IssueTx(s.db, sub, payment)
	if err != nil {
		return nil, err
	}
	return invoiceItem(invoice), nil
}

// List 用户的发票列表
func (s *InvoiceService) List(userID int64) ([]dto.InvoiceItem, error) {
	invoices, err := s.paymentRepo.ListInvoicesByUserID(userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.InvoiceItem, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, *invoiceItem(&inv))
	}
	return items, nil
}

func invoiceItem(inv *model.Invoice) *dto.InvoiceItem {
	return &dto.InvoiceItem{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		PlanType:      inv.PlanType,
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		CustomerEmail: inv.CustomerEmail,
		CustomerName:  inv.CustomerName,
		Company:       inv.Company,
		IssuedAt:      inv.IssuedAt.Format(time.RFC3339),
	}
}

// nextNumber 生成发票编号：前缀-年月-6位随机段，如 RH-202608-A1B2C3
func (s *InvoiceService) nextNumber() string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("%s-%s-%s", s.cfg.InvoicePrefix, time.Now().Format("200601"), random)
}
