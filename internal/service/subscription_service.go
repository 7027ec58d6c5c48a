package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/email"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/lifecycle"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

var (
	ErrSubscriptionNotFound  = errors.New("订阅不存在")
	ErrNotSubscriptionOwner  = errors.New("无权操作该订阅")
	ErrSubscriptionTerminal  = errors.New("订阅已结束")
	ErrRefundWindowClosed    = errors.New("已超出 48 小时退款时限")
	ErrRefundNotEligible     = errors.New("该订阅不支持退款")
	ErrPaymentMethodRequired = errors.New("请先完成绑卡")
	ErrChargeDeclined        = errors.New("扣款未成功")
)

type SubscriptionService struct {
	db                *gorm.DB
	cfg               *config.Config
	subscriptionRepo  *repository.SubscriptionRepository
	eventRepo         *repository.SubscriptionEventRepository
	userPlanRepo      *repository.UserPlanRepository
	paymentRepo       *repository.PaymentRepository
	paymentMethodRepo *repository.PaymentMethodRepository
	userRepo          *repository.UserRepository
	invoiceService    *InvoiceService
	emailService      *email.Service

	paypal PayPalProvider
	lemon  LemonSqueezyProvider
	keepz  KeepzProvider
}

func NewSubscriptionService(
	db *gorm.DB,
	cfg *config.Config,
	subscriptionRepo *repository.SubscriptionRepository,
	eventRepo *repository.SubscriptionEventRepository,
	userPlanRepo *repository.UserPlanRepository,
	paymentRepo *repository.PaymentRepository,
	paymentMethodRepo *repository.PaymentMethodRepository,
	userRepo *repository.UserRepository,
	invoiceService *InvoiceService,
	emailService *email.Service,
	paypalClient PayPalProvider,
	lemonClient LemonSqueezyProvider,
	keepzClient KeepzProvider,
) *SubscriptionService {
	return &SubscriptionService{
		db:                db,
		cfg:               cfg,
		subscriptionRepo:  subscriptionRepo,
		eventRepo:         eventRepo,
		userPlanRepo:      userPlanRepo,
		paymentRepo:       paymentRepo,
		paymentMethodRepo: paymentMethodRepo,
		userRepo:          userRepo,
		invoiceService:    invoiceService,
		emailService:      emailService,
		paypal:            paypalClient,
		lemon:             lemonClient,
		keepz:             keepzClient,
	}
}

// Create 创建订阅，按渠道分派。
// PayPal 和 LemonSqueezy 返回跳转链接，激活靠 webhook；
// Keepz 已绑卡时同步扣款，成功即激活；fake 渠道直接激活。
func (s *SubscriptionService) Create(ctx context.Context, userID int64, req *dto.CreateSubscriptionRequest) (*dto.CreateSubscriptionResponse, error) {
	plan, ok := s.cfg.Billing.Plans[req.PlanType]
	if !ok {
		return nil, ErrUnknownPlan
	}

	sub := &model.Subscription{
		UserID:      userID,
		PlanType:    req.PlanType,
		Provider:    req.Provider,
		Status:      model.SubscriptionPending,
		Amount:      plan.Price,
		Currency:    s.cfg.Billing.Currency,
		CampaignID:  req.CampaignID,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
	}
	if err := s.subscriptionRepo.Create(sub); err != nil {
		return nil, err
	}
	s.appendEvent(sub.ID, model.EventSubscriptionCreated, req.Provider, "")

	switch req.Provider {
	case model.ProviderPayPal:
		return s.createPayPal(ctx, sub, &plan)
	case model.ProviderLemonSqueezy:
		return s.createLemonSqueezy(ctx, sub)
	case model.ProviderKeepz:
		return s.createKeepz(ctx, sub, &plan, req.PaymentMethodID)
	case model.ProviderFake:
		return s.createFake(sub)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", req.Provider)
	}
}

func (s *SubscriptionService) createPayPal(ctx context.Context, sub *model.Subscription, plan *config.PlanConfig) (*dto.CreateSubscriptionResponse, error) {
	providerSubID, approvalURL, err := s.paypal.CreateSubscription(ctx, plan.PayPalPlanID)
	if err != nil {
		return nil, fmt.Errorf("paypal create subscription: %w", err)
	}

	if err := s.subscriptionRepo.UpdateFields(sub.ID, map[string]interface{}{
		"provider_subscription_id": providerSubID,
	}); err != nil {
		return nil, err
	}

	return &dto.CreateSubscriptionResponse{
		SubscriptionID: sub.ID,
		Status:         model.SubscriptionPending,
		ApprovalURL:    approvalURL,
	}, nil
}

func (s *SubscriptionService) createLemonSqueezy(ctx context.Context, sub *model.Subscription) (*dto.CreateSubscriptionResponse, error) {
	userEmail := ""
	if user, err := s.userRepo.GetByID(sub.UserID); err == nil && user.Email != nil {
		userEmail = *user.Email
	}

	plan := s.cfg.Billing.Plans[sub.PlanType]
	checkoutURL, err := s.lemon.CreateCheckout(ctx, plan.LemonVariantID, sub.ID, userEmail)
	if err != nil {
		return nil, fmt.Errorf("lemonsqueezy create checkout: %w", err)
	}

	// 渠道侧订阅 ID 在 subscription_created webhook 里才会回填

	return &dto.CreateSubscriptionResponse{
		SubscriptionID: sub.ID,
		Status:         model.SubscriptionPending,
		ApprovalURL:    checkoutURL,
	}, nil
}

func (s *SubscriptionService) createKeepz(ctx context.Context, sub *model.Subscription, plan *config.PlanConfig, paymentMethodID int64) (*dto.CreateSubscriptionResponse, error) {
	if paymentMethodID == 0 {
		return nil, ErrPaymentMethodRequired
	}

	pm, err := s.paymentMethodRepo.GetByID(paymentMethodID)
	if err != nil || pm.UserID != sub.UserID || pm.CardMask == model.CardMaskPending {
		return nil, ErrPaymentMethodRequired
	}

	reference := fmt.Sprintf("sub-%d", sub.ID)
	result, err := s.keepz.ChargeSavedCard(ctx, pm.ProviderToken, plan.KeepzProductID, reference, plan.Price, sub.Currency)
	if err != nil {
		return nil, fmt.Errorf("keepz charge: %w", err)
	}
	if !result.Paid {
		return nil, ErrChargeDeclined
	}

	periodEnd := time.Now().AddDate(0, 1, 0)
	if err := s.Activate(sub.ID, result.OrderID, &periodEnd, result.OrderID, sub.Amount, sub.Currency, ""); err != nil {
		return nil, err
	}

	return &dto.CreateSubscriptionResponse{
		SubscriptionID: sub.ID,
		Status:         model.SubscriptionActive,
	}, nil
}

// createFake 演示渠道，跳过真实支付直接激活
func (s *SubscriptionService) createFake(sub *model.Subscription) (*dto.CreateSubscriptionResponse, error) {
	periodEnd := time.Now().AddDate(0, 1, 0)
	fakeTxID := fmt.Sprintf("FAKE-%d-%d", sub.ID, time.Now().Unix())

	if err := s.Activate(sub.ID, fakeTxID, &periodEnd, fakeTxID, sub.Amount, sub.Currency, ""); err != nil {
		return nil, err
	}

	return &dto.CreateSubscriptionResponse{
		SubscriptionID: sub.ID,
		Status:         model.SubscriptionActive,
	}, nil
}

// Activate 激活订阅并记账，webhook 和同步扣款共用这条路径。
// 在同一个事务里：订阅转 active、开退款窗口、取消同一用户其他 active 订阅、
// 更新权益、写审计事件；providerTxID 非空时落交易并开票。
// 终态订阅不会被改写，重复激活幂等返回。
func (s *SubscriptionService) Activate(subscriptionID int64, providerSubID string, periodEnd *time.Time, providerTxID string, amount float64, currency, rawPayload string) error {
	var receipt *model.Invoice
	var userID int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		subRepo := s.subscriptionRepo.WithTx(tx)
		eventRepo := s.eventRepo.WithTx(tx)
		planRepo := s.userPlanRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		sub, err := subRepo.GetByID(subscriptionID)
		if err != nil {
			return err
		}
		userID = sub.UserID

		next, err := lifecycle.Activate(lifecycle.State(sub.Status))
		if err != nil {
			// 终态不回退，迟到的激活事件按无效转移丢弃
			log.Printf("Activate subscription %d ignored: %v", subscriptionID, err)
			return nil
		}
		alreadyActive := sub.Status == model.SubscriptionActive

		now := time.Now()
		// 退款窗口从下单时刻起算，webhook 迟到不会把窗口重新拉开
		refundUntil := sub.CreatedAt.Add(time.Duration(s.cfg.Billing.RefundWindowHours) * time.Hour)

		fields := map[string]interface{}{
			"status": string(next),
		}
		if providerSubID != "" && sub.ProviderSubscriptionID == "" {
			fields["provider_subscription_id"] = providerSubID
		}
		if periodEnd != nil {
			fields["current_period_end"] = *periodEnd
		}
		if !alreadyActive {
			fields["can_refund"] = true
			fields["refund_eligible_until"] = refundUntil
		}
		if err := subRepo.UpdateFields(sub.ID, fields); err != nil {
			return err
		}

		if !alreadyActive {
			// 同一用户只保留一个 active 订阅
			if err := s.cancelSiblings(tx, sub); err != nil {
				return err
			}

			expiresAt := periodEnd
			if expiresAt == nil {
				fallback := now.AddDate(0, 1, 0)
				expiresAt = &fallback
			}
			if err := planRepo.Upsert(&model.UserPlan{
				UserID:         sub.UserID,
				PlanType:       sub.PlanType,
				SubscriptionID: &sub.ID,
				Provider:       sub.Provider,
				ExpiresAt:      expiresAt,
			}); err != nil {
				return err
			}

			if err := eventRepo.Create(&model.SubscriptionEvent{
				SubscriptionID: sub.ID,
				EventType:      model.EventSubscriptionActivated,
				Provider:       sub.Provider,
				RawPayload:     rawPayload,
			}); err != nil {
				return err
			}
		}

		if providerTxID != "" {
			// 交易按渠道交易号去重，重放的支付事件不会重复记账
			if _, err := paymentRepo.GetTransactionByProviderID(providerTxID); err == nil {
				return nil
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			if amount == 0 {
				amount = sub.Amount
			}
			if currency == "" {
				currency = sub.Currency
			}

			payment := &model.PaymentTransaction{
				UserID:                sub.UserID,
				SubscriptionID:        sub.ID,
				Provider:              sub.Provider,
				ProviderTransactionID: providerTxID,
				Amount:                amount,
				Currency:              currency,
				Status:                model.TransactionCompleted,
			}
			if err := paymentRepo.CreateTransaction(payment); err != nil {
				return err
			}

			if err := eventRepo.Create(&model.SubscriptionEvent{
				SubscriptionID: sub.ID,
				EventType:      model.EventPaymentCompleted,
				Provider:       sub.Provider,
				RawPayload:     rawPayload,
			}); err != nil {
				return err
			}

			invoice, err := s.invoiceService.IssueTx(tx, sub, payment)
			if err != nil {
				return err
			}
			receipt = invoice
		}

		return nil
	})
	if err != nil {
		return err
	}

	if receipt != nil {
		s.sendReceiptEmail(userID, receipt)
	}
	return nil
}

// cancelSiblings 取消同一用户的其他 active 订阅（换套餐场景）
func (s *SubscriptionService) cancelSiblings(tx *gorm.DB, current *model.Subscription) error {
	var siblings []model.Subscription
	err := tx.Where("user_id = ? AND status = ? AND id <> ?",
		current.UserID, model.SubscriptionActive, current.ID).Find(&siblings).Error
	if err != nil {
		return err
	}

	now := time.Now()
	for _, sib := range siblings {
		err := tx.Model(&model.Subscription{}).Where("id = ?", sib.ID).Updates(map[string]interface{}{
			"status":       model.SubscriptionCancelled,
			"cancelled_at": now,
			"can_refund":   false,
		}).Error
		if err != nil {
			return err
		}
		err = tx.Create(&model.SubscriptionEvent{
			SubscriptionID: sib.ID,
			EventType:      model.EventSubscriptionCancelled,
			Provider:       sib.Provider,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// GetStatus 查询订阅状态。pending 的 PayPal 订阅会顺带查一次渠道，
// webhook 偶尔丢失时前端轮询也能把状态对齐。
func (s *SubscriptionService) GetStatus(ctx context.Context, userID, subscriptionID int64) (*dto.SubscriptionStatusResponse, error) {
	sub, err := s.getOwned(userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.Status == model.SubscriptionPending &&
		sub.Provider == model.ProviderPayPal && sub.ProviderSubscriptionID != "" {
		if detail, err := s.paypal.GetSubscription(ctx, sub.ProviderSubscriptionID); err == nil && detail.Status == "ACTIVE" {
			if err := s.Activate(sub.ID, sub.ProviderSubscriptionID, detail.NextBillingTime, "", 0, "", ""); err != nil {
				log.Printf("Reconcile activation for subscription %d failed: %v", sub.ID, err)
			} else if sub, err = s.subscriptionRepo.GetByID(sub.ID); err != nil {
				return nil, err
			}
		}
	}

	resp := &dto.SubscriptionStatusResponse{
		SubscriptionID: sub.ID,
		Status:         sub.Status,
		PlanType:       sub.PlanType,
		Provider:       sub.Provider,
	}
	if sub.CurrentPeriodEnd != nil {
		resp.CurrentPeriodEnd = sub.CurrentPeriodEnd.Format(time.RFC3339)
	}
	return resp, nil
}

// Cancel 取消订阅。权益保留到周期结束，由到期扫描降级。
// 已取消的订阅幂等返回，已过期的拒绝。
func (s *SubscriptionService) Cancel(ctx context.Context, userID, subscriptionID int64, reason string) error {
	sub, err := s.getOwned(userID, subscriptionID)
	if err != nil {
		return err
	}

	if sub.Status == model.SubscriptionCancelled {
		return nil
	}
	if _, err := lifecycle.Cancel(lifecycle.State(sub.Status)); err != nil {
		return ErrSubscriptionTerminal
	}

	// 先停渠道侧扣款，渠道失败就不动本地状态
	if err := s.cancelAtProvider(ctx, sub, reason); err != nil {
		return err
	}

	now := time.Now()
	if err := s.subscriptionRepo.UpdateFields(sub.ID, map[string]interface{}{
		"status":               model.SubscriptionCancelled,
		"cancelled_at":         now,
		"cancel_at_period_end": true,
	}); err != nil {
		return err
	}
	s.appendEvent(sub.ID, model.EventSubscriptionCancelled, sub.Provider, "")

	s.sendCancellationEmail(sub)
	return nil
}

func (s *SubscriptionService) cancelAtProvider(ctx context.Context, sub *model.Subscription, reason string) error {
	if sub.ProviderSubscriptionID == "" {
		return nil
	}
	switch sub.Provider {
	case model.ProviderPayPal:
		return s.paypal.CancelSubscription(ctx, sub.ProviderSubscriptionID, reason)
	case model.ProviderLemonSqueezy:
		return s.lemon.CancelSubscription(ctx, sub.ProviderSubscriptionID)
	case model.ProviderKeepz:
		return s.keepz.CancelRecurring(ctx, sub.ProviderSubscriptionID)
	default:
		return nil
	}
}

// Refund 退款。仅在激活后 48 小时窗口内允许，
// 退款立即终止订阅并降级权益。
func (s *SubscriptionService) Refund(ctx context.Context, userID, subscriptionID int64, reason string) error {
	sub, err := s.getOwned(userID, subscriptionID)
	if err != nil {
		return err
	}

	if !sub.CanRefund || sub.RefundEligibleUntil == nil {
		return ErrRefundNotEligible
	}
	if time.Now().After(*sub.RefundEligibleUntil) {
		return ErrRefundWindowClosed
	}

	payment, err := s.paymentRepo.GetLatestTransaction(sub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRefundNotEligible
		}
		return err
	}

	if err := s.refundAtProvider(ctx, sub, payment); err != nil {
		return err
	}

	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.WithTx(tx).MarkTransactionRefunded(payment.ID); err != nil {
			return err
		}
		if err := s.subscriptionRepo.WithTx(tx).UpdateFields(sub.ID, map[string]interface{}{
			"status":       model.SubscriptionCancelled,
			"cancelled_at": now,
			"can_refund":   false,
		}); err != nil {
			return err
		}
		eventRepo := s.eventRepo.WithTx(tx)
		if err := eventRepo.Create(&model.SubscriptionEvent{
			SubscriptionID: sub.ID,
			EventType:      model.EventRefundIssued,
			Provider:       sub.Provider,
			RawPayload:     reason,
		}); err != nil {
			return err
		}
		if err := eventRepo.Create(&model.SubscriptionEvent{
			SubscriptionID: sub.ID,
			EventType:      model.EventSubscriptionCancelled,
			Provider:       sub.Provider,
		}); err != nil {
			return err
		}

		// 退款即收回权益
		planRepo := s.userPlanRepo.WithTx(tx)
		plan, err := planRepo.GetByUserID(sub.UserID)
		if err != nil {
			return err
		}
		if plan.SubscriptionID != nil && *plan.SubscriptionID == sub.ID {
			return planRepo.Downgrade(sub.UserID)
		}
		return nil
	})
}

func (s *SubscriptionService) refundAtProvider(ctx context.Context, sub *model.Subscription, payment *model.PaymentTransaction) error {
	switch sub.Provider {
	case model.ProviderPayPal:
		return s.paypal.Refund(ctx, payment.ProviderTransactionID)
	case model.ProviderLemonSqueezy:
		return s.lemon.Refund(ctx, payment.ProviderTransactionID)
	case model.ProviderKeepz:
		// Keepz 没有退款接口，停掉后续扣款，退款走线下
		return s.keepz.CancelRecurring(ctx, payment.ProviderTransactionID)
	default:
		return nil
	}
}

// List 用户的订阅历史
func (s *SubscriptionService) List(userID int64) ([]dto.SubscriptionListItem, error) {
	subs, err := s.subscriptionRepo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.SubscriptionListItem, 0, len(subs))
	for _, sub := range subs {
		item := dto.SubscriptionListItem{
			ID:        sub.ID,
			PlanType:  sub.PlanType,
			Provider:  sub.Provider,
			Status:    sub.Status,
			CreatedAt: sub.CreatedAt.Format(time.RFC3339),
		}
		if sub.CurrentPeriodEnd != nil {
			item.CurrentPeriodEnd = sub.CurrentPeriodEnd.Format(time.RFC3339)
		}
		if sub.CancelledAt != nil {
			item.CancelledAt = sub.CancelledAt.Format(time.RFC3339)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *SubscriptionService) getOwned(userID, subscriptionID int64) (*model.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	if sub.UserID != userID {
		return nil, ErrNotSubscriptionOwner
	}
	return sub, nil
}

func (s *SubscriptionService) appendEvent(subscriptionID int64, eventType, provider, rawPayload string) {
	err := s.eventRepo.Create(&model.SubscriptionEvent{
		SubscriptionID: subscriptionID,
		EventType:      eventType,
		Provider:       provider,
		RawPayload:     rawPayload,
	})
	if err != nil {
		log.Printf("Failed to append subscription event: %v", err)
	}
}

func (s *SubscriptionService) sendReceiptEmail(userID int64, invoice *model.Invoice) {
	if s.emailService == nil || invoice.CustomerEmail == "" {
		return
	}
	go func() {
		err := s.emailService.SendPaymentReceipt(invoice.CustomerEmail,
			invoice.InvoiceNumber, invoice.PlanType, invoice.Amount, invoice.Currency)
		if err != nil {
			log.Printf("Failed to send receipt email for user %d: %v", userID, err)
		}
	}()
}

func (s *SubscriptionService) sendCancellationEmail(sub *model.Subscription) {
	if s.emailService == nil {
		return
	}
	user, err := s.userRepo.GetByID(sub.UserID)
	if err != nil || user.Email == nil {
		return
	}
	periodEnd := ""
	if sub.CurrentPeriodEnd != nil {
		periodEnd = sub.CurrentPeriodEnd.Format("2006-01-02")
	}
	to := *user.Email
	go func() {
		if err := s.emailService.SendCancellationNotice(to, sub.PlanType, periodEnd); err != nil {
			log.Printf("Failed to send cancellation email for user %d: %v", sub.UserID, err)
		}
	}()
}
