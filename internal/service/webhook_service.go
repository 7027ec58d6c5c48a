package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/lifecycle"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

var ErrInvalidSignature = errors.New("webhook 签名校验失败")

// WebhookService 把各渠道的异步通知归一成订阅状态变更。
// 所有事件先按渠道事件 ID 去重，重放直接丢弃；
// 匹配不到本地订阅的事件记录后忽略，不报错（渠道会停止重试）。
type WebhookService struct {
	subscriptionService *SubscriptionService
	subscriptionRepo    *repository.SubscriptionRepository
	eventRepo           *repository.SubscriptionEventRepository
	userPlanRepo        *repository.UserPlanRepository
	webhookRepo         *repository.WebhookEventRepository
	paymentMethodRepo   *repository.PaymentMethodRepository

	lemon LemonSqueezyProvider
	keepz KeepzProvider
}

func NewWebhookService(
	subscriptionService *SubscriptionService,
	subscriptionRepo *repository.SubscriptionRepository,
	eventRepo *repository.SubscriptionEventRepository,
	userPlanRepo *repository.UserPlanRepository,
	webhookRepo *repository.WebhookEventRepository,
	paymentMethodRepo *repository.PaymentMethodRepository,
	lemonClient LemonSqueezyProvider,
	keepzClient KeepzProvider,
) *WebhookService {
	return &WebhookService{
		subscriptionService: subscriptionService,
		subscriptionRepo:    subscriptionRepo,
		eventRepo:           eventRepo,
		userPlanRepo:        userPlanRepo,
		webhookRepo:         webhookRepo,
		paymentMethodRepo:   paymentMethodRepo,
		lemon:               lemonClient,
		keepz:               keepzClient,
	}
}

// HandlePayPal 处理 PayPal webhook
// TODO: 接入 /v1/notifications/verify-webhook-signature 校验来源
func (s *WebhookService) HandlePayPal(body []byte) (err error) {
	var event struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		Resource  struct {
			ID                 string `json:"id"`
			BillingAgreementID string `json:"billing_agreement_id"`
			BillingInfo        struct {
				NextBillingTime string `json:"next_billing_time"`
			} `json:"billing_info"`
			Amount struct {
				Total    string `json:"total"`
				Currency string `json:"currency"`
			} `json:"amount"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("invalid paypal webhook payload: %w", err)
	}

	if err := s.dedupe(model.ProviderPayPal, event.ID, event.EventType); err != nil {
		return err
	}
	defer func() { s.releaseOnFailure(event.ID, err) }()

	switch event.EventType {
	case "BILLING.SUBSCRIPTION.ACTIVATED":
		sub, err := s.matchSubscription(model.ProviderPayPal, event.Resource.ID, event.ID)
		if err != nil || sub == nil {
			return err
		}
		var periodEnd *time.Time
		if ts, err := time.Parse(time.RFC3339, event.Resource.BillingInfo.NextBillingTime); err == nil {
			periodEnd = &ts
		}
		return s.subscriptionService.Activate(sub.ID, event.Resource.ID, periodEnd, "", 0, "", string(body))

	case "PAYMENT.SALE.COMPLETED":
		sub, err := s.matchSubscription(model.ProviderPayPal, event.Resource.BillingAgreementID, event.ID)
		if err != nil || sub == nil {
			return err
		}
		amount, _ := strconv.ParseFloat(event.Resource.Amount.Total, 64)
		return s.subscriptionService.Activate(sub.ID, event.Resource.BillingAgreementID,
			nil, event.Resource.ID, amount, event.Resource.Amount.Currency, string(body))

	case "BILLING.SUBSCRIPTION.CANCELLED":
		return s.markCancelled(model.ProviderPayPal, event.Resource.ID, event.ID, string(body))

	case "BILLING.SUBSCRIPTION.EXPIRED":
		return s.markExpired(model.ProviderPayPal, event.Resource.ID, event.ID, string(body))

	default:
		log.Printf("PayPal webhook %s ignored: %s", event.ID, event.EventType)
		return nil
	}
}

// HandleLemonSqueezy 处理 LemonSqueezy webhook。
// 签名不对直接拒绝；payload 没有事件 ID，用请求体哈希去重。
func (s *WebhookService) HandleLemonSqueezy(body []byte, signature string) (err error) {
	if !s.lemon.VerifySignature(body, signature) {
		return ErrInvalidSignature
	}

	var event struct {
		Meta struct {
			EventName  string `json:"event_name"`
			CustomData struct {
				SubscriptionID string `json:"subscription_id"`
			} `json:"custom_data"`
		} `json:"meta"`
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Status   string  `json:"status"`
				RenewsAt string  `json:"renews_at"`
				OrderID  int64   `json:"order_id"`
				Total    float64 `json:"total"`
				Currency string  `json:"currency"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("invalid lemonsqueezy webhook payload: %w", err)
	}

	hash := sha256.Sum256(body)
	eventID := "ls-" + hex.EncodeToString(hash[:16])

	if err := s.dedupe(model.ProviderLemonSqueezy, eventID, event.Meta.EventName); err != nil {
		return err
	}
	defer func() { s.releaseOnFailure(eventID, err) }()

	switch event.Meta.EventName {
	case "subscription_created", "subscription_payment_success":
		sub, err := s.matchLemonSubscription(event.Meta.CustomData.SubscriptionID, event.Data.ID, eventID)
		if err != nil || sub == nil {
			return err
		}

		var periodEnd *time.Time
		if ts, err := time.Parse(time.RFC3339, event.Data.Attributes.RenewsAt); err == nil {
			periodEnd = &ts
		}

		providerTxID := ""
		if event.Meta.EventName == "subscription_payment_success" && event.Data.Attributes.OrderID != 0 {
			providerTxID = strconv.FormatInt(event.Data.Attributes.OrderID, 10)
		}
		// LemonSqueezy 金额以分为单位
		amount := event.Data.Attributes.Total / 100

		return s.subscriptionService.Activate(sub.ID, event.Data.ID, periodEnd,
			providerTxID, amount, strings.ToUpper(event.Data.Attributes.Currency), string(body))

	case "subscription_cancelled":
		return s.markCancelled(model.ProviderLemonSqueezy, event.Data.ID, eventID, string(body))

	case "subscription_expired":
		return s.markExpired(model.ProviderLemonSqueezy, event.Data.ID, eventID, string(body))

	default:
		log.Printf("LemonSqueezy webhook ignored: %s", event.Meta.EventName)
		return nil
	}
}

// HandleKeepz 处理 Keepz 加密回调
func (s *WebhookService) HandleKeepz(body []byte) (err error) {
	event, err := s.keepz.DecryptCallback(body)
	if err != nil {
		return err
	}

	if err := s.dedupe(model.ProviderKeepz, event.EventID, event.Status); err != nil {
		return err
	}
	defer func() { s.releaseOnFailure(event.EventID, err) }()

	switch event.Status {
	case "CARD_SAVED":
		return s.completeCardSave(event.Reference, event.CardToken, event.CardMask, event.CardBrand, event.EventID)

	case "PAID":
		subID, ok := parseReference(event.Reference, "sub-")
		if !ok {
			log.Printf("Keepz callback %s: unrecognized reference %q", event.EventID, event.Reference)
			return nil
		}
		sub, err := s.subscriptionRepo.GetByID(subID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("Keepz callback %s: no subscription %d", event.EventID, subID)
				return nil
			}
			return err
		}
		s.markMatched(event.EventID)
		periodEnd := time.Now().AddDate(0, 1, 0)
		return s.subscriptionService.Activate(sub.ID, event.OrderID, &periodEnd, event.OrderID, 0, "", "")

	case "FAILED":
		log.Printf("Keepz callback %s: payment failed for %s", event.EventID, event.Reference)
		return nil

	default:
		log.Printf("Keepz callback %s ignored: %s", event.EventID, event.Status)
		return nil
	}
}

// completeCardSave 绑卡回调：补全占位记录的卡 token 和掩码
func (s *WebhookService) completeCardSave(reference, cardToken, cardMask, cardBrand, eventID string) error {
	pmID, ok := parseReference(reference, "pm-")
	if !ok {
		log.Printf("Keepz card save: unrecognized reference %q", reference)
		return nil
	}

	pm, err := s.paymentMethodRepo.GetByID(pmID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Keepz card save: no payment method %d", pmID)
			return nil
		}
		return err
	}

	pm.ProviderToken = cardToken
	pm.CardMask = cardMask
	pm.CardBrand = cardBrand
	if err := s.paymentMethodRepo.Update(pm); err != nil {
		return err
	}

	s.markMatched(eventID)
	return nil
}

// dedupe 记录事件，重放返回 nil 并跳过后续处理
func (s *WebhookService) dedupe(provider, eventID, eventType string) error {
	if eventID == "" {
		return fmt.Errorf("%s webhook missing event id", provider)
	}
	err := s.webhookRepo.Record(provider, eventID, eventType)
	if errors.Is(err, repository.ErrDuplicateEvent) {
		log.Printf("%s webhook %s replayed, skipping", provider, eventID)
		return errSkipDuplicate
	}
	return err
}

// releaseOnFailure 状态变更失败时撤掉去重记录，
// 事件记录只有处理成功才算数，渠道重试会重新走完整流程
func (s *WebhookService) releaseOnFailure(eventID string, err error) {
	if err == nil || IsDuplicate(err) {
		return
	}
	if derr := s.webhookRepo.Delete(eventID); derr != nil {
		log.Printf("Failed to release webhook event %s after error: %v", eventID, derr)
	}
}

// errSkipDuplicate 内部标记，handler 层把它当成功处理
var errSkipDuplicate = errors.New("duplicate webhook event")

// IsDuplicate 判断错误是否为重放事件
func IsDuplicate(err error) bool {
	return errors.Is(err, errSkipDuplicate)
}

// matchSubscription 按渠道订阅 ID 找本地订阅，找不到记录后返回 nil
func (s *WebhookService) matchSubscription(provider, providerSubID, eventID string) (*model.Subscription, error) {
	if providerSubID == "" {
		return nil, nil
	}
	sub, err := s.subscriptionRepo.GetByProviderSubscriptionID(provider, providerSubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("%s webhook %s: no local subscription for %s", provider, eventID, providerSubID)
			return nil, nil
		}
		return nil, err
	}
	s.markMatched(eventID)
	return sub, nil
}

// matchLemonSubscription 优先用 custom data 里的本地订阅 ID，
// 回填渠道订阅 ID 后续事件就能直接匹配
func (s *WebhookService) matchLemonSubscription(customSubID, providerSubID, eventID string) (*model.Subscription, error) {
	if customSubID != "" {
		localID, err := strconv.ParseInt(customSubID, 10, 64)
		if err == nil {
			sub, err := s.subscriptionRepo.GetByID(localID)
			if err == nil {
				s.markMatched(eventID)
				return sub, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}
	return s.matchSubscription(model.ProviderLemonSqueezy, providerSubID, eventID)
}

// markCancelled 渠道侧取消：本地转 cancelled，权益保留到周期结束
func (s *WebhookService) markCancelled(provider, providerSubID, eventID, rawPayload string) error {
	sub, err := s.matchSubscription(provider, providerSubID, eventID)
	if err != nil || sub == nil {
		return err
	}

	if sub.Status == model.SubscriptionCancelled {
		return nil
	}
	if _, err := lifecycle.Cancel(lifecycle.State(sub.Status)); err != nil {
		log.Printf("%s webhook %s: cancel ignored for subscription %d (%s)", provider, eventID, sub.ID, sub.Status)
		return nil
	}

	now := time.Now()
	if err := s.subscriptionRepo.UpdateFields(sub.ID, map[string]interface{}{
		"status":               model.SubscriptionCancelled,
		"cancelled_at":         now,
		"cancel_at_period_end": true,
	}); err != nil {
		return err
	}
	return s.eventRepo.Create(&model.SubscriptionEvent{
		SubscriptionID: sub.ID,
		EventType:      model.EventSubscriptionCancelled,
		Provider:       provider,
		RawPayload:     rawPayload,
	})
}

// markExpired 渠道侧过期：本地转 expired 并立即降级权益
func (s *WebhookService) markExpired(provider, providerSubID, eventID, rawPayload string) error {
	sub, err := s.matchSubscription(provider, providerSubID, eventID)
	if err != nil || sub == nil {
		return err
	}

	if sub.Status == model.SubscriptionExpired {
		return nil
	}
	if _, err := lifecycle.Expire(lifecycle.State(sub.Status)); err != nil {
		log.Printf("%s webhook %s: expire ignored for subscription %d (%s)", provider, eventID, sub.ID, sub.Status)
		return nil
	}

	if err := s.subscriptionRepo.UpdateFields(sub.ID, map[string]interface{}{
		"status":     model.SubscriptionExpired,
		"can_refund": false,
	}); err != nil {
		return err
	}
	if err := s.eventRepo.Create(&model.SubscriptionEvent{
		SubscriptionID: sub.ID,
		EventType:      model.EventSubscriptionExpired,
		Provider:       provider,
		RawPayload:     rawPayload,
	}); err != nil {
		return err
	}

	plan, err := s.userPlanRepo.GetByUserID(sub.UserID)
	if err != nil {
		return err
	}
	if plan.SubscriptionID != nil && *plan.SubscriptionID == sub.ID {
		return s.userPlanRepo.Downgrade(sub.UserID)
	}
	return nil
}

func (s *WebhookService) markMatched(eventID string) {
	if err := s.webhookRepo.MarkMatched(eventID); err != nil {
		log.Printf("Failed to mark webhook %s matched: %v", eventID, err)
	}
}

// parseReference 解析 "sub-123" / "pm-456" 形式的业务引用
func parseReference(reference, prefix string) (int64, bool) {
	if !strings.HasPrefix(reference, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(reference, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
