package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/googlebiz"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/keepz"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/openai"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/paypal"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
	"github.com/qs3c/reviewhub_go_server/internal/testutil"
)

const testSigningSecret = "test-signing-secret"

// fakePayPal 可编程的 PayPal 假实现
type fakePayPal struct {
	subID       string
	approvalURL string
	detail      *paypal.SubscriptionDetail
	createErr   error
	cancelErr   error
	refundErr   error
	cancelCalls int
	refundCalls int
}

func (f *fakePayPal) CreateSubscription(ctx context.Context, planID string) (string, string, error) {
	if f.createErr != nil {
		return "", "", f.createErr
	}
	return f.subID, f.approvalURL, nil
}

func (f *fakePayPal) GetSubscription(ctx context.Context, subscriptionID string) (*paypal.SubscriptionDetail, error) {
	if f.detail == nil {
		return &paypal.SubscriptionDetail{ID: subscriptionID, Status: "APPROVAL_PENDING"}, nil
	}
	return f.detail, nil
}

func (f *fakePayPal) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	f.cancelCalls++
	return f.cancelErr
}

func (f *fakePayPal) Refund(ctx context.Context, captureID string) error {
	f.refundCalls++
	return f.refundErr
}

type fakeLemon struct {
	checkoutURL string
	cancelCalls int
	refundCalls int
}

func (f *fakeLemon) CreateCheckout(ctx context.Context, variantID string, localSubscriptionID int64, email string) (string, error) {
	return f.checkoutURL, nil
}

func (f *fakeLemon) CancelSubscription(ctx context.Context, subscriptionID string) error {
	f.cancelCalls++
	return nil
}

func (f *fakeLemon) Refund(ctx context.Context, orderID string) error {
	f.refundCalls++
	return nil
}

func (f *fakeLemon) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write(body)
	return signature == hex.EncodeToString(mac.Sum(nil))
}

type fakeKeepz struct {
	redirectURL string
	chargeRes   *keepz.ChargeResult
	chargeErr   error
	callback    *keepz.CallbackEvent
	cancelCalls int
}

func (f *fakeKeepz) CreateSaveCardOrder(ctx context.Context, reference string) (string, error) {
	return f.redirectURL, nil
}

func (f *fakeKeepz) ChargeSavedCard(ctx context.Context, cardToken, productID, reference string, amount float64, currency string) (*keepz.ChargeResult, error) {
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	if f.chargeRes == nil {
		return &keepz.ChargeResult{OrderID: "KPZ-1", Paid: true}, nil
	}
	return f.chargeRes, nil
}

func (f *fakeKeepz) CancelRecurring(ctx context.Context, orderID string) error {
	f.cancelCalls++
	return nil
}

func (f *fakeKeepz) DecryptCallback(body []byte) (*keepz.CallbackEvent, error) {
	if f.callback == nil {
		return nil, fmt.Errorf("no callback configured")
	}
	return f.callback, nil
}

type fakeAnalyzer struct {
	insight *openai.ReviewInsight
	reply   string
}

func (f *fakeAnalyzer) AnalyzeReview(ctx context.Context, rating int, comment string) (*openai.ReviewInsight, error) {
	if f.insight != nil {
		return f.insight, nil
	}
	sentiment := "positive"
	if rating <= 2 {
		sentiment = "negative"
	}
	return &openai.ReviewInsight{Sentiment: sentiment, Topics: []string{"service"}}, nil
}

func (f *fakeAnalyzer) DraftReply(ctx context.Context, businessName string, rating int, comment, tone string) (string, error) {
	if f.reply != "" {
		return f.reply, nil
	}
	return "Thank you for your feedback!", nil
}

type fakeBusiness struct {
	reviews    []*googlebiz.Review
	replyCalls int
}

func (f *fakeBusiness) ListReviews(ctx context.Context, token, locationID string) ([]*googlebiz.Review, error) {
	return f.reviews, nil
}

func (f *fakeBusiness) ReplyToReview(ctx context.Context, token, locationID, reviewID, comment string) error {
	f.replyCalls++
	return nil
}

func testBillingConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireHours: 24},
		Billing: config.BillingConfig{
			Plans: map[string]config.PlanConfig{
				"starter":      {PayPalPlanID: "P-STARTER", LemonVariantID: "111", KeepzProductID: "kp-starter", Price: 29, MonthlyReplies: 100},
				"professional": {PayPalPlanID: "P-PRO", LemonVariantID: "222", KeepzProductID: "kp-pro", Price: 79, MonthlyReplies: 500},
			},
			RefundWindowHours: 48,
			Currency:          "USD",
			InvoicePrefix:     "RH",
		},
	}
}

type testEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	subSvc  *SubscriptionService
	webhook *WebhookService
	paypal  *fakePayPal
	lemon   *fakeLemon
	keepz   *fakeKeepz

	subscriptionRepo  *repository.SubscriptionRepository
	eventRepo         *repository.SubscriptionEventRepository
	userPlanRepo      *repository.UserPlanRepository
	paymentRepo       *repository.PaymentRepository
	paymentMethodRepo *repository.PaymentMethodRepository
	webhookRepo       *repository.WebhookEventRepository
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testBillingConfig()
	env := &testEnv{
		db:                db,
		cfg:               cfg,
		paypal:            &fakePayPal{subID: "I-PAYPAL", approvalURL: "https://paypal.test/approve"},
		lemon:             &fakeLemon{checkoutURL: "https://lemon.test/checkout"},
		keepz:             &fakeKeepz{redirectURL: "https://keepz.test/save-card"},
		subscriptionRepo:  repository.NewSubscriptionRepository(db),
		eventRepo:         repository.NewSubscriptionEventRepository(db),
		userPlanRepo:      repository.NewUserPlanRepository(db),
		paymentRepo:       repository.NewPaymentRepository(db),
		paymentMethodRepo: repository.NewPaymentMethodRepository(db),
		webhookRepo:       repository.NewWebhookEventRepository(db),
	}

	userRepo := repository.NewUserRepository(db)
	invoiceSvc := NewInvoiceService(db, &cfg.Billing, env.subscriptionRepo, env.paymentRepo, userRepo)

	env.subSvc = NewSubscriptionService(
		db, cfg,
		env.subscriptionRepo, env.eventRepo, env.userPlanRepo,
		env.paymentRepo, env.paymentMethodRepo, userRepo,
		invoiceSvc, nil,
		env.paypal, env.lemon, env.keepz,
	)

	env.webhook = NewWebhookService(
		env.subSvc,
		env.subscriptionRepo, env.eventRepo, env.userPlanRepo,
		env.webhookRepo, env.paymentMethodRepo,
		env.lemon, env.keepz,
	)

	return env
}

func signLemonBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
