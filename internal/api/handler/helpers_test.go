package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/api/middleware"
	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/keepz"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/lemonsqueezy"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/response"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
	"github.com/qs3c/reviewhub_go_server/internal/service"
	"github.com/qs3c/reviewhub_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSigningSecret = "test-signing-secret"

// fakeKeepz 测试用 Keepz 客户端，不发网络请求
type fakeKeepz struct {
	callback *keepz.CallbackEvent
}

func (f *fakeKeepz) CreateSaveCardOrder(ctx context.Context, reference string) (string, error) {
	return "https://keepz.test/save-card", nil
}

func (f *fakeKeepz) ChargeSavedCard(ctx context.Context, cardToken, productID, reference string, amount float64, currency string) (*keepz.ChargeResult, error) {
	return &keepz.ChargeResult{OrderID: "ORD-TEST", Paid: true}, nil
}

func (f *fakeKeepz) CancelRecurring(ctx context.Context, orderID string) error {
	return nil
}

func (f *fakeKeepz) DecryptCallback(body []byte) (*keepz.CallbackEvent, error) {
	return f.callback, nil
}

type testEnv struct {
	db  *gorm.DB
	cfg *config.Config

	subscriptionRepo  *repository.SubscriptionRepository
	userPlanRepo      *repository.UserPlanRepository
	paymentMethodRepo *repository.PaymentMethodRepository

	keepz *fakeKeepz

	subscriptionHandler *SubscriptionHandler
	webhookHandler      *WebhookHandler
	invoiceHandler      *InvoiceHandler
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-secret-key", ExpireHours: 24},
		Billing: config.BillingConfig{
			Plans: map[string]config.PlanConfig{
				model.PlanStarter:      {Price: 29, PayPalPlanID: "P-STARTER"},
				model.PlanProfessional: {Price: 79, PayPalPlanID: "P-PRO"},
			},
			RefundWindowHours: 48,
			Currency:          "USD",
			InvoicePrefix:     "RH",
		},
		LemonSqueezy: config.LemonSqueezyConfig{SigningSecret: testSigningSecret},
	}
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testConfig()

	subscriptionRepo := repository.NewSubscriptionRepository(db)
	eventRepo := repository.NewSubscriptionEventRepository(db)
	userPlanRepo := repository.NewUserPlanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	paymentMethodRepo := repository.NewPaymentMethodRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	userRepo := repository.NewUserRepository(db)

	fk := &fakeKeepz{}
	lemonClient := lemonsqueezy.NewClient(&cfg.LemonSqueezy)

	invoiceService := service.NewInvoiceService(db, &cfg.Billing, subscriptionRepo, paymentRepo, userRepo)
	planService := service.NewPlanService(&cfg.Billing, userPlanRepo)
	subscriptionService := service.NewSubscriptionService(
		db, cfg,
		subscriptionRepo, eventRepo, userPlanRepo, paymentRepo, paymentMethodRepo, userRepo,
		invoiceService, nil,
		nil, lemonClient, fk,
	)
	webhookService := service.NewWebhookService(
		subscriptionService,
		subscriptionRepo, eventRepo, userPlanRepo, webhookRepo, paymentMethodRepo,
		lemonClient, fk,
	)

	return &testEnv{
		db:                  db,
		cfg:                 cfg,
		subscriptionRepo:    subscriptionRepo,
		userPlanRepo:        userPlanRepo,
		paymentMethodRepo:   paymentMethodRepo,
		keepz:               fk,
		subscriptionHandler: NewSubscriptionHandler(subscriptionService, planService),
		webhookHandler:      NewWebhookHandler(webhookService),
		invoiceHandler:      NewInvoiceHandler(invoiceService),
	}
}

// asUser 注入登录态，替代 JWT 中间件
func asUser(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func signLemonBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
