package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/keepz"
	"github.com/qs3c/reviewhub_go_server/internal/testutil"
)

func webhookRouter(env *testEnv) *gin.Engine {
	router := gin.New()
	router.POST("/webhooks/paypal", env.webhookHandler.PayPal)
	router.POST("/webhooks/lemonsqueezy", env.webhookHandler.LemonSqueezy)
	router.POST("/webhooks/keepz", env.webhookHandler.Keepz)
	return router
}

func postWebhook(r http.Handler, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_PayPal_Activated(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProvider(model.ProviderPayPal),
		testutil.WithProviderSubscriptionID("I-TEST123"))

	router := webhookRouter(env)

	body := []byte(`{
		"id": "WH-EVT-1",
		"event_type": "BILLING.SUBSCRIPTION.ACTIVATED",
		"resource": {
			"id": "I-TEST123",
			"billing_info": {"next_billing_time": "2026-09-28T00:00:00Z"}
		}
	}`)

	w := postWebhook(router, "/webhooks/paypal", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	updated, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, updated.Status)
	assert.True(t, updated.CanRefund)

	plan, err := env.userPlanRepo.GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanStarter, plan.PlanType)
}

func TestWebhookHandler_PayPal_ReplayedEvent(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProvider(model.ProviderPayPal),
		testutil.WithProviderSubscriptionID("I-REPLAY"))

	router := webhookRouter(env)

	body := []byte(`{
		"id": "WH-EVT-2",
		"event_type": "BILLING.SUBSCRIPTION.ACTIVATED",
		"resource": {"id": "I-REPLAY"}
	}`)

	w := postWebhook(router, "/webhooks/paypal", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 重放同一事件按成功处理，渠道停止重试
	w = postWebhook(router, "/webhooks/paypal", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookHandler_PayPal_UnknownSubscription(t *testing.T) {
	env := setupEnv(t)
	router := webhookRouter(env)

	// 匹配不到本地订阅的事件记录后忽略
	body := []byte(`{
		"id": "WH-EVT-3",
		"event_type": "BILLING.SUBSCRIPTION.ACTIVATED",
		"resource": {"id": "I-NOBODY"}
	}`)

	w := postWebhook(router, "/webhooks/paypal", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookHandler_LemonSqueezy_Activated(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProvider(model.ProviderLemonSqueezy))

	router := webhookRouter(env)

	body := []byte(fmt.Sprintf(`{
		"meta": {
			"event_name": "subscription_created",
			"custom_data": {"subscription_id": "%d"}
		},
		"data": {
			"id": "ls-sub-1",
			"attributes": {"status": "active", "renews_at": "2026-09-28T00:00:00Z"}
		}
	}`, sub.ID))

	w := postWebhook(router, "/webhooks/lemonsqueezy", body, map[string]string{
		"X-Signature": signLemonBody(body),
	})
	assert.Equal(t, http.StatusOK, w.Code)

	updated, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, updated.Status)
	assert.Equal(t, "ls-sub-1", updated.ProviderSubscriptionID)
}

func TestWebhookHandler_LemonSqueezy_InvalidSignature(t *testing.T) {
	env := setupEnv(t)
	router := webhookRouter(env)

	body := []byte(`{"meta": {"event_name": "subscription_created"}}`)

	w := postWebhook(router, "/webhooks/lemonsqueezy", body, map[string]string{
		"X-Signature": "deadbeef",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandler_Keepz_CardSaved(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)

	pm := &model.PaymentMethod{
		UserID:   user.ID,
		Provider: model.ProviderKeepz,
		CardMask: model.CardMaskPending,
	}
	require.NoError(t, env.paymentMethodRepo.Create(pm))

	env.keepz.callback = &keepz.CallbackEvent{
		EventID:   "KPZ-EVT-1",
		Status:    "CARD_SAVED",
		Reference: fmt.Sprintf("pm-%d", pm.ID),
		CardToken: "tok_abc123",
		CardMask:  "**** 4242",
		CardBrand: "VISA",
	}

	router := webhookRouter(env)

	// fakeKeepz 解密忽略请求体，内容随意
	w := postWebhook(router, "/webhooks/keepz", []byte(`{"encrypted": "..."}`), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	saved, err := env.paymentMethodRepo.GetByID(pm.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok_abc123", saved.ProviderToken)
	assert.Equal(t, "**** 4242", saved.CardMask)
	assert.Equal(t, "VISA", saved.CardBrand)
}

func TestWebhookHandler_Keepz_Paid(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProvider(model.ProviderKeepz))

	env.keepz.callback = &keepz.CallbackEvent{
		EventID:   "KPZ-EVT-2",
		OrderID:   "ORD-789",
		Status:    "PAID",
		Reference: fmt.Sprintf("sub-%d", sub.ID),
	}

	router := webhookRouter(env)

	w := postWebhook(router, "/webhooks/keepz", []byte(`{"encrypted": "..."}`), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	updated, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, updated.Status)
}
