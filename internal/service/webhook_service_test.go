package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/keepz"
	"github.com/qs3c/reviewhub_go_server/internal/testutil"
)

func paypalActivatedBody(eventID, providerSubID string, nextBilling time.Time) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"event_type": "BILLING.SUBSCRIPTION.ACTIVATED",
		"resource": {
			"id": %q,
			"billing_info": {"next_billing_time": %q}
		}
	}`, eventID, providerSubID, nextBilling.Format(time.RFC3339)))
}

func paypalPaymentBody(eventID, saleID, providerSubID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {
			"id": %q,
			"billing_agreement_id": %q,
			"amount": {"total": "29.00", "currency": "USD"}
		}
	}`, eventID, saleID, providerSubID))
}

func TestWebhookService_PayPal_Activated(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProviderSubscriptionID("I-WH1"))

	nextBilling := time.Now().AddDate(0, 1, 0)
	require.NoError(t, env.webhook.HandlePayPal(paypalActivatedBody("WH-A1", "I-WH1", nextBilling)))

	updated, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, updated.Status)
	require.NotNil(t, updated.CurrentPeriodEnd)
	assert.WithinDuration(t, nextBilling, *updated.CurrentPeriodEnd, time.Second)

	plan, err := env.userPlanRepo.GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanStarter, plan.PlanType)

	// 事件已标记匹配
	var event model.WebhookEvent
	require.NoError(t, env.db.Where("event_id = ?", "WH-A1").First(&event).Error)
	assert.True(t, event.Matched)
}

func TestWebhookService_PayPal_Replay(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProviderSubscriptionID("I-WH2"))

	body := paypalPaymentBody("WH-P1", "SALE-1", "I-WH2")
	require.NoError(t, env.webhook.HandlePayPal(body))

	// 同一事件重放：按重复处理，不产生第二笔交易
	err := env.webhook.HandlePayPal(body)
	assert.True(t, IsDuplicate(err))

	txs, err := env.paymentRepo.ListTransactionsByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	_ = sub
}

func TestWebhookService_PayPal_RetryAfterFailure(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProviderSubscriptionID("I-RETRY"))

	nextBilling := time.Now().AddDate(0, 1, 0)
	body := paypalActivatedBody("WH-R1", "I-RETRY", nextBilling)

	// 人为制造处理失败：审计表不在，激活事务整体回滚
	require.NoError(t, env.db.Migrator().DropTable(&model.SubscriptionEvent{}))
	err := env.webhook.HandlePayPal(body)
	require.Error(t, err)
	assert.False(t, IsDuplicate(err))

	unchanged, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionPending, unchanged.Status)

	// 失败的事件不占去重屏障，渠道重试要能重新处理
	require.NoError(t, env.db.AutoMigrate(&model.SubscriptionEvent{}))
	require.NoError(t, env.webhook.HandlePayPal(body))

	updated, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, updated.Status)
}

func TestWebhookService_PayPal_Unmatched(t *testing.T) {
	env := setupEnv(t)

	// 匹配不到本地订阅：记录事件但不报错
	nextBilling := time.Now().AddDate(0, 1, 0)
	require.NoError(t, env.webhook.HandlePayPal(paypalActivatedBody("WH-U1", "I-NOBODY", nextBilling)))

	var event model.WebhookEvent
	require.NoError(t, env.db.Where("event_id = ?", "WH-U1").First(&event).Error)
	assert.False(t, event.Matched)
}

func TestWebhookService_PayPal_CancelledKeepsPlan(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)

	periodEnd := time.Now().AddDate(0, 1, 0)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithStatus(model.SubscriptionActive),
		testutil.WithProviderSubscriptionID("I-WH3"),
		testutil.WithPeriodEnd(periodEnd))
	testutil.TestUserPlan(t, env.db, user.ID, model.PlanStarter,
		testutil.WithPlanSubscription(sub.ID, model.ProviderPayPal, periodEnd))

	body := []byte(`{"id":"WH-C1","event_type":"BILLING.SUBSCRIPTION.CANCELLED","resource":{"id":"I-WH3"}}`)
	require.NoError(t, env.webhook.HandlePayPal(body))

	updated, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, updated.Status)

	// 取消不立刻降级，等到期扫描
	plan, err := env.userPlanRepo.GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanStarter, plan.PlanType)
}

func TestWebhookService_PayPal_ExpiredDowngrades(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)

	periodEnd := time.Now().Add(-time.Hour)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithStatus(model.SubscriptionActive),
		testutil.WithProviderSubscriptionID("I-WH4"),
		testutil.WithPeriodEnd(periodEnd))
	testutil.TestUserPlan(t, env.db, user.ID, model.PlanStarter,
		testutil.WithPlanSubscription(sub.ID, model.ProviderPayPal, periodEnd))

	body := []byte(`{"id":"WH-E1","event_type":"BILLING.SUBSCRIPTION.EXPIRED","resource":{"id":"I-WH4"}}`)
	require.NoError(t, env.webhook.HandlePayPal(body))

	updated, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionExpired, updated.Status)

	plan, err := env.userPlanRepo.GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, plan.PlanType)
}

func TestWebhookService_LemonSqueezy_InvalidSignature(t *testing.T) {
	env := setupEnv(t)

	body := []byte(`{"meta":{"event_name":"subscription_created"},"data":{"id":"ls-1"}}`)
	err := env.webhook.HandleLemonSqueezy(body, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhookService_LemonSqueezy_CreatedByCustomData(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProvider(model.ProviderLemonSqueezy))

	renewsAt := time.Now().AddDate(0, 1, 0)
	body := []byte(fmt.Sprintf(`{
		"meta": {
			"event_name": "subscription_created",
			"custom_data": {"subscription_id": "%d"}
		},
		"data": {
			"id": "ls-sub-9",
			"attributes": {"status": "active", "renews_at": %q}
		}
	}`, sub.ID, renewsAt.Format(time.RFC3339)))

	require.NoError(t, env.webhook.HandleLemonSqueezy(body, signLemonBody(body)))

	updated, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, updated.Status)
	// 渠道侧订阅 ID 回填，后续事件按它匹配
	assert.Equal(t, "ls-sub-9", updated.ProviderSubscriptionID)
}

func TestWebhookService_LemonSqueezy_PaymentSuccess(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProvider(model.ProviderLemonSqueezy),
		testutil.WithProviderSubscriptionID("ls-sub-10"))

	body := []byte(`{
		"meta": {"event_name": "subscription_payment_success"},
		"data": {
			"id": "ls-sub-10",
			"attributes": {"status": "active", "order_id": 555, "total": 2900, "currency": "usd"}
		}
	}`)
	require.NoError(t, env.webhook.HandleLemonSqueezy(body, signLemonBody(body)))

	txs, err := env.paymentRepo.ListTransactionsByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "555", txs[0].ProviderTransactionID)
	assert.Equal(t, 29.0, txs[0].Amount)
	assert.Equal(t, "USD", txs[0].Currency)

	_ = sub
}

func TestWebhookService_Keepz_CardSaved(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	pending := testutil.TestPaymentMethod(t, env.db, user.ID, model.CardMaskPending)

	env.keepz.callback = &keepz.CallbackEvent{
		EventID:   "KZ-1",
		Status:    "CARD_SAVED",
		Reference: fmt.Sprintf("pm-%d", pending.ID),
		CardToken: "tok_abc",
		CardMask:  "**** 4242",
		CardBrand: "visa",
	}

	require.NoError(t, env.webhook.HandleKeepz([]byte("{}")))

	updated, err := env.paymentMethodRepo.GetByID(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "**** 4242", updated.CardMask)
	assert.Equal(t, "tok_abc", updated.ProviderToken)
	assert.Equal(t, "visa", updated.CardBrand)
}

func TestWebhookService_Keepz_Paid(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithProvider(model.ProviderKeepz))

	env.keepz.callback = &keepz.CallbackEvent{
		EventID:   "KZ-2",
		OrderID:   "ORD-99",
		Status:    "PAID",
		Reference: fmt.Sprintf("sub-%d", sub.ID),
	}

	require.NoError(t, env.webhook.HandleKeepz([]byte("{}")))

	updated, err := env.subscriptionRepo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, updated.Status)

	txs, err := env.paymentRepo.ListTransactionsByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "ORD-99", txs[0].ProviderTransactionID)
}

func TestWebhookService_Keepz_UnknownReference(t *testing.T) {
	env := setupEnv(t)

	env.keepz.callback = &keepz.CallbackEvent{
		EventID:   "KZ-3",
		Status:    "PAID",
		Reference: "order-weird",
	}

	// 无法识别的 reference 记录后忽略
	require.NoError(t, env.webhook.HandleKeepz([]byte("{}")))

	var event model.WebhookEvent
	require.NoError(t, env.db.Where("event_id = ?", "KZ-3").First(&event).Error)
	assert.False(t, event.Matched)
}
