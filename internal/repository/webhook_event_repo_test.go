package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/testutil"
)

func TestWebhookEventRepository_Record(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewWebhookEventRepository(db)

	err := repo.Record(model.ProviderPayPal, "WH-001", "BILLING.SUBSCRIPTION.ACTIVATED")
	require.NoError(t, err)

	exists, err := repo.Exists("WH-001")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWebhookEventRepository_Record_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewWebhookEventRepository(db)

	require.NoError(t, repo.Record(model.ProviderPayPal, "WH-002", "PAYMENT.SALE.COMPLETED"))

	// 重放同一事件
	err := repo.Record(model.ProviderPayPal, "WH-002", "PAYMENT.SALE.COMPLETED")
	assert.ErrorIs(t, err, ErrDuplicateEvent)
}

func TestWebhookEventRepository_MarkMatched(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewWebhookEventRepository(db)

	require.NoError(t, repo.Record(model.ProviderKeepz, "WH-003", "PAID"))
	require.NoError(t, repo.MarkMatched("WH-003"))

	var event model.WebhookEvent
	require.NoError(t, db.Where("event_id = ?", "WH-003").First(&event).Error)
	assert.True(t, event.Matched)
}
