package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/testutil"
)

func TestCampaignRepository_GetBySlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCampaignRepository(db)
	created := testutil.TestCampaign(t, db, "summer-launch")

	found, err := repo.GetBySlug("summer-launch")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestCampaignRepository_GetBySlug_Inactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCampaignRepository(db)
	campaign := testutil.TestCampaign(t, db, "old-campaign")
	require.NoError(t, db.Model(&model.MarketingCampaign{}).Where("id = ?", campaign.ID).
		Update("active", false).Error)

	_, err := repo.GetBySlug("old-campaign")
	assert.Error(t, err)
}

func TestCampaignRepository_RollupVisits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCampaignRepository(db)
	campaign := testutil.TestCampaign(t, db, "rollup-test")

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateVisit(&model.CampaignVisit{
			CampaignID: campaign.ID,
			UTMSource:  "google",
		}))
	}

	rolled, err := repo.RollupVisits()
	require.NoError(t, err)
	assert.Equal(t, int64(3), rolled)

	found, err := repo.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), found.VisitCount)

	// 再跑一次不会重复累计
	rolled, err = repo.RollupVisits()
	require.NoError(t, err)
	assert.Equal(t, int64(0), rolled)

	found, err = repo.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), found.VisitCount)
}
