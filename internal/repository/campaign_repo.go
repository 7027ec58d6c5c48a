package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(campaign *model.MarketingCampaign) error {
	return r.db.Create(campaign).Error
}

func (r *CampaignRepository) GetBySlug(slug string) (*model.MarketingCampaign, error) {
	var campaign model.MarketingCampaign
	err := r.db.Where("slug = ? AND active = ?", slug, true).First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *CampaignRepository) GetByID(id int64) (*model.MarketingCampaign, error) {
	var campaign model.MarketingCampaign
	err := r.db.Where("id = ?", id).First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *CampaignRepository) List() ([]model.MarketingCampaign, error) {
	var campaigns []model.MarketingCampaign
	err := r.db.Order("created_at DESC").Find(&campaigns).Error
	return campaigns, err
}

func (r *CampaignRepository) CreateVisit(visit *model.CampaignVisit) error {
	return r.db.Create(visit).Error
}

// RollupVisits 把未汇总的访问量累加到活动计数上，返回处理条数。
// 分两步做：先数出每个活动的未汇总访问，再累加并打标，避免重复累计。
func (r *CampaignRepository) RollupVisits() (int64, error) {
	var rolled int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		type visitCount struct {
			CampaignID int64
			Cnt        int64
		}
		var counts []visitCount
		err := tx.Model(&model.CampaignVisit{}).
			Select("campaign_id, COUNT(*) as cnt").
			Where("rolled_up = ?", false).
			Group("campaign_id").
			Scan(&counts).Error
		if err != nil {
			return err
		}

		for _, c := range counts {
			err := tx.Model(&model.MarketingCampaign{}).Where("id = ?", c.CampaignID).
				Update("visit_count", gorm.Expr("visit_count + ?", c.Cnt)).Error
			if err != nil {
				return err
			}

			result := tx.Model(&model.CampaignVisit{}).
				Where("campaign_id = ? AND rolled_up = ?", c.CampaignID, false).
				Update("rolled_up", true)
			if result.Error != nil {
				return result.Error
			}
			rolled += result.RowsAffected
		}
		return nil
	})

	return rolled, err
}
