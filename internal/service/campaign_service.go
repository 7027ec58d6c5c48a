package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

var ErrCampaignNotFound = errors.New("营销活动不存在")

// CampaignService 营销活动访问追踪。
// 访问先落明细表，访问量由定时任务汇总，写入路径不抢行锁。
type CampaignService struct {
	campaignRepo *repository.CampaignRepository
}

func NewCampaignService(campaignRepo *repository.CampaignRepository) *CampaignService {
	return &CampaignService{campaignRepo: campaignRepo}
}

// TrackVisit 记录落地页访问
func (s *CampaignService) TrackVisit(req *dto.TrackVisitRequest) error {
	campaign, err := s.campaignRepo.GetBySlug(req.CampaignSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCampaignNotFound
		}
		return err
	}

	return s.campaignRepo.CreateVisit(&model.CampaignVisit{
		CampaignID:  campaign.ID,
		VisitorID:   req.VisitorID,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
		Referrer:    req.Referrer,
		LandingPage: req.LandingPage,
	})
}

// GetBySlug 查询活动（校验归因参数时用）
func (s *CampaignService) GetBySlug(slug string) (*model.MarketingCampaign, error) {
	campaign, err := s.campaignRepo.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return campaign, nil
}
