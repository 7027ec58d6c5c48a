package service

import (
	"errors"
	"time"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

var ErrUnknownPlan = errors.New("未知的套餐类型")

// PlanService 套餐目录和当前权益查询
type PlanService struct {
	cfg          *config.BillingConfig
	userPlanRepo *repository.UserPlanRepository
}

func NewPlanService(cfg *config.BillingConfig, userPlanRepo *repository.UserPlanRepository) *PlanService {
	return &PlanService{cfg: cfg, userPlanRepo: userPlanRepo}
}

// GetPlan 查询套餐配置，未配置的套餐一律拒绝
func (s *PlanService) GetPlan(planType string) (*config.PlanConfig, error) {
	plan, ok := s.cfg.Plans[planType]
	if !ok {
		return nil, ErrUnknownPlan
	}
	return &plan, nil
}

// GetCurrentPlan 查询用户当前权益
func (s *PlanService) GetCurrentPlan(userID int64) (*dto.PlanInfo, error) {
	plan, err := s.userPlanRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	info := &dto.PlanInfo{
		PlanType: plan.PlanType,
		Provider: plan.Provider,
	}
	if plan.ExpiresAt != nil {
		info.ExpiresAt = plan.ExpiresAt.Format(time.RFC3339)
	}
	return info, nil
}

// HasPaidPlan 用户是否持有付费套餐
func (s *PlanService) HasPaidPlan(userID int64) (bool, error) {
	plan, err := s.userPlanRepo.GetByUserID(userID)
	if err != nil {
		return false, err
	}
	return plan.PlanType != model.PlanFree, nil
}
