package cron

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

const (
	// 扫描批次大小，避免一次锁太多行
	expireBatchSize = 200

	// 绑卡占位记录的保留时长
	pendingCardTTL = 24 * time.Hour
)

type Service struct {
	db                *gorm.DB
	subscriptionRepo  *repository.SubscriptionRepository
	eventRepo         *repository.SubscriptionEventRepository
	userPlanRepo      *repository.UserPlanRepository
	paymentMethodRepo *repository.PaymentMethodRepository
	campaignRepo      *repository.CampaignRepository
	stopChan          chan struct{}
}

func NewService(
	db *gorm.DB,
	subscriptionRepo *repository.SubscriptionRepository,
	eventRepo *repository.SubscriptionEventRepository,
	userPlanRepo *repository.UserPlanRepository,
	paymentMethodRepo *repository.PaymentMethodRepository,
	campaignRepo *repository.CampaignRepository,
) *Service {
	return &Service{
		db:                db,
		subscriptionRepo:  subscriptionRepo,
		eventRepo:         eventRepo,
		userPlanRepo:      userPlanRepo,
		paymentMethodRepo: paymentMethodRepo,
		campaignRepo:      campaignRepo,
		stopChan:          make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runExpireSweep()
	go s.runHourlyMaintenance()
	log.Println("Cron service started (subscription expiry + maintenance)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runExpireSweep 每 10 分钟扫描一次到期订阅
func (s *Service) runExpireSweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.ExpireSubscriptions(time.Now()); err != nil {
				log.Printf("Expire sweep failed: %v", err)
			}
		}
	}
}

// runHourlyMaintenance 每小时执行一次清理和汇总
func (s *Service) runHourlyMaintenance() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.maintenance()
		}
	}
}

func (s *Service) maintenance() {
	reaped, err := s.ReapPendingCards(time.Now())
	if err != nil {
		log.Printf("Pending card reap failed: %v", err)
	}

	rolled, err := s.campaignRepo.RollupVisits()
	if err != nil {
		log.Printf("Campaign rollup failed: %v", err)
	}

	if reaped > 0 || rolled > 0 {
		log.Printf("Maintenance summary: pending_cards=%d, campaign_visits=%d", reaped, rolled)
	}
}

// ExpireSubscriptions 把周期已结束的 active 订阅转为 expired，
// 写入审计事件并把用户权益降回免费版。返回处理数量。
func (s *Service) ExpireSubscriptions(now time.Time) (int, error) {
	subs, err := s.subscriptionRepo.ListExpired(now, expireBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range subs {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			subRepo := s.subscriptionRepo.WithTx(tx)
			eventRepo := s.eventRepo.WithTx(tx)
			planRepo := s.userPlanRepo.WithTx(tx)

			if err := subRepo.UpdateFields(sub.ID, map[string]interface{}{
				"status":     model.SubscriptionExpired,
				"can_refund": false,
			}); err != nil {
				return err
			}

			if err := eventRepo.Create(&model.SubscriptionEvent{
				SubscriptionID: sub.ID,
				EventType:      model.EventSubscriptionExpired,
				Provider:       sub.Provider,
			}); err != nil {
				return err
			}

			// 只有当权益还指向这条订阅时才降级，
			// 避免覆盖用户新开的订阅
			plan, err := planRepo.GetByUserID(sub.UserID)
			if err != nil {
				return err
			}
			if plan.SubscriptionID != nil && *plan.SubscriptionID == sub.ID {
				return planRepo.Downgrade(sub.UserID)
			}
			return nil
		})
		if err != nil {
			log.Printf("Failed to expire subscription %d: %v", sub.ID, err)
			continue
		}
		expired++
	}

	if expired > 0 {
		log.Printf("Expire sweep: %d subscriptions expired", expired)
	}
	return expired, nil
}

// ReapPendingCards 删除超过 24 小时仍未完成绑卡的占位记录
func (s *Service) ReapPendingCards(now time.Time) (int64, error) {
	return s.paymentMethodRepo.DeleteStalePending(now.Add(-pendingCardTTL))
}

// RunNow 立即执行一轮全部任务（手动触发或单次模式）
func (s *Service) RunNow() error {
	if _, err := s.ExpireSubscriptions(time.Now()); err != nil {
		return err
	}
	s.maintenance()
	return nil
}
