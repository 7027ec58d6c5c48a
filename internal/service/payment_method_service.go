package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

var ErrPaymentMethodNotFound = errors.New("绑卡记录不存在")

// PaymentMethodService Keepz 绑卡管理
type PaymentMethodService struct {
	paymentMethodRepo *repository.PaymentMethodRepository
	keepz             KeepzProvider
}

func NewPaymentMethodService(paymentMethodRepo *repository.PaymentMethodRepository, keepzClient KeepzProvider) *PaymentMethodService {
	return &PaymentMethodService{
		paymentMethodRepo: paymentMethodRepo,
		keepz:             keepzClient,
	}
}

// SaveCard 发起绑卡。先落占位记录，拿到 ID 作为 reference，
// 回调带着 reference 回来补全卡信息。
func (s *PaymentMethodService) SaveCard(ctx context.Context, userID int64) (*dto.SaveCardResponse, error) {
	pm := &model.PaymentMethod{
		UserID:   userID,
		Provider: model.ProviderKeepz,
		CardMask: model.CardMaskPending,
	}
	if err := s.paymentMethodRepo.Create(pm); err != nil {
		return nil, err
	}

	redirectURL, err := s.keepz.CreateSaveCardOrder(ctx, fmt.Sprintf("pm-%d", pm.ID))
	if err != nil {
		// 渠道调不通就收回占位记录
		_ = s.paymentMethodRepo.Delete(pm.ID, userID)
		return nil, fmt.Errorf("keepz save card: %w", err)
	}

	return &dto.SaveCardResponse{
		PaymentMethodID: pm.ID,
		RedirectURL:     redirectURL,
	}, nil
}

// List 已绑卡列表
func (s *PaymentMethodService) List(userID int64) ([]dto.PaymentMethodItem, error) {
	pms, err := s.paymentMethodRepo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.PaymentMethodItem, 0, len(pms))
	for _, pm := range pms {
		items = append(items, dto.PaymentMethodItem{
			ID:        pm.ID,
			CardMask:  pm.CardMask,
			CardBrand: pm.CardBrand,
			IsDefault: pm.IsDefault,
			CreatedAt: pm.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

// Delete 删除绑卡
func (s *PaymentMethodService) Delete(userID, paymentMethodID int64) error {
	pm, err := s.paymentMethodRepo.GetByID(paymentMethodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentMethodNotFound
		}
		return err
	}
	if pm.UserID != userID {
		return ErrPaymentMethodNotFound
	}
	return s.paymentMethodRepo.Delete(paymentMethodID, userID)
}
