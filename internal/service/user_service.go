package service

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/oss"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

var ErrWrongPassword = errors.New("密码错误")

type UserService struct {
	userRepo            *repository.UserRepository
	userPlanRepo        *repository.UserPlanRepository
	subscriptionRepo    *repository.SubscriptionRepository
	subscriptionService *SubscriptionService
	ossClient           *oss.Client
}

func NewUserService(
	userRepo *repository.UserRepository,
	userPlanRepo *repository.UserPlanRepository,
	subscriptionRepo *repository.SubscriptionRepository,
	subscriptionService *SubscriptionService,
	ossClient *oss.Client,
) *UserService {
	return &UserService{
		userRepo:            userRepo,
		userPlanRepo:        userPlanRepo,
		subscriptionRepo:    subscriptionRepo,
		subscriptionService: subscriptionService,
		ossClient:           ossClient,
	}
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	info := &dto.UserInfo{
		ID:            user.ID,
		Username:      user.Username,
		AvatarURL:     user.AvatarURL,
		FullName:      user.FullName,
		Company:       user.Company,
		PlanType:      model.PlanFree,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
	if user.Email != nil {
		info.Email = *user.Email
	}
	if plan, err := s.userPlanRepo.GetByUserID(user.ID); err == nil {
		info.PlanType = plan.PlanType
	}

	return info, nil
}

// UpdateProfile 更新用户资料
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*model.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		exists, err := s.userRepo.ExistsByUsername(*req.Username)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrUsernameExists
		}
		user.Username = *req.Username
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Company != nil {
		user.Company = *req.Company
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateBusinessLocation 绑定 Google Business 门店
func (s *UserService) UpdateBusinessLocation(userID int64, locationID string) error {
	return s.userRepo.UpdateFields(userID, map[string]interface{}{
		"business_location_id": locationID,
	})
}

// UploadAvatar 上传头像到 OSS 并更新用户记录
func (s *UserService) UploadAvatar(userID int64, reader io.Reader, ext string) (string, error) {
	url, err := s.ossClient.UploadAvatar(userID, reader, ext)
	if err != nil {
		return "", err
	}

	if err := s.userRepo.UpdateFields(userID, map[string]interface{}{
		"avatar_url": url,
	}); err != nil {
		return "", err
	}
	return url, nil
}

// DeleteAccount 注销账号。有密码的账号需要验证密码；
// 先取消仍在生效的订阅，再降级权益，最后软删除并匿名化用户。
func (s *UserService) DeleteAccount(ctx context.Context, userID int64, password string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.PasswordHash != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
			return ErrWrongPassword
		}
	}

	if active, err := s.subscriptionRepo.GetActiveByUserID(userID); err == nil {
		if err := s.subscriptionService.Cancel(ctx, userID, active.ID, "account deleted"); err != nil {
			// 渠道取消失败不阻塞注销，到期扫描会兜底
			log.Printf("Cancel subscription %d on account deletion failed: %v", active.ID, err)
		}
	}

	if err := s.userPlanRepo.Downgrade(userID); err != nil {
		return err
	}

	return s.userRepo.SoftDelete(userID)
}
