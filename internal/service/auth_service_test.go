package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
	"github.com/qs3c/reviewhub_go_server/internal/testutil"
)

func setupAuthService(t *testing.T) (*AuthService, *repository.UserRepository) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	userRepo := repository.NewUserRepository(db)
	userPlanRepo := repository.NewUserPlanRepository(db)
	return NewAuthService(userRepo, userPlanRepo, testBillingConfig(), nil), userRepo
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _ := setupAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{
		Username: "merchant1",
		Email:    "merchant1@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotZero(t, resp.UserID)

	// debug 模式下注册即可登录
	login, err := svc.Login(&dto.LoginRequest{
		Email:    "merchant1@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "merchant1", login.User.Username)
	assert.Equal(t, "free", login.User.PlanType)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := setupAuthService(t)

	req := &dto.RegisterRequest{
		Username: "merchant2",
		Email:    "dup@example.com",
		Password: "password123",
	}
	_, err := svc.Register(req)
	require.NoError(t, err)

	req.Username = "merchant3"
	_, err = svc.Register(req)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.Register(&dto.RegisterRequest{
		Username: "merchant4",
		Email:    "m4@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Login(&dto.LoginRequest{
		Email:    "m4@example.com",
		Password: "wrongpassword",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.Login(&dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
