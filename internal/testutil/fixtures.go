package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:      fmt.Sprintf("testuser_%d", time.Now().UnixNano()%100000),
		Email:         &email,
		PasswordHash:  &passwordHash,
		FullName:      "Test User",
		EmailVerified: true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithGoogleID 设置 Google 账号 ID
func WithGoogleID(googleID string) func(*model.User) {
	return func(u *model.User) {
		u.GoogleID = &googleID
	}
}

// WithCompany 设置公司名
func WithCompany(company string) func(*model.User) {
	return func(u *model.User) {
		u.Company = company
	}
}

// TestSubscription 创建测试订阅
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		UserID:   userID,
		PlanType: model.PlanStarter,
		Provider: model.ProviderPayPal,
		Status:   model.SubscriptionPending,
		Amount:   29.00,
		Currency: "USD",
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithPlan 设置套餐类型
func WithPlan(planType string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.PlanType = planType
	}
}

// WithProvider 设置支付渠道
func WithProvider(provider string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Provider = provider
	}
}

// WithStatus 设置订阅状态
func WithStatus(status string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

// WithProviderSubscriptionID 设置渠道侧订阅 ID
func WithProviderSubscriptionID(id string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.ProviderSubscriptionID = id
	}
}

// WithPeriodEnd 设置当前周期结束时间
func WithPeriodEnd(end time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.CurrentPeriodEnd = &end
	}
}

// WithSubCreatedAt 回填下单时间
func WithSubCreatedAt(ts time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.CreatedAt = ts
	}
}

// WithRefundWindow 设置退款窗口
func WithRefundWindow(until time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.CanRefund = true
		s.RefundEligibleUntil = &until
	}
}

// TestUserPlan 创建权益记录
func TestUserPlan(t *testing.T, db *gorm.DB, userID int64, planType string, opts ...func(*model.UserPlan)) *model.UserPlan {
	t.Helper()

	plan := &model.UserPlan{
		UserID:   userID,
		PlanType: planType,
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test user plan: %v", err)
	}

	return plan
}

// WithPlanSubscription 关联订阅
func WithPlanSubscription(subID int64, provider string, expiresAt time.Time) func(*model.UserPlan) {
	return func(p *model.UserPlan) {
		p.SubscriptionID = &subID
		p.Provider = provider
		p.ExpiresAt = &expiresAt
	}
}

// TestTransaction 创建测试交易
func TestTransaction(t *testing.T, db *gorm.DB, userID, subID int64, opts ...func(*model.PaymentTransaction)) *model.PaymentTransaction {
	t.Helper()

	tx := &model.PaymentTransaction{
		UserID:                userID,
		SubscriptionID:        subID,
		Provider:              model.ProviderPayPal,
		ProviderTransactionID: fmt.Sprintf("TXN-%d", time.Now().UnixNano()),
		Amount:                29.00,
		Currency:              "USD",
		Status:                model.TransactionCompleted,
	}

	for _, opt := range opts {
		opt(tx)
	}

	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return tx
}

// WithTransactionID 设置渠道侧交易 ID
func WithTransactionID(id string) func(*model.PaymentTransaction) {
	return func(tx *model.PaymentTransaction) {
		tx.ProviderTransactionID = id
	}
}

// TestPaymentMethod 创建测试绑卡记录
func TestPaymentMethod(t *testing.T, db *gorm.DB, userID int64, cardMask string) *model.PaymentMethod {
	t.Helper()

	pm := &model.PaymentMethod{
		UserID:   userID,
		Provider: model.ProviderKeepz,
		CardMask: cardMask,
	}

	if err := db.Create(pm).Error; err != nil {
		t.Fatalf("Failed to create test payment method: %v", err)
	}

	return pm
}

// TestCampaign 创建测试营销活动
func TestCampaign(t *testing.T, db *gorm.DB, slug string) *model.MarketingCampaign {
	t.Helper()

	campaign := &model.MarketingCampaign{
		Name: fmt.Sprintf("Campaign %s", slug),
		Slug: slug,
	}

	if err := db.Create(campaign).Error; err != nil {
		t.Fatalf("Failed to create test campaign: %v", err)
	}

	return campaign
}

// TestReview 创建测试评论快照
func TestReview(t *testing.T, db *gorm.DB, userID int64, rating int, comment string) *model.SavedReview {
	t.Helper()

	review := &model.SavedReview{
		UserID:         userID,
		GoogleReviewID: fmt.Sprintf("review_%d", time.Now().UnixNano()),
		LocationID:     "locations/123",
		Reviewer:       "Test Reviewer",
		Rating:         rating,
		Comment:        comment,
		ReviewedAt:     time.Now(),
	}

	if err := db.Create(review).Error; err != nil {
		t.Fatalf("Failed to create test review: %v", err)
	}

	return review
}

// TestAnalysisJob 创建测试分析任务
func TestAnalysisJob(t *testing.T, db *gorm.DB, userID int64, status string) *model.ReviewAnalysisJob {
	t.Helper()

	job := &model.ReviewAnalysisJob{
		UserID:     userID,
		LocationID: "locations/123",
		ModelName:  "gpt-4o-mini",
		Status:     status,
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test analysis job: %v", err)
	}

	return job
}
