package service

import (
	"context"

	"github.com/qs3c/reviewhub_go_server/internal/pkg/googlebiz"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/keepz"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/openai"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/paypal"
)

// 支付渠道客户端以接口形式注入，测试里用假实现替换

type PayPalProvider interface {
	CreateSubscription(ctx context.Context, planID string) (subscriptionID, approvalURL string, err error)
	GetSubscription(ctx context.Context, subscriptionID string) (*paypal.SubscriptionDetail, error)
	CancelSubscription(ctx context.Context, subscriptionID, reason string) error
	Refund(ctx context.Context, captureID string) error
}

type LemonSqueezyProvider interface {
	CreateCheckout(ctx context.Context, variantID string, localSubscriptionID int64, email string) (string, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	Refund(ctx context.Context, orderID string) error
	VerifySignature(body []byte, signature string) bool
}

type KeepzProvider interface {
	CreateSaveCardOrder(ctx context.Context, reference string) (string, error)
	ChargeSavedCard(ctx context.Context, cardToken, productID, reference string, amount float64, currency string) (*keepz.ChargeResult, error)
	CancelRecurring(ctx context.Context, orderID string) error
	DecryptCallback(body []byte) (*keepz.CallbackEvent, error)
}

type ReviewAnalyzer interface {
	AnalyzeReview(ctx context.Context, rating int, comment string) (*openai.ReviewInsight, error)
	DraftReply(ctx context.Context, businessName string, rating int, comment, tone string) (string, error)
}

type BusinessProfileClient interface {
	ListReviews(ctx context.Context, token, locationID string) ([]*googlebiz.Review, error)
	ReplyToReview(ctx context.Context, token, locationID, reviewID, comment string) error
}
