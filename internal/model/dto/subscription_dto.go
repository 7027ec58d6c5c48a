package dto

// CreateSubscriptionRequest 创建订阅请求
type CreateSubscriptionRequest struct {
	Provider        string `json:"provider" binding:"required,oneof=paypal lemonsqueezy keepz fake"`
	PlanType        string `json:"plan_type" binding:"required"`
	PaymentMethodID int64  `json:"payment_method_id,omitempty"` // Keepz 已绑卡支付时必填
	CampaignID      *int64 `json:"campaign_id,omitempty"`
	UTMSource       string `json:"utm_source,omitempty" binding:"omitempty,max=100"`
	UTMMedium       string `json:"utm_medium,omitempty" binding:"omitempty,max=100"`
	UTMCampaign     string `json:"utm_campaign,omitempty" binding:"omitempty,max=100"`
}

// CreateSubscriptionResponse 创建订阅响应
type CreateSubscriptionResponse struct {
	SubscriptionID int64  `json:"subscription_id"`
	Status         string `json:"status"`
	ApprovalURL    string `json:"approval_url,omitempty"` // 跳转到渠道的支付/授权页
}

// SubscriptionStatusResponse 订阅状态查询响应
type SubscriptionStatusResponse struct {
	SubscriptionID   int64  `json:"subscription_id"`
	Status           string `json:"status"`
	PlanType         string `json:"plan_type"`
	Provider         string `json:"provider"`
	CurrentPeriodEnd string `json:"current_period_end,omitempty"`
}

// CancelSubscriptionRequest 取消订阅请求
type CancelSubscriptionRequest struct {
	Reason string `json:"reason,omitempty" binding:"omitempty,max=500"`
}

// RefundRequest 退款请求
type RefundRequest struct {
	Reason string `json:"reason,omitempty" binding:"omitempty,max=500"`
}

// SubscriptionListItem 订阅列表项
type SubscriptionListItem struct {
	ID               int64  `json:"id"`
	PlanType         string `json:"plan_type"`
	Provider         string `json:"provider"`
	Status           string `json:"status"`
	CurrentPeriodEnd string `json:"current_period_end,omitempty"`
	CancelledAt      string `json:"cancelled_at,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// PlanInfo 当前权益
type PlanInfo struct {
	PlanType  string `json:"plan_type"`
	Provider  string `json:"provider,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}
