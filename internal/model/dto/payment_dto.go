package dto

// SaveCardResponse 发起绑卡响应
type SaveCardResponse struct {
	PaymentMethodID int64  `json:"payment_method_id"`
	RedirectURL     string `json:"redirect_url"`
}

// ChargeSavedCardRequest 已绑卡扣款请求
type ChargeSavedCardRequest struct {
	PlanType        string `json:"plan_type" binding:"required"`
	PaymentMethodID int64  `json:"payment_method_id" binding:"required"`
}

// PaymentMethodItem 绑卡列表项
type PaymentMethodItem struct {
	ID        int64  `json:"id"`
	CardMask  string `json:"card_mask"`
	CardBrand string `json:"card_brand,omitempty"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
}

// FakePaymentRequest 演示渠道支付请求
type FakePaymentRequest struct {
	PlanType string `json:"plan_type" binding:"required"`
}

// InvoiceItem 发票列表项
type InvoiceItem struct {
	ID            int64   `json:"id"`
	InvoiceNumber string  `json:"invoice_number"`
	PlanType      string  `json:"plan_type"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CustomerEmail string  `json:"customer_email"`
	CustomerName  string  `json:"customer_name"`
	Company       string  `json:"company,omitempty"`
	IssuedAt      string  `json:"issued_at"`
}
