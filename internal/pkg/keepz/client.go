package keepz

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/envelope"
)

// ChargeResult 扣款结果
type ChargeResult struct {
	OrderID string
	Paid    bool
}

// CallbackEvent 解密后的回调载荷
type CallbackEvent struct {
	EventID   string `json:"eventId"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"` // PAID, FAILED, CARD_SAVED
	Reference string `json:"reference"`
	CardToken string `json:"cardToken,omitempty"`
	CardMask  string `json:"cardMask,omitempty"`
	CardBrand string `json:"cardBrand,omitempty"`
}

type Client struct {
	cfg        *config.KeepzConfig
	httpClient *http.Client
	vendorKey  *rsa.PublicKey
	privateKey *rsa.PrivateKey
}

// NewClient 解析渠道公钥和我方私钥，密钥不合法直接报错
func NewClient(cfg *config.KeepzConfig) (*Client, error) {
	vendorKey, err := envelope.ParsePublicKey(cfg.VendorPublicKey)
	if err != nil {
		return nil, fmt.Errorf("keepz vendor public key: %w", err)
	}
	privateKey, err := envelope.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("keepz private key: %w", err)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		vendorKey:  vendorKey,
		privateKey: privateKey,
	}, nil
}

// CreateSaveCardOrder 发起绑卡跳转，reference 用本地绑卡记录 ID 回查
func (c *Client) CreateSaveCardOrder(ctx context.Context, reference string) (string, error) {
	payload := map[string]interface{}{
		"merchantId":  c.cfg.MerchantID,
		"operation":   "SAVE_CARD",
		"reference":   reference,
		"callbackUrl": c.cfg.CallbackURL,
	}

	var result struct {
		RedirectURL string `json:"redirectUrl"`
	}
	if err := c.doEncrypted(ctx, "/api/v1/orders", payload, &result); err != nil {
		return "", err
	}

	return result.RedirectURL, nil
}

// ChargeSavedCard 用已保存的卡 token 扣款，渠道同步返回支付结果
func (c *Client) ChargeSavedCard(ctx context.Context, cardToken, productID, reference string, amount float64, currency string) (*ChargeResult, error) {
	payload := map[string]interface{}{
		"merchantId":  c.cfg.MerchantID,
		"operation":   "CHARGE_SAVED_CARD",
		"cardToken":   cardToken,
		"productId":   productID,
		"reference":   reference,
		"amount":      amount,
		"currency":    currency,
		"callbackUrl": c.cfg.CallbackURL,
	}

	var result struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	}
	if err := c.doEncrypted(ctx, "/api/v1/payments", payload, &result); err != nil {
		return nil, err
	}

	return &ChargeResult{
		OrderID: result.OrderID,
		Paid:    result.Status == "PAID",
	}, nil
}

// CancelRecurring 停止该卡后续的周期扣款
func (c *Client) CancelRecurring(ctx context.Context, orderID string) error {
	payload := map[string]interface{}{
		"merchantId": c.cfg.MerchantID,
		"operation":  "CANCEL_RECURRING",
		"orderId":    orderID,
	}
	return c.doEncrypted(ctx, "/api/v1/payments/cancel", payload, nil)
}

// DecryptCallback 解密渠道回调
func (c *Client) DecryptCallback(body []byte) (*CallbackEvent, error) {
	var env envelope.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid callback body: %w", err)
	}

	plaintext, err := envelope.Decrypt(&env, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt callback: %w", err)
	}

	var event CallbackEvent
	if err := json.Unmarshal(plaintext, &event); err != nil {
		return nil, fmt.Errorf("invalid callback payload: %w", err)
	}

	return &event, nil
}

// doEncrypted 加密请求体后提交，响应按明文 JSON 解析
func (c *Client) doEncrypted(ctx context.Context, path string, payload, result interface{}) error {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	env, err := envelope.Encrypt(plaintext, c.vendorKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt request: %w", err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Merchant-Id", c.cfg.MerchantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keepz request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("keepz api error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode keepz response: %w", err)
		}
	}

	return nil
}
