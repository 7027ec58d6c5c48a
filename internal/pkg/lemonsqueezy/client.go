package lemonsqueezy

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qs3c/reviewhub_go_server/config"
)

type Client struct {
	cfg        *config.LemonSqueezyConfig
	httpClient *http.Client
}

func NewClient(cfg *config.LemonSqueezyConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckout 创建结账页，custom data 里带上本地订阅 ID 供 webhook 回查
func (c *Client) CreateCheckout(ctx context.Context, variantID string, localSubscriptionID int64, email string) (string, error) {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"type": "checkouts",
			"attributes": map[string]interface{}{
				"checkout_data": map[string]interface{}{
					"email": email,
					"custom": map[string]string{
						"subscription_id": fmt.Sprintf("%d", localSubscriptionID),
					},
				},
				"product_options": map[string]interface{}{
					"redirect_url": c.cfg.RedirectURL,
				},
			},
			"relationships": map[string]interface{}{
				"store": map[string]interface{}{
					"data": map[string]string{"type": "stores", "id": c.cfg.StoreID},
				},
				"variant": map[string]interface{}{
					"data": map[string]string{"type": "variants", "id": variantID},
				},
			},
		},
	}

	var result struct {
		Data struct {
			Attributes struct {
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
	}

	if err := c.do(ctx, http.MethodPost, "/v1/checkouts", payload, &result); err != nil {
		return "", err
	}

	return result.Data.Attributes.URL, nil
}

// CancelSubscription 取消渠道订阅
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/subscriptions/"+subscriptionID, nil, nil)
}

// Refund 对订单发起退款
func (c *Client) Refund(ctx context.Context, orderID string) error {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"type": "order-refunds",
			"relationships": map[string]interface{}{
				"order": map[string]interface{}{
					"data": map[string]string{"type": "orders", "id": orderID},
				},
			},
		},
	}
	return c.do(ctx, http.MethodPost, "/v1/order-refunds", payload, nil)
}

// VerifySignature 校验 webhook 签名（X-Signature，HMAC-SHA256）
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c.cfg.SigningSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.SigningSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) do(ctx context.Context, method, path string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Content-Type", "application/vnd.api+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lemonsqueezy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("lemonsqueezy api error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode lemonsqueezy response: %w", err)
		}
	}

	return nil
}
