package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/qs3c/reviewhub_go_server/config"
)

// SubscriptionDetail 渠道侧订阅详情
type SubscriptionDetail struct {
	ID              string
	Status          string // APPROVAL_PENDING, ACTIVE, CANCELLED, EXPIRED
	NextBillingTime *time.Time
}

type Client struct {
	cfg        *config.PayPalConfig
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg *config.PayPalConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// getAccessToken 获取 client-credentials token，带过期缓存
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request paypal token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal token error: %s", string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	// 提前一分钟过期，避免边界上拿到失效 token
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

	return c.accessToken, nil
}

// CreateSubscription 创建渠道订阅，返回订阅 ID 和用户批准跳转链接
func (c *Client) CreateSubscription(ctx context.Context, planID string) (string, string, error) {
	payload := map[string]interface{}{
		"plan_id": planID,
		"application_context": map[string]string{
			"return_url": c.cfg.ReturnURL,
			"cancel_url": c.cfg.CancelURL,
		},
	}

	var result struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}

	if err := c.do(ctx, http.MethodPost, "/v1/billing/subscriptions", payload, &result); err != nil {
		return "", "", err
	}

	approvalURL := ""
	for _, link := range result.Links {
		if link.Rel == "approve" {
			approvalURL = link.Href
			break
		}
	}

	return result.ID, approvalURL, nil
}

// GetSubscription 查询渠道订阅状态
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionDetail, error) {
	var result struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		BillingInfo struct {
			NextBillingTime string `json:"next_billing_time"`
		} `json:"billing_info"`
	}

	if err := c.do(ctx, http.MethodGet, "/v1/billing/subscriptions/"+subscriptionID, nil, &result); err != nil {
		return nil, err
	}

	detail := &SubscriptionDetail{
		ID:     result.ID,
		Status: result.Status,
	}
	if result.BillingInfo.NextBillingTime != "" {
		if ts, err := time.Parse(time.RFC3339, result.BillingInfo.NextBillingTime); err == nil {
			detail.NextBillingTime = &ts
		}
	}

	return detail, nil
}

// CancelSubscription 取消渠道订阅
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	if reason == "" {
		reason = "cancelled by user"
	}
	payload := map[string]string{"reason": reason}
	return c.do(ctx, http.MethodPost, "/v1/billing/subscriptions/"+subscriptionID+"/cancel", payload, nil)
}

// Refund 对已完成的扣款发起退款
func (c *Client) Refund(ctx context.Context, captureID string) error {
	return c.do(ctx, http.MethodPost, "/v2/payments/captures/"+captureID+"/refund", map[string]string{}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, result interface{}) error {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return err
	}

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
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal api error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode paypal response: %w", err)
		}
	}

	return nil
}
