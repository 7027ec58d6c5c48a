package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qs3c/reviewhub_go_server/config"
)

// ReviewInsight 单条评论的分析结果
type ReviewInsight struct {
	Sentiment string   `json:"sentiment"` // positive, neutral, negative
	Topics    []string `json:"topics"`
}

type Client struct {
	cfg        *config.OpenAIConfig
	httpClient *http.Client
}

func NewClient(cfg *config.OpenAIConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// AnalyzeReview 对单条评论做情感和主题分析
func (c *Client) AnalyzeReview(ctx context.Context, rating int, comment string) (*ReviewInsight, error) {
	prompt := fmt.Sprintf(
		"You are analyzing a Google Business review. Rating: %d/5. Review: %q. "+
			"Respond with JSON only: {\"sentiment\":\"positive|neutral|negative\",\"topics\":[\"...\"]}. "+
			"Topics are at most 5 short phrases.", rating, comment)

	content, err := c.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var insight ReviewInsight
	if err := json.Unmarshal([]byte(extractJSON(content)), &insight); err != nil {
		return nil, fmt.Errorf("failed to parse analysis result: %w", err)
	}

	return &insight, nil
}

// DraftReply 为评论生成商家回复草稿
func (c *Client) DraftReply(ctx context.Context, businessName string, rating int, comment, tone string) (string, error) {
	if tone == "" {
		tone = "professional"
	}
	prompt := fmt.Sprintf(
		"Write a %s reply from the business %q to this Google review (rating %d/5): %q. "+
			"Keep it under 80 words, no placeholders, reply text only.", tone, businessName, rating, comment)

	return c.chat(ctx, prompt)
}

func (c *Client) chat(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.4,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai api error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode openai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// extractJSON 容忍模型输出的 markdown 代码块包裹
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			return content[start : end+1]
		}
	}
	return content
}
