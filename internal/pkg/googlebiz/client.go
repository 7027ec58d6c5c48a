package googlebiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://mybusiness.googleapis.com/v4"

// Review Google Business Profile 评论
type Review struct {
	ReviewID   string
	Reviewer   string
	Rating     int
	Comment    string
	CreateTime time.Time
}

// Client Google Business Profile 客户端。
// token 来自前端透传的 X-Google-Token，按请求传入而不是配置。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// star rating 枚举到数值的映射
var starRatings = map[string]int{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// ListReviews 拉取指定门店的评论
func (c *Client) ListReviews(ctx context.Context, token, locationID string) ([]*Review, error) {
	url := fmt.Sprintf("%s/%s/reviews", c.baseURL, locationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google business request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google business api error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Reviews []struct {
			ReviewID string `json:"reviewId"`
			Reviewer struct {
				DisplayName string `json:"displayName"`
			} `json:"reviewer"`
			StarRating string `json:"starRating"`
			Comment    string `json:"comment"`
			CreateTime string `json:"createTime"`
		} `json:"reviews"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}

	reviews := make([]*Review, 0, len(result.Reviews))
	for _, r := range result.Reviews {
		review := &Review{
			ReviewID: r.ReviewID,
			Reviewer: r.Reviewer.DisplayName,
			Rating:   starRatings[r.StarRating],
			Comment:  r.Comment,
		}
		if ts, err := time.Parse(time.RFC3339, r.CreateTime); err == nil {
			review.CreateTime = ts
		}
		reviews = append(reviews, review)
	}

	return reviews, nil
}

// ReplyToReview 发布商家回复
func (c *Client) ReplyToReview(ctx context.Context, token, locationID, reviewID, comment string) error {
	url := fmt.Sprintf("%s/%s/reviews/%s/reply", c.baseURL, locationID, reviewID)

	payload, err := json.Marshal(map[string]string{"comment": comment})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google business request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("google business api error (%d): %s", resp.StatusCode, string(body))
	}

	return nil
}
