package dto

// AnalyzeReviewsRequest 发起评论分析请求
type AnalyzeReviewsRequest struct {
	LocationID string `json:"location_id" binding:"required,max=200"`
}

// AnalyzeReviewsResponse 发起评论分析响应
type AnalyzeReviewsResponse struct {
	JobID       int64 `json:"job_id"`
	ReviewCount int   `json:"review_count"`
}

// JobStatusResponse 任务状态响应
type JobStatusResponse struct {
	JobID        int64  `json:"job_id"`
	Status       string `json:"status"`
	CurrentStep  string `json:"current_step,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// GenerateReplyRequest AI 回复草稿请求
type GenerateReplyRequest struct {
	Tone string `json:"tone,omitempty" binding:"omitempty,oneof=professional friendly apologetic"`
}

// GenerateReplyResponse AI 回复草稿响应
type GenerateReplyResponse struct {
	ReviewID   int64  `json:"review_id"`
	ReplyDraft string `json:"reply_draft"`
}

// ReviewListItem 评论列表项
type ReviewListItem struct {
	ID         int64  `json:"id"`
	Reviewer   string `json:"reviewer"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	Sentiment  string `json:"sentiment,omitempty"`
	Topics     string `json:"topics,omitempty"`
	ReplyDraft string `json:"reply_draft,omitempty"`
	ReviewedAt string `json:"reviewed_at"`
}
