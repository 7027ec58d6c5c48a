package model

import (
	"time"
)

// SavedReview 从 Google Business Profile 拉取的评论快照
type SavedReview struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	UserID         int64      `gorm:"not null;index" json:"user_id"`
	GoogleReviewID string     `gorm:"size:128;uniqueIndex;not null" json:"google_review_id"`
	LocationID     string     `gorm:"size:200;index" json:"location_id"`
	Reviewer       string     `gorm:"size:200" json:"reviewer"`
	Rating         int        `gorm:"not null" json:"rating"` // 1-5
	Comment        string     `gorm:"type:text" json:"comment"`
	Sentiment      string     `gorm:"size:20" json:"sentiment,omitempty"` // positive, neutral, negative
	Topics         string     `gorm:"size:500" json:"topics,omitempty"`   // 逗号分隔
	ReplyDraft     string     `gorm:"type:text" json:"reply_draft,omitempty"`
	RepliedAt      *time.Time `json:"replied_at,omitempty"`
	ReviewedAt     time.Time  `json:"reviewed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (SavedReview) TableName() string {
	return "saved_reviews"
}

// ReviewAnalysisJob 异步情感分析任务
type ReviewAnalysisJob struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	UserID       int64      `gorm:"not null;index" json:"user_id"`
	LocationID   string     `gorm:"size:200" json:"location_id"`
	ReviewCount  int        `json:"review_count"`
	ModelName    string     `gorm:"size:50" json:"model_name"`
	Status       string     `gorm:"size:20;default:queued;index" json:"status"` // queued, processing, completed, failed
	CurrentStep  string     `gorm:"size:200" json:"current_step,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func (ReviewAnalysisJob) TableName() string {
	return "review_analysis_jobs"
}
