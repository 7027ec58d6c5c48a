package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Upsert 按 Google 评论 ID 写入快照，已存在则更新内容和评分
func (r *ReviewRepository) Upsert(review *model.SavedReview) error {
	var existing model.SavedReview
	err := r.db.Where("google_review_id = ?", review.GoogleReviewID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(review).Error
	}
	if err != nil {
		return err
	}

	review.ID = existing.ID
	review.CreatedAt = existing.CreatedAt
	// 保留已有的分析结果，拉取评论不会覆盖
	if review.Sentiment == "" {
		review.Sentiment = existing.Sentiment
		review.Topics = existing.Topics
	}
	if review.ReplyDraft == "" {
		review.ReplyDraft = existing.ReplyDraft
	}
	review.RepliedAt = existing.RepliedAt
	return r.db.Save(review).Error
}

func (r *ReviewRepository) GetByID(id int64) (*model.SavedReview, error) {
	var review model.SavedReview
	err := r.db.Where("id = ?", id).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) ListByUserID(userID int64, limit int) ([]model.SavedReview, error) {
	var reviews []model.SavedReview
	query := r.db.Where("user_id = ?", userID).Order("reviewed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&reviews).Error
	return reviews, err
}

// ListUnanalyzed 查询尚无情感标注的评论
func (r *ReviewRepository) ListUnanalyzed(userID int64, locationID string) ([]model.SavedReview, error) {
	var reviews []model.SavedReview
	err := r.db.Where("user_id = ? AND location_id = ? AND sentiment = ?", userID, locationID, "").
		Order("reviewed_at DESC").Find(&reviews).Error
	return reviews, err
}

func (r *ReviewRepository) Update(review *model.SavedReview) error {
	return r.db.Save(review).Error
}

func (r *ReviewRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.SavedReview{}).Where("id = ?", id).Updates(fields).Error
}
