package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/queue"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

var (
	ErrReviewNotFound   = errors.New("评论不存在")
	ErrJobNotFound      = errors.New("任务不存在")
	ErrJobAlreadyQueued = errors.New("已有分析任务在执行中")
	ErrNoReplyDraft     = errors.New("请先生成回复草稿")
)

// ReviewService 评论拉取、AI 分析任务和回复
type ReviewService struct {
	reviewRepo *repository.ReviewRepository
	jobRepo    *repository.JobRepository
	userRepo   *repository.UserRepository
	queue      *queue.Queue
	business   BusinessProfileClient
	analyzer   ReviewAnalyzer
	modelName  string
}

func NewReviewService(
	reviewRepo *repository.ReviewRepository,
	jobRepo *repository.JobRepository,
	userRepo *repository.UserRepository,
	q *queue.Queue,
	business BusinessProfileClient,
	analyzer ReviewAnalyzer,
	modelName string,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		jobRepo:    jobRepo,
		userRepo:   userRepo,
		queue:      q,
		business:   business,
		analyzer:   analyzer,
		modelName:  modelName,
	}
}

// FetchReviews 从 Google Business Profile 拉取评论并落库快照
func (s *ReviewService) FetchReviews(ctx context.Context, userID int64, googleToken, locationID string) ([]dto.ReviewListItem, error) {
	reviews, err := s.business.ListReviews(ctx, googleToken, locationID)
	if err != nil {
		return nil, err
	}

	for _, r := range reviews {
		err := s.reviewRepo.Upsert(&model.SavedReview{
			UserID:         userID,
			GoogleReviewID: r.ReviewID,
			LocationID:     locationID,
			Reviewer:       r.Reviewer,
			Rating:         r.Rating,
			Comment:        r.Comment,
			ReviewedAt:     r.CreateTime,
		})
		if err != nil {
			return nil, err
		}
	}

	return s.ListSaved(userID, 0)
}

// ListSaved 已保存的评论列表
func (s *ReviewService) ListSaved(userID int64, limit int) ([]dto.ReviewListItem, error) {
	reviews, err := s.reviewRepo.ListByUserID(userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ReviewListItem, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, dto.ReviewListItem{
			ID:         r.ID,
			Reviewer:   r.Reviewer,
			Rating:     r.Rating,
			Comment:    r.Comment,
			Sentiment:  r.Sentiment,
			Topics:     r.Topics,
			ReplyDraft: r.ReplyDraft,
			ReviewedAt: r.ReviewedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

// StartAnalysis 发起异步情感分析。
// 同一用户同时只允许一个任务，入队由 worker 消费。
func (s *ReviewService) StartAnalysis(ctx context.Context, userID int64, locationID string) (*dto.AnalyzeReviewsResponse, error) {
	running, err := s.jobRepo.HasRunningJob(userID)
	if err != nil {
		return nil, err
	}
	if running {
		return nil, ErrJobAlreadyQueued
	}

	pending, err := s.reviewRepo.ListUnanalyzed(userID, locationID)
	if err != nil {
		return nil, err
	}

	job := &model.ReviewAnalysisJob{
		UserID:     userID,
		LocationID: locationID,
		ModelName:  s.modelName,
		Status:     "queued",
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}

	if err := s.queue.Push(ctx, &queue.JobMessage{
		JobID:      job.ID,
		UserID:     userID,
		LocationID: locationID,
		ModelName:  s.modelName,
	}); err != nil {
		_ = s.jobRepo.MarkFailed(job.ID, "入队失败")
		return nil, err
	}

	return &dto.AnalyzeReviewsResponse{
		JobID:       job.ID,
		ReviewCount: len(pending),
	}, nil
}

// GetJobStatus 查询任务状态
func (s *ReviewService) GetJobStatus(userID, jobID int64) (*dto.JobStatusResponse, error) {
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrJobNotFound
	}

	return &dto.JobStatusResponse{
		JobID:        job.ID,
		Status:       job.Status,
		CurrentStep:  job.CurrentStep,
		ErrorMessage: job.ErrorMessage,
	}, nil
}

// GenerateReply 为评论生成 AI 回复草稿
func (s *ReviewService) GenerateReply(ctx context.Context, userID, reviewID int64, tone string) (*dto.GenerateReplyResponse, error) {
	review, err := s.getOwnedReview(userID, reviewID)
	if err != nil {
		return nil, err
	}

	businessName := ""
	if user, err := s.userRepo.GetByID(userID); err == nil {
		businessName = user.Company
		if businessName == "" {
			businessName = user.Username
		}
	}

	draft, err := s.analyzer.DraftReply(ctx, businessName, review.Rating, review.Comment, tone)
	if err != nil {
		return nil, err
	}
	draft = strings.TrimSpace(draft)

	if err := s.reviewRepo.UpdateFields(review.ID, map[string]interface{}{
		"reply_draft": draft,
	}); err != nil {
		return nil, err
	}

	return &dto.GenerateReplyResponse{
		ReviewID:   review.ID,
		ReplyDraft: draft,
	}, nil
}

// PublishReply 把草稿发布为商家回复
func (s *ReviewService) PublishReply(ctx context.Context, userID, reviewID int64, googleToken string) error {
	review, err := s.getOwnedReview(userID, reviewID)
	if err != nil {
		return err
	}
	if review.ReplyDraft == "" {
		return ErrNoReplyDraft
	}

	if err := s.business.ReplyToReview(ctx, googleToken, review.LocationID, review.GoogleReviewID, review.ReplyDraft); err != nil {
		return err
	}

	now := time.Now()
	return s.reviewRepo.UpdateFields(review.ID, map[string]interface{}{
		"replied_at": now,
	})
}

func (s *ReviewService) getOwnedReview(userID, reviewID int64) (*model.SavedReview, error) {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	if review.UserID != userID {
		return nil, ErrReviewNotFound
	}
	return review, nil
}
