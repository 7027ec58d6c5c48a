package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.ReviewAnalysisJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.ReviewAnalysisJob, error) {
	var job model.ReviewAnalysisJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.ReviewAnalysisJob) error {
	return r.db.Save(job).Error
}

func (r *JobRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.ReviewAnalysisJob{}).Where("id = ?", id).Update("status", status).Error
}

func (r *JobRepository) UpdateStep(id int64, step string) error {
	return r.db.Model(&model.ReviewAnalysisJob{}).Where("id = ?", id).Update("current_step", step).Error
}

func (r *JobRepository) MarkStarted(id int64) error {
	now := time.Now()
	return r.db.Model(&model.ReviewAnalysisJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     "processing",
		"started_at": now,
	}).Error
}

func (r *JobRepository) MarkCompleted(id int64, reviewCount int) error {
	now := time.Now()
	return r.db.Model(&model.ReviewAnalysisJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       "completed",
		"review_count": reviewCount,
		"completed_at": now,
	}).Error
}

func (r *JobRepository) MarkFailed(id int64, errMsg string) error {
	now := time.Now()
	return r.db.Model(&model.ReviewAnalysisJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        "failed",
		"error_message": errMsg,
		"completed_at":  now,
	}).Error
}

// HasRunningJob 用户是否已有排队或执行中的任务
func (r *JobRepository) HasRunningJob(userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.ReviewAnalysisJob{}).
		Where("user_id = ? AND status IN ?", userID, []string{"queued", "processing"}).
		Count(&count).Error
	return count > 0, err
}

func (r *JobRepository) ListByUserID(userID int64, limit int) ([]model.ReviewAnalysisJob, error) {
	var jobs []model.ReviewAnalysisJob
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&jobs).Error
	return jobs, err
}
