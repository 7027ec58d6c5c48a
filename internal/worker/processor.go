package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/qs3c/reviewhub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/queue"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
	"github.com/qs3c/reviewhub_go_server/internal/service"
)

// Processor 评论分析任务处理器
type Processor struct {
	jobRepo    *repository.JobRepository
	reviewRepo *repository.ReviewRepository
	publisher  *pubsub.Publisher
	analyzer   service.ReviewAnalyzer
}

// NewProcessor 创建任务处理器
func NewProcessor(
	jobRepo *repository.JobRepository,
	reviewRepo *repository.ReviewRepository,
	publisher *pubsub.Publisher,
	analyzer service.ReviewAnalyzer,
) *Processor {
	return &Processor{
		jobRepo:    jobRepo,
		reviewRepo: reviewRepo,
		publisher:  publisher,
		analyzer:   analyzer,
	}
}

// Run 消费队列直到 ctx 取消
func (p *Processor) Run(ctx context.Context, q *queue.Queue) error {
	log.Println("Worker started, waiting for jobs...")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := q.Pop(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Failed to pop from queue: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		if err := p.Process(ctx, msg); err != nil {
			log.Printf("Job %d failed: %v", msg.JobID, err)
		}
	}
}

// Process 处理单个分析任务
func (p *Processor) Process(ctx context.Context, msg *queue.JobMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Status != "queued" {
		// 重复投递的消息直接跳过
		log.Printf("Job %d already %s, skipping", job.ID, job.Status)
		return nil
	}

	if err := p.jobRepo.MarkStarted(job.ID); err != nil {
		return fmt.Errorf("failed to mark job started: %w", err)
	}

	publishProgress := func(step, status, errMsg string) {
		p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID: msg.UserID,
			JobID:  msg.JobID,
			Status: status,
			Step:   step,
			Error:  errMsg,
		})
	}

	handleError := func(step string, err error) error {
		p.jobRepo.MarkFailed(job.ID, err.Error())
		publishProgress(step, "failed", err.Error())
		return err
	}

	// Step 1: 加载待分析评论
	log.Printf("Job %d: loading unanalyzed reviews", job.ID)
	p.jobRepo.UpdateStep(job.ID, pubsub.StepMessages[pubsub.StepFetching])
	publishProgress(pubsub.StepFetching, "processing", "")

	reviews, err := p.reviewRepo.ListUnanalyzed(msg.UserID, msg.LocationID)
	if err != nil {
		return handleError(pubsub.StepFetching, fmt.Errorf("failed to load reviews: %w", err))
	}

	// Step 2: AI 分析
	log.Printf("Job %d: analyzing %d reviews with model %s", job.ID, len(reviews), msg.ModelName)
	p.jobRepo.UpdateStep(job.ID, pubsub.StepMessages[pubsub.StepAnalyzing])
	publishProgress(pubsub.StepAnalyzing, "processing", "")

	analyzed := 0
	for i := range reviews {
		review := &reviews[i]

		insight, err := p.analyzer.AnalyzeReview(ctx, review.Rating, review.Comment)
		if err != nil {
			// 单条失败不中断整个任务
			log.Printf("Job %d: analyze review %d failed: %v", job.ID, review.ID, err)
			continue
		}

		// Step 3: 保存结果
		publishProgress(pubsub.StepSaving, "processing", "")
		if err := p.reviewRepo.UpdateFields(review.ID, map[string]interface{}{
			"sentiment": insight.Sentiment,
			"topics":    strings.Join(insight.Topics, ","),
		}); err != nil {
			return handleError(pubsub.StepSaving, fmt.Errorf("failed to save insight: %w", err))
		}
		analyzed++
	}

	if err := p.jobRepo.MarkCompleted(job.ID, analyzed); err != nil {
		return handleError(pubsub.StepDone, fmt.Errorf("failed to mark job completed: %w", err))
	}

	publishProgress(pubsub.StepDone, "completed", "")
	log.Printf("Job %d: completed, analyzed %d/%d reviews", job.ID, analyzed, len(reviews))

	return nil
}
