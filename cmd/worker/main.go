package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/database"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/openai"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/queue"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
	"github.com/qs3c/reviewhub_go_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.AnalysisQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 创建任务处理器
	processor := worker.NewProcessor(
		repository.NewJobRepository(db),
		repository.NewReviewRepository(db),
		publisher,
		openai.NewClient(&cfg.OpenAI),
	)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	maxWorkers := cfg.Queue.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	log.Printf("Worker starting, max workers: %d", maxWorkers)

	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := processor.Run(ctx, jobQueue); err != nil && ctx.Err() == nil {
				log.Printf("Worker %d stopped: %v", workerID, err)
			}
		}(i)
	}

	wg.Wait()
	log.Println("Worker shutdown complete")
}
