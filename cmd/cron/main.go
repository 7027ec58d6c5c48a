package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/database"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/cron"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
)

var runOnce = flag.Bool("once", false, "Run one sweep and exit (for manual runs)")

func main() {
	flag.Parse()

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

	svc := cron.NewService(
		db,
		repository.NewSubscriptionRepository(db),
		repository.NewSubscriptionEventRepository(db),
		repository.NewUserPlanRepository(db),
		repository.NewPaymentMethodRepository(db),
		repository.NewCampaignRepository(db),
	)

	if *runOnce {
		if err := svc.RunNow(); err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		log.Println("Sweep completed")
		return
	}

	svc.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	svc.Stop()
	log.Println("Cron shutdown complete")
}
