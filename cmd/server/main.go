package main

import (
	"context"
	"fmt"
	"log"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/api"
	"github.com/qs3c/reviewhub_go_server/internal/api/handler"
	"github.com/qs3c/reviewhub_go_server/internal/database"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/email"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/googlebiz"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/keepz"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/lemonsqueezy"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/oauth"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/openai"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/oss"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/paypal"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/queue"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/ws"
	"github.com/qs3c/reviewhub_go_server/internal/repository"
	"github.com/qs3c/reviewhub_go_server/internal/service"
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

	// 初始化 OSS（可选）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化邮件服务（可选）
	var emailService *email.Service
	if cfg.Email.SMTPHost != "" {
		emailService = email.NewService(&cfg.Email)
		log.Println("Email service initialized")
	}

	// 初始化支付渠道客户端
	paypalClient := paypal.NewClient(&cfg.PayPal)
	lemonClient := lemonsqueezy.NewClient(&cfg.LemonSqueezy)

	var keepzClient service.KeepzProvider
	if cfg.Keepz.MerchantID != "" {
		kc, err := keepz.NewClient(&cfg.Keepz)
		if err != nil {
			log.Fatalf("Failed to init Keepz client: %v", err)
		}
		keepzClient = kc
	} else {
		log.Println("Warning: Keepz not configured, card payments disabled")
	}

	// 初始化 Queue 和 WebSocket Hub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.AnalysisQueue)
	wsHub := ws.NewHub()

	// 把 worker 发布的任务进度转发给在线用户
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
			wsHub.SendToUser(msg.UserID, &ws.Message{
				Type: msg.Type,
				Data: msg,
			})
		})
		if err != nil {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	eventRepo := repository.NewSubscriptionEventRepository(db)
	userPlanRepo := repository.NewUserPlanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	paymentMethodRepo := repository.NewPaymentMethodRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// 初始化 Service
	invoiceService := service.NewInvoiceService(db, &cfg.Billing, subscriptionRepo, paymentRepo, userRepo)
	planService := service.NewPlanService(&cfg.Billing, userPlanRepo)
	subscriptionService := service.NewSubscriptionService(
		db, cfg,
		subscriptionRepo, eventRepo, userPlanRepo, paymentRepo, paymentMethodRepo, userRepo,
		invoiceService, emailService,
		paypalClient, lemonClient, keepzClient,
	)
	webhookService := service.NewWebhookService(
		subscriptionService,
		subscriptionRepo, eventRepo, userPlanRepo, webhookRepo, paymentMethodRepo,
		lemonClient, keepzClient,
	)
	paymentMethodService := service.NewPaymentMethodService(paymentMethodRepo, keepzClient)
	authService := service.NewAuthService(userRepo, userPlanRepo, cfg, emailService)
	userService := service.NewUserService(userRepo, userPlanRepo, subscriptionRepo, subscriptionService, ossClient)
	campaignService := service.NewCampaignService(campaignRepo)
	reviewService := service.NewReviewService(
		reviewRepo, jobRepo, userRepo,
		jobQueue, googlebiz.NewClient(), openai.NewClient(&cfg.OpenAI),
		cfg.OpenAI.Model,
	)

	// 初始化 Handler
	stateStore := oauth.NewStateStore(rdb)
	authHandler := handler.NewAuthHandler(authService, stateStore)
	userHandler := handler.NewUserHandler(userService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, planService)
	paymentMethodHandler := handler.NewPaymentMethodHandler(paymentMethodService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	campaignHandler := handler.NewCampaignHandler(campaignService)
	reviewHandler := handler.NewReviewHandler(reviewService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		subscriptionHandler,
		paymentMethodHandler,
		invoiceHandler,
		webhookHandler,
		campaignHandler,
		reviewHandler,
		websocketHandler,
		planService,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
