package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/reviewhub_go_server/config"
	"github.com/qs3c/reviewhub_go_server/internal/api/handler"
	"github.com/qs3c/reviewhub_go_server/internal/api/middleware"
	"github.com/qs3c/reviewhub_go_server/internal/service"
)

type Router struct {
	authHandler          *handler.AuthHandler
	userHandler          *handler.UserHandler
	subscriptionHandler  *handler.SubscriptionHandler
	paymentMethodHandler *handler.PaymentMethodHandler
	invoiceHandler       *handler.InvoiceHandler
	webhookHandler       *handler.WebhookHandler
	campaignHandler      *handler.CampaignHandler
	reviewHandler        *handler.ReviewHandler
	websocketHandler     *handler.WebSocketHandler
	planService          *service.PlanService
	cfg                  *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	paymentMethodHandler *handler.PaymentMethodHandler,
	invoiceHandler *handler.InvoiceHandler,
	webhookHandler *handler.WebhookHandler,
	campaignHandler *handler.CampaignHandler,
	reviewHandler *handler.ReviewHandler,
	websocketHandler *handler.WebSocketHandler,
	planService *service.PlanService,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:          authHandler,
		userHandler:          userHandler,
		subscriptionHandler:  subscriptionHandler,
		paymentMethodHandler: paymentMethodHandler,
		invoiceHandler:       invoiceHandler,
		webhookHandler:       webhookHandler,
		campaignHandler:      campaignHandler,
		reviewHandler:        reviewHandler,
		websocketHandler:     websocketHandler,
		planService:          planService,
		cfg:                  cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/verify-email", r.authHandler.VerifyEmail)
			auth.GET("/google", r.authHandler.GoogleAuth)
			auth.GET("/google/callback", r.authHandler.GoogleCallback)
		}

		// 公开接口 - 支付渠道回调
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/paypal", r.webhookHandler.PayPal)
			webhooks.POST("/lemonsqueezy", r.webhookHandler.LemonSqueezy)
			webhooks.POST("/keepz", r.webhookHandler.Keepz)
		}

		// 公开接口 - 营销落地页埋点
		api.POST("/campaigns/visit", r.campaignHandler.TrackVisit)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.POST("/avatar", r.userHandler.UploadAvatar)
				user.PUT("/business-location", r.userHandler.UpdateBusinessLocation)
				user.DELETE("/account", r.userHandler.DeleteAccount)
				user.GET("/plan", r.subscriptionHandler.GetPlan)
			}

			// 订阅
			subscriptions := authenticated.Group("/subscriptions")
			{
				subscriptions.POST("", r.subscriptionHandler.Create)
				subscriptions.GET("", r.subscriptionHandler.List)
				subscriptions.GET("/:id", r.subscriptionHandler.GetStatus)
				subscriptions.POST("/:id/cancel", r.subscriptionHandler.Cancel)
				subscriptions.POST("/:id/refund", r.subscriptionHandler.Refund)
			}

			// 绑卡
			paymentMethods := authenticated.Group("/payment-methods")
			{
				paymentMethods.POST("", r.paymentMethodHandler.SaveCard)
				paymentMethods.GET("", r.paymentMethodHandler.List)
				paymentMethods.DELETE("/:id", r.paymentMethodHandler.Delete)
			}

			// 发票
			authenticated.GET("/invoices", r.invoiceHandler.List)
			authenticated.POST("/invoices/:transaction_id", r.invoiceHandler.Generate)

			// 演示渠道支付
			authenticated.POST("/payments/fake", r.subscriptionHandler.PayFake)

			// 评论（基础读取对所有登录用户开放）
			authenticated.GET("/reviews", r.reviewHandler.List)
			authenticated.POST("/reviews/fetch", r.reviewHandler.Fetch)
		}

		// AI 功能需要付费套餐
		paid := api.Group("/reviews")
		paid.Use(middleware.Auth(r.cfg.JWT.Secret))
		paid.Use(middleware.RequirePaidPlan(r.planService))
		{
			paid.POST("/analyze", r.reviewHandler.Analyze)
			paid.GET("/jobs/:id", r.reviewHandler.GetJobStatus)
			paid.POST("/:id/reply", r.reviewHandler.GenerateReply)
			paid.POST("/:id/publish", r.reviewHandler.PublishReply)
		}
	}

	return engine
}
