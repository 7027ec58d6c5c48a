package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/reviewhub_go_server/internal/service"
)

// WebhookHandler 接收各支付渠道的异步通知。
// 渠道按 HTTP 状态码判断投递结果：2xx 停止重试，非 2xx 会重试，
// 所以只有真正处理失败才返回 5xx；重复事件按成功处理。
type WebhookHandler struct {
	webhookService *service.WebhookService
}

func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// PayPal PayPal webhook
// POST /api/v1/webhooks/paypal
func (h *WebhookHandler) PayPal(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.webhookService.HandlePayPal(body); err != nil {
		if service.IsDuplicate(err) {
			c.Status(http.StatusOK)
			return
		}
		log.Printf("PayPal webhook failed: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}

// LemonSqueezy LemonSqueezy webhook
// POST /api/v1/webhooks/lemonsqueezy
func (h *WebhookHandler) LemonSqueezy(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	signature := c.GetHeader("X-Signature")
	if err := h.webhookService.HandleLemonSqueezy(body, signature); err != nil {
		if service.IsDuplicate(err) {
			c.Status(http.StatusOK)
			return
		}
		if errors.Is(err, service.ErrInvalidSignature) {
			c.Status(http.StatusUnauthorized)
			return
		}
		log.Printf("LemonSqueezy webhook failed: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}

// Keepz Keepz 加密回调
// POST /api/v1/webhooks/keepz
func (h *WebhookHandler) Keepz(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.webhookService.HandleKeepz(body); err != nil {
		if service.IsDuplicate(err) {
			c.Status(http.StatusOK)
			return
		}
		log.Printf("Keepz callback failed: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}
