package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/reviewhub_go_server/internal/api/middleware"
	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/response"
	"github.com/qs3c/reviewhub_go_server/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	planService         *service.PlanService
}

func NewSubscriptionHandler(
	subscriptionService *service.SubscriptionService,
	planService *service.PlanService,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		planService:         planService,
	}
}

// Create 创建订阅
// POST /api/v1/subscriptions
func (h *SubscriptionHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subscriptionService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPlan):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrPaymentMethodRequired):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrChargeDeclined):
			response.UpstreamError(c, err.Error())
		default:
			response.UpstreamError(c, "")
		}
		return
	}

	response.Success(c, resp)
}

// List 订阅历史
// GET /api/v1/subscriptions
func (h *SubscriptionHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.subscriptionService.List(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// GetStatus 查询订阅状态
// GET /api/v1/subscriptions/:id
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	subID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的订阅 ID")
		return
	}

	resp, err := h.subscriptionService.GetStatus(c.Request.Context(), userID, subID)
	if err != nil {
		h.handleSubscriptionError(c, err)
		return
	}

	response.Success(c, resp)
}

// Cancel 取消订阅
// POST /api/v1/subscriptions/:id/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	subID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的订阅 ID")
		return
	}

	var req dto.CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.subscriptionService.Cancel(c.Request.Context(), userID, subID, req.Reason); err != nil {
		h.handleSubscriptionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅已取消，当前周期结束前仍可使用", nil)
}

// Refund 退款
// POST /api/v1/subscriptions/:id/refund
func (h *SubscriptionHandler) Refund(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	subID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的订阅 ID")
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.subscriptionService.Refund(c.Request.Context(), userID, subID, req.Reason); err != nil {
		h.handleSubscriptionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "退款已发起", nil)
}

// PayFake 演示渠道支付，跳过真实渠道直接激活
// POST /api/v1/payments/fake
func (h *SubscriptionHandler) PayFake(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.FakePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subscriptionService.Create(c.Request.Context(), userID, &dto.CreateSubscriptionRequest{
		Provider: model.ProviderFake,
		PlanType: req.PlanType,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownPlan) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// GetPlan 当前权益
// GET /api/v1/user/plan
func (h *SubscriptionHandler) GetPlan(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	plan, err := h.planService.GetCurrentPlan(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, plan)
}

func (h *SubscriptionHandler) handleSubscriptionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubscriptionNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrNotSubscriptionOwner):
		// 不泄漏他人订阅的存在性
		response.NotFoundError(c, service.ErrSubscriptionNotFound.Error())
	case errors.Is(err, service.ErrSubscriptionTerminal):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrRefundWindowClosed):
		response.RefundWindowError(c, err.Error())
	case errors.Is(err, service.ErrRefundNotEligible):
		response.RefundWindowError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
