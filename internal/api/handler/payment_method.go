package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/reviewhub_go_server/internal/api/middleware"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/response"
	"github.com/qs3c/reviewhub_go_server/internal/service"
)

type PaymentMethodHandler struct {
	paymentMethodService *service.PaymentMethodService
}

func NewPaymentMethodHandler(paymentMethodService *service.PaymentMethodService) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		paymentMethodService: paymentMethodService,
	}
}

// SaveCard 发起 Keepz 绑卡，返回渠道页面地址
// POST /api/v1/payment-methods
func (h *PaymentMethodHandler) SaveCard(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.paymentMethodService.SaveCard(c.Request.Context(), userID)
	if err != nil {
		response.UpstreamError(c, "")
		return
	}

	response.Success(c, resp)
}

// List 已绑卡列表
// GET /api/v1/payment-methods
func (h *PaymentMethodHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.paymentMethodService.List(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Delete 解绑卡
// DELETE /api/v1/payment-methods/:id
func (h *PaymentMethodHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的 ID")
		return
	}

	if err := h.paymentMethodService.Delete(userID, id); err != nil {
		if errors.Is(err, service.ErrPaymentMethodNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "已解绑", nil)
}
