package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/reviewhub_go_server/internal/api/middleware"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/response"
	"github.com/qs3c/reviewhub_go_server/internal/service"
)

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
}

func NewInvoiceHandler(invoiceService *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// List 发票列表
// GET /api/v1/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.invoiceService.List(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Generate 为指定交易补开发票
// POST /api/v1/invoices/:transaction_id
func (h *InvoiceHandler) Generate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	transactionID, err := strconv.ParseInt(c.Param("transaction_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的交易 ID")
		return
	}

	item, err := h.invoiceService.Generate(userID, transactionID)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, item)
}
