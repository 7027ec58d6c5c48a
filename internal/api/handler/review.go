package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/reviewhub_go_server/internal/api/middleware"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/response"
	"github.com/qs3c/reviewhub_go_server/internal/service"
)

// googleTokenHeader 前端透传的 Google access token，
// 服务端不保存，仅本次请求内使用
const googleTokenHeader = "X-Google-Token"

type ReviewHandler struct {
	reviewService *service.ReviewService
}

func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// Fetch 从 Google Business Profile 拉取评论
// POST /api/v1/reviews/fetch?location_id=xxx
func (h *ReviewHandler) Fetch(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	googleToken := c.GetHeader(googleTokenHeader)
	if googleToken == "" {
		response.ParamError(c, "缺少 Google 授权")
		return
	}

	locationID := c.Query("location_id")
	if locationID == "" {
		response.ParamError(c, "缺少 location_id")
		return
	}

	items, err := h.reviewService.FetchReviews(c.Request.Context(), userID, googleToken, locationID)
	if err != nil {
		response.UpstreamError(c, "评论拉取失败")
		return
	}

	response.Success(c, items)
}

// List 已保存的评论列表
// GET /api/v1/reviews
func (h *ReviewHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	items, err := h.reviewService.ListSaved(userID, limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Analyze 发起异步情感分析
// POST /api/v1/reviews/analyze
func (h *ReviewHandler) Analyze(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.AnalyzeReviewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.reviewService.StartAnalysis(c.Request.Context(), userID, req.LocationID)
	if err != nil {
		if errors.Is(err, service.ErrJobAlreadyQueued) {
			response.DuplicateError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// GetJobStatus 查询分析任务状态
// GET /api/v1/reviews/jobs/:id
func (h *ReviewHandler) GetJobStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的任务 ID")
		return
	}

	resp, err := h.reviewService.GetJobStatus(userID, jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// GenerateReply 生成 AI 回复草稿
// POST /api/v1/reviews/:id/reply
func (h *ReviewHandler) GenerateReply(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	reviewID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的评论 ID")
		return
	}

	var req dto.GenerateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.reviewService.GenerateReply(c.Request.Context(), userID, reviewID, req.Tone)
	if err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.UpstreamError(c, "草稿生成失败")
		return
	}

	response.Success(c, resp)
}

// PublishReply 将草稿发布到 Google
// POST /api/v1/reviews/:id/publish
func (h *ReviewHandler) PublishReply(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	reviewID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的评论 ID")
		return
	}

	googleToken := c.GetHeader(googleTokenHeader)
	if googleToken == "" {
		response.ParamError(c, "缺少 Google 授权")
		return
	}

	if err := h.reviewService.PublishReply(c.Request.Context(), userID, reviewID, googleToken); err != nil {
		switch {
		case errors.Is(err, service.ErrReviewNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrNoReplyDraft):
			response.ParamError(c, err.Error())
		default:
			response.UpstreamError(c, "回复发布失败")
		}
		return
	}

	response.SuccessWithMessage(c, "回复已发布", nil)
}
