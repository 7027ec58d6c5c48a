package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/response"
	"github.com/qs3c/reviewhub_go_server/internal/service"
)

type CampaignHandler struct {
	campaignService *service.CampaignService
}

func NewCampaignHandler(campaignService *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
	}
}

// TrackVisit 营销落地页访问上报（公开接口）
// POST /api/v1/campaigns/visit
func (h *CampaignHandler) TrackVisit(c *gin.Context) {
	var req dto.TrackVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.campaignService.TrackVisit(&req); err != nil {
		if errors.Is(err, service.ErrCampaignNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, nil)
}
