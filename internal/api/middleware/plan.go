package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/reviewhub_go_server/internal/pkg/response"
	"github.com/qs3c/reviewhub_go_server/internal/service"
)

// RequirePaidPlan 付费套餐检查中间件
func RequirePaidPlan(planService *service.PlanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		paid, err := planService.HasPaidPlan(userID)
		if err != nil {
			response.ServerError(c, "套餐检查失败")
			c.Abort()
			return
		}

		if !paid {
			response.PlanError(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
