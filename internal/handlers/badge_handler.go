package handlers

import (
	"context"

	"learning-service/internal/service"
	"learning-service/internal/utils"

	"github.com/gin-gonic/gin"
)

type BadgeHandler struct {
	Service *service.BadgeService
}

func NewBadgeHandler(s *service.BadgeService) *BadgeHandler {
	return &BadgeHandler{Service: s}
}

func (h *BadgeHandler) GetBadgesForChild(c *gin.Context) {
	badges, err := h.Service.GetBadgesForChild(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Badges", badges)
}

func (h *BadgeHandler) GetBadge(c *gin.Context) {
	badge, err := h.Service.GetBadge(context.Background(), c.Param("code"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Badge", badge)
}
