package handlers

import (
	"context"
	"net/http"

	"learning-service/internal/service"
	"learning-service/internal/utils"

	"github.com/gin-gonic/gin"
)

type StreakHandler struct {
	Service *service.StreakService
}

func NewStreakHandler(s *service.StreakService) *StreakHandler {
	return &StreakHandler{Service: s}
}

func (h *StreakHandler) GetStreakInfo(c *gin.Context) {
	info, err := h.Service.GetStreakInfo(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Streak info", info)
}

func (h *StreakHandler) RecordActivity(c *gin.Context) {
	streak, err := h.Service.RecordActivity(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Activity recorded", streak)
}

type grantFreezesRequest struct {
	Count int `json:"count" binding:"required"`
}

func (h *StreakHandler) GrantFreezes(c *gin.Context) {
	var req grantFreezesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid grant payload", err)
		return
	}
	if err := h.Service.GrantFreezes(context.Background(), c.Param("id"), req.Count); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Streak freezes granted", nil)
}

func (h *StreakHandler) UseFreeze(c *gin.Context) {
	if err := h.Service.UseStreakFreeze(context.Background(), c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Streak freeze used", nil)
}
