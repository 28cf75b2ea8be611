package handlers

import (
	"context"
	"net/http"
	"strconv"

	"learning-service/internal/models"
	"learning-service/internal/service"
	"learning-service/internal/utils"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	Service *service.XPService
}

func NewProgressHandler(s *service.XPService) *ProgressHandler {
	return &ProgressHandler{Service: s}
}

func (h *ProgressHandler) GetProgress(c *gin.Context) {
	progress, err := h.Service.GetProgress(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Progress", gin.H{
		"progress":      progress,
		"next_level_xp": models.XPForNextLevel(progress.Level),
	})
}

func (h *ProgressHandler) GetStats(c *gin.Context) {
	stats, err := h.Service.GetStats(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "XP stats", stats)
}

func (h *ProgressHandler) GetHistory(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "days must be a number", err)
		return
	}
	history, err := h.Service.GetXPHistory(context.Background(), c.Param("id"), days)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "XP history", history)
}

// AwardXP is the manual/admin award endpoint; everything else awards through
// the grading and streak pipelines.
func (h *ProgressHandler) AwardXP(c *gin.Context) {
	var req service.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid award payload", err)
		return
	}
	if req.Reason == "" {
		req.Reason = models.ReasonManualAward
	}

	result, err := h.Service.AwardXP(context.Background(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "XP awarded", result)
}

// VerifyLedger exposes the ledger-vs-total consistency check.
func (h *ProgressHandler) VerifyLedger(c *gin.Context) {
	consistent, err := h.Service.VerifyLedger(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Ledger check", gin.H{"consistent": consistent})
}
