package handlers

import (
	"context"
	"net/http"

	"learning-service/internal/models"
	"learning-service/internal/service"
	"learning-service/internal/utils"

	"github.com/gin-gonic/gin"
)

type ExerciseHandler struct {
	Service *service.ExerciseService
}

func NewExerciseHandler(s *service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{Service: s}
}

func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var exercise models.Exercise
	if err := c.ShouldBindJSON(&exercise); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid exercise payload", err)
		return
	}
	if err := h.Service.CreateExercise(context.Background(), &exercise); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Exercise created", exercise)
}

func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	exercise, err := h.Service.GetExercise(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Exercise found", exercise)
}

func (h *ExerciseHandler) ListByLesson(c *gin.Context) {
	exercises, err := h.Service.ListByLesson(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Exercises for lesson", exercises)
}

type submitAnswerRequest struct {
	Answer  string `json:"answer" binding:"required"`
	AgeBand string `json:"age_band"`
}

func (h *ExerciseHandler) SubmitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid submission payload", err)
		return
	}
	childID, err := utils.GetUserIDFromRequest(c)
	if err != nil || childID == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	result, err := h.Service.SubmitAnswer(context.Background(), c.Param("id"), childID, req.Answer, req.AgeBand)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Answer graded", result)
}

func (h *ExerciseHandler) GetHint(c *gin.Context) {
	childID, err := utils.GetUserIDFromRequest(c)
	if err != nil || childID == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	hint, err := h.Service.GetHint(context.Background(), c.Param("id"), childID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Hint", hint)
}

func (h *ExerciseHandler) GetAttempts(c *gin.Context) {
	childID, err := utils.GetUserIDFromRequest(c)
	if err != nil || childID == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	attempts, err := h.Service.GetAttempts(context.Background(), c.Param("id"), childID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Attempts", attempts)
}
