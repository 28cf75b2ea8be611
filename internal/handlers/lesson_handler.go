package handlers

import (
	"context"
	"net/http"

	"learning-service/internal/models"
	"learning-service/internal/service"
	"learning-service/internal/utils"

	"github.com/gin-gonic/gin"
)

type LessonHandler struct {
	Service *service.LessonService
}

func NewLessonHandler(s *service.LessonService) *LessonHandler {
	return &LessonHandler{Service: s}
}

func (h *LessonHandler) CreateLesson(c *gin.Context) {
	var lesson models.Lesson
	if err := c.ShouldBindJSON(&lesson); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid lesson payload", err)
		return
	}
	if err := h.Service.CreateLesson(context.Background(), &lesson); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Lesson created", lesson)
}

func (h *LessonHandler) GetLesson(c *gin.Context) {
	lesson, err := h.Service.GetLesson(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Lesson found", lesson)
}

func (h *LessonHandler) ListByChild(c *gin.Context) {
	lessons, err := h.Service.ListByChild(context.Background(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "Lessons", lessons)
}
