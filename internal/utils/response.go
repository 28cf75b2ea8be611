package utils

import (
	"errors"
	"net/http"

	"learning-service/internal/service"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(statusCode, response)
}

// ServiceErrorResponse maps the service error taxonomy onto HTTP statuses.
func ServiceErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, "Not found", err)
	case errors.Is(err, service.ErrForbidden):
		ErrorResponse(c, http.StatusForbidden, "Access denied", err)
	case errors.Is(err, service.ErrValidation):
		ErrorResponse(c, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, service.ErrNoFreezeAvailable):
		ErrorResponse(c, http.StatusBadRequest, "No streak freezes available", err)
	case errors.Is(err, service.ErrJudgeUnavailable):
		ErrorResponse(c, http.StatusServiceUnavailable, "Grading is temporarily unavailable, please try again", err)
	default:
		ErrorResponse(c, http.StatusInternalServerError, "Internal error", err)
	}
}
