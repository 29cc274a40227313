package handler

import (
	"errors"
	"net/http"

	"mockexam-registration/internal/service"
	apperrors "mockexam-registration/pkg/app_errors"
	"mockexam-registration/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatusHandler struct {
	service service.StatusService
}

func NewStatusHandler(service service.StatusService) *StatusHandler {
	return &StatusHandler{service: service}
}

func (h *StatusHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("sessions/status", h.GetStatus)
	}
}

// StatusQuery 查詢參數
type StatusQuery struct {
	SessionTime string `form:"session_time" binding:"required"`
	ExamDate    string `form:"exam_date" binding:"required"`
}

// GetStatus is the only capacity shape ever returned to a UI; raw counts never
// cross this boundary.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	var query StatusQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	sessionTime, examDate, ok := parseSessionParams(c, query.SessionTime, query.ExamDate)
	if !ok {
		return
	}

	st, err := h.service.GetStatus(c, sessionTime, examDate)
	if err != nil {
		log := logger.WithComponent("handler").With(zap.String("operation", "GetStatus"), zap.Error(err))
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			log.Warn("Session not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, st)
}
