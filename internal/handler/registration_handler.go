package handler

import (
	"errors"
	"net/http"

	"mockexam-registration/internal/model"
	"mockexam-registration/internal/service"
	apperrors "mockexam-registration/pkg/app_errors"
	"mockexam-registration/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegistrationHandler struct {
	service service.AllocationService
}

func NewRegistrationHandler(service service.AllocationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

func (h *RegistrationHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("registrations", h.CreateRegistration)
	}
}

// CreateRegistrationRequest 報名請求
type CreateRegistrationRequest struct {
	SessionTime string  `json:"session_time" binding:"required"`
	ExamDate    string  `json:"exam_date" binding:"required"`
	PackageTier string  `json:"package_tier" binding:"required"`
	Subject     *string `json:"subject"`
}

func (h *RegistrationHandler) CreateRegistration(c *gin.Context) {
	var req CreateRegistrationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	sessionTime, examDate, ok := parseSessionParams(c, req.SessionTime, req.ExamDate)
	if !ok {
		return
	}

	reservation := model.ReservationRequest{
		SessionTime: sessionTime,
		ExamDate:    examDate,
		PackageTier: model.PackageTier(req.PackageTier),
	}
	if req.Subject != nil {
		subject := model.Subject(*req.Subject)
		reservation.Subject = &subject
	}

	result, err := h.service.Reserve(c, reservation)
	if err != nil {
		h.handleReserveError(c, err, "CreateRegistration")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *RegistrationHandler) handleReserveError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrFreeTierFull):
		log.Warn("Free tier full")
		c.JSON(http.StatusConflict, gin.H{
			"error":  "No seats left for the free package",
			"reason": "FREE_TIER_FULL",
		})
	case errors.Is(err, apperrors.ErrSessionFull):
		log.Warn("Session full")
		c.JSON(http.StatusConflict, gin.H{
			"error":  "No seats left for this session",
			"reason": "SESSION_FULL",
		})
	case errors.Is(err, apperrors.ErrContended):
		log.Warn("Reservation contended")
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Registration is very busy, please try again",
			"retryable": true,
		})
	case errors.Is(err, apperrors.ErrSessionClosed):
		log.Warn("Session closed")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Registration is closed for this session",
		})
	case errors.Is(err, apperrors.ErrSessionNotFound):
		log.Warn("Session not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found",
		})
	case errors.Is(err, apperrors.ErrInvalidRequest):
		log.Warn("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid tier/subject combination",
		})
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		log.Error("Storage unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
	default:
		// includes ErrCodeSpaceExhausted: alert-worthy, never user-actionable
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
