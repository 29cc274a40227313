package handler

import (
	"errors"
	"net/http"
	"strconv"

	"mockexam-registration/config"
	"mockexam-registration/internal/model"
	"mockexam-registration/internal/repository"
	apperrors "mockexam-registration/pkg/app_errors"
	"mockexam-registration/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler manages ledger entries: they are created once per session/date before
// registration opens and never deleted during the registration window, only closed.
type AdminHandler struct {
	ledger   repository.LedgerRepository
	capacity config.CapacityConfig
}

func NewAdminHandler(ledger repository.LedgerRepository, capacity config.CapacityConfig) *AdminHandler {
	return &AdminHandler{ledger: ledger, capacity: capacity}
}

func (h *AdminHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1/admin")
	{
		router.GET("sessions", h.ListSessions)
		router.POST("sessions", h.CreateSession)
		router.PUT("sessions/:id/close", h.CloseSession)
		router.PUT("sessions/:id/open", h.OpenSession)
	}
}

// CreateSessionRequest 建立場次請求；容量欄位省略時使用 config 預設
type CreateSessionRequest struct {
	SessionTime string `json:"session_time" binding:"required"`
	ExamDate    string `json:"exam_date" binding:"required"`
	MaxCapacity *int   `json:"max_capacity"`
	FreeLimit   *int   `json:"free_limit"`
}

func (h *AdminHandler) ListSessions(c *gin.Context) {
	entries, err := h.ledger.List(c)
	if err != nil {
		logger.WithComponent("handler").Error("ListSessions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *AdminHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	sessionTime, examDate, ok := parseSessionParams(c, req.SessionTime, req.ExamDate)
	if !ok {
		return
	}

	maxCapacity := h.capacity.DefaultMaxCapacity
	if req.MaxCapacity != nil {
		maxCapacity = *req.MaxCapacity
	}
	freeLimit := h.capacity.DefaultFreeLimit
	if req.FreeLimit != nil {
		freeLimit = *req.FreeLimit
	}
	if maxCapacity <= 0 || freeLimit <= 0 || freeLimit > maxCapacity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "free_limit must be positive and not exceed max_capacity"})
		return
	}

	entry := &model.CapacityLedgerEntry{
		SessionTime:      sessionTime,
		ExamDate:         examDate,
		MaxCapacity:      maxCapacity,
		FreeLimit:        freeLimit,
		RegistrationOpen: true,
	}

	created, err := h.ledger.Create(c, entry)
	if err != nil {
		logger.WithComponent("handler").Error("CreateSession failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *AdminHandler) CloseSession(c *gin.Context) {
	h.setRegistrationOpen(c, false)
}

func (h *AdminHandler) OpenSession(c *gin.Context) {
	h.setRegistrationOpen(c, true)
}

func (h *AdminHandler) setRegistrationOpen(c *gin.Context, open bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return
	}

	err = h.ledger.SetRegistrationOpen(c, id, open)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		logger.WithComponent("handler").Error("setRegistrationOpen failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}
