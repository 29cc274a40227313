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

type CodeHandler struct {
	service service.CodeService
}

func NewCodeHandler(service service.CodeService) *CodeHandler {
	return &CodeHandler{service: service}
}

func (h *CodeHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("codes/:code", h.GetCodeDetails)
		router.POST("codes/:code/use", h.UseCode)
	}
}

func (h *CodeHandler) GetCodeDetails(c *gin.Context) {
	code := c.Param("code")

	details, err := h.service.GetCodeDetails(c, code)
	if err != nil {
		h.handleCodeError(c, err, "GetCodeDetails")
		return
	}

	c.JSON(http.StatusOK, details)
}

// UseCode 入場報到：每個代碼只能使用一次
func (h *CodeHandler) UseCode(c *gin.Context) {
	code := c.Param("code")

	err := h.service.UseCode(c, code)
	if err != nil {
		h.handleCodeError(c, err, "UseCode")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CodeHandler) handleCodeError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrCodeNotFound):
		log.Warn("Code not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Exam code not found"})
	case errors.Is(err, apperrors.ErrCodeAlreadyUsed):
		log.Warn("Code already used")
		c.JSON(http.StatusConflict, gin.H{"error": "Exam code already used"})
	case errors.Is(err, apperrors.ErrCodeExpired):
		log.Warn("Code expired")
		c.JSON(http.StatusConflict, gin.H{"error": "Exam code expired"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
