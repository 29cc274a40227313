package handler

import (
	"net/http"
	"time"

	"mockexam-registration/internal/model"

	"github.com/gin-gonic/gin"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindUri(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindUri(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

const examDateLayout = "2006-01-02"

// parseSessionParams 驗證 session_time / exam_date 參數組合
func parseSessionParams(c *gin.Context, sessionTimeStr, examDateStr string) (model.SessionTime, time.Time, bool) {
	sessionTime := model.SessionTime(sessionTimeStr)
	if !sessionTime.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_time"})
		return "", time.Time{}, false
	}

	examDate, err := time.Parse(examDateLayout, examDateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid exam_date, expected YYYY-MM-DD"})
		return "", time.Time{}, false
	}

	return sessionTime, examDate, true
}
