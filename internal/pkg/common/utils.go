package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// RequestID 取得請求 ID，沒有時生成並寫回響應頭
func RequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = c.Writer.Header().Get("X-Request-ID")
	}
	if requestID == "" {
		requestID = GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

// WriteErrorResponse 寫入錯誤響應 {error, code, ...details}
func WriteErrorResponse(c *gin.Context, err error) {
	ce, ok := AsCustomError(err)
	if !ok {
		LogError("Unhandled error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"code":  ErrCodeInternalError,
		})
		return
	}

	body := gin.H{}
	for k, v := range ce.Details {
		body[k] = v
	}
	body["error"] = ce.Message
	body["code"] = ce.Code
	c.AbortWithStatusJSON(ce.Status, body)
}
