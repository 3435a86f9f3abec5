package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error logs and sends an error response, aborting the handler chain
func Error(c *gin.Context, logger *zap.Logger, status int, code, message string) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("code", code),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("request_id", c.GetString("requestId")),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("HTTP error", fields...)
	} else {
		logger.Info("HTTP error", fields...)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

// JSON writes a JSON response with the given status
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}
