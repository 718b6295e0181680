// Package response defines the wire envelope shared by all endpoints:
// success payloads and structured errors with a stable kind.
package response

import "github.com/gin-gonic/gin"

// Error kinds. Clients branch on these: TOKEN_EXPIRED triggers a silent
// refresh, TOKEN_INVALID and REUSE_DETECTED force re-login.
const (
	KindValidation         = "VALIDATION_ERROR"
	KindUnauthorized       = "UNAUTHORIZED"
	KindInvalidCredentials = "INVALID_CREDENTIALS"
	KindTokenExpired       = "TOKEN_EXPIRED"
	KindTokenInvalid       = "TOKEN_INVALID"
	KindReuseDetected      = "REUSE_DETECTED"
	KindNotFound           = "NOT_FOUND"
	KindConflict           = "CONFLICT"
	KindIntegrity          = "INTEGRITY_ERROR"
	KindInternal           = "INTERNAL"
)

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// OK writes a success envelope.
func OK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"data":    data,
		"message": message,
	})
}

// Fail writes an error envelope and stops the handler chain.
func Fail(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": ErrorBody{Kind: kind, Message: message},
	})
}
