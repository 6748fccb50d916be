// Package response defines the JSON envelope used for every
// gateway-generated response.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Error codes carried in the envelope.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeBadRequest      = "BAD_REQUEST"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Envelope is the uniform body for gateway-generated responses.
// Proxied upstream bodies bypass it and are relayed verbatim.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ErrorBody describes a gateway-generated failure.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// OK writes a 200 success envelope wrapping data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

// Error writes a failure envelope with the given status and code.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    code,
			Message: message,
		},
		Timestamp: now(),
	})
}

// ErrorWithDetails writes a failure envelope carrying structured
// details, such as rate limit reset information.
func ErrorWithDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: now(),
	})
}

// Unauthorized writes a 401 envelope.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// BadRequest writes a 400 envelope.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

// TooManyRequests writes a 429 envelope.
func TooManyRequests(c *gin.Context, message string, details interface{}) {
	ErrorWithDetails(c, http.StatusTooManyRequests, CodeTooManyRequests, message, details)
}

// NotFound writes a 404 envelope.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// InternalError writes a 500 envelope. The message must never carry
// upstream or credential detail.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternalError, message)
}
