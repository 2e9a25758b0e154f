package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
	perrors "github.com/jmgilman/go/errors"

	"ballot-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if pollID := c.GetString("pollId"); pollID != "" {
		fields["poll_id"] = pollID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Platform sends a coded platform error, choosing the status from its code.
// The wrapped cause chain is never serialized.
func Platform(c *gin.Context, err error) {
	body := perrors.ToJSON(err)
	if body == nil {
		return
	}
	status := StatusFor(perrors.GetCode(err))
	message := body.Message
	if status >= http.StatusInternalServerError {
		message = "Internal server error"
	}
	Error(c, status, body.Code, message, body)
}

// StatusFor maps platform error codes onto HTTP statuses.
func StatusFor(code perrors.ErrorCode) int {
	switch code {
	case perrors.CodeInvalidInput, perrors.CodeSchemaFailed:
		return http.StatusBadRequest
	case perrors.CodeNotFound:
		return http.StatusNotFound
	case perrors.CodeAlreadyExists, perrors.CodeConflict:
		return http.StatusConflict
	case perrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case perrors.CodeForbidden:
		return http.StatusForbidden
	case perrors.CodeRateLimit:
		return http.StatusTooManyRequests
	case perrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case perrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
