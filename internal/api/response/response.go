// Package response writes JSON error bodies and maps domain errors to HTTP statuses.
package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/domain"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

const internalMessage = "An unexpected error occurred"

// Classify returns the HTTP status and error name for err
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "BookingValidationError"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "InvalidFileType"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "InvalidRequest"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FileTooLarge"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrExtraction):
		return http.StatusInternalServerError, "TextExtractionError"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusInternalServerError, "UpstreamError"
	default:
		return http.StatusInternalServerError, "InternalServerError"
	}
}

// Error writes err as a JSON error body and aborts the request.
// Unclassified errors are reported with a generic message.
func Error(c *gin.Context, err error) {
	status, name := Classify(err)
	message := err.Error()
	if name == "InternalServerError" {
		message = internalMessage
	}
	_ = c.Error(err)
	Abort(c, status, name, message)
}

// Abort writes an error body with an explicit status
func Abort(c *gin.Context, status int, name, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Error:     name,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

// BadRequest reports a malformed request, typically a binding failure
func BadRequest(c *gin.Context, err error) {
	Abort(c, http.StatusBadRequest, "InvalidRequest", err.Error())
}

// Internal reports an unexpected failure without leaking its detail
func Internal(c *gin.Context) {
	Abort(c, http.StatusInternalServerError, "InternalServerError", internalMessage)
}

// NoWriteDeadline lifts the server's write timeout for the current response.
// Streams and slow ingests call it before their first write. Writers that
// cannot change deadlines keep the server timeout.
func NoWriteDeadline(c *gin.Context) {
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
}
