package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error     apiError `json:"error"`
	RequestID string   `json:"requestId"`
	TS        int64    `json:"ts"`
}

func newRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func respondError(c *gin.Context, status int, code, message string) {
	id := c.GetString(requestIDKey)
	if id == "" {
		id = newRequestID()
	}
	c.AbortWithStatusJSON(status, errorEnvelope{
		Error:     apiError{Code: code, Message: message},
		RequestID: id,
		TS:        time.Now().Unix(),
	})
}

// respondErr maps a service error onto a status. fallback names the code
// used for unclassified failures.
func respondErr(c *gin.Context, err error, fallback string) {
	status, code := classify(err)
	if code == "" {
		code = fallback
	}
	respondError(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoFileID):
		return http.StatusBadRequest, "NO_FILE_ID"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrForbiddenPath):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrPageOutOfRange):
		return http.StatusNotFound, "PAGE_OUT_OF_RANGE"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	default:
		return http.StatusInternalServerError, ""
	}
}
