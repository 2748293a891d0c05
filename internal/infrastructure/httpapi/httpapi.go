package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gigpulse/internal/pkg/schema"
)

// RequestTimeout bounds the store work of a single request.
const RequestTimeout = 3 * time.Second

// UserIDHeader carries the authenticated caller, set by the gateway in front of
// this service. Websocket clients cannot set headers and pass ?user_id= instead.
const UserIDHeader = "X-User-ID"

// UserID returns the caller's user id, or "" when none was supplied.
func UserID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(UserIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("user_id"))
}

// RequireUser aborts with 401 when the request carries no caller identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user id is required"})
			return
		}
		c.Next()
	}
}

// Context derives the per-request context with RequestTimeout.
func Context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), RequestTimeout)
}

// Status maps a use case error onto an HTTP status.
func Status(err error) int {
	switch {
	case schema.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, schema.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Code maps a use case error onto the short code used in websocket error frames.
func Code(err error) string {
	switch Status(err) {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "internal_error"
	}
}

// Message hides internal details behind a generic text for 5xx errors.
func Message(err error) string {
	if Status(err) >= http.StatusInternalServerError {
		return "unexpected persistence error"
	}
	return err.Error()
}

// WriteError renders err as {"error": ...} with the mapped status.
func WriteError(c *gin.Context, err error) {
	c.JSON(Status(err), gin.H{"error": Message(err)})
}
