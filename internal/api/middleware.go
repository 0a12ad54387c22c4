package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lira-rate-alerts/internal/auth"
	"lira-rate-alerts/internal/metrics"
	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxIdentity     = "identity"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Str("request_id", c.GetString(ctxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	}
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.Request(endpoint, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// optionalAuth admits anonymous callers but rejects a token that is present
// and invalid.
func (h *Handler) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		if h.auth == nil {
			abortError(c, http.StatusForbidden, "authentication is not configured")
			return
		}
		id, err := h.auth.Verify(token)
		if err != nil {
			abortError(c, http.StatusForbidden, "invalid token")
			return
		}
		c.Set(ctxIdentity, id)
		c.Next()
	}
}

func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if h.auth == nil {
			abortError(c, http.StatusUnauthorized, "authentication is not configured")
			return
		}
		id, err := h.auth.Verify(token)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(ctxIdentity, id)
		c.Next()
	}
}

func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok || !h.auth.IsAdmin(id) {
			abortError(c, http.StatusForbidden, "administrator role required")
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func (h *Handler) actor(c *gin.Context) service.Actor {
	id, _ := identity(c)
	return service.Actor{UserID: id.UserID, Admin: h.auth != nil && h.auth.IsAdmin(id)}
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// fail maps service errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		abortError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		abortError(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrForbidden):
		abortError(c, http.StatusForbidden, "forbidden")
	default:
		h.logger.Error().Err(err).
			Str("request_id", c.GetString(ctxRequestID)).
			Str("path", c.FullPath()).
			Msg("request failed")
		abortError(c, http.StatusInternalServerError, "internal error")
	}
}
