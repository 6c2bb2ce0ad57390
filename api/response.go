package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cwbudde/tabeq/engine"
)

func respondOK(c *gin.Context, payload gin.H) {
	body := gin.H{"ok": true}
	for k, v := range payload {
		body[k] = v
	}

	c.JSON(http.StatusOK, body)
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"ok":    false,
		"error": err.Error(),
	})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"ok":    false,
		"error": err.Error(),
	})
}

// statusFor maps the engine error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrCaptureDenied):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	default:
		// ErrContextError, ErrHostClosed and anything unclassified.
		return http.StatusInternalServerError
	}
}
