package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/tl-its-umich-edu/m-voice/internal/httperror"
	"github.com/tl-its-umich-edu/m-voice/internal/middleware"
)

// writeError: renders err as the standard error payload and stops the chain.
func writeError(c *gin.Context, err error) {
	status, payload := httperror.Response(err, middleware.GetRequestID(c))
	c.AbortWithStatusJSON(status, payload)
}

// bindJSON: decodes the body into out; binding and validation failures answer 422.
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		writeError(c, httperror.NewValidationError(err))
		return false
	}
	return true
}

func logError(logger *slog.Logger, c *gin.Context, event string, err error) {
	logger.Error(event,
		"request_id", middleware.GetRequestID(c),
		"path", c.Request.URL.Path,
		"err", err,
	)
}
