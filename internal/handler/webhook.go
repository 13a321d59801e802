package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tl-its-umich-edu/m-voice/internal/dialog"
)

// Dialog: answers one conversational turn.
type Dialog interface {
	Handle(ctx context.Context, req dialog.WebhookRequest) (dialog.Reply, error)
}

// WebhookHandler: serves the NLU fulfillment endpoint.
type WebhookHandler struct {
	dialog Dialog
	logger *slog.Logger
}

// NewWebhookHandler: creates a WebhookHandler.
func NewWebhookHandler(d Dialog, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{dialog: d, logger: logger}
}

// RegisterRoutes: mounts POST /webhook behind auth.
func (h *WebhookHandler) RegisterRoutes(router gin.IRouter, auth gin.HandlerFunc) {
	router.POST("/webhook", auth, h.handleWebhook)
}

func (h *WebhookHandler) handleWebhook(c *gin.Context) {
	var req dialog.WebhookRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := h.dialog.Handle(c.Request.Context(), req)
	if err != nil {
		// The platform speaks fulfillmentText to the user; an error body would be dropped.
		logError(h.logger, c, "webhook_dispatch_failed", err)
		c.JSON(http.StatusOK, dialog.Response{FulfillmentText: dialog.FallbackText})
		return
	}

	c.JSON(http.StatusOK, reply.Response)
}
