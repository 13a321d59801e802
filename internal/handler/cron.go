package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tl-its-umich-edu/m-voice/internal/changes"
)

// Detector: runs one vocabulary change check.
type Detector interface {
	Run(ctx context.Context) (changes.Report, error)
}

// CronResponse: the body returned to the scheduler.
type CronResponse struct {
	Text      string                 `json:"text"`
	Changed   bool                   `json:"changed"`
	Notified  bool                   `json:"notified"`
	CheckedAt time.Time              `json:"checked_at"`
	Diffs     []changes.CategoryDiff `json:"diffs"`
}

// CronHandler: triggers change detection.
type CronHandler struct {
	detector Detector
	logger   *slog.Logger
}

// NewCronHandler: creates a CronHandler.
func NewCronHandler(detector Detector, logger *slog.Logger) *CronHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronHandler{detector: detector, logger: logger}
}

// RegisterRoutes: mounts POST /cron behind auth.
func (h *CronHandler) RegisterRoutes(router gin.IRouter, auth gin.HandlerFunc) {
	router.POST("/cron", auth, h.handleCron)
}

func (h *CronHandler) handleCron(c *gin.Context) {
	report, err := h.detector.Run(c.Request.Context())
	if err != nil {
		logError(h.logger, c, "vocabulary_check_failed", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CronResponse{
		Text:      report.Text(),
		Changed:   report.HasChanges(),
		Notified:  report.Notified,
		CheckedAt: report.CheckedAt,
		Diffs:     report.Diffs,
	})
}
