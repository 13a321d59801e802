package changes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tl-its-umich-edu/m-voice/internal/metrics"
	"github.com/tl-its-umich-edu/m-voice/internal/telemetry"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

// Reference: the stored vocabulary the live lists are compared with.
type Reference interface {
	Main(category vocabulary.Category) ([]string, error)
	Ignored(category vocabulary.Category) []string
}

// Detector: compares the live vocabularies with the reference lists. It never rewrites them.
type Detector struct {
	reference Reference
	source    Source
	notifier  Notifier
	metrics   *metrics.Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewDetector: creates a Detector. notifier may be nil.
func NewDetector(reference Reference, source Source, notifier Notifier, m *metrics.Store, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		reference: reference,
		source:    source,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Run: fetches every category concurrently, diffs it against the reference and notifies when
// anything changed.
func (d *Detector) Run(ctx context.Context) (report Report, err error) {
	ctx, span := telemetry.StartSpan(ctx, "vocabulary.check")
	defer func() { telemetry.EndSpan(span, err) }()

	return d.run(ctx)
}

func (d *Detector) run(ctx context.Context) (Report, error) {
	categories := vocabulary.Categories()
	live := make([][]string, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			values, err := d.source.Fetch(gctx, category)
			if err != nil {
				return err
			}
			live[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("fetch live vocabularies: %w", err)
	}

	report := Report{CheckedAt: d.now().UTC(), Diffs: make([]CategoryDiff, 0, len(categories))}
	for i, category := range categories {
		stored, err := d.reference.Main(category)
		if err != nil {
			return Report{}, err
		}
		ignored := d.reference.Ignored(category)
		added, removed := Diff(RemoveIgnored(stored, ignored), RemoveIgnored(live[i], ignored))

		report.Diffs = append(report.Diffs, CategoryDiff{Category: category, Added: added, Removed: removed})
		d.metrics.SetVocabularyDrift(string(category), len(added), len(removed))
	}

	if !report.HasChanges() {
		d.logger.Info("vocabulary_up_to_date")
		return report, nil
	}

	d.logger.Warn("vocabulary_drift_detected", "diffs", report.Diffs)
	if d.notifier == nil {
		return report, nil
	}
	if err := d.notifier.Notify(ctx, report); err != nil {
		return report, fmt.Errorf("notify vocabulary drift: %w", err)
	}
	report.Notified = true
	return report, nil
}
