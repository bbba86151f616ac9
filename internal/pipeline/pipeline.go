// Package pipeline runs the listing, enrichment, and persistence stages once, in order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/grossing-films-crawler/internal/crawler"
	"github.com/JakeFAU/grossing-films-crawler/internal/export"
	"github.com/JakeFAU/grossing-films-crawler/internal/films"
	"github.com/JakeFAU/grossing-films-crawler/internal/metrics"
	"github.com/JakeFAU/grossing-films-crawler/internal/storage/postgres"
)

// ErrRowCountMismatch is returned when the table read-back does not match what was written.
var ErrRowCountMismatch = errors.New("films table row count mismatch")

// Lister produces the partial records of the listing page.
type Lister interface {
	Extract(ctx context.Context, listingURL string) ([]films.Film, error)
}

// Enricher fills in country and director for every record.
type Enricher interface {
	EnrichAll(ctx context.Context, records []films.Film) ([]films.Film, []films.Failure)
}

// TableSink replaces the relational copy of the dataset and reads it back.
type TableSink interface {
	Replace(ctx context.Context, records []films.Film) error
	List(ctx context.Context) ([]postgres.StoredFilm, error)
}

// Exporter writes the interchange file.
type Exporter interface {
	Publish(ctx context.Context, records []films.Film) (export.Result, error)
}

// Config holds the per-run settings.
type Config struct {
	ListingURL      string
	Overrides       []films.Override
	MetricsTextfile string
}

// Deps are the collaborators of a Runner. Notifier is optional.
type Deps struct {
	Lister   Lister
	Enricher Enricher
	Table    TableSink
	Exporter Exporter
	Notifier crawler.Publisher
	IDs      crawler.IDGenerator
	Clock    crawler.Clock
	Logger   *zap.Logger
}

// FailureReport is the serializable form of a films.Failure.
type FailureReport struct {
	Title string `json:"title"`
	Field string `json:"field"`
	Error string `json:"error"`
}

// Summary describes a finished run. It is logged and sent to the notifier.
type Summary struct {
	RunID            string          `json:"run_id"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	DurationMS       int64           `json:"duration_ms"`
	Listed           int             `json:"listed"`
	OverridesApplied int             `json:"overrides_applied"`
	TableRows        int             `json:"table_rows"`
	Failures         []FailureReport `json:"failures"`
	Export           export.Result   `json:"export"`
}

// Runner executes one crawl.
type Runner struct {
	cfg  Config
	deps Deps
}

// New validates the configuration and dependencies.
func New(cfg Config, deps Deps) (*Runner, error) {
	if cfg.ListingURL == "" {
		return nil, fmt.Errorf("listing url is required")
	}
	switch {
	case deps.Lister == nil:
		return nil, fmt.Errorf("lister is required")
	case deps.Enricher == nil:
		return nil, fmt.Errorf("enricher is required")
	case deps.Table == nil:
		return nil, fmt.Errorf("table sink is required")
	case deps.Exporter == nil:
		return nil, fmt.Errorf("exporter is required")
	case deps.IDs == nil:
		return nil, fmt.Errorf("id generator is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, deps: deps}, nil
}

// Run extracts, enriches, and persists the dataset. Listing and sink errors abort the run
// before anything later is touched; notification and metrics errors are only logged.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	runID, err := r.deps.IDs.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("run id: %w", err)
	}
	logger := r.deps.Logger.With(zap.String("run_id", runID))
	summary := Summary{RunID: runID, StartedAt: r.deps.Clock.Now()}
	logger.Info("run started", zap.String("listing_url", r.cfg.ListingURL))

	listed, err := r.deps.Lister.Extract(ctx, r.cfg.ListingURL)
	if err != nil {
		return summary, fmt.Errorf("extract listing: %w", err)
	}
	summary.Listed = len(listed)
	logger.Info("listing extracted", zap.Int("films", len(listed)))

	enriched, failures := r.deps.Enricher.EnrichAll(ctx, listed)
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("enrich films: %w", err)
	}
	summary.Failures = reports(failures)
	if len(failures) > 0 {
		logger.Warn("fields set to "+films.Sentinel, zap.Stringers("fields", failures))
	}

	records, applied := films.ApplyOverrides(enriched, r.cfg.Overrides)
	summary.OverridesApplied = applied
	metrics.ObserveOverrides(applied)

	if err := r.deps.Table.Replace(ctx, records); err != nil {
		return summary, fmt.Errorf("write films table: %w", err)
	}
	metrics.ObservePersisted(metrics.SinkTable, len(records))

	rows, err := r.deps.Table.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("read back films table: %w", err)
	}
	summary.TableRows = len(rows)
	if len(rows) != len(records) {
		return summary, fmt.Errorf("%w: wrote %d, read %d", ErrRowCountMismatch, len(records), len(rows))
	}

	res, err := r.deps.Exporter.Publish(ctx, records)
	if err != nil {
		return summary, fmt.Errorf("export films: %w", err)
	}
	summary.Export = res
	metrics.ObservePersisted(metrics.SinkFile, res.Records)

	summary.FinishedAt = r.deps.Clock.Now()
	elapsed := summary.FinishedAt.Sub(summary.StartedAt)
	summary.DurationMS = elapsed.Milliseconds()
	metrics.ObserveRun(elapsed)

	logger.Info("run completed",
		zap.Int("listed", summary.Listed),
		zap.Int("fallbacks", len(summary.Failures)),
		zap.Int("overrides_applied", summary.OverridesApplied),
		zap.Int("table_rows", summary.TableRows),
		zap.Strings("uris", res.URIs),
		zap.String("sha256", res.SHA256),
		zap.Duration("duration", elapsed),
	)

	r.notify(ctx, logger, summary)
	r.writeMetrics(logger)
	return summary, nil
}

func (r *Runner) notify(ctx context.Context, logger *zap.Logger, summary Summary) {
	if r.deps.Notifier == nil {
		return
	}
	id, err := r.deps.Notifier.Publish(ctx, summary)
	if err != nil {
		logger.Warn("failed to publish run summary", zap.Error(err))
		return
	}
	logger.Debug("run summary published", zap.String("message_id", id))
}

func (r *Runner) writeMetrics(logger *zap.Logger) {
	if r.cfg.MetricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(r.cfg.MetricsTextfile); err != nil {
		logger.Warn("failed to write metrics", zap.String("path", r.cfg.MetricsTextfile), zap.Error(err))
	}
}

func reports(failures []films.Failure) []FailureReport {
	out := make([]FailureReport, 0, len(failures))
	for _, f := range failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		out = append(out, FailureReport{Title: f.Title, Field: f.Field, Error: msg})
	}
	return out
}
