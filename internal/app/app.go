// Package app builds the long-lived services of a run from configuration and owns their shutdown.
package app

import (
	"context"
	"fmt"

	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/grossing-films-crawler/internal/clock/system"
	"github.com/JakeFAU/grossing-films-crawler/internal/config"
	"github.com/JakeFAU/grossing-films-crawler/internal/crawler"
	"github.com/JakeFAU/grossing-films-crawler/internal/enrich"
	"github.com/JakeFAU/grossing-films-crawler/internal/export"
	collyfetcher "github.com/JakeFAU/grossing-films-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/grossing-films-crawler/internal/hash/sha256"
	"github.com/JakeFAU/grossing-films-crawler/internal/id/uuid"
	"github.com/JakeFAU/grossing-films-crawler/internal/listing"
	"github.com/JakeFAU/grossing-films-crawler/internal/pipeline"
	"github.com/JakeFAU/grossing-films-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/grossing-films-crawler/internal/ratelimit"
	"github.com/JakeFAU/grossing-films-crawler/internal/retry"
	"github.com/JakeFAU/grossing-films-crawler/internal/storage/gcs"
	"github.com/JakeFAU/grossing-films-crawler/internal/storage/local"
	"github.com/JakeFAU/grossing-films-crawler/internal/storage/postgres"
)

// App holds the services shared by a run.
type App struct {
	logger  *zap.Logger
	runner  *pipeline.Runner
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// Option customizes how New wires the application.
type Option func(*options)

type options struct {
	table    pipeline.TableSink
	notifier crawler.Publisher
	ids      crawler.IDGenerator
}

// WithTableSink replaces the Postgres films table, e.g. in tests.
func WithTableSink(t pipeline.TableSink) Option {
	return func(o *options) { o.table = t }
}

// WithNotifier replaces the Pub/Sub publisher.
func WithNotifier(p crawler.Publisher) Option {
	return func(o *options) { o.notifier = p }
}

// WithIDGenerator replaces the UUIDv7 run id generator.
func WithIDGenerator(g crawler.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// New creates every service the pipeline needs and fails fast when one cannot be initialized.
// Services created before the failure are closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	fetcher := ratelimit.Wrap(
		collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.Timeout(),
		}),
		ratelimit.New(ratelimit.Config{RPS: cfg.HTTP.RequestsPerSecond, Burst: cfg.HTTP.Burst}),
	)
	policy := retry.NewPolicy(cfg.Retry.MaxAttempts)

	table := o.table
	if table == nil {
		logger.Info("connecting to postgres", zap.String("table", cfg.DB.Table))
		store, err := postgres.NewFilmStore(ctx, postgres.FilmStoreConfig{
			DSN:             cfg.DB.DSN,
			Table:           cfg.DB.Table,
			MaxConns:        cfg.DB.MaxConns,
			MaxConnLifetime: cfg.ConnLifetime(),
		})
		if err != nil {
			return nil, fmt.Errorf("init films table: %w", err)
		}
		a.closers = append(a.closers, namedCloser{"postgres", func() error { store.Close(); return nil }})
		table = store
	}

	stores, err := a.blobStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := export.New(cfg.Output.JSONName, sha256.New(), logger.Named("export"), stores...)
	if err != nil {
		return nil, fmt.Errorf("init exporter: %w", err)
	}

	notifier := o.notifier
	if notifier == nil && cfg.NotificationsEnabled() {
		logger.Info("connecting to pubsub", zap.String("topic", cfg.PubSub.TopicName))
		pub, err := pubsub.Dial(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			return nil, fmt.Errorf("init pubsub: %w", err)
		}
		a.closers = append(a.closers, namedCloser{"pubsub", pub.Close})
		notifier = pub
	}

	ids := o.ids
	if ids == nil {
		ids = uuid.New()
	}

	runner, err := pipeline.New(pipeline.Config{
		ListingURL:      cfg.Source.ListingURL,
		Overrides:       cfg.Overrides,
		MetricsTextfile: cfg.Metrics.Textfile,
	}, pipeline.Deps{
		Lister:   listing.NewExtractor(fetcher, logger.Named("listing")),
		Enricher: enrich.NewEnricher(fetcher, cfg.Source.Origin, policy, logger.Named("enrich")),
		Table:    table,
		Exporter: exporter,
		Notifier: notifier,
		IDs:      ids,
		Clock:    system.New(),
		Logger:   logger.Named("pipeline"),
	})
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	a.runner = runner

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) blobStores(ctx context.Context, cfg config.Config) ([]crawler.BlobStore, error) {
	localStore, err := local.New(local.Config{BaseDir: cfg.Output.Dir})
	if err != nil {
		return nil, fmt.Errorf("init output dir: %w", err)
	}
	stores := []crawler.BlobStore{localStore}

	if cfg.Output.GCSBucket == "" {
		return stores, nil
	}
	client, err := gcsstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	a.closers = append(a.closers, namedCloser{"gcs", client.Close})
	bucket, err := gcs.New(client, gcs.Config{Bucket: cfg.Output.GCSBucket, Prefix: cfg.Output.GCSPrefix})
	if err != nil {
		return nil, fmt.Errorf("init gcs store: %w", err)
	}
	a.logger.Info("mirroring export to gcs", zap.String("bucket", cfg.Output.GCSBucket))
	return append(stores, bucket), nil
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run executes one crawl.
func (a *App) Run(ctx context.Context) (pipeline.Summary, error) {
	return a.runner.Run(ctx)
}

// Close releases services in reverse creation order. Errors are logged.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("error closing service", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}
