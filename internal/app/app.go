// Package app wires configuration into a runnable crawl: fetcher, engine,
// report writers and the optional status server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/domain-email-crawler/internal/api"
	"github.com/JakeFAU/domain-email-crawler/internal/config"
	"github.com/JakeFAU/domain-email-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/domain-email-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/domain-email-crawler/internal/id/uuid"
	"github.com/JakeFAU/domain-email-crawler/internal/metrics"
	"github.com/JakeFAU/domain-email-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/domain-email-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/domain-email-crawler/internal/report"
	"github.com/JakeFAU/domain-email-crawler/internal/storage/gcs"
	"github.com/JakeFAU/domain-email-crawler/internal/storage/local"
	"github.com/JakeFAU/domain-email-crawler/internal/storage/postgres"
)

const writeTimeout = 30 * time.Second

// App holds the services for a single crawl run.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	runID      string
	engine     *crawler.Engine
	results    *crawler.ResultSet
	writers    *report.Fanout
	server     *api.Server
	outputFile string
	closers    []func() error
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	fetcher   crawler.Fetcher
	transport http.RoundTripper
	writers   []report.Writer
}

// WithFetcher replaces the colly fetcher.
func WithFetcher(f crawler.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithTransport sets the HTTP transport used by the colly fetcher.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithWriters appends extra report writers.
func WithWriters(w ...report.Writer) Option {
	return func(o *options) { o.writers = append(o.writers, w...) }
}

// New builds an App from cfg. Any writer that cannot be initialized fails
// construction.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	runID, err := uuid.NewUUIDGenerator().NewID()
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, logger: logger, runID: runID}

	matcher, err := crawler.NewRegexMatcher(cfg.Extract.Pattern)
	if err != nil {
		return nil, err
	}
	extractor := crawler.NewPatternExtractor(matcher, crawler.WithLowercase(cfg.Extract.Lowercase))

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent:   cfg.Crawler.UserAgent,
			Timeout:     cfg.Crawler.RequestTimeout,
			MaxBodySize: cfg.Crawler.MaxBodyBytes,
		}, o.transport)
	}

	a.results = crawler.NewResultSet()
	engineOpts := []crawler.Option{
		crawler.WithResultSet(a.results),
		crawler.WithObserver(metrics.NewObserver()),
		crawler.WithRunID(runID),
	}
	if cfg.Crawler.RequestsPerSecond > 0 {
		engineOpts = append(engineOpts, crawler.WithLimiter(ratelimit.New(ratelimit.Config{
			RPS:     cfg.Crawler.RequestsPerSecond,
			Burst:   cfg.Crawler.Burst,
			OnDelay: metrics.ObserveRateLimitDelay,
		})))
	}
	a.engine, err = crawler.NewEngine(cfg.CrawlConfig(), fetcher, extractor, logger, engineOpts...)
	if err != nil {
		return nil, err
	}

	writers, err := a.buildWriters(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.writers = report.NewFanout(logger, append(writers, o.writers...)...)

	if cfg.Server.Addr != "" {
		a.server = api.NewServer(a.engine, a.results, api.RunInfo{RunID: runID, SeedURL: cfg.Crawler.SeedURL}, logger)
	}
	return a, nil
}

func (a *App) buildWriters(ctx context.Context) ([]report.Writer, error) {
	out := a.cfg.Output
	var writers []report.Writer

	if out.File != "" {
		file, err := local.New(local.Config{Path: out.File})
		if err != nil {
			return nil, fmt.Errorf("init results file: %w", err)
		}
		a.outputFile = file.Path()
		writers = append(writers, file)
	}

	if out.GCS.Bucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		object, err := gcs.New(client, out.GCS)
		if err != nil {
			return nil, fmt.Errorf("init gcs writer: %w", err)
		}
		a.logger.Info("Using GCS results writer", zap.String("bucket", out.GCS.Bucket))
		writers = append(writers, object)
	}

	if out.Postgres.DSN != "" {
		store, err := postgres.NewResultsStore(ctx, out.Postgres)
		if err != nil {
			return nil, fmt.Errorf("init postgres writer: %w", err)
		}
		a.logger.Info("Using Postgres results writer", zap.String("runs_table", out.Postgres.RunsTable))
		writers = append(writers, store)
	}

	if out.PubSub.Topic != "" {
		pub, err := pubsub.New(ctx, out.PubSub)
		if err != nil {
			return nil, fmt.Errorf("init pubsub writer: %w", err)
		}
		a.logger.Info("Using Pub/Sub run announcements", zap.String("topic", out.PubSub.Topic))
		writers = append(writers, pub)
	}
	return writers, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// RunID returns the identifier assigned to this run.
func (a *App) RunID() string { return a.runID }

// Run crawls, writes every output and prints the summary to stdout. An
// interrupted crawl still writes its partial results; the returned Report is
// marked Interrupted. The error reports fatal crawl failures and writer
// failures only.
func (a *App) Run(ctx context.Context, stdout io.Writer) (report.Report, error) {
	serverErr := make(chan error, 1)
	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()
	if a.server != nil {
		go func() { serverErr <- a.server.ListenAndServe(serverCtx, a.cfg.Server.Addr) }()
	} else {
		serverErr <- nil
	}

	res, err := a.engine.Run(ctx)
	interrupted := err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
	if err != nil && !interrupted {
		return report.Report{}, fmt.Errorf("run crawler: %w", err)
	}
	if interrupted {
		a.logger.Warn("Crawl interrupted; saving partial results", zap.Int("results", len(res.Results)))
	}

	rep := report.FromResult(res, interrupted)
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	writeErr := a.writers.Write(writeCtx, rep)

	if a.cfg.Output.Summary && stdout != nil {
		outputFile := a.outputFile
		if writeErr != nil {
			outputFile = ""
		}
		if err := report.PrintSummary(stdout, rep, outputFile); err != nil {
			writeErr = errors.Join(writeErr, err)
		}
	}

	stopServer()
	if err := <-serverErr; err != nil {
		a.logger.Warn("Status server stopped with error", zap.Error(err))
	}
	return rep, writeErr
}

// Close releases writers and clients.
func (a *App) Close() {
	if a.writers != nil {
		if err := a.writers.Close(); err != nil {
			a.logger.Warn("Error closing report writers", zap.Error(err))
		}
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("Error closing client", zap.Error(err))
		}
	}
	a.closers = nil
}
