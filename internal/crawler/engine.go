package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine runs one bounded-depth crawl.
type Engine struct {
	cfg       Config
	fetcher   Fetcher
	extractor ContentExtractor
	links     LinkExtractor
	visited   *VisitedSet
	results   *ResultSet
	limiter   Limiter
	observer  Observer
	clock     Clock
	logger    *zap.Logger
	runID     string

	state   atomic.Int32
	started atomic.Bool
	stats   counters

	timesMu    sync.Mutex
	startedAt  time.Time
	finishedAt time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLinkExtractor replaces the default goquery link extractor.
func WithLinkExtractor(l LinkExtractor) Option {
	return func(e *Engine) {
		if l != nil {
			e.links = l
		}
	}
}

// WithVisitedSet injects the visited set, e.g. to inspect it after a run.
func WithVisitedSet(v *VisitedSet) Option {
	return func(e *Engine) {
		if v != nil {
			e.visited = v
		}
	}
}

// WithResultSet injects the result sink shared by the workers.
func WithResultSet(r *ResultSet) Option {
	return func(e *Engine) {
		if r != nil {
			e.results = r
		}
	}
}

// WithLimiter makes workers wait on l before every fetch.
func WithLimiter(l Limiter) Option {
	return func(e *Engine) {
		e.limiter = l
	}
}

// WithObserver receives per-page outcomes.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithClock overrides the wall clock used for elapsed time.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRunID tags the result and log lines with id.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// NewEngine validates cfg and wires the collaborators. Configuration problems
// are returned as *ConfigError before anything touches the network.
func NewEngine(cfg Config, fetcher Fetcher, extractor ContentExtractor, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, &ConfigError{Field: "fetcher", Reason: "must not be nil"}
	}
	if extractor == nil {
		return nil, &ConfigError{Field: "extractor", Reason: "must not be nil"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		links:     NewHTMLLinkExtractor(cfg),
		visited:   NewVisitedSet(),
		results:   NewResultSet(),
		observer:  noopObserver{},
		clock:     wallClock{},
		logger:    logger.Named("crawler"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID != "" {
		e.logger = e.logger.With(zap.String("run_id", e.runID))
	}
	return e, nil
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Stats returns a live snapshot of the counters.
func (e *Engine) Stats() Stats {
	e.timesMu.Lock()
	start, end := e.startedAt, e.finishedAt
	e.timesMu.Unlock()
	var elapsed time.Duration
	switch {
	case start.IsZero():
	case end.IsZero():
		elapsed = e.clock.Now().Sub(start)
	default:
		elapsed = end.Sub(start)
	}
	return e.stats.snapshot(elapsed)
}

// Run crawls until the frontier drains or ctx is cancelled. On cancellation
// the partial result is returned together with the context error. An engine
// can only be run once.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if !e.started.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyStarted
	}
	seed, err := NormalizeURL(e.cfg.SeedURL)
	if err != nil {
		return Result{}, &ConfigError{Field: "seed_url", Reason: err.Error()}
	}

	start := e.clock.Now()
	e.timesMu.Lock()
	e.startedAt = start
	e.timesMu.Unlock()

	frontier := NewFrontier(Task{URL: seed, Depth: 0}, e.cfg.MaxDepth)
	frontier.OnDrain(func() {
		e.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	})
	stop := context.AfterFunc(ctx, frontier.Close)
	defer stop()

	e.state.Store(int32(StateRunning))
	e.logger.Info("crawl started",
		zap.String("seed", seed),
		zap.Int("max_depth", e.cfg.MaxDepth),
		zap.Int("workers", e.cfg.MaxConcurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.MaxConcurrency; i++ {
		g.Go(func() error {
			e.work(gctx, frontier)
			return nil
		})
	}
	_ = g.Wait()
	e.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))

	end := e.clock.Now()
	e.timesMu.Lock()
	e.finishedAt = end
	e.timesMu.Unlock()

	result := Result{
		RunID:      e.runID,
		SeedURL:    seed,
		Results:    e.results.Values(),
		Stats:      e.stats.snapshot(end.Sub(start)),
		StartedAt:  start,
		FinishedAt: end,
	}
	e.state.Store(int32(StateDone))

	fields := []zap.Field{
		zap.Int64("pages_visited", result.Stats.PagesVisited),
		zap.Int64("pages_failed", result.Stats.PagesFailed),
		zap.Int("results", len(result.Results)),
		zap.Duration("elapsed", result.Stats.Elapsed),
	}
	if err := ctx.Err(); err != nil {
		e.logger.Warn("crawl interrupted", append(fields, zap.Error(err))...)
		return result, fmt.Errorf("crawl interrupted: %w", err)
	}
	e.logger.Info("crawl finished", fields...)
	return result, nil
}

func (e *Engine) work(ctx context.Context, frontier *Frontier) {
	for {
		task, ok := frontier.Pop()
		if !ok {
			return
		}
		e.process(ctx, frontier, task)
		frontier.Done()
	}
}

func (e *Engine) process(ctx context.Context, frontier *Frontier, task Task) {
	if !e.visited.TryMarkVisited(task.URL) {
		return
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, task.URL); err != nil {
			return
		}
	}

	e.observer.WorkerActive(1)
	defer e.observer.WorkerActive(-1)
	e.stats.pagesVisited.Add(1)
	logger := e.logger.With(zap.String("url", task.URL), zap.Int("depth", task.Depth))
	logger.Debug("crawling page")

	page, err := e.fetch(ctx, task.URL)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("fetch abandoned", zap.Error(err))
			return
		}
		fe := ClassifyFetchError(task.URL, err)
		e.stats.recordFailure(fe.Kind)
		e.observer.PageFailed(task.URL, fe)
		logger.Warn("failed to crawl page",
			zap.String("kind", fe.Kind.String()),
			zap.Int("status", fe.StatusCode),
			zap.Error(err),
		)
		return
	}

	added := e.results.Add(e.extractor.Extract(page)...)
	e.stats.resultsFound.Add(int64(added))
	e.observer.PageFetched(page, added)

	if task.Depth+1 >= e.cfg.MaxDepth {
		return
	}
	links, err := e.links.Links(page)
	if err != nil {
		e.stats.parseErrors.Add(1)
		var pe *ParseError
		if !errors.As(err, &pe) {
			err = &ParseError{URL: task.URL, Err: err}
		}
		logger.Warn("failed to parse page", zap.Error(err))
		return
	}
	for link := range links {
		normalized, err := NormalizeURL(link)
		if err != nil || e.visited.Seen(normalized) {
			continue
		}
		if frontier.Push(Task{URL: normalized, Depth: task.Depth + 1}) {
			e.stats.linksEnqueued.Add(1)
		}
	}
}

// fetch bounds the call by RequestTimeout and enforces the 200-only contract
// for fetchers that hand back other statuses without an error.
func (e *Engine) fetch(ctx context.Context, rawURL string) (PageContent, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	page, err := e.fetcher.Fetch(fetchCtx, rawURL)
	if err != nil {
		return PageContent{}, err
	}
	if page.StatusCode != 0 && page.StatusCode != http.StatusOK {
		return PageContent{}, NewHTTPStatusError(rawURL, page.StatusCode)
	}
	if page.URL == "" {
		page.URL = rawURL
	}
	return page, nil
}
