package crawler

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Task is one unit of crawl work: a URL and the depth at which it was found.
// The seed has depth 0.
type Task struct {
	URL   string
	Depth int
}

// PageContent is the fetched representation of a single URL. It is owned by
// the worker that fetched it.
type PageContent struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// BaseURL returns the URL relative links should be resolved against.
func (p PageContent) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// State is the lifecycle phase of an Engine.
type State int32

const (
	// StateIdle means the engine is configured but Run has not been called.
	StateIdle State = iota
	// StateRunning means workers are pulling tasks.
	StateRunning
	// StateDraining means no more work will be dispatched and workers are exiting.
	StateDraining
	// StateDone is terminal.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time copy of the crawl counters.
type Stats struct {
	PagesVisited  int64         `json:"pages_visited"`
	PagesFailed   int64         `json:"pages_failed"`
	Timeouts      int64         `json:"timeouts"`
	NetworkErrors int64         `json:"network_errors"`
	HTTPErrors    int64         `json:"http_errors"`
	ParseErrors   int64         `json:"parse_errors"`
	ResultsFound  int64         `json:"results_found"`
	LinksEnqueued int64         `json:"links_enqueued"`
	Elapsed       time.Duration `json:"elapsed"`
}

// counters holds the live atomic values behind Stats.
type counters struct {
	pagesVisited  atomic.Int64
	pagesFailed   atomic.Int64
	timeouts      atomic.Int64
	networkErrors atomic.Int64
	httpErrors    atomic.Int64
	parseErrors   atomic.Int64
	resultsFound  atomic.Int64
	linksEnqueued atomic.Int64
}

func (c *counters) recordFailure(kind FetchErrorKind) {
	c.pagesFailed.Add(1)
	switch kind {
	case FetchTimeout:
		c.timeouts.Add(1)
	case FetchHTTPStatus:
		c.httpErrors.Add(1)
	default:
		c.networkErrors.Add(1)
	}
}

func (c *counters) snapshot(elapsed time.Duration) Stats {
	return Stats{
		PagesVisited:  c.pagesVisited.Load(),
		PagesFailed:   c.pagesFailed.Load(),
		Timeouts:      c.timeouts.Load(),
		NetworkErrors: c.networkErrors.Load(),
		HTTPErrors:    c.httpErrors.Load(),
		ParseErrors:   c.parseErrors.Load(),
		ResultsFound:  c.resultsFound.Load(),
		LinksEnqueued: c.linksEnqueued.Load(),
		Elapsed:       elapsed,
	}
}

// Result is handed to the caller once the engine reaches StateDone.
type Result struct {
	RunID      string
	SeedURL    string
	Results    []string
	Stats      Stats
	StartedAt  time.Time
	FinishedAt time.Time
}
