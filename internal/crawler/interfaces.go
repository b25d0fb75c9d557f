package crawler

import (
	"context"
	"iter"
	"time"
)

// Fetcher retrieves a single URL. Only a 200 response is a success; every
// other outcome is reported as a *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (PageContent, error)
}

// LinkExtractor yields the absolute, in-domain link targets of a page.
type LinkExtractor interface {
	Links(page PageContent) (iter.Seq[string], error)
}

// ContentExtractor mines unique results out of a page.
type ContentExtractor interface {
	Extract(page PageContent) []string
}

// Matcher finds every occurrence of a pattern in text.
type Matcher interface {
	FindAll(text string) []string
}

// Limiter blocks until the given URL may be fetched.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Observer receives per-page outcomes, typically for metrics.
type Observer interface {
	PageFetched(page PageContent, results int)
	PageFailed(rawURL string, err *FetchError)
	WorkerActive(delta int)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

type noopObserver struct{}

func (noopObserver) PageFetched(PageContent, int)   {}
func (noopObserver) PageFailed(string, *FetchError) {}
func (noopObserver) WorkerActive(int)               {}
