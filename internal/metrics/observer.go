package metrics

import "github.com/JakeFAU/domain-email-crawler/internal/crawler"

// Observer feeds engine callbacks into the Prometheus collectors.
type Observer struct{}

// NewObserver initializes the collectors and returns an Observer.
func NewObserver() *Observer {
	Init()
	return &Observer{}
}

// PageFetched records a successful fetch and the new results it produced.
func (*Observer) PageFetched(page crawler.PageContent, results int) {
	ObservePage(page.URL, "ok", len(page.Body), page.Duration)
	AddResults(results)
}

// PageFailed records a failed fetch labeled by failure kind.
func (*Observer) PageFailed(rawURL string, err *crawler.FetchError) {
	outcome := "network"
	if err != nil {
		outcome = err.Kind.String()
	}
	ObservePage(rawURL, outcome, 0, 0)
}

// WorkerActive moves the active workers gauge.
func (*Observer) WorkerActive(delta int) {
	AddActiveWorkers(delta)
}

var _ crawler.Observer = (*Observer)(nil)
