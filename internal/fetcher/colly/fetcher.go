// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/domain-email-crawler/internal/crawler"
)

const defaultTimeout = 10 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodySize caps the bytes read per response; 0 keeps colly's default.
	MaxBodySize int
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. When transport is nil a pooled transport is used.
func New(cfg Config, transport http.RoundTripper) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	// Dedup belongs to the crawl's visited set; clones share colly's store.
	c.AllowURLRevisit = true
	// Hand every status to OnResponse so non-200s carry their code.
	c.ParseHTTPErrorResponse = true
	if cfg.MaxBodySize > 0 {
		c.MaxBodySize = cfg.MaxBodySize
	}
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	if transport == nil {
		transport = newHTTPTransport()
	}
	// Clones share the backend client, so transport and timeout are set once.
	c.WithTransport(transport)
	c.SetRequestTimeout(requestTimeout(cfg.Timeout))

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET. Anything but a 200 is returned as a
// *crawler.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawler.PageContent, error) {
	var (
		page     crawler.PageContent
		fetchErr error
	)
	collector := f.buildCollector(time.Now(), &page, &fetchErr)

	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return crawler.PageContent{}, crawler.ClassifyFetchError(rawURL, err)
	}
	if page.StatusCode != http.StatusOK {
		return crawler.PageContent{}, crawler.NewHTTPStatusError(rawURL, page.StatusCode)
	}
	page.URL = rawURL
	return page, nil
}

func (f *Fetcher) buildCollector(
	start time.Time,
	page *crawler.PageContent,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, start, page, fetchErr)
	return collector
}

func requestTimeout(configured time.Duration) time.Duration {
	if configured <= 0 {
		return defaultTimeout
	}
	return configured
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	page *crawler.PageContent,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		*page = crawler.PageContent{
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
		if r.Headers != nil {
			page.Headers = r.Headers.Clone()
		}
		if r.Request != nil && r.Request.URL != nil {
			page.FinalURL = r.Request.URL.String()
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			page.StatusCode = r.StatusCode
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if *fetchErr != nil {
			return *fetchErr
		}
		return err
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
}
