package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/domain-email-crawler/internal/crawler"
)

func newSite(t *testing.T) (*httptest.Server, chan struct{}) {
	t.Helper()
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<p>ua=%s dean@ksu.edu.sa</p>", r.UserAgent())
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })
	return server, release
}

func TestFetcher_OK(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t)
	f := New(Config{UserAgent: "test-agent", Timeout: time.Second}, nil)

	page, err := f.Fetch(context.Background(), server.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, server.URL+"/ok", page.URL)
	assert.Contains(t, string(page.Body), "ua=test-agent")
	assert.Contains(t, page.Headers.Get("Content-Type"), "text/html")

	// The same URL must be fetchable again; dedup is not the fetcher's job.
	_, err = f.Fetch(context.Background(), server.URL+"/ok")
	require.NoError(t, err)
}

func TestFetcher_Redirect(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t)
	f := New(Config{Timeout: time.Second}, nil)

	page, err := f.Fetch(context.Background(), server.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/old", page.URL)
	assert.Equal(t, server.URL+"/ok", page.FinalURL)
	assert.Contains(t, string(page.Body), "dean@ksu.edu.sa")
}

func TestFetcher_Failures(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t)
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name   string
		url    string
		kind   crawler.FetchErrorKind
		status int
	}{
		{"http status", server.URL + "/missing", crawler.FetchHTTPStatus, http.StatusNotFound},
		{"timeout", server.URL + "/slow", crawler.FetchTimeout, 0},
		{"refused", closedURL + "/", crawler.FetchNetwork, 0},
	}

	f := New(Config{Timeout: 100 * time.Millisecond}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), tt.url)
			var fe *crawler.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, tt.url, fe.URL)
		})
	}
}

func TestFetcher_ContextDeadline(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t)
	f := New(Config{Timeout: time.Minute}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := f.Fetch(ctx, server.URL+"/slow")
	var fe *crawler.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, crawler.FetchTimeout, fe.Kind)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, defaultTimeout, requestTimeout(0))
	assert.Equal(t, defaultTimeout, requestTimeout(-time.Second))
	assert.Equal(t, 3*time.Second, requestTimeout(3*time.Second))
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{}, nil)
	var page crawler.PageContent
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, time.Now(), &page, &fetchErr)
	if hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request: &colly.Request{
			URL: mustParseURL(t, "https://ccis.ksu.edu.sa/final"),
		},
	})
	if page.StatusCode != http.StatusCreated || string(page.Body) != "body" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Headers.Get("X-Resp") != "ok" || page.FinalURL != "https://ccis.ksu.edu.sa/final" {
		t.Fatalf("expected headers and final url copied, got %+v", page)
	}

	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("boom"))
	if fetchErr == nil || fetchErr.Error() != "boom" || page.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected fetchErr and status set, got %v %d", fetchErr, page.StatusCode)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
