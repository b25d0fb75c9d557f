package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrAlreadyStarted is returned when Run is invoked on an engine that has
// already been run.
var ErrAlreadyStarted = errors.New("crawler: engine already started")

// ConfigError reports an invalid crawl configuration. It is fatal: the crawl
// never starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid crawl config: %s %s", e.Field, e.Reason)
}

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind int

const (
	// FetchNetwork covers DNS failures, refused connections, TLS errors and
	// any other transport failure.
	FetchNetwork FetchErrorKind = iota
	// FetchTimeout means the request exceeded its deadline.
	FetchTimeout
	// FetchHTTPStatus means a response arrived with a status other than 200.
	FetchHTTPStatus
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTimeout:
		return "timeout"
	case FetchHTTPStatus:
		return "http_status"
	default:
		return "network"
	}
}

// FetchError is the typed failure returned by a Fetcher.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewHTTPStatusError builds a FetchError for a non-200 response.
func NewHTTPStatusError(rawURL string, status int) *FetchError {
	return &FetchError{Kind: FetchHTTPStatus, URL: rawURL, StatusCode: status}
}

// ClassifyFetchError wraps err into a FetchError. Errors that already carry a
// FetchError are returned as is.
func ClassifyFetchError(rawURL string, err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	kind := FetchNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = FetchTimeout
	}
	return &FetchError{Kind: kind, URL: rawURL, Err: err}
}

// ParseError reports page content that could not be parsed. The page is
// treated as having no links.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
