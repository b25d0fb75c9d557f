package crawler

import (
	"net/url"
	"strings"
	"time"
)

// Config is immutable for the lifetime of an Engine.
type Config struct {
	SeedURL string
	// DomainFilter is matched case-insensitively as a substring of each link's
	// host. Empty means the seed's host.
	DomainFilter string
	// ExcludeHosts lists hosts (or "*.suffix" patterns) never crawled even
	// when they pass DomainFilter.
	ExcludeHosts []string
	// MaxDepth is the exclusive ceiling for child expansion: a page at depth d
	// has its links enqueued only when d+1 < MaxDepth. The seed is always
	// fetched.
	MaxDepth       int
	MaxConcurrency int
	RequestTimeout time.Duration
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SeedURL) == "" {
		return &ConfigError{Field: "seed_url", Reason: "must not be empty"}
	}
	u, err := url.Parse(c.SeedURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ConfigError{Field: "seed_url", Reason: "must be an absolute http(s) URL"}
	}
	if c.MaxDepth < 0 {
		return &ConfigError{Field: "max_depth", Reason: "must be >= 0"}
	}
	if c.MaxConcurrency <= 0 {
		return &ConfigError{Field: "max_concurrency", Reason: "must be > 0"}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Field: "request_timeout", Reason: "must be > 0"}
	}
	return nil
}

// effectiveDomainFilter returns the lowercased filter, falling back to the
// seed host.
func (c Config) effectiveDomainFilter() string {
	if f := strings.TrimSpace(c.DomainFilter); f != "" {
		return strings.ToLower(f)
	}
	u, err := url.Parse(c.SeedURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
