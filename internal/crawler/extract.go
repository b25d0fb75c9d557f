package crawler

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultEmailPattern matches addresses under ksu.edu.sa.
const DefaultEmailPattern = `[a-zA-Z0-9_.%+-]+@ksu\.edu\.sa`

// RegexMatcher is a case-insensitive regular-expression Matcher.
type RegexMatcher struct {
	re *regexp.Regexp
}

// NewRegexMatcher compiles pattern with case folding enabled.
func NewRegexMatcher(pattern string) (*RegexMatcher, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, &ConfigError{Field: "pattern", Reason: "must not be empty"}
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, &ConfigError{Field: "pattern", Reason: fmt.Sprintf("does not compile: %v", err)}
	}
	return &RegexMatcher{re: re}, nil
}

// FindAll returns every non-overlapping match in text.
func (m *RegexMatcher) FindAll(text string) []string {
	return m.re.FindAllString(text, -1)
}

// PatternExtractor applies a Matcher to the raw page body.
type PatternExtractor struct {
	matcher   Matcher
	lowercase bool
}

// ExtractorOption customizes a PatternExtractor.
type ExtractorOption func(*PatternExtractor)

// WithLowercase folds every match to lower case before deduplication.
func WithLowercase(enabled bool) ExtractorOption {
	return func(p *PatternExtractor) {
		p.lowercase = enabled
	}
}

// NewPatternExtractor wraps matcher.
func NewPatternExtractor(matcher Matcher, opts ...ExtractorOption) *PatternExtractor {
	p := &PatternExtractor{matcher: matcher}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract returns the unique matches in first-seen order. Empty or
// unparseable content simply yields nothing.
func (p *PatternExtractor) Extract(page PageContent) []string {
	if len(page.Body) == 0 {
		return nil
	}
	matches := p.matcher.FindAll(string(page.Body))
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if p.lowercase {
			m = strings.ToLower(m)
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
