package crawler

import (
	"bytes"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLLinkExtractor pulls anchor targets out of HTML with goquery and keeps
// only http(s) links whose host passes the domain filter.
type HTMLLinkExtractor struct {
	filter *hostFilter
}

// NewHTMLLinkExtractor builds an extractor for cfg's domain filter and
// exclusion list.
func NewHTMLLinkExtractor(cfg Config) *HTMLLinkExtractor {
	return &HTMLLinkExtractor{filter: newHostFilter(cfg.effectiveDomainFilter(), cfg.ExcludeHosts)}
}

// Links resolves every a[href] against the page base (honouring <base href>)
// and yields the in-domain results lazily in document order.
func (e *HTMLLinkExtractor) Links(page PageContent) (iter.Seq[string], error) {
	base, err := url.Parse(page.BaseURL())
	if err != nil {
		return nil, &ParseError{URL: page.URL, Err: fmt.Errorf("base url: %w", err)}
	}
	if len(bytes.TrimSpace(page.Body)) == 0 {
		return func(func(string) bool) {}, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, &ParseError{URL: page.URL, Err: err}
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	anchors := doc.Find("a[href]")
	return func(yield func(string) bool) {
		anchors.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			link, ok := e.resolve(base, href)
			if !ok {
				return true
			}
			return yield(link)
		})
	}, nil
}

func (e *HTMLLinkExtractor) resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	u, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if !e.filter.Allows(u.Hostname()) {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}
