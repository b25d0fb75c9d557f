package crawler

import "strings"

// hostFilter admits hosts containing the domain filter and rejects any host on
// the exclusion list. Exclusions are exact hosts or "*.suffix" / ".suffix"
// wildcards.
type hostFilter struct {
	contains string
	exact    map[string]struct{}
	suffixes []string
}

func newHostFilter(contains string, excludes []string) *hostFilter {
	f := &hostFilter{
		contains: strings.ToLower(strings.TrimSpace(contains)),
		exact:    make(map[string]struct{}),
	}
	for _, raw := range excludes {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "*."):
			f.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			f.addSuffix(strings.TrimPrefix(value, "."))
		default:
			f.exact[value] = struct{}{}
		}
	}
	return f
}

func (f *hostFilter) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range f.suffixes {
		if existing == suffix {
			return
		}
	}
	f.suffixes = append(f.suffixes, suffix)
}

// Allows reports whether links to host may enter the frontier.
func (f *hostFilter) Allows(host string) bool {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	if !strings.Contains(host, f.contains) {
		return false
	}
	if _, blocked := f.exact[host]; blocked {
		return false
	}
	for _, suffix := range f.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return false
		}
	}
	return true
}
