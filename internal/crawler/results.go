package crawler

import (
	"slices"
	"sync"
)

// ResultSet accumulates unique extracted strings across workers.
type ResultSet struct {
	mu    sync.Mutex
	items map[string]struct{}
}

// NewResultSet returns an empty set.
func NewResultSet() *ResultSet {
	return &ResultSet{items: make(map[string]struct{})}
}

// Add merges values and returns how many were new.
func (r *ResultSet) Add(values ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for _, v := range values {
		if _, ok := r.items[v]; ok {
			continue
		}
		r.items[v] = struct{}{}
		added++
	}
	return added
}

// Len returns the number of unique values.
func (r *ResultSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Values returns a sorted copy of the set.
func (r *ResultSet) Values() []string {
	r.mu.Lock()
	out := make([]string, 0, len(r.items))
	for v := range r.items {
		out = append(out, v)
	}
	r.mu.Unlock()
	slices.Sort(out)
	return out
}
