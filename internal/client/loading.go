package client

import (
	"errors"
	"sort"
	"sync"
)

// ErrInFlight is returned when an operation with the same key is already
// running.
var ErrInFlight = errors.New("operation already in flight")

// LoadingTracker registers in-flight operations under string keys so the
// presentation layer can disable the matching controls. Acquire and
// release are scoped to Do, so a key can never leak into a permanently
// loading state.
type LoadingTracker struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewLoadingTracker creates an empty tracker.
func NewLoadingTracker() *LoadingTracker {
	return &LoadingTracker{inflight: make(map[string]struct{})}
}

// IsLoading reports whether key has a running operation.
func (t *LoadingTracker) IsLoading(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.inflight[key]
	return ok
}

// Keys returns the sorted in-flight keys.
func (t *LoadingTracker) Keys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.inflight))
	for k := range t.inflight {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Do runs fn under key. The key is released on every exit path,
// including a panic in fn. A second Do with the same key while the first
// is running returns ErrInFlight without calling fn.
func (t *LoadingTracker) Do(key string, fn func() error) error {
	t.mu.Lock()
	if _, ok := t.inflight[key]; ok {
		t.mu.Unlock()
		return ErrInFlight
	}
	t.inflight[key] = struct{}{}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.inflight, key)
		t.mu.Unlock()
	}()
	return fn()
}
