// Package registry provides a load-once cache keyed by comparable values.
//
// Each key is computed at most once for the lifetime of the Registry; the
// first outcome, value or error, is what every later caller observes.
package registry

import (
	"sort"
	"sync"
)

type entry[V any] struct {
	once sync.Once
	done bool
	val  V
	err  error
}

// Registry caches the outcome of one computation per key.
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
}

// New creates an empty Registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{entries: make(map[K]*entry[V])}
}

// Do returns the cached outcome for key, running fn if key has never been
// computed. Concurrent callers for the same key block until the first
// finishes. fn runs without the registry lock held, so distinct keys load
// in parallel.
func (r *Registry[K, V]) Do(key K, fn func() (V, error)) (V, error) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry[V]{}
		r.entries[key] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.val, e.err = fn()
		r.mu.Lock()
		e.done = true
		r.mu.Unlock()
	})
	return e.val, e.err
}

// Lookup returns the outcome for key if it has completed. ok is false for
// unknown keys and computations still in flight.
func (r *Registry[K, V]) Lookup(key K) (val V, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, found := r.entries[key]
	if !found || !e.done {
		return val, false, nil
	}
	return e.val, true, e.err
}

// Values returns the successfully computed values.
func (r *Registry[K, V]) Values() []V {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []V
	for _, e := range r.entries {
		if e.done && e.err == nil {
			out = append(out, e.val)
		}
	}
	return out
}

// Len returns the number of keys that have been requested.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset forgets every key. Computations still in flight complete against
// their old entries.
func (r *Registry[K, V]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[K]*entry[V])
}

// Keys returns the requested keys of a string-keyed registry in sorted order.
func Keys[V any](r *Registry[string, V]) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
