package analyzer

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

type memoKey struct {
	name        string
	environment string
}

func (k memoKey) String() string {
	return k.name + "\x00" + k.environment
}

// lookupMemo caches successful lookups for the lifetime of a run.
// Concurrent lookups of the same key share one catalog request.
type lookupMemo struct {
	mu      sync.RWMutex
	entries map[memoKey]LookupResult
	group   singleflight.Group
}

func newLookupMemo() *lookupMemo {
	return &lookupMemo{entries: make(map[memoKey]LookupResult)}
}

// Do returns the cached result for key or computes it with fn.
func (m *lookupMemo) Do(key memoKey, fn func() LookupResult) LookupResult {
	if result, ok := m.get(key); ok {
		return result
	}

	value, _, _ := m.group.Do(key.String(), func() (any, error) {
		if result, ok := m.get(key); ok {
			return result, nil
		}
		result := fn()
		if result.Err == nil {
			m.set(key, result)
		}
		return result, nil
	})
	return value.(LookupResult)
}

func (m *lookupMemo) get(key memoKey) (LookupResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result, ok := m.entries[key]
	return result, ok
}

func (m *lookupMemo) set(key memoKey, result LookupResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = result
}
