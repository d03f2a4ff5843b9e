// Package durability implements spec.md §4.13's three cooperating
// structures: Snapshot (owned serialization of a process's VM state),
// DurableLog (append-only JSON-lines of nondeterministic events), and
// IdempotencyStore (key-addressed cache of already-executed side
// effects). All three are grounded on the original Rust services of
// the same name, translated from serde+bincode to Go's
// encoding/gob — the pack carries no bincode/msgpack/protobuf
// equivalent, so a round-trip byte encoding that needs no schema
// beyond the Go type itself is the closest faithful stand-in
// (documented in DESIGN.md).
package durability

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
)

// IdempotencyStore caches the serialized result of an already-executed
// effect by key, short-circuiting re-execution on a cache hit — spec.md
// §4.13's "defence-in-depth" partner to DurableLog.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewIdempotencyStore creates an empty store.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{entries: make(map[string][]byte)}
}

// CheckOrExecute returns the cached result for key if present,
// otherwise calls f, caches its gob-encoded result, and returns it.
// Declared as a free function rather than a method because Go methods
// cannot carry their own type parameters.
func CheckOrExecute[R any](store *IdempotencyStore, key string, f func() R) (R, error) {
	store.mu.Lock()
	cached, ok := store.entries[key]
	store.mu.Unlock()

	var result R
	if ok {
		if err := gob.NewDecoder(bytes.NewReader(cached)).Decode(&result); err != nil {
			return result, fmt.Errorf("durability: decode cached result for %q: %w", key, err)
		}
		return result, nil
	}

	result = f()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(result); err != nil {
		return result, fmt.Errorf("durability: encode result for %q: %w", key, err)
	}
	store.mu.Lock()
	store.entries[key] = buf.Bytes()
	store.mu.Unlock()
	return result, nil
}

// Invalidate removes key's cached result, reporting whether it was
// present.
func (s *IdempotencyStore) Invalidate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Clear removes every cached result.
func (s *IdempotencyStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]byte)
}

// Contains reports whether key has a cached result.
func (s *IdempotencyStore) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Len reports the number of cached results.
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// GetRaw returns the raw cached bytes for key, for inspection or
// hydrating a replay log.
func (s *IdempotencyStore) GetRaw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.entries[key]
	return b, ok
}

// InsertRaw installs a pre-encoded result directly, used when
// hydrating a store from a replay log or external source.
func (s *IdempotencyStore) InsertRaw(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = data
}
