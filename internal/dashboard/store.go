package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type storeEntry struct {
	snap      *Snapshot
	expiresAt time.Time
}

// Store keeps loaded snapshots under an opaque id so calendar navigation
// and tab switches reuse them instead of reloading the backend. Entries
// expire lazily on access and through StartCleanup.
type Store struct {
	ttl     time.Duration
	entries map[string]*storeEntry
	mu      sync.RWMutex
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		entries: make(map[string]*storeEntry),
	}
}

// Put stores snap under a fresh id and returns the id.
func (s *Store) Put(snap *Snapshot) string {
	id := uuid.NewString()
	s.Replace(id, snap)
	return id
}

// Replace stores snap under an existing id and renews its lifetime.
func (s *Store) Replace(id string, snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &storeEntry{snap: snap, expiresAt: time.Now().Add(s.ttl)}
}

// Get returns the snapshot for id, or false if it is unknown or expired.
func (s *Store) Get(id string) (*Snapshot, bool) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return nil, false
	}
	return entry.snap, true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartCleanup periodically drops expired snapshots until ctx is done.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(time.Now())
			}
		}
	}()
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.entries {
		if now.After(v.expiresAt) {
			delete(s.entries, k)
		}
	}
}
