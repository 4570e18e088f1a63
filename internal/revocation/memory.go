package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for single-instance deployments and
// tests. Expired entries are ignored on read and dropped by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore. A nil clock uses time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{entries: make(map[string]time.Time), now: clock}
}

// Revoke records token until now plus ttl. A later call only ever extends the
// expiry.
func (s *MemoryStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := Key(token)
	expiry := s.now().Add(ttl)
	s.mu.Lock()
	if current, ok := s.entries[key]; !ok || expiry.After(current) {
		s.entries[key] = expiry
	}
	s.mu.Unlock()
	return nil
}

// IsRevoked reports whether token has an unexpired entry. Expired entries
// found here are removed.
func (s *MemoryStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := Key(token)
	now := s.now()

	s.mu.RLock()
	expiry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.Before(expiry) {
		return true, nil
	}

	s.mu.Lock()
	if current, ok := s.entries[key]; ok && !now.Before(current) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return false, nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	removed := 0
	s.mu.Lock()
	for key, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, key)
			removed++
		}
	}
	s.mu.Unlock()
	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Run sweeps every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

var _ Store = (*MemoryStore)(nil)
