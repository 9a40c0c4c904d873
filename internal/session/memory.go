package session

import (
	"context"
	"sync"
	"time"

	"orderhub-bot/internal/model"
)

// memoryEntry holds a session with its expiry.
type memoryEntry struct {
	session   model.Session
	expiresAt time.Time
}

func (e *memoryEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// MemoryStore is an in-memory implementation of Store. Sessions do not
// survive a restart: a crash loses in-flight drafts and the caller must
// restart the order. Use this for development or single-instance
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]*memoryEntry

	ttl             time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// NewMemoryStore creates an in-memory session store. Sessions idle for
// longer than ttl are dropped by a background sweep, so an abandoned
// draft does not linger forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &MemoryStore{
		entries:         make(map[int64]*memoryEntry),
		ttl:             ttl,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// Get retrieves the live session for an account, or (nil, nil).
func (s *MemoryStore) Get(ctx context.Context, accountID int64) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[accountID]
	if !exists || entry.isExpired() {
		return nil, nil
	}

	copied := entry.session
	copied.Draft = append([]model.DraftLine(nil), entry.session.Draft...)
	return &copied, nil
}

// Put stores the session, refreshing its expiry.
func (s *MemoryStore) Put(ctx context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sess
	copied.Draft = append([]model.DraftLine(nil), sess.Draft...)
	copied.UpdatedAt = time.Now()

	s.entries[sess.AccountID] = &memoryEntry{
		session:   copied,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Delete destroys the account's session.
func (s *MemoryStore) Delete(ctx context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, accountID)
	return nil
}

// Close stops the background cleanup goroutine.
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	return nil
}

// cleanup periodically removes expired sessions.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

// removeExpired removes all expired sessions.
func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		if entry.isExpired() {
			delete(s.entries, id)
		}
	}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
