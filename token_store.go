package gatekeeper

import (
	"context"
	"sync"
	"time"
)

// TokenStore persists pending magic tokens between issuance and redemption.
// Consume must be single use: the first caller wins, every later caller gets
// ErrMagicTokenInvalid.
type TokenStore interface {
	Save(ctx context.Context, token, email string, expiresAt time.Time) error
	Consume(ctx context.Context, token string) (string, error)
}

type memoryEntry struct {
	email     string
	expiresAt time.Time
	evict     *time.Timer
}

// MemoryTokenStore keeps pending tokens in process memory. Tokens evaporate
// on restart, which is acceptable for a 15 minute TTL.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryEntry
	now    func() time.Time
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens: map[string]memoryEntry{},
		now:    time.Now,
	}
}

// WithClock overrides the time source, used in tests.
func (s *MemoryTokenStore) WithClock(now func() time.Time) *MemoryTokenStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryTokenStore) Save(_ context.Context, token, email string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tokens[token]; ok && prev.evict != nil {
		prev.evict.Stop()
	}

	entry := memoryEntry{
		email:     NormalizeEmail(email),
		expiresAt: expiresAt,
	}

	if ttl := expiresAt.Sub(s.now()); ttl > 0 {
		entry.evict = time.AfterFunc(ttl, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.tokens, token)
		})
	}

	s.tokens[token] = entry
	return nil
}

// Consume removes the token and returns its email. Expired entries that the
// eviction timer has not fired for yet are rejected the same as unknown ones.
func (s *MemoryTokenStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return "", ErrMagicTokenInvalid
	}

	delete(s.tokens, token)
	if entry.evict != nil {
		entry.evict.Stop()
	}

	if !s.now().Before(entry.expiresAt) {
		return "", ErrMagicTokenInvalid
	}

	return entry.email, nil
}

// Len reports the number of pending tokens, used in tests.
func (s *MemoryTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
