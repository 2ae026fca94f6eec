package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Errors
var (
	ErrChallengeNotFound = errors.New("two-factor challenge not found")
	ErrChallengeExpired  = errors.New("two-factor challenge expired")
)

// Challenge is the server-side record of a pending two-factor login
type Challenge struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeStore tracks pending two-factor challenges by token, enforcing
// expiry and a bounded number of failed code submissions.
type ChallengeStore interface {
	Save(ctx context.Context, token string, challenge *Challenge, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Challenge, error)
	Delete(ctx context.Context, token string) error

	// RecordFailure counts one failed code submission and reports whether
	// the attempt budget is now exhausted. An exhausted challenge is
	// removed from the store.
	RecordFailure(ctx context.Context, token string, maxAttempts int) (bool, error)
}

// MemoryChallengeStore is an in-process challenge store
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*memoryChallenge
}

type memoryChallenge struct {
	challenge Challenge
	attempts  int
}

// NewMemoryChallengeStore creates an in-process challenge store
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]*memoryChallenge)}
}

// Save stores a challenge under the given token
func (s *MemoryChallengeStore) Save(ctx context.Context, token string, challenge *Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *challenge
	stored.ExpiresAt = time.Now().Add(ttl)
	s.challenges[token] = &memoryChallenge{challenge: stored}
	return nil
}

// Get returns the challenge for a token if it has not expired
func (s *MemoryChallengeStore) Get(ctx context.Context, token string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.challenges[token]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	if time.Now().After(entry.challenge.ExpiresAt) {
		delete(s.challenges, token)
		return nil, ErrChallengeExpired
	}

	challenge := entry.challenge
	return &challenge, nil
}

// Delete removes the challenge for a token
func (s *MemoryChallengeStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, token)
	return nil
}

// RecordFailure counts a failed submission and removes exhausted challenges
func (s *MemoryChallengeStore) RecordFailure(ctx context.Context, token string, maxAttempts int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.challenges[token]
	if !ok {
		return false, ErrChallengeNotFound
	}
	if time.Now().After(entry.challenge.ExpiresAt) {
		delete(s.challenges, token)
		return false, ErrChallengeExpired
	}

	entry.attempts++
	if entry.attempts >= maxAttempts {
		delete(s.challenges, token)
		return true, nil
	}
	return false, nil
}
