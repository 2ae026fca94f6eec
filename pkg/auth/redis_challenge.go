package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix = "igproxy:challenge:"
	attemptsKeySuffix  = ":attempts"
)

// RedisChallengeStore keeps pending two-factor challenges in Redis so that
// expiry survives restarts. Attempt counting rides on INCR, which is atomic
// across concurrent submissions.
type RedisChallengeStore struct {
	client *redis.Client
}

// NewRedisChallengeStore creates a Redis-backed challenge store
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

// Save stores a challenge under the given token with a TTL
func (s *RedisChallengeStore) Save(ctx context.Context, token string, challenge *Challenge, ttl time.Duration) error {
	stored := *challenge
	stored.ExpiresAt = time.Now().Add(ttl)

	payload, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	if err := s.client.Set(ctx, challengeKeyPrefix+token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}
	return nil
}

// Get returns the challenge for a token if it has not expired
func (s *RedisChallengeStore) Get(ctx context.Context, token string) (*Challenge, error) {
	payload, err := s.client.Get(ctx, challengeKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	var challenge Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("failed to parse challenge: %w", err)
	}
	return &challenge, nil
}

// Delete removes the challenge and its attempt counter
func (s *RedisChallengeStore) Delete(ctx context.Context, token string) error {
	key := challengeKeyPrefix + token
	if err := s.client.Del(ctx, key, key+attemptsKeySuffix).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// RecordFailure counts a failed submission and removes exhausted challenges
func (s *RedisChallengeStore) RecordFailure(ctx context.Context, token string, maxAttempts int) (bool, error) {
	key := challengeKeyPrefix + token

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check challenge: %w", err)
	}
	if exists == 0 {
		return false, ErrChallengeNotFound
	}

	attempts, err := s.client.Incr(ctx, key+attemptsKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count attempt: %w", err)
	}
	if attempts == 1 {
		// Attempt counter expires alongside the challenge itself
		if ttl, err := s.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			s.client.Expire(ctx, key+attemptsKeySuffix, ttl)
		}
	}

	if attempts >= int64(maxAttempts) {
		if err := s.Delete(ctx, token); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}
