package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	id "agriproof/pkg/domain"
	"agriproof/pkg/platform/sentinel"
)

// verifierSetKey is the Redis SET holding the authorized verifier identities.
const verifierSetKey = "agriproof:verifiers"

// RedisVerifierSet keeps the verifier set in a Redis SET so membership checks
// are O(1) and shared across instances. This is the production-recommended
// implementation when more than one registry instance runs against the same
// authoritative store.
type RedisVerifierSet struct {
	client *redis.Client
	key    string
}

// RedisVerifierSetOption configures a RedisVerifierSet.
type RedisVerifierSetOption func(*RedisVerifierSet)

// WithKey overrides the Redis key, e.g. to namespace test runs.
func WithKey(key string) RedisVerifierSetOption {
	return func(s *RedisVerifierSet) { s.key = key }
}

// NewRedisVerifierSet constructs a Redis-backed verifier set.
func NewRedisVerifierSet(client *redis.Client, opts ...RedisVerifierSetOption) *RedisVerifierSet {
	s := &RedisVerifierSet{client: client, key: verifierSetKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// AddVerifier adds the identity to the set. SADD reports how many members
// were actually added, which doubles as the duplicate check.
func (s *RedisVerifierSet) AddVerifier(ctx context.Context, verifierID id.Address) error {
	added, err := s.client.SAdd(ctx, s.key, verifierID.String()).Result()
	if err != nil {
		return fmt.Errorf("add verifier: %w", err)
	}
	if added == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// RemoveVerifier removes the identity from the set.
func (s *RedisVerifierSet) RemoveVerifier(ctx context.Context, verifierID id.Address) error {
	removed, err := s.client.SRem(ctx, s.key, verifierID.String()).Result()
	if err != nil {
		return fmt.Errorf("remove verifier: %w", err)
	}
	if removed == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *RedisVerifierSet) IsVerifier(ctx context.Context, verifierID id.Address) (bool, error) {
	member, err := s.client.SIsMember(ctx, s.key, verifierID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("is verifier: %w", err)
	}
	return member, nil
}

func (s *RedisVerifierSet) ListVerifiers(ctx context.Context) ([]id.Address, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list verifiers: %w", err)
	}
	out := make([]id.Address, 0, len(members))
	for _, m := range members {
		out = append(out, id.Address(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
