package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/keebreview/keebreview/pkg/auth"
	"github.com/keebreview/keebreview/pkg/observability"
	"github.com/keebreview/keebreview/pkg/storage"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg storage.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// CachedProfileStore decorates a ProfileStore with a Redis read cache. The
// guard hits the profile store on every authenticated request, so profiles
// are cached for a short TTL and invalidated on writes. Cache failures
// degrade to the underlying store; they never fail a request.
type CachedProfileStore struct {
	inner   auth.ProfileStore
	client  *redis.Client
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewCachedProfileStore creates a CachedProfileStore.
func NewCachedProfileStore(inner auth.ProfileStore, client *redis.Client, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *CachedProfileStore {
	return &CachedProfileStore{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func profileCacheKey(id string) string {
	return "profile:" + id
}

// Get returns the cached profile when present, otherwise reads through to
// the underlying store and populates the cache.
func (s *CachedProfileStore) Get(ctx context.Context, id string) (*auth.Profile, error) {
	key := profileCacheKey(id)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var p auth.Profile
		if err := json.Unmarshal(data, &p); err == nil {
			if s.metrics != nil {
				s.metrics.ProfileCacheHitsTotal.Inc()
			}
			return &p, nil
		}
		s.logger.WithField("profile_id", id).Warn("discarding corrupt profile cache entry")
		s.client.Del(ctx, key)
	} else if err != redis.Nil {
		s.logger.WithError(err).Warn("profile cache read failed")
	}
	if s.metrics != nil {
		s.metrics.ProfileCacheMissesTotal.Inc()
	}

	profile, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profile); err == nil {
		if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.logger.WithError(err).Warn("profile cache write failed")
		}
	}
	return profile, nil
}

// Insert writes through to the underlying store. The fresh row is not
// cached; the next Get populates it.
func (s *CachedProfileStore) Insert(ctx context.Context, profile *auth.Profile) error {
	return s.inner.Insert(ctx, profile)
}

// Update writes through and invalidates the cached entry.
func (s *CachedProfileStore) Update(ctx context.Context, id string, update auth.ProfileUpdate) (*auth.Profile, error) {
	profile, err := s.inner.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if err := s.client.Del(ctx, profileCacheKey(id)).Err(); err != nil {
		s.logger.WithError(err).WithField("profile_id", id).Warn("profile cache invalidation failed")
	}
	return profile, nil
}
