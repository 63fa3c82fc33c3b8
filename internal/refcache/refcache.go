// Package refcache caches the reference tables in redis in front of a
// Store. The tables are immutable once published, so a short TTL is only a
// hedge against out-of-band reloads. Insight records and selections are
// never cached: scores must be computed from fresh records on every read.
package refcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ithrive360/insights-service/internal/domain"
)

// KV is the subset of the redis client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Store decorates a domain.Store with redis caching for the five reference
// reads. Cache failures degrade to the inner store; a broken redis must not
// add a failure mode to loads.
type Store struct {
	inner  domain.Store
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

// New constructs the caching Store.
func New(inner domain.Store, kv KV, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{inner: inner, kv: kv, ttl: ttl, logger: logger}
}

// HealthAreas implements domain.Store.
func (s *Store) HealthAreas(ctx context.Context) ([]domain.HealthArea, error) {
	return cached(ctx, s, "refcache:health_areas", s.inner.HealthAreas)
}

// BloodMarkerWeights implements domain.Store.
func (s *Store) BloodMarkerWeights(ctx context.Context) ([]domain.MarkerWeight, error) {
	return cached(ctx, s, "refcache:blood_marker_weights", s.inner.BloodMarkerWeights)
}

// BloodMarkerNames implements domain.Store.
func (s *Store) BloodMarkerNames(ctx context.Context) ([]domain.MarkerName, error) {
	return cached(ctx, s, "refcache:blood_marker_names", s.inner.BloodMarkerNames)
}

// DNATraitWeights implements domain.Store.
func (s *Store) DNATraitWeights(ctx context.Context) ([]domain.MarkerWeight, error) {
	return cached(ctx, s, "refcache:dna_trait_weights", s.inner.DNATraitWeights)
}

// DNATraitNames implements domain.Store.
func (s *Store) DNATraitNames(ctx context.Context) ([]domain.MarkerName, error) {
	return cached(ctx, s, "refcache:dna_trait_names", s.inner.DNATraitNames)
}

// InsightRecords delegates to the inner store uncached.
func (s *Store) InsightRecords(ctx context.Context, userID string, healthAreaIDs []string) ([]domain.InsightRecord, error) {
	return s.inner.InsightRecords(ctx, userID, healthAreaIDs)
}

// RecommendationSelections delegates to the inner store uncached.
func (s *Store) RecommendationSelections(ctx context.Context, userID string) ([]domain.RecommendationSelection, error) {
	return s.inner.RecommendationSelections(ctx, userID)
}

// SetRecommendationSelection delegates to the inner store.
func (s *Store) SetRecommendationSelection(ctx context.Context, userID, category, text string, selected bool) error {
	return s.inner.SetRecommendationSelection(ctx, userID, category, text, selected)
}

func cached[T any](ctx context.Context, s *Store, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	raw, err := s.kv.Get(ctx, key).Result()
	if err == nil {
		var out []T
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
		s.logger.Warn("refcache: dropping undecodable cache entry", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("refcache: read failed, falling back to store", zap.String("key", key), zap.Error(err))
	}

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(out)
	if err == nil {
		if err := s.kv.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
			s.logger.Warn("refcache: write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
