package refcache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ithrive360/insights-service/internal/domain"
	"github.com/ithrive360/insights-service/internal/persistence/memory"
)

// fakeKV is an in-memory stand-in for the redis client.
type fakeKV struct {
	values map[string]string
	getErr error
	setErr error
	gets   int
	sets   int
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	f.gets++
	cmd := redis.NewStringCmd(ctx)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	value, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(value)
	return cmd
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.sets++
	cmd := redis.NewStatusCmd(ctx)
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	cmd.SetVal("OK")
	return cmd
}

func seededInner() *memory.Store {
	inner := memory.NewStore()
	inner.SeedHealthAreas([]domain.HealthArea{{ID: "cardio", Name: "Heart Health"}})
	inner.SeedReferenceTables(domain.ReferenceTables{
		BloodWeights: []domain.MarkerWeight{{MarkerID: "bm-ldl", HealthAreaID: "cardio", Weight: 2}},
		BloodNames:   []domain.MarkerName{{MarkerID: "bm-ldl", Name: "LDL Cholesterol"}},
	})
	return inner
}

func TestCacheMissPopulatesAndHits(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := New(seededInner(), kv, time.Minute, nil)

	areas, err := store.HealthAreas(ctx)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	require.Equal(t, 1, kv.sets)

	// Second read is served from the cache entry.
	again, err := store.HealthAreas(ctx)
	require.NoError(t, err)
	require.Equal(t, areas, again)
	require.Equal(t, 1, kv.sets)
	require.Equal(t, 2, kv.gets)
}

func TestCacheFailureFallsBackToInner(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.getErr = errors.New("redis down")
	kv.setErr = errors.New("redis down")
	store := New(seededInner(), kv, time.Minute, nil)

	weights, err := store.BloodMarkerWeights(ctx)
	require.NoError(t, err)
	require.Len(t, weights, 1)
	require.Equal(t, 2.0, weights[0].Weight)
}

func TestUndecodableEntryIsIgnored(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.values["refcache:blood_marker_names"] = "{not json"
	store := New(seededInner(), kv, time.Minute, nil)

	names, err := store.BloodMarkerNames(ctx)
	require.NoError(t, err)
	require.Len(t, names, 1)

	// The bad entry was overwritten with a decodable one.
	var decoded []domain.MarkerName
	require.NoError(t, json.Unmarshal([]byte(kv.values["refcache:blood_marker_names"]), &decoded))
	require.Equal(t, names, decoded)
}

func TestRecordReadsBypassCache(t *testing.T) {
	ctx := context.Background()
	inner := seededInner()
	inner.PutInsightRecord(domain.InsightRecord{UserID: "user-1", HealthAreaID: "cardio"})
	kv := newFakeKV()
	store := New(inner, kv, time.Minute, nil)

	records, err := store.InsightRecords(ctx, "user-1", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Zero(t, kv.gets)
	require.Zero(t, kv.sets)
}
