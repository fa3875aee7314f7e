package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type memoryCacheRepo struct {
	items   map[string][]byte
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if r.failGet != nil {
		return r.failGet
	}
	raw, ok := r.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.items[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *memoryCacheRepo) Delete(_ context.Context, key string) error {
	delete(r.items, key)
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range r.items {
		if strings.HasPrefix(key, prefix) {
			delete(r.items, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, zap.NewNop(), true)
	ctx := context.Background()

	var out map[string]int
	hit, err := svc.Get(ctx, "timetable:detail:tt-1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "timetable:detail:tt-1", map[string]int{"placed": 6}, 0))
	assert.Equal(t, 10*time.Minute, repo.ttls["timetable:detail:tt-1"])

	hit, err = svc.Get(ctx, "timetable:detail:tt-1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 6, out["placed"])

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "timetable:detail:a", 1, 0))
	require.NoError(t, svc.Set(ctx, "timetable:job:b", 2, 0))
	require.NoError(t, svc.Set(ctx, "other:c", 3, 0))

	require.NoError(t, svc.Invalidate(ctx, "timetable:detail:*"))
	assert.NotContains(t, repo.items, "timetable:detail:a")
	assert.Contains(t, repo.items, "timetable:job:b")
	assert.Contains(t, repo.items, "other:c")
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(ctx, "k", 1, 0))
	assert.Empty(t, repo.items)
	hit, err := svc.Get(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.NoError(t, nilSvc.Delete(ctx, "k"))
}

func TestCacheServiceGetError(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.failGet = errors.New("connection reset")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	hit, err := svc.Get(context.Background(), "k", new(int))
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestMetricsServiceScheduleRuns(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveScheduleRun(10, 0, 5*time.Millisecond)
	metrics.ObserveScheduleRun(7, 3, 5*time.Millisecond)
	metrics.ObserveJob("completed")

	assert.Equal(t, uint64(2), metrics.Runs())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.runsTotal.WithLabelValues("complete")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.runsTotal.WithLabelValues("partial")))
	assert.Equal(t, float64(17), testutil.ToFloat64(metrics.hoursPlaced))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.hoursShort))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.jobsTotal.WithLabelValues("completed")))

	var nilMetrics *MetricsService
	nilMetrics.ObserveScheduleRun(1, 0, time.Millisecond)
	assert.Zero(t, nilMetrics.Runs())
}
