package leaderboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tuesfest/yt-leaderboard/internal/domain"
	"go.uber.org/zap"
)

func TestServiceCoalescesConcurrentCallers(t *testing.T) {
	agg := &fakeAggregator{
		playlistID: "PLtest",
		videos:     []domain.VideoRecord{{ID: "a", Title: "A", Views: 1}},
		release:    make(chan struct{}),
	}
	svc := NewService(agg, nil, ServiceConfig{}, nil, zap.NewNop())

	var wg sync.WaitGroup
	results := make([][]domain.VideoRecord, 5)
	errs := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Videos(context.Background())
		}()
	}

	// let every caller join the in-flight run before releasing it
	time.Sleep(50 * time.Millisecond)
	close(agg.release)
	wg.Wait()

	if calls := agg.calls.Load(); calls != 1 {
		t.Fatalf("expected a single aggregation, got %d", calls)
	}
	for i := range results {
		if errs[i] != nil || len(results[i]) != 1 {
			t.Fatalf("caller %d: videos=%v err=%v", i, results[i], errs[i])
		}
	}
}

func TestServiceReadsThroughCache(t *testing.T) {
	agg := &fakeAggregator{
		playlistID: "PLtest",
		videos:     []domain.VideoRecord{{ID: "a", Title: "A"}},
	}
	cache := newFakeCache()
	svc := NewService(agg, cache, ServiceConfig{CacheTTL: time.Minute}, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		videos, err := svc.Videos(context.Background())
		if err != nil || len(videos) != 1 {
			t.Fatalf("call %d: videos=%v err=%v", i, videos, err)
		}
	}

	if calls := agg.calls.Load(); calls != 1 {
		t.Fatalf("expected cached snapshot to be reused, got %d aggregations", calls)
	}
	if cache.setCalls != 1 || cache.lastTTL != time.Minute {
		t.Fatalf("expected one write with configured TTL, got %d writes ttl=%v", cache.setCalls, cache.lastTTL)
	}
}

func TestServiceIgnoresCacheFailures(t *testing.T) {
	agg := &fakeAggregator{playlistID: "PLtest", videos: []domain.VideoRecord{{ID: "a"}}}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	svc := NewService(agg, cache, ServiceConfig{}, nil, zap.NewNop())

	videos, err := svc.Videos(context.Background())
	if err != nil || len(videos) != 1 {
		t.Fatalf("expected aggregation fallback, got videos=%v err=%v", videos, err)
	}
}

func TestServicePropagatesAggregationError(t *testing.T) {
	boom := errors.New("boom")
	cache := newFakeCache()
	svc := NewService(&fakeAggregator{playlistID: "PLtest", err: boom}, cache, ServiceConfig{}, nil, zap.NewNop())

	if _, err := svc.Videos(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if cache.setCalls != 0 {
		t.Fatalf("failed aggregation must not be cached")
	}
}

func TestServiceCallerCancellation(t *testing.T) {
	agg := &fakeAggregator{playlistID: "PLtest", release: make(chan struct{})}
	defer close(agg.release)
	svc := NewService(agg, nil, ServiceConfig{}, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := svc.Videos(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
