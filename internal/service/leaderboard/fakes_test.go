package leaderboard

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tuesfest/yt-leaderboard/internal/domain"
)

type fakePager struct {
	pages [][]domain.PlaylistEntry
	errAt int
	next  int
}

func (p *fakePager) HasMore() bool {
	return p.next < len(p.pages)
}

func (p *fakePager) Next(context.Context) ([]domain.PlaylistEntry, error) {
	if p.next >= len(p.pages) {
		return nil, domain.ErrNoMorePages
	}
	idx := p.next
	p.next++
	if p.errAt > 0 && idx+1 == p.errAt {
		return nil, fmt.Errorf("page %d unavailable", idx+1)
	}
	return p.pages[idx], nil
}

type fakeSource struct {
	pages     [][]domain.PlaylistEntry
	pageErrAt int
	stats     map[string]*domain.VideoStats
	failStats map[string]error

	mu        sync.Mutex
	requested []string
	inFlight  atomic.Int32
	peak      atomic.Int32
	delay     time.Duration
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) PlaylistPages(context.Context, string) domain.PageIterator {
	return &fakePager{pages: s.pages, errAt: s.pageErrAt}
}

func (s *fakeSource) VideoStats(ctx context.Context, id string) (*domain.VideoStats, error) {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if cur <= peak || s.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	s.mu.Lock()
	s.requested = append(s.requested, id)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := s.failStats[id]; err != nil {
		return nil, err
	}
	if st, ok := s.stats[id]; ok {
		return st, nil
	}
	return &domain.VideoStats{Views: math.NaN(), Likes: math.NaN(), Dislikes: math.NaN()}, nil
}

func length(n int) *int { return &n }

type fakeAggregator struct {
	playlistID string
	videos     []domain.VideoRecord
	err        error
	calls      atomic.Int32
	release    chan struct{}
}

func (a *fakeAggregator) PlaylistID() string { return a.playlistID }

func (a *fakeAggregator) Aggregate(ctx context.Context) ([]domain.VideoRecord, error) {
	a.calls.Add(1)
	if a.release != nil {
		select {
		case <-a.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.videos, nil
}

type fakeCache struct {
	mu       sync.Mutex
	stored   map[string]*domain.Snapshot
	getErr   error
	setCalls int
	lastTTL  time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: make(map[string]*domain.Snapshot)}
}

func (c *fakeCache) GetSnapshot(_ context.Context, playlistID string) (*domain.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.stored[playlistID], nil
}

func (c *fakeCache) SetSnapshot(_ context.Context, snapshot *domain.Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	c.lastTTL = ttl
	c.stored[snapshot.PlaylistID] = snapshot
	return nil
}
