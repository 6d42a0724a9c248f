package leaderboard

import (
	"context"
	"sync"
	"time"

	"github.com/tuesfest/yt-leaderboard/internal/domain"
	"go.uber.org/zap"
)

// SnapshotProvider is satisfied by *Service.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

// RefreshState is what the leaderboard page renders from.
type RefreshState struct {
	Snapshot   *domain.Snapshot
	Refreshing bool
	LastError  error
}

// Refresher keeps the last good snapshot in memory and replaces it on a fixed
// interval. A failed refresh keeps the previous snapshot.
type Refresher struct {
	provider SnapshotProvider
	interval time.Duration
	logger   *zap.Logger

	mu         sync.RWMutex
	latest     *domain.Snapshot
	lastErr    error
	refreshing bool

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRefresher(provider SnapshotProvider, interval time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		provider: provider,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start performs an immediate refresh and then one per interval until Stop
// is called or ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	r.ticker = time.NewTicker(r.interval)

	r.logger.Info("Leaderboard refresher started", zap.Duration("interval", r.interval))

	go func() {
		r.Refresh(ctx)
		for {
			select {
			case <-r.ticker.C:
				r.Refresh(ctx)
			case <-r.stopCh:
				r.logger.Info("Leaderboard refresher stopped")
				return
			case <-ctx.Done():
				r.logger.Info("Leaderboard refresher context cancelled")
				return
			}
		}
	}()
}

func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		if r.ticker != nil {
			r.ticker.Stop()
		}
		close(r.stopCh)
	})
}

// Refresh runs one refresh synchronously. It returns false without doing
// anything if another refresh is already in flight.
func (r *Refresher) Refresh(ctx context.Context) bool {
	r.mu.Lock()
	if r.refreshing {
		r.mu.Unlock()
		return false
	}
	r.refreshing = true
	r.mu.Unlock()

	snapshot, err := r.provider.Snapshot(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshing = false
	r.lastErr = err
	if err != nil {
		r.logger.Warn("Leaderboard refresh failed, keeping previous data", zap.Error(err))
		return true
	}
	r.latest = snapshot
	return true
}

func (r *Refresher) State() RefreshState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RefreshState{
		Snapshot:   r.latest,
		Refreshing: r.refreshing,
		LastError:  r.lastErr,
	}
}
