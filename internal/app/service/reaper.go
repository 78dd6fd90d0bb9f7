package service

import (
	"context"
	"time"

	apprepository "github.com/Ayesha-Taranum/SourceVoid/internal/app/repository"
	"go.uber.org/zap"
)

// Reaper periodically removes rooms that have been dead for longer
// than a grace period. Purely a storage-reclamation concern: liveness
// is computed on read, so skipping the reaper changes nothing a
// caller can observe, and the grace period keeps it clear of rooms a
// request might still be evaluating.
type Reaper struct {
	logger   *zap.Logger
	repo     apprepository.RoomRepository
	grace    time.Duration
	interval time.Duration
	stopChan chan struct{}
}

// NewReaper creates a reaper that sweeps on the given interval.
func NewReaper(logger *zap.Logger, repo apprepository.RoomRepository, grace, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Reaper{
		logger:   logger,
		repo:     repo,
		grace:    grace,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (r *Reaper) Start() {
	go r.run()
}

// Stop stops the periodic sweep.
func (r *Reaper) Stop() {
	close(r.stopChan)
}

func (r *Reaper) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stopChan:
			r.logger.Info("room reaper stopped")
			return
		}
	}
}

func (r *Reaper) sweep() {
	ctx := context.Background()
	deadBefore := time.Now().Add(-r.grace)

	affected, err := r.repo.DeleteDead(ctx, deadBefore)
	if err != nil {
		r.logger.Error("failed to reap dead rooms", zap.Error(err))
		return
	}

	if affected > 0 {
		r.logger.Info("reaped dead rooms",
			zap.Int64("count", affected),
			zap.Time("dead_before", deadBefore),
		)
	}
}
