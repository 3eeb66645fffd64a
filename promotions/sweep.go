// Package promotions holds the periodic sweep that retires promotions whose
// end time has passed.
package promotions

import (
	"context"
	"sync/atomic"
	"time"

	"food-marketplace-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Sweeper struct {
	db       *gorm.DB
	log      *zap.Logger
	interval time.Duration
	running  atomic.Bool
	stopCh   chan struct{}
}

func NewSweeper(db *gorm.DB, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		db:       db,
		log:      log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// SweepExpired deactivates every active promotion whose end time has passed
// and returns how many rows changed. Idempotent: a second run within the
// same period affects zero rows.
func (s *Sweeper) SweepExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("active = ? AND ends_at < ?", true, time.Now()).
		Update("active", false)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Info("deactivated expired promotions", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// Start runs the sweep immediately and then once per interval until Stop is
// called or the context ends. Errors are logged and the next run self-heals;
// an in-flight run makes the next tick a no-op instead of overlapping.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-s.stopCh:
				s.log.Info("promotion sweeper stopped")
				return
			case <-ctx.Done():
				s.log.Info("promotion sweeper cancelled")
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("promotion sweep still in flight, skipping this run")
		return
	}
	defer s.running.Store(false)

	if _, err := s.SweepExpired(ctx); err != nil {
		s.log.Error("promotion sweep failed", zap.Error(err))
	}
}
