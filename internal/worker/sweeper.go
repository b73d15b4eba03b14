package worker

import (
	"context"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SweeperCache invalidates booking listings after holds are reclaimed
type SweeperCache interface {
	InvalidateBookings(ctx context.Context, userID, entityType, entityID string) error
}

// SweeperEvents is the event publisher subset used by the sweeper
type SweeperEvents interface {
	PublishHoldExpired(ctx context.Context, event *models.HoldExpiredEvent) error
}

// Sweeper periodically cancels reservation holds whose expiry has passed,
// returning their seats to the pool. Confirmed bookings are never touched;
// the store updates only rows still in RESERVED state, so a hold confirmed
// between tick and update survives.
type Sweeper struct {
	store    store.Store
	cache    SweeperCache
	events   SweeperEvents
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweeper creates a new expiry sweeper. cache and events may be nil.
func NewSweeper(st store.Store, cache SweeperCache, events SweeperEvents, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    st,
		cache:    cache,
		events:   events,
		interval: interval,
		logger:   util.GetLogger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("Expiry sweeper started", zap.Duration("interval", s.interval))
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-s.stopCh:
				s.logger.Info("Expiry sweeper stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Expiry sweeper stopping, context cancelled")
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it to finish
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// Sweep cancels all holds expired as of now and returns how many were
// reclaimed. It is exported so a single pass can be run on demand.
func (s *Sweeper) Sweep(ctx context.Context) int {
	expired, err := s.store.ExpireHolds(ctx, time.Now())
	if err != nil {
		s.logger.Error("Hold expiry sweep failed", zap.Error(err))
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	util.HoldsExpiredTotal.Add(float64(len(expired)))
	s.logger.Info("Expired holds reclaimed", zap.Int("count", len(expired)))

	bookingIDs := make([]string, 0, len(expired))
	for _, b := range expired {
		bookingIDs = append(bookingIDs, b.ID)
		if s.cache != nil {
			if cerr := s.cache.InvalidateBookings(ctx, b.UserID, b.EntityType, b.EntityID); cerr != nil {
				util.CacheErrorsTotal.WithLabelValues("invalidate_bookings").Inc()
				s.logger.Warn("Failed to invalidate booking caches after sweep",
					zap.String("booking_id", b.ID), zap.Error(cerr))
			}
		}
	}

	if s.events != nil {
		event := &models.HoldExpiredEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeHoldExpired,
				Timestamp: time.Now(),
			},
			BookingIDs: bookingIDs,
			Count:      len(expired),
		}
		if err := s.events.PublishHoldExpired(ctx, event); err != nil {
			s.logger.Error("Failed to publish HoldExpired event", zap.Error(err))
		}
	}

	return len(expired)
}
