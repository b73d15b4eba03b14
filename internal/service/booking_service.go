package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingCache is the narrow contract the booking service needs from the
// cache layer. Cache failures are never fatal: every read path falls back
// to the durable store.
type BookingCache interface {
	GetUserBookings(ctx context.Context, userID string) ([]models.Booking, error)
	SetUserBookings(ctx context.Context, userID string, bookings []models.Booking, ttl time.Duration) error
	GetEntityBookings(ctx context.Context, entityType, entityID string) ([]models.Booking, error)
	SetEntityBookings(ctx context.Context, entityType, entityID string, bookings []models.Booking, ttl time.Duration) error
	InvalidateBookings(ctx context.Context, userID, entityType, entityID string) error
}

// BookingEvents is the subset of the event publisher the booking service
// uses. A nil publisher disables event emission.
type BookingEvents interface {
	PublishHoldCreated(ctx context.Context, event *models.HoldCreatedEvent) error
	PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error
}

// BookingService creates and confirms time-boxed seat holds and direct
// (payment-first) bookings.
type BookingService struct {
	store        store.Store
	ledger       *SeatLedger
	cache        BookingCache
	events       BookingEvents
	logger       *zap.Logger
	holdDuration time.Duration
	cacheTTL     time.Duration
	now          func() time.Time
}

// NewBookingService creates a new booking service. cache and events may be
// nil, in which case caching and event publishing are skipped.
func NewBookingService(
	st store.Store,
	ledger *SeatLedger,
	cache BookingCache,
	events BookingEvents,
	holdDuration time.Duration,
	cacheTTL time.Duration,
) *BookingService {
	return &BookingService{
		store:        st,
		ledger:       ledger,
		cache:        cache,
		events:       events,
		logger:       util.GetLogger(),
		holdDuration: holdDuration,
		cacheTTL:     cacheTTL,
		now:          time.Now,
	}
}

// CreateHold reserves the given seats for one entity as a single batch.
// If any seat is taken the whole request fails with a SeatConflictError
// and nothing is persisted. Each booking gets an even share of the total
// amount, rounded half-up to 2 decimals.
func (s *BookingService) CreateHold(ctx context.Context, seatIDs []string, entityType, entityID, userID string, totalAmount float64, venue string) ([]models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateHold")
	defer span.End()

	if len(seatIDs) == 0 {
		return nil, ErrNoSeats
	}
	if totalAmount < 0 {
		return nil, ErrInvalidAmount
	}
	if userID == "" {
		return nil, ErrMissingUser
	}
	entityType = strings.ToUpper(entityType)

	// Advisory check; the storage layer's uniqueness constraint backs it
	// under concurrent requests.
	for _, seatID := range seatIDs {
		taken, err := s.ledger.IsTaken(ctx, seatID, entityType, entityID)
		if err != nil {
			util.BookingsFailedTotal.WithLabelValues("storage_error").Inc()
			return nil, err
		}
		if taken {
			util.SeatConflictsTotal.Inc()
			return nil, &SeatConflictError{SeatID: seatID}
		}
	}

	now := s.now()
	expiry := now.Add(s.holdDuration)
	perSeat := splitAmount(totalAmount, len(seatIDs))

	bookings := make([]*models.Booking, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		exp := expiry
		bookings = append(bookings, &models.Booking{
			ID:                uuid.New().String(),
			SeatID:            seatID,
			EntityType:        entityType,
			EntityID:          entityID,
			UserID:            userID,
			Amount:            perSeat,
			Venue:             venue,
			Status:            models.BookingStatusReserved,
			BookingTime:       now,
			ReservationExpiry: &exp,
			CreatedAt:         now,
		})
	}

	if err := s.store.CreateBookings(ctx, bookings); err != nil {
		util.BookingsFailedTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("failed to persist holds: %w", err)
	}

	util.HoldsCreatedTotal.Add(float64(len(bookings)))
	s.logger.Info("Holds created",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("user_id", userID),
		zap.Int("seats", len(bookings)),
		zap.Time("expiry", expiry))

	s.invalidateCaches(ctx, userID, entityType, entityID)

	out := make([]models.Booking, 0, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, *b)
		ids = append(ids, b.ID)
	}

	if s.events != nil {
		event := &models.HoldCreatedEvent{
			BaseEvent:  newBaseEvent(models.EventTypeHoldCreated),
			EntityType: entityType,
			EntityID:   entityID,
			UserID:     userID,
			SeatIDs:    seatIDs,
			BookingIDs: ids,
			Amount:     totalAmount,
		}
		if err := s.events.PublishHoldCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish HoldCreated event", zap.Error(err))
		}
	}

	return out, nil
}

// ConfirmHold promotes the given holds to CONFIRMED bookings, attaching
// the payment id and clearing the expiry. Confirmation is guarded: a hold
// the sweeper already cancelled is not resurrected; the first such booking
// fails the call with ErrHoldNotActive. Holds confirmed before the failure
// stay confirmed (they were paid for).
func (s *BookingService) ConfirmHold(ctx context.Context, paymentID string, bookingIDs []string) error {
	ctx, span := util.StartSpan(ctx, "BookingService.ConfirmHold")
	defer span.End()

	if len(bookingIDs) == 0 {
		return ErrNoSeats
	}

	var confirmed []models.Booking
	for _, id := range bookingIDs {
		ok, err := s.store.ConfirmBooking(ctx, id, paymentID)
		if err != nil {
			return fmt.Errorf("failed to confirm booking %s: %w", id, err)
		}
		if !ok {
			s.logger.Warn("Hold no longer reserved, refusing to confirm",
				zap.String("booking_id", id),
				zap.String("payment_id", paymentID))
			return fmt.Errorf("booking %s: %w", id, ErrHoldNotActive)
		}
		booking, err := s.store.GetBookingByID(ctx, id)
		if err != nil {
			return err
		}
		confirmed = append(confirmed, *booking)
	}

	util.HoldsConfirmedTotal.Add(float64(len(confirmed)))
	s.logger.Info("Holds confirmed",
		zap.String("payment_id", paymentID),
		zap.Int("count", len(confirmed)))

	for _, b := range confirmed {
		s.invalidateCaches(ctx, b.UserID, b.EntityType, b.EntityID)
	}

	if s.events != nil && len(confirmed) > 0 {
		event := &models.BookingConfirmedEvent{
			BaseEvent:  newBaseEvent(models.EventTypeBookingConfirmed),
			PaymentID:  paymentID,
			BookingIDs: bookingIDs,
			UserID:     confirmed[0].UserID,
		}
		if err := s.events.PublishBookingConfirmed(ctx, event); err != nil {
			s.logger.Error("Failed to publish BookingConfirmed event", zap.Error(err))
		}
	}

	return nil
}

// CreateDirectBooking creates bookings without a prior hold, used by
// payment-first flows. The referenced catalog entity must exist; the
// per-seat conflict check of CreateHold is intentionally not applied here.
func (s *BookingService) CreateDirectBooking(ctx context.Context, seatIDs []string, entityType, entityID, userID, paymentID string, amount float64, venue, status string) ([]models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateDirectBooking")
	defer span.End()

	if len(seatIDs) == 0 {
		return nil, ErrNoSeats
	}
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	entityType = strings.ToUpper(entityType)

	exists, err := s.store.EntityExists(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup failed: %w", err)
	}
	if !exists {
		util.BookingsFailedTotal.WithLabelValues("entity_not_found").Inc()
		return nil, fmt.Errorf("%s/%s: %w", entityType, entityID, ErrEntityNotFound)
	}

	if status == "" {
		status = models.BookingStatusPending
	}

	now := s.now()
	perSeat := splitAmount(amount, len(seatIDs))

	bookings := make([]*models.Booking, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		bookings = append(bookings, &models.Booking{
			ID:          uuid.New().String(),
			SeatID:      seatID,
			EntityType:  entityType,
			EntityID:    entityID,
			UserID:      userID,
			PaymentID:   paymentID,
			Amount:      perSeat,
			Venue:       venue,
			Status:      status,
			BookingTime: now,
			CreatedAt:   now,
		})
	}

	if err := s.store.CreateBookings(ctx, bookings); err != nil {
		util.BookingsFailedTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("failed to persist bookings: %w", err)
	}

	util.BookingsCreatedTotal.WithLabelValues(status).Add(float64(len(bookings)))
	s.logger.Info("Direct bookings created",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("payment_id", paymentID),
		zap.Int("seats", len(bookings)),
		zap.String("status", status))

	s.invalidateCaches(ctx, userID, entityType, entityID)

	out := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, *b)
	}
	return out, nil
}

// GetUserBookings returns the bookings of a user, newest first, through
// the read-through cache.
func (s *BookingService) GetUserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	if s.cache != nil {
		bookings, err := s.cache.GetUserBookings(ctx, userID)
		if err == nil {
			return bookings, nil
		}
		s.cacheMiss("get_user_bookings", err)
	}

	bookings, err := s.store.GetBookingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(bookings) > 0 {
		if err := s.cache.SetUserBookings(ctx, userID, bookings, s.cacheTTL); err != nil {
			s.cacheMiss("set_user_bookings", err)
		}
	}
	return bookings, nil
}

// GetEntityBookings returns all bookings for a catalog entity through the
// read-through cache.
func (s *BookingService) GetEntityBookings(ctx context.Context, entityType, entityID string) ([]models.Booking, error) {
	entityType = strings.ToUpper(entityType)

	if s.cache != nil {
		bookings, err := s.cache.GetEntityBookings(ctx, entityType, entityID)
		if err == nil {
			return bookings, nil
		}
		s.cacheMiss("get_entity_bookings", err)
	}

	bookings, err := s.store.GetBookingsByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetEntityBookings(ctx, entityType, entityID, bookings, s.cacheTTL); err != nil {
			s.cacheMiss("set_entity_bookings", err)
		}
	}
	return bookings, nil
}

func (s *BookingService) invalidateCaches(ctx context.Context, userID, entityType, entityID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBookings(ctx, userID, entityType, entityID); err != nil {
		s.cacheMiss("invalidate_bookings", err)
	}
}

func (s *BookingService) cacheMiss(op string, err error) {
	if errors.Is(err, redisclient.ErrCacheMiss) {
		return
	}
	util.CacheErrorsTotal.WithLabelValues(op).Inc()
	s.logger.Warn("Cache unavailable, using durable store", zap.String("op", op), zap.Error(err))
}

// splitAmount divides a total evenly across n seats, rounding each share
// half-up to 2 decimal places. Shares need not re-sum to the total.
func splitAmount(total float64, n int) float64 {
	if n < 1 {
		n = 1
	}
	per := total / float64(n)
	return math.Round(per*100) / 100
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
