package service

import (
	"context"
	"fmt"
	"time"

	"booking-service/internal/store"
)

// SeatLedger answers whether a seat of a catalog entity is currently
// blocked by an active hold or a confirmed booking. It has no mutation
// API; bookings change only through the BookingService.
type SeatLedger struct {
	store store.Store
	now   func() time.Time
}

// NewSeatLedger creates a seat ledger over the given store
func NewSeatLedger(st store.Store) *SeatLedger {
	return &SeatLedger{store: st, now: time.Now}
}

// IsTaken reports whether the seat is covered by a CONFIRMED booking or an
// unexpired RESERVED hold. A RESERVED booking past its expiry is free even
// if the sweeper has not reclaimed it yet. A storage failure propagates:
// treating an unknown state as free would allow double-booking.
func (l *SeatLedger) IsTaken(ctx context.Context, seatID, entityType, entityID string) (bool, error) {
	bookings, err := l.store.GetBookingsByEntity(ctx, entityType, entityID)
	if err != nil {
		return false, fmt.Errorf("seat ledger lookup failed for %s/%s: %w", entityType, entityID, err)
	}

	now := l.now()
	for i := range bookings {
		b := &bookings[i]
		if b.SeatID == seatID && b.HoldActive(now) {
			return true, nil
		}
	}
	return false, nil
}
