package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("amount must be non-negative")
	ErrNoSeats         = errors.New("at least one seat is required")
	ErrMissingUser     = errors.New("user id is required")
	ErrMissingFields   = errors.New("required payment fields missing")
	ErrEntityNotFound  = errors.New("catalog entity not found")
	ErrHoldNotActive   = errors.New("hold is no longer active")
	ErrPaymentNotFound = errors.New("payment not found")
)

// SeatConflictError reports the first seat of a hold request that is
// already held or booked. The whole batch is rejected.
type SeatConflictError struct {
	SeatID string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %s is already taken", e.SeatID)
}

// IsSeatConflict reports whether err is a seat conflict
func IsSeatConflict(err error) bool {
	var sc *SeatConflictError
	return errors.As(err, &sc)
}
