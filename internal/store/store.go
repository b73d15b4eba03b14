package store

import (
	"context"
	"errors"
	"time"

	"booking-service/internal/models"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrTicketNotFound  = errors.New("ticket not found")
)

// Store is the durable persistence contract for bookings, payments and
// tickets. Two implementations exist: Postgres for production and Memory
// for tests and local runs without a database.
type Store interface {
	// Bookings
	CreateBookings(ctx context.Context, bookings []*models.Booking) error
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	GetBookingsByEntity(ctx context.Context, entityType, entityID string) ([]models.Booking, error)
	GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
	GetBookingsByPaymentID(ctx context.Context, paymentID string) ([]models.Booking, error)
	// ConfirmBooking promotes a RESERVED booking to CONFIRMED and attaches
	// the payment id. It is a compare-and-swap: a row that is no longer
	// RESERVED is left untouched and reported as not confirmed.
	ConfirmBooking(ctx context.Context, bookingID, paymentID string) (bool, error)
	// ExpireHolds cancels every RESERVED booking whose expiry is before now
	// and returns the cancelled rows. Running it twice is a no-op the
	// second time.
	ExpireHolds(ctx context.Context, now time.Time) ([]models.Booking, error)

	// Payments
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByExternalID(ctx context.Context, externalPaymentID string) (*models.Payment, error)
	GetPaymentsByUser(ctx context.Context, userID string) ([]models.Payment, error)

	// Tickets
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicketByBookingID(ctx context.Context, bookingID string) (*models.Ticket, error)

	// Catalog
	EntityExists(ctx context.Context, entityType, entityID string) (bool, error)

	Close() error
}
