package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Postgres implements Store on top of sqlx/lib/pq.
//
// The bookings table is expected to carry a partial unique index on
// (entity_type, entity_id, seat_id) WHERE status IN ('RESERVED','CONFIRMED')
// so the advisory seat-conflict check in the service layer is backed by a
// real constraint under concurrency.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects to the database and configures the pool
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close closes the database connection
func (s *Postgres) Close() error {
	return s.db.Close()
}

// CreateBookings persists a batch of bookings in a single transaction so a
// multi-seat hold is all-or-nothing at the storage level too.
func (s *Postgres) CreateBookings(ctx context.Context, bookings []*models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO bookings (id, seat_id, entity_type, entity_id, user_id, payment_id,
			amount, venue, status, booking_time, reservation_expiry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, b := range bookings {
		_, err := tx.ExecContext(ctx, query,
			b.ID, b.SeatID, b.EntityType, b.EntityID,
			b.UserID, b.PaymentID,
			b.Amount, b.Venue, b.Status,
			b.BookingTime, b.ReservationExpiry, b.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert booking %s: %w", b.ID, err)
		}
	}

	return tx.Commit()
}

// GetBookingByID retrieves a booking by ID
func (s *Postgres) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingsByEntity retrieves all bookings for one catalog entity
func (s *Postgres) GetBookingsByEntity(ctx context.Context, entityType, entityID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE entity_type = $1 AND entity_id = $2",
		strings.ToUpper(entityType), entityID)
	return bookings, err
}

// GetBookingsByUser retrieves bookings for a user, newest first
func (s *Postgres) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE user_id = $1 ORDER BY booking_time DESC", userID)
	return bookings, err
}

// GetBookingsByPaymentID retrieves bookings already tagged with a payment
func (s *Postgres) GetBookingsByPaymentID(ctx context.Context, paymentID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE payment_id = $1", paymentID)
	return bookings, err
}

// ConfirmBooking promotes a hold with a guarded update. The status guard
// keeps a hold the sweeper already cancelled from being resurrected.
func (s *Postgres) ConfirmBooking(ctx context.Context, bookingID, paymentID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings
		 SET status = $1, payment_id = $2, reservation_expiry = NULL
		 WHERE id = $3 AND status = $4`,
		models.BookingStatusConfirmed, paymentID, bookingID, models.BookingStatusReserved)
	if err != nil {
		return false, fmt.Errorf("failed to confirm booking %s: %w", bookingID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExpireHolds cancels expired holds and returns the reclaimed rows
func (s *Postgres) ExpireHolds(ctx context.Context, now time.Time) ([]models.Booking, error) {
	var expired []models.Booking
	err := s.db.SelectContext(ctx, &expired,
		`UPDATE bookings
		 SET status = $1, reservation_expiry = NULL
		 WHERE status = $2 AND reservation_expiry < $3
		 RETURNING *`,
		models.BookingStatusCancelled, models.BookingStatusReserved, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire holds: %w", err)
	}
	return expired, nil
}

// CreatePayment persists a payment record
func (s *Postgres) CreatePayment(ctx context.Context, payment *models.Payment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, external_order_id, external_payment_id, external_signature,
			amount, method, status, entity_type, entity_id, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		payment.ID, payment.ExternalOrderID, payment.ExternalPaymentID, payment.ExternalSignature,
		payment.Amount, payment.Method, payment.Status,
		payment.EntityType, payment.EntityID, payment.UserID, payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPaymentByExternalID retrieves a payment by the external processor id
func (s *Postgres) GetPaymentByExternalID(ctx context.Context, externalPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE external_payment_id = $1 ORDER BY created_at DESC LIMIT 1",
		externalPaymentID)
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentsByUser retrieves payments for a user, newest first
func (s *Postgres) GetPaymentsByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return payments, err
}

// CreateTicket persists a generated ticket
func (s *Postgres) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, booking_id, entity_name, venue, event_time, pdf_path, qr_payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ticket.ID, ticket.BookingID, ticket.EntityName, ticket.Venue,
		ticket.EventTime, ticket.PDFPath, ticket.QRPayload, ticket.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

// GetTicketByBookingID retrieves the ticket generated for a booking
func (s *Postgres) GetTicketByBookingID(ctx context.Context, bookingID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.GetContext(ctx, &ticket,
		"SELECT * FROM tickets WHERE booking_id = $1 ORDER BY created_at DESC LIMIT 1", bookingID)
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// catalog tables per entity type
var entityTables = map[string]string{
	models.EntityTypeMovie:   "movies",
	models.EntityTypeConcert: "concerts",
	models.EntityTypeSports:  "sports",
	models.EntityTypeEvent:   "events",
	models.EntityTypeTheater: "theaters",
}

// EntityExists checks the catalog table for the given entity type
func (s *Postgres) EntityExists(ctx context.Context, entityType, entityID string) (bool, error) {
	table, ok := entityTables[strings.ToUpper(entityType)]
	if !ok {
		return false, fmt.Errorf("unknown entity type: %s", entityType)
	}

	var exists bool
	err := s.db.GetContext(ctx, &exists,
		fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", table), entityID)
	return exists, err
}
