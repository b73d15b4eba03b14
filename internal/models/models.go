package models

import "time"

// Entity types a booking can reference
const (
	EntityTypeMovie   = "MOVIE"
	EntityTypeConcert = "CONCERT"
	EntityTypeSports  = "SPORTS"
	EntityTypeEvent   = "EVENT"
	EntityTypeTheater = "THEATER"
)

// Booking statuses
const (
	BookingStatusPending   = "PENDING"
	BookingStatusReserved  = "RESERVED"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusRefunded  = "REFUNDED"
)

// Payment statuses
const (
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailed  = "FAILED"
)

// Ticket generation statuses
const (
	TicketStatusPending    = "PENDING"
	TicketStatusProcessing = "PROCESSING"
	TicketStatusCompleted  = "COMPLETED"
	TicketStatusError      = "ERROR"
	TicketStatusUnknown    = "UNKNOWN"
)

// Booking represents one seat allocated (or held) for a catalog entity
type Booking struct {
	ID                string     `db:"id" json:"id"`
	SeatID            string     `db:"seat_id" json:"seat_id"`
	EntityType        string     `db:"entity_type" json:"entity_type"`
	EntityID          string     `db:"entity_id" json:"entity_id"`
	UserID            string     `db:"user_id" json:"user_id,omitempty"`
	PaymentID         string     `db:"payment_id" json:"payment_id,omitempty"`
	Amount            float64    `db:"amount" json:"amount"`
	Venue             string     `db:"venue" json:"venue,omitempty"`
	Status            string     `db:"status" json:"status"`
	BookingTime       time.Time  `db:"booking_time" json:"booking_time"`
	ReservationExpiry *time.Time `db:"reservation_expiry" json:"reservation_expiry,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// HoldActive reports whether a booking currently blocks its seat.
// Both the seat ledger (lazy check) and the expiry sweeper use this
// predicate so the two paths can never disagree on what "expired" means.
func (b *Booking) HoldActive(now time.Time) bool {
	switch b.Status {
	case BookingStatusConfirmed:
		return true
	case BookingStatusReserved:
		return b.ReservationExpiry != nil && b.ReservationExpiry.After(now)
	default:
		return false
	}
}

// Payment records the outcome of one external payment verification.
// Rows are immutable after creation; status is fixed at verification time.
type Payment struct {
	ID                string    `db:"id" json:"id"`
	ExternalOrderID   string    `db:"external_order_id" json:"external_order_id"`
	ExternalPaymentID string    `db:"external_payment_id" json:"external_payment_id"`
	ExternalSignature string    `db:"external_signature" json:"-"`
	Amount            float64   `db:"amount" json:"amount"`
	Method            string    `db:"method" json:"method,omitempty"`
	Status            string    `db:"status" json:"status"`
	EntityType        string    `db:"entity_type" json:"entity_type"`
	EntityID          string    `db:"entity_id" json:"entity_id"`
	UserID            string    `db:"user_id" json:"user_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Ticket is the durable artifact produced by fulfillment
type Ticket struct {
	ID         string    `db:"id" json:"id"`
	BookingID  string    `db:"booking_id" json:"booking_id"`
	EntityName string    `db:"entity_name" json:"entity_name"`
	Venue      string    `db:"venue" json:"venue"`
	EventTime  time.Time `db:"event_time" json:"event_time"`
	PDFPath    string    `db:"pdf_path" json:"pdf_path"`
	QRPayload  string    `db:"qr_payload" json:"qr_payload"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TicketStatus is the ephemeral fulfillment progress record kept in the
// status cache. The cache is not the source of truth: once a Ticket row
// exists it supersedes whatever the cache says.
type TicketStatus struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	TicketID  string `json:"ticket_id,omitempty"`
	PDFURL    string `json:"pdf_url,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
