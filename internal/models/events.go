package models

import "time"

// Event types
const (
	EventTypeHoldCreated      = "HOLD_CREATED"
	EventTypeBookingCreated   = "BOOKING_CREATED"
	EventTypeBookingConfirmed = "BOOKING_CONFIRMED"
	EventTypeHoldExpired      = "HOLD_EXPIRED"
	EventTypePaymentVerified  = "PAYMENT_VERIFIED"
	EventTypePaymentRejected  = "PAYMENT_REJECTED"
	EventTypeTicketGenerated  = "TICKET_GENERATED"
	EventTypeTicketFailed     = "TICKET_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// HoldCreatedEvent published when a batch of seat holds is created
type HoldCreatedEvent struct {
	BaseEvent
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	UserID     string   `json:"user_id"`
	SeatIDs    []string `json:"seat_ids"`
	BookingIDs []string `json:"booking_ids"`
	Amount     float64  `json:"amount"`
}

// BookingConfirmedEvent published when holds are promoted to confirmed bookings
type BookingConfirmedEvent struct {
	BaseEvent
	PaymentID  string   `json:"payment_id"`
	BookingIDs []string `json:"booking_ids"`
	UserID     string   `json:"user_id"`
}

// HoldExpiredEvent published by the sweeper for each reclaimed batch
type HoldExpiredEvent struct {
	BaseEvent
	BookingIDs []string `json:"booking_ids"`
	Count      int      `json:"count"`
}

// PaymentVerifiedEvent published after a signature check, valid or not
type PaymentVerifiedEvent struct {
	BaseEvent
	PaymentID         string  `json:"payment_id"`
	ExternalPaymentID string  `json:"external_payment_id"`
	Valid             bool    `json:"valid"`
	Amount            float64 `json:"amount"`
	UserID            string  `json:"user_id"`
	BookingID         string  `json:"booking_id,omitempty"`
}

// TicketGeneratedEvent published when fulfillment completes for a booking
type TicketGeneratedEvent struct {
	BaseEvent
	BookingID string `json:"booking_id"`
	TicketID  string `json:"ticket_id"`
	UserID    string `json:"user_id"`
	PDFURL    string `json:"pdf_url"`
}

// TicketFailedEvent published when fulfillment fails after payment success
type TicketFailedEvent struct {
	BaseEvent
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}
