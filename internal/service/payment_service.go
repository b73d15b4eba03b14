package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerificationPolicy controls how payment assertions are validated.
// TestMode accepts every payment regardless of signature and exists for
// non-production environments only; it is resolved once at startup from
// configuration, never toggled inline.
type VerificationPolicy struct {
	TestMode bool
}

// ResultCache stores verification results for idempotent replay
type ResultCache interface {
	GetVerificationResult(ctx context.Context, externalPaymentID string, v interface{}) error
	SetVerificationResult(ctx context.Context, externalPaymentID string, v interface{}, ttl time.Duration) error
}

// PaymentEvents is the event publisher subset used by payment verification
type PaymentEvents interface {
	PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error
}

// FulfillmentScheduler accepts bookings for asynchronous ticket generation
type FulfillmentScheduler interface {
	Schedule(booking models.Booking)
}

// VerifyRequest is a payment assertion from the external gateway
type VerifyRequest struct {
	OrderID    string
	PaymentID  string
	Signature  string
	Amount     float64
	Method     string
	EntityType string
	EntityID   string
	UserID     string
}

// VerificationResult is the outcome of one verification, cached per
// external payment id so repeated calls replay it unchanged.
type VerificationResult struct {
	Valid        bool   `json:"valid"`
	PaymentID    string `json:"payment_id,omitempty"`
	BookingID    string `json:"booking_id,omitempty"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	TicketStatus string `json:"ticket_status,omitempty"`
}

// PaymentService validates payment assertions, records outcomes and
// triggers booking materialization and ticket fulfillment.
type PaymentService struct {
	store     store.Store
	bookings  *BookingService
	cache     ResultCache
	events    PaymentEvents
	scheduler FulfillmentScheduler
	policy    VerificationPolicy
	secret    string
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service. cache, events and
// scheduler may be nil (caching, publishing and fulfillment are skipped).
func NewPaymentService(
	st store.Store,
	bookings *BookingService,
	cache ResultCache,
	events PaymentEvents,
	scheduler FulfillmentScheduler,
	policy VerificationPolicy,
	secret string,
	cacheTTL time.Duration,
) *PaymentService {
	return &PaymentService{
		store:     st,
		bookings:  bookings,
		cache:     cache,
		events:    events,
		scheduler: scheduler,
		policy:    policy,
		secret:    secret,
		cacheTTL:  cacheTTL,
		logger:    util.GetLogger(),
	}
}

// Verify validates a payment assertion. Exactly one payment record is
// persisted per distinct external payment id, success or failure. On
// success the matching booking is located (or synthesized) and ticket
// fulfillment is scheduled exactly once; idempotent replays return the
// cached result without re-processing.
func (s *PaymentService) Verify(ctx context.Context, req *VerifyRequest) (*VerificationResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Verify")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PaymentVerifyLatency.Observe(time.Since(start).Seconds())
	}()

	if s.cache != nil && req.PaymentID != "" {
		var cached VerificationResult
		if err := s.cache.GetVerificationResult(ctx, req.PaymentID, &cached); err == nil {
			s.logger.Info("Returning cached verification result",
				zap.String("external_payment_id", req.PaymentID))
			return &cached, nil
		}
	}

	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" ||
		req.EntityType == "" || req.EntityID == "" || req.UserID == "" {
		return nil, ErrMissingFields
	}
	if req.Amount < 0 {
		return nil, ErrInvalidAmount
	}

	valid := s.policy.TestMode || s.signatureValid(req.OrderID, req.PaymentID, req.Signature)

	status := models.PaymentStatusFailed
	if valid {
		status = models.PaymentStatusSuccess
	}

	payment := &models.Payment{
		ID:                uuid.New().String(),
		ExternalOrderID:   req.OrderID,
		ExternalPaymentID: req.PaymentID,
		ExternalSignature: req.Signature,
		Amount:            req.Amount,
		Method:            req.Method,
		Status:            status,
		EntityType:        strings.ToUpper(req.EntityType),
		EntityID:          req.EntityID,
		UserID:            req.UserID,
		CreatedAt:         time.Now(),
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to persist payment: %w", err)
	}

	result := &VerificationResult{
		Valid:     valid,
		PaymentID: payment.ID,
		Status:    status,
	}

	if valid {
		booking, err := s.findOrCreateBooking(ctx, req)
		if err != nil {
			return nil, err
		}
		result.BookingID = booking.ID
		result.Message = "Payment verified successfully. Ticket generation started."
		result.TicketStatus = "GENERATING"

		if s.scheduler != nil {
			s.scheduler.Schedule(*booking)
		}
		util.PaymentsVerifiedTotal.WithLabelValues("valid").Inc()
	} else {
		s.logger.Warn("Payment signature rejected",
			zap.String("external_order_id", req.OrderID),
			zap.String("external_payment_id", req.PaymentID))
		util.PaymentsVerifiedTotal.WithLabelValues("invalid").Inc()
	}

	if s.cache != nil {
		if err := s.cache.SetVerificationResult(ctx, req.PaymentID, result, s.cacheTTL); err != nil {
			util.CacheErrorsTotal.WithLabelValues("set_verification_result").Inc()
			s.logger.Warn("Failed to cache verification result", zap.Error(err))
		}
	}

	if s.events != nil {
		event := &models.PaymentVerifiedEvent{
			BaseEvent:         newBaseEvent(models.EventTypePaymentVerified),
			PaymentID:         payment.ID,
			ExternalPaymentID: req.PaymentID,
			Valid:             valid,
			Amount:            req.Amount,
			UserID:            req.UserID,
			BookingID:         result.BookingID,
		}
		if err := s.events.PublishPaymentVerified(ctx, event); err != nil {
			s.logger.Error("Failed to publish PaymentVerified event", zap.Error(err))
		}
	}

	return result, nil
}

// GetUserPayments returns the payment records of a user, newest first
func (s *PaymentService) GetUserPayments(ctx context.Context, userID string) ([]models.Payment, error) {
	return s.store.GetPaymentsByUser(ctx, userID)
}

// findOrCreateBooking locates the booking already tagged with this payment
// id, or materializes a confirmed one when the payment arrived before any
// hold existed (payment-first flow).
func (s *PaymentService) findOrCreateBooking(ctx context.Context, req *VerifyRequest) (*models.Booking, error) {
	existing, err := s.store.GetBookingsByPaymentID(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up bookings for payment %s: %w", req.PaymentID, err)
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	seatID := fmt.Sprintf("AUTO-%d", time.Now().UnixNano())
	created, err := s.bookings.CreateDirectBooking(ctx,
		[]string{seatID}, req.EntityType, req.EntityID, req.UserID, req.PaymentID,
		req.Amount, defaultVenue(req.EntityType), models.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize booking for payment %s: %w", req.PaymentID, err)
	}
	return &created[0], nil
}

// signatureValid checks the HMAC-SHA256 hex signature over "orderID|paymentID"
func (s *PaymentService) signatureValid(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// defaultVenue names the house venue per entity type for synthesized bookings
func defaultVenue(entityType string) string {
	switch strings.ToUpper(entityType) {
	case models.EntityTypeMovie:
		return "Evenza Cinema"
	case models.EntityTypeConcert:
		return "Evenza Concert Hall"
	case models.EntityTypeSports:
		return "Evenza Sports Arena"
	case models.EntityTypeEvent:
		return "Evenza Event Center"
	default:
		return "Evenza Venue"
	}
}
