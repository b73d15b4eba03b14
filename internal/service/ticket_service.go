package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TicketGenerator produces the durable ticket artifact for a confirmed booking
type TicketGenerator interface {
	Generate(ctx context.Context, booking models.Booking) (*models.Ticket, error)
}

// TicketService persists tickets with a QR payload and a download URL for
// the rendered PDF.
type TicketService struct {
	store   store.Store
	baseURL string
	logger  *zap.Logger
}

// NewTicketService creates a new ticket service. baseURL is the public
// address tickets are downloaded from.
func NewTicketService(st store.Store, baseURL string) *TicketService {
	return &TicketService{
		store:   st,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  util.GetLogger(),
	}
}

// Generate creates and persists a ticket for the booking
func (s *TicketService) Generate(ctx context.Context, booking models.Booking) (*models.Ticket, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.Generate")
	defer span.End()

	start := time.Now()
	defer func() {
		util.TicketGenerationLatency.Observe(time.Since(start).Seconds())
	}()

	ticketID := uuid.New().String()
	ticket := &models.Ticket{
		ID:         ticketID,
		BookingID:  booking.ID,
		EntityName: defaultEntityName(booking.EntityType),
		Venue:      booking.Venue,
		EventTime:  booking.BookingTime,
		PDFPath:    fmt.Sprintf("%s/api/tickets/download/%s", s.baseURL, ticketID),
		QRPayload:  qrPayload(ticketID, booking),
		CreatedAt:  time.Now(),
	}
	if ticket.Venue == "" {
		ticket.Venue = defaultVenue(booking.EntityType)
	}

	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to persist ticket for booking %s: %w", booking.ID, err)
	}

	s.logger.Info("Ticket generated",
		zap.String("ticket_id", ticket.ID),
		zap.String("booking_id", booking.ID))
	return ticket, nil
}

// qrPayload encodes the fields a gate scanner needs to validate entry
func qrPayload(ticketID string, booking models.Booking) string {
	return fmt.Sprintf("%s:%s:%s:%s", ticketID, booking.EntityType, booking.EntityID, booking.SeatID)
}

func defaultEntityName(entityType string) string {
	switch strings.ToUpper(entityType) {
	case models.EntityTypeMovie:
		return "Movie Screening"
	case models.EntityTypeConcert:
		return "Live Concert"
	case models.EntityTypeSports:
		return "Sports Match"
	case models.EntityTypeEvent:
		return "Special Event"
	case models.EntityTypeTheater:
		return "Theater Show"
	default:
		return "Booking"
	}
}
