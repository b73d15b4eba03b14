package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// StatusCache stores ephemeral fulfillment progress per booking
type StatusCache interface {
	GetTicketStatus(ctx context.Context, bookingID string) (*models.TicketStatus, error)
	SetTicketStatus(ctx context.Context, status *models.TicketStatus, ttl time.Duration) error
}

// FulfillmentEvents is the event publisher subset used by fulfillment
type FulfillmentEvents interface {
	PublishTicketGenerated(ctx context.Context, event *models.TicketGeneratedEvent) error
	PublishTicketFailed(ctx context.Context, event *models.TicketFailedEvent) error
}

// Fulfillment turns paid bookings into tickets asynchronously. Jobs are
// queued on Schedule and drained by a background worker; progress is
// reported through the status cache so clients can poll while the PDF is
// being produced.
type Fulfillment struct {
	store     store.Store
	generator TicketGenerator
	cache     StatusCache
	events    FulfillmentEvents
	statusTTL time.Duration
	logger    *zap.Logger

	jobs     chan models.Booking
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewFulfillment creates a new fulfillment orchestrator. cache and events
// may be nil (status polling falls back to durable tickets only).
func NewFulfillment(st store.Store, generator TicketGenerator, cache StatusCache, events FulfillmentEvents, statusTTL time.Duration) *Fulfillment {
	return &Fulfillment{
		store:     st,
		generator: generator,
		cache:     cache,
		events:    events,
		statusTTL: statusTTL,
		logger:    util.GetLogger(),
		jobs:      make(chan models.Booking, 100),
	}
}

// Start launches the background worker. It returns immediately; the worker
// runs until Stop is called or ctx is cancelled.
func (f *Fulfillment) Start(ctx context.Context) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.logger.Info("Fulfillment worker started")
		for {
			select {
			case booking, ok := <-f.jobs:
				if !ok {
					f.logger.Info("Fulfillment worker stopped")
					return
				}
				f.process(ctx, booking)
			case <-ctx.Done():
				f.logger.Info("Fulfillment worker stopping, context cancelled")
				return
			}
		}
	}()
}

// Stop closes the queue and waits for the in-flight job to finish
func (f *Fulfillment) Stop() {
	f.stopOnce.Do(func() {
		close(f.jobs)
	})
	f.wg.Wait()
}

// Schedule enqueues a booking for ticket generation and records PENDING
// status so polling clients see progress before the worker picks it up.
// A full queue is reported as a fulfillment error, not a blocked request.
func (f *Fulfillment) Schedule(booking models.Booking) {
	f.setStatus(context.Background(), &models.TicketStatus{
		BookingID: booking.ID,
		Status:    models.TicketStatusPending,
		Message:   "Ticket generation queued",
		Timestamp: time.Now().Unix(),
	})

	select {
	case f.jobs <- booking:
	default:
		f.logger.Error("Fulfillment queue full, dropping job",
			zap.String("booking_id", booking.ID))
		util.TicketsFailedTotal.Inc()
		f.setStatus(context.Background(), &models.TicketStatus{
			BookingID: booking.ID,
			Status:    models.TicketStatusError,
			Message:   "Ticket generation could not be queued",
			Timestamp: time.Now().Unix(),
		})
	}
}

// Status reports fulfillment progress for a booking. The cache entry wins
// while it lives; after it expires a durable ticket row means COMPLETED,
// and with neither the outcome is UNKNOWN.
func (f *Fulfillment) Status(ctx context.Context, bookingID string) *models.TicketStatus {
	if f.cache != nil {
		if status, err := f.cache.GetTicketStatus(ctx, bookingID); err == nil {
			return status
		}
	}

	ticket, err := f.store.GetTicketByBookingID(ctx, bookingID)
	if err == nil {
		return &models.TicketStatus{
			BookingID: bookingID,
			Status:    models.TicketStatusCompleted,
			TicketID:  ticket.ID,
			PDFURL:    ticket.PDFPath,
			Timestamp: ticket.CreatedAt.Unix(),
		}
	}
	if !errors.Is(err, store.ErrTicketNotFound) {
		f.logger.Warn("Ticket lookup failed during status check",
			zap.String("booking_id", bookingID), zap.Error(err))
	}

	return &models.TicketStatus{
		BookingID: bookingID,
		Status:    models.TicketStatusUnknown,
		Message:   "No fulfillment record found for this booking",
		Timestamp: time.Now().Unix(),
	}
}

func (f *Fulfillment) process(ctx context.Context, booking models.Booking) {
	f.setStatus(ctx, &models.TicketStatus{
		BookingID: booking.ID,
		Status:    models.TicketStatusProcessing,
		Message:   "Generating ticket",
		Timestamp: time.Now().Unix(),
	})

	ticket, err := f.generator.Generate(ctx, booking)
	if err != nil {
		f.logger.Error("Ticket generation failed",
			zap.String("booking_id", booking.ID), zap.Error(err))
		util.TicketsFailedTotal.Inc()
		f.setStatus(ctx, &models.TicketStatus{
			BookingID: booking.ID,
			Status:    models.TicketStatusError,
			Message:   err.Error(),
			Timestamp: time.Now().Unix(),
		})
		if f.events != nil {
			event := &models.TicketFailedEvent{
				BaseEvent: newBaseEvent(models.EventTypeTicketFailed),
				BookingID: booking.ID,
				Reason:    err.Error(),
			}
			if perr := f.events.PublishTicketFailed(ctx, event); perr != nil {
				f.logger.Error("Failed to publish TicketFailed event", zap.Error(perr))
			}
		}
		return
	}

	util.TicketsGeneratedTotal.Inc()
	f.setStatus(ctx, &models.TicketStatus{
		BookingID: booking.ID,
		Status:    models.TicketStatusCompleted,
		Message:   "Ticket ready",
		TicketID:  ticket.ID,
		PDFURL:    ticket.PDFPath,
		Timestamp: time.Now().Unix(),
	})

	if f.events != nil {
		event := &models.TicketGeneratedEvent{
			BaseEvent: newBaseEvent(models.EventTypeTicketGenerated),
			BookingID: booking.ID,
			TicketID:  ticket.ID,
			UserID:    booking.UserID,
			PDFURL:    ticket.PDFPath,
		}
		if err := f.events.PublishTicketGenerated(ctx, event); err != nil {
			f.logger.Error("Failed to publish TicketGenerated event", zap.Error(err))
		}
	}
}

func (f *Fulfillment) setStatus(ctx context.Context, status *models.TicketStatus) {
	if f.cache == nil {
		return
	}
	if err := f.cache.SetTicketStatus(ctx, status, f.statusTTL); err != nil {
		util.CacheErrorsTotal.WithLabelValues("set_ticket_status").Inc()
		f.logger.Warn("Failed to write ticket status",
			zap.String("booking_id", status.BookingID), zap.Error(err))
	}
}
