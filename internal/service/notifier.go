package service

import (
	"context"

	"booking-service/internal/models"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// Notifier delivers user-facing notifications. Delivery is best effort:
// a failed notification never fails the pipeline that triggered it.
type Notifier interface {
	BookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent)
	TicketReady(ctx context.Context, event *models.TicketGeneratedEvent)
	TicketFailed(ctx context.Context, event *models.TicketFailedEvent)
}

// LogNotifier writes notifications to the log. It stands in for a real
// email sender; the booking and fulfillment flows only see the Notifier
// interface so swapping in SMTP later is a wiring change.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

func (n *LogNotifier) BookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) {
	n.logger.Info("Notification: booking confirmed",
		zap.String("user_id", event.UserID),
		zap.Strings("booking_ids", event.BookingIDs))
}

func (n *LogNotifier) TicketReady(ctx context.Context, event *models.TicketGeneratedEvent) {
	n.logger.Info("Notification: ticket ready",
		zap.String("user_id", event.UserID),
		zap.String("booking_id", event.BookingID),
		zap.String("pdf_url", event.PDFURL))
}

func (n *LogNotifier) TicketFailed(ctx context.Context, event *models.TicketFailedEvent) {
	n.logger.Warn("Notification: ticket generation failed",
		zap.String("booking_id", event.BookingID),
		zap.String("reason", event.Reason))
}
