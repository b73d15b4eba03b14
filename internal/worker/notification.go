package worker

import (
	"context"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/service"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes booking and ticket events and dispatches
// user notifications. It runs with its own consumer group so notification
// lag never backs up the producing services.
type NotificationWorker struct {
	consumer *broker.Consumer
	notifier service.Notifier
	logger   *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, notifier service.Notifier) *NotificationWorker {
	return &NotificationWorker{
		consumer: consumer,
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

// Start consumes events until the context is cancelled. It blocks, so run
// it on its own goroutine.
func (w *NotificationWorker) Start(ctx context.Context) error {
	handler := broker.NewEventHandler()

	handler.OnBookingConfirmed(func(ctx context.Context, event *models.BookingConfirmedEvent) error {
		w.notifier.BookingConfirmed(ctx, event)
		return nil
	})
	handler.OnTicketGenerated(func(ctx context.Context, event *models.TicketGeneratedEvent) error {
		w.notifier.TicketReady(ctx, event)
		return nil
	})
	handler.OnTicketFailed(func(ctx context.Context, event *models.TicketFailedEvent) error {
		w.notifier.TicketFailed(ctx, event)
		return nil
	})

	w.logger.Info("Notification worker started")
	return w.consumer.StartConsuming(ctx, handler.HandleMessage)
}

// Close shuts down the underlying consumer
func (w *NotificationWorker) Close() error {
	return w.consumer.Close()
}
