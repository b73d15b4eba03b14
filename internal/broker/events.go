package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"booking-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishHoldCreated publishes HoldCreated event
func (ep *EventPublisher) PublishHoldCreated(ctx context.Context, event *models.HoldCreatedEvent) error {
	key := fmt.Sprintf("entity-%s-%s", event.EntityType, event.EntityID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishBookingConfirmed publishes BookingConfirmed event
func (ep *EventPublisher) PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	key := fmt.Sprintf("payment-%s", event.PaymentID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishHoldExpired publishes HoldExpired event
func (ep *EventPublisher) PublishHoldExpired(ctx context.Context, event *models.HoldExpiredEvent) error {
	return ep.producer.PublishEvent(ctx, "sweeper", event)
}

// PublishPaymentVerified publishes PaymentVerified event
func (ep *EventPublisher) PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error {
	key := fmt.Sprintf("payment-%s", event.ExternalPaymentID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishTicketGenerated publishes TicketGenerated event
func (ep *EventPublisher) PublishTicketGenerated(ctx context.Context, event *models.TicketGeneratedEvent) error {
	key := fmt.Sprintf("booking-%s", event.BookingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishTicketFailed publishes TicketFailed event
func (ep *EventPublisher) PublishTicketFailed(ctx context.Context, event *models.TicketFailedEvent) error {
	key := fmt.Sprintf("booking-%s", event.BookingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed events to registered callbacks
type EventHandler struct {
	onBookingConfirmed func(context.Context, *models.BookingConfirmedEvent) error
	onTicketGenerated  func(context.Context, *models.TicketGeneratedEvent) error
	onTicketFailed     func(context.Context, *models.TicketFailedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnBookingConfirmed registers a handler for BookingConfirmed events
func (eh *EventHandler) OnBookingConfirmed(handler func(context.Context, *models.BookingConfirmedEvent) error) {
	eh.onBookingConfirmed = handler
}

// OnTicketGenerated registers a handler for TicketGenerated events
func (eh *EventHandler) OnTicketGenerated(handler func(context.Context, *models.TicketGeneratedEvent) error) {
	eh.onTicketGenerated = handler
}

// OnTicketFailed registers a handler for TicketFailed events
func (eh *EventHandler) OnTicketFailed(handler func(context.Context, *models.TicketFailedEvent) error) {
	eh.onTicketFailed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeBookingConfirmed:
		if eh.onBookingConfirmed != nil {
			var event models.BookingConfirmedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingConfirmed event: %w", err)
			}
			return eh.onBookingConfirmed(ctx, &event)
		}

	case models.EventTypeTicketGenerated:
		if eh.onTicketGenerated != nil {
			var event models.TicketGeneratedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TicketGenerated event: %w", err)
			}
			return eh.onTicketGenerated(ctx, &event)
		}

	case models.EventTypeTicketFailed:
		if eh.onTicketFailed != nil {
			var event models.TicketFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TicketFailed event: %w", err)
			}
			return eh.onTicketFailed(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
