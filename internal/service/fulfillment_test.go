package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatusCache struct {
	mu       sync.Mutex
	statuses map[string]*models.TicketStatus
}

func newFakeStatusCache() *fakeStatusCache {
	return &fakeStatusCache{statuses: make(map[string]*models.TicketStatus)}
}

func (c *fakeStatusCache) GetTicketStatus(ctx context.Context, bookingID string) (*models.TicketStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[bookingID]
	if !ok {
		return nil, redisclient.ErrCacheMiss
	}
	clone := *s
	return &clone, nil
}

func (c *fakeStatusCache) SetTicketStatus(ctx context.Context, status *models.TicketStatus, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := *status
	c.statuses[status.BookingID] = &clone
	return nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, booking models.Booking) (*models.Ticket, error) {
	return nil, errors.New("pdf renderer unavailable")
}

func testBooking() models.Booking {
	return models.Booking{
		ID:         "b-1",
		SeatID:     "A1",
		EntityType: models.EntityTypeConcert,
		EntityID:   "c-1",
		UserID:     "u-1",
		Venue:      "Main Hall",
		Status:     models.BookingStatusConfirmed,
	}
}

func TestFulfillmentCompletesTicket(t *testing.T) {
	mem := store.NewMemory()
	cache := newFakeStatusCache()
	events := &fakeEvents{}
	ff := NewFulfillment(mem, NewTicketService(mem, "http://localhost:8080"), cache, events, 5*time.Minute)

	ff.Start(context.Background())
	ff.Schedule(testBooking())
	ff.Stop()

	status := ff.Status(context.Background(), "b-1")
	assert.Equal(t, models.TicketStatusCompleted, status.Status)
	assert.NotEmpty(t, status.TicketID)
	assert.NotEmpty(t, status.PDFURL)

	ticket, err := mem.GetTicketByBookingID(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, status.TicketID, ticket.ID)

	require.Len(t, events.ticketGenerated, 1)
	assert.Equal(t, "b-1", events.ticketGenerated[0].BookingID)
	assert.Equal(t, "u-1", events.ticketGenerated[0].UserID)
}

func TestFulfillmentReportsGeneratorFailure(t *testing.T) {
	mem := store.NewMemory()
	cache := newFakeStatusCache()
	events := &fakeEvents{}
	ff := NewFulfillment(mem, failingGenerator{}, cache, events, 5*time.Minute)

	ff.Start(context.Background())
	ff.Schedule(testBooking())
	ff.Stop()

	status := ff.Status(context.Background(), "b-1")
	assert.Equal(t, models.TicketStatusError, status.Status)
	assert.Contains(t, status.Message, "pdf renderer unavailable")

	_, err := mem.GetTicketByBookingID(context.Background(), "b-1")
	assert.ErrorIs(t, err, store.ErrTicketNotFound)

	require.Len(t, events.ticketFailed, 1)
	assert.Equal(t, "b-1", events.ticketFailed[0].BookingID)
}

func TestFulfillmentSchedulePendingBeforeWorkerRuns(t *testing.T) {
	mem := store.NewMemory()
	cache := newFakeStatusCache()
	ff := NewFulfillment(mem, NewTicketService(mem, "http://localhost:8080"), cache, nil, 5*time.Minute)

	// worker not started: the queued status must already be visible
	ff.Schedule(testBooking())

	status := ff.Status(context.Background(), "b-1")
	assert.Equal(t, models.TicketStatusPending, status.Status)
}

func TestFulfillmentStatusFallsBackToDurableTicket(t *testing.T) {
	mem := store.NewMemory()
	ff := NewFulfillment(mem, NewTicketService(mem, "http://localhost:8080"), newFakeStatusCache(), nil, 5*time.Minute)

	require.NoError(t, mem.CreateTicket(context.Background(), &models.Ticket{
		ID: "t-1", BookingID: "b-1", PDFPath: "http://localhost:8080/api/tickets/download/t-1",
		CreatedAt: time.Now(),
	}))

	// cache expired but the ticket row survives
	status := ff.Status(context.Background(), "b-1")
	assert.Equal(t, models.TicketStatusCompleted, status.Status)
	assert.Equal(t, "t-1", status.TicketID)
}

func TestFulfillmentStatusUnknown(t *testing.T) {
	mem := store.NewMemory()
	ff := NewFulfillment(mem, NewTicketService(mem, "http://localhost:8080"), newFakeStatusCache(), nil, 5*time.Minute)

	status := ff.Status(context.Background(), "nope")
	assert.Equal(t, models.TicketStatusUnknown, status.Status)
}

func TestTicketServiceGenerate(t *testing.T) {
	mem := store.NewMemory()
	svc := NewTicketService(mem, "http://localhost:8080/")

	ticket, err := svc.Generate(context.Background(), testBooking())
	require.NoError(t, err)

	assert.Equal(t, "b-1", ticket.BookingID)
	assert.Equal(t, "Main Hall", ticket.Venue)
	assert.Equal(t, ticket.ID+":CONCERT:c-1:A1", ticket.QRPayload)
	assert.Equal(t, "http://localhost:8080/api/tickets/download/"+ticket.ID, ticket.PDFPath)
	assert.True(t, strings.HasPrefix(ticket.PDFPath, "http://localhost:8080/api/"))

	stored, err := mem.GetTicketByBookingID(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, stored.ID)
}
