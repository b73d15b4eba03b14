package service

import (
	"context"
	"testing"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookingCache struct {
	user        map[string][]models.Booking
	entity      map[string][]models.Booking
	invalidated int
}

func newFakeBookingCache() *fakeBookingCache {
	return &fakeBookingCache{
		user:   make(map[string][]models.Booking),
		entity: make(map[string][]models.Booking),
	}
}

func (c *fakeBookingCache) GetUserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	if b, ok := c.user[userID]; ok {
		return b, nil
	}
	return nil, redisclient.ErrCacheMiss
}

func (c *fakeBookingCache) SetUserBookings(ctx context.Context, userID string, bookings []models.Booking, ttl time.Duration) error {
	c.user[userID] = bookings
	return nil
}

func (c *fakeBookingCache) GetEntityBookings(ctx context.Context, entityType, entityID string) ([]models.Booking, error) {
	if b, ok := c.entity[entityType+":"+entityID]; ok {
		return b, nil
	}
	return nil, redisclient.ErrCacheMiss
}

func (c *fakeBookingCache) SetEntityBookings(ctx context.Context, entityType, entityID string, bookings []models.Booking, ttl time.Duration) error {
	c.entity[entityType+":"+entityID] = bookings
	return nil
}

func (c *fakeBookingCache) InvalidateBookings(ctx context.Context, userID, entityType, entityID string) error {
	c.invalidated++
	delete(c.user, userID)
	delete(c.entity, entityType+":"+entityID)
	return nil
}

type fakeEvents struct {
	holdCreated     []*models.HoldCreatedEvent
	confirmed       []*models.BookingConfirmedEvent
	paymentVerified []*models.PaymentVerifiedEvent
	ticketGenerated []*models.TicketGeneratedEvent
	ticketFailed    []*models.TicketFailedEvent
}

func (e *fakeEvents) PublishHoldCreated(ctx context.Context, event *models.HoldCreatedEvent) error {
	e.holdCreated = append(e.holdCreated, event)
	return nil
}

func (e *fakeEvents) PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	e.confirmed = append(e.confirmed, event)
	return nil
}

func (e *fakeEvents) PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error {
	e.paymentVerified = append(e.paymentVerified, event)
	return nil
}

func (e *fakeEvents) PublishTicketGenerated(ctx context.Context, event *models.TicketGeneratedEvent) error {
	e.ticketGenerated = append(e.ticketGenerated, event)
	return nil
}

func (e *fakeEvents) PublishTicketFailed(ctx context.Context, event *models.TicketFailedEvent) error {
	e.ticketFailed = append(e.ticketFailed, event)
	return nil
}

func newTestBookingService(t *testing.T) (*BookingService, *store.Memory, *fakeBookingCache, *fakeEvents) {
	t.Helper()
	mem := store.NewMemory()
	cache := newFakeBookingCache()
	events := &fakeEvents{}
	svc := NewBookingService(mem, NewSeatLedger(mem), cache, events, 15*time.Minute, time.Hour)
	return svc, mem, cache, events
}

func TestCreateHoldReservesSeats(t *testing.T) {
	svc, mem, _, events := newTestBookingService(t)
	ctx := context.Background()

	bookings, err := svc.CreateHold(ctx, []string{"A1", "A2", "A3"}, "movie", "m-1", "u-1", 100.0, "Main Hall")
	require.NoError(t, err)
	require.Len(t, bookings, 3)

	for _, b := range bookings {
		assert.Equal(t, models.BookingStatusReserved, b.Status)
		assert.Equal(t, models.EntityTypeMovie, b.EntityType)
		assert.Equal(t, 33.33, b.Amount)
		require.NotNil(t, b.ReservationExpiry)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), *b.ReservationExpiry, 5*time.Second)

		stored, err := mem.GetBookingByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.SeatID, stored.SeatID)
	}

	require.Len(t, events.holdCreated, 1)
	assert.Len(t, events.holdCreated[0].BookingIDs, 3)
	assert.Equal(t, models.EventTypeHoldCreated, events.holdCreated[0].EventType)
}

func TestCreateHoldSeatConflict(t *testing.T) {
	svc, mem, _, _ := newTestBookingService(t)
	ctx := context.Background()

	_, err := svc.CreateHold(ctx, []string{"A1"}, "MOVIE", "m-1", "u-1", 50, "")
	require.NoError(t, err)

	_, err = svc.CreateHold(ctx, []string{"A2", "A1"}, "MOVIE", "m-1", "u-2", 100, "")
	require.Error(t, err)
	assert.True(t, IsSeatConflict(err))

	// the whole batch is rejected, A2 was not persisted
	all, err := mem.GetBookingsByEntity(ctx, "MOVIE", "m-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateHoldExpiredHoldDoesNotBlock(t *testing.T) {
	svc, mem, _, _ := newTestBookingService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	require.NoError(t, mem.CreateBookings(ctx, []*models.Booking{{
		ID:                "stale",
		SeatID:            "A1",
		EntityType:        models.EntityTypeMovie,
		EntityID:          "m-1",
		UserID:            "u-1",
		Status:            models.BookingStatusReserved,
		ReservationExpiry: &past,
	}}))

	bookings, err := svc.CreateHold(ctx, []string{"A1"}, "MOVIE", "m-1", "u-2", 50, "")
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestCreateHoldValidation(t *testing.T) {
	svc, _, _, _ := newTestBookingService(t)
	ctx := context.Background()

	_, err := svc.CreateHold(ctx, nil, "MOVIE", "m-1", "u-1", 50, "")
	assert.ErrorIs(t, err, ErrNoSeats)

	_, err = svc.CreateHold(ctx, []string{"A1"}, "MOVIE", "m-1", "u-1", -1, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateHold(ctx, []string{"A1"}, "MOVIE", "m-1", "", 50, "")
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestConfirmHoldPromotesBookings(t *testing.T) {
	svc, mem, _, events := newTestBookingService(t)
	ctx := context.Background()

	held, err := svc.CreateHold(ctx, []string{"B1", "B2"}, "CONCERT", "c-1", "u-1", 200, "")
	require.NoError(t, err)

	ids := []string{held[0].ID, held[1].ID}
	require.NoError(t, svc.ConfirmHold(ctx, "pay-1", ids))

	for _, id := range ids {
		b, err := mem.GetBookingByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, b.Status)
		assert.Equal(t, "pay-1", b.PaymentID)
		assert.Nil(t, b.ReservationExpiry)
	}

	require.Len(t, events.confirmed, 1)
	assert.Equal(t, "pay-1", events.confirmed[0].PaymentID)
	assert.Equal(t, "u-1", events.confirmed[0].UserID)
}

func TestConfirmHoldDoesNotResurrectSweptHold(t *testing.T) {
	svc, mem, _, _ := newTestBookingService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	require.NoError(t, mem.CreateBookings(ctx, []*models.Booking{{
		ID:                "b-1",
		SeatID:            "A1",
		EntityType:        models.EntityTypeMovie,
		EntityID:          "m-1",
		UserID:            "u-1",
		Status:            models.BookingStatusReserved,
		ReservationExpiry: &past,
	}}))

	expired, err := mem.ExpireHolds(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)

	err = svc.ConfirmHold(ctx, "pay-1", []string{"b-1"})
	assert.ErrorIs(t, err, ErrHoldNotActive)

	b, err := mem.GetBookingByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, b.Status)
	assert.Empty(t, b.PaymentID)
}

func TestCreateDirectBookingRequiresEntity(t *testing.T) {
	svc, mem, _, _ := newTestBookingService(t)
	ctx := context.Background()

	_, err := svc.CreateDirectBooking(ctx, []string{"A1"}, "MOVIE", "missing", "u-1", "pay-1", 50, "", "")
	assert.ErrorIs(t, err, ErrEntityNotFound)

	mem.AddEntity("MOVIE", "m-1")
	bookings, err := svc.CreateDirectBooking(ctx, []string{"A1"}, "movie", "m-1", "u-1", "pay-1", 50, "", "")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.BookingStatusPending, bookings[0].Status)
	assert.Nil(t, bookings[0].ReservationExpiry)
}

func TestGetUserBookingsReadThroughCache(t *testing.T) {
	svc, mem, cache, _ := newTestBookingService(t)
	ctx := context.Background()

	require.NoError(t, mem.CreateBookings(ctx, []*models.Booking{{
		ID: "b-1", SeatID: "A1", EntityType: models.EntityTypeMovie,
		EntityID: "m-1", UserID: "u-1", Status: models.BookingStatusConfirmed,
	}}))

	// first read misses the cache and populates it
	bookings, err := svc.GetUserBookings(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Contains(t, cache.user, "u-1")

	// second read is served from the cache even if the store changes
	require.NoError(t, mem.CreateBookings(ctx, []*models.Booking{{
		ID: "b-2", SeatID: "A2", EntityType: models.EntityTypeMovie,
		EntityID: "m-1", UserID: "u-1", Status: models.BookingStatusConfirmed,
	}}))
	bookings, err = svc.GetUserBookings(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestCreateHoldInvalidatesCaches(t *testing.T) {
	svc, _, cache, _ := newTestBookingService(t)
	ctx := context.Background()

	cache.user["u-1"] = []models.Booking{{ID: "stale"}}
	cache.entity["MOVIE:m-1"] = []models.Booking{{ID: "stale"}}

	_, err := svc.CreateHold(ctx, []string{"A1"}, "MOVIE", "m-1", "u-1", 50, "")
	require.NoError(t, err)

	assert.NotContains(t, cache.user, "u-1")
	assert.NotContains(t, cache.entity, "MOVIE:m-1")
}

func TestSplitAmount(t *testing.T) {
	assert.Equal(t, 33.33, splitAmount(100, 3))
	assert.Equal(t, 100.0, splitAmount(100, 1))
	assert.Equal(t, 2.5, splitAmount(10, 4))
	assert.Equal(t, 0.67, splitAmount(2, 3))
	assert.Equal(t, 0.0, splitAmount(0, 5))
}
