package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeResultCache struct {
	results map[string][]byte
}

func newFakeResultCache() *fakeResultCache {
	return &fakeResultCache{results: make(map[string][]byte)}
}

func (c *fakeResultCache) GetVerificationResult(ctx context.Context, externalPaymentID string, v interface{}) error {
	data, ok := c.results[externalPaymentID]
	if !ok {
		return redisclient.ErrCacheMiss
	}
	return json.Unmarshal(data, v)
}

func (c *fakeResultCache) SetVerificationResult(ctx context.Context, externalPaymentID string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.results[externalPaymentID] = data
	return nil
}

type fakeScheduler struct {
	scheduled []models.Booking
}

func (s *fakeScheduler) Schedule(booking models.Booking) {
	s.scheduled = append(s.scheduled, booking)
}

func signFor(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestPaymentService(t *testing.T, policy VerificationPolicy) (*PaymentService, *store.Memory, *fakeResultCache, *fakeScheduler) {
	t.Helper()
	mem := store.NewMemory()
	mem.AddEntity("MOVIE", "m-1")
	cache := newFakeResultCache()
	scheduler := &fakeScheduler{}
	bookings := NewBookingService(mem, NewSeatLedger(mem), nil, nil, 15*time.Minute, time.Hour)
	svc := NewPaymentService(mem, bookings, cache, &fakeEvents{}, scheduler, policy, testSecret, time.Hour)
	return svc, mem, cache, scheduler
}

func validRequest() *VerifyRequest {
	return &VerifyRequest{
		OrderID:    "ord-1",
		PaymentID:  "pay-1",
		Signature:  signFor("ord-1", "pay-1"),
		Amount:     120.50,
		Method:     "card",
		EntityType: "MOVIE",
		EntityID:   "m-1",
		UserID:     "u-1",
	}
}

func TestVerifyValidSignature(t *testing.T) {
	svc, mem, cache, scheduler := newTestPaymentService(t, VerificationPolicy{})
	ctx := context.Background()

	result, err := svc.Verify(ctx, validRequest())
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Equal(t, models.PaymentStatusSuccess, result.Status)
	assert.NotEmpty(t, result.BookingID)
	assert.Equal(t, "GENERATING", result.TicketStatus)

	payment, err := mem.GetPaymentByExternalID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
	assert.Equal(t, "u-1", payment.UserID)

	// no prior hold, so a confirmed booking was synthesized
	bookings, err := mem.GetBookingsByPaymentID(ctx, "pay-1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.BookingStatusConfirmed, bookings[0].Status)
	assert.True(t, strings.HasPrefix(bookings[0].SeatID, "AUTO-"))

	require.Len(t, scheduler.scheduled, 1)
	assert.Equal(t, result.BookingID, scheduler.scheduled[0].ID)

	assert.Contains(t, cache.results, "pay-1")
}

func TestVerifyInvalidSignature(t *testing.T) {
	svc, mem, _, scheduler := newTestPaymentService(t, VerificationPolicy{})
	ctx := context.Background()

	req := validRequest()
	req.Signature = "deadbeef"

	result, err := svc.Verify(ctx, req)
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, models.PaymentStatusFailed, result.Status)
	assert.Empty(t, result.BookingID)

	// the rejected attempt is still recorded
	payment, err := mem.GetPaymentByExternalID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	bookings, err := mem.GetBookingsByPaymentID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.Empty(t, scheduler.scheduled)
}

func TestVerifyTestModeBypassesSignature(t *testing.T) {
	svc, _, _, scheduler := newTestPaymentService(t, VerificationPolicy{TestMode: true})
	ctx := context.Background()

	req := validRequest()
	req.Signature = "not-a-real-signature"

	result, err := svc.Verify(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Len(t, scheduler.scheduled, 1)
}

func TestVerifyMissingFields(t *testing.T) {
	svc, mem, _, _ := newTestPaymentService(t, VerificationPolicy{})
	ctx := context.Background()

	req := validRequest()
	req.UserID = ""

	_, err := svc.Verify(ctx, req)
	assert.ErrorIs(t, err, ErrMissingFields)

	// validation failures persist nothing
	_, err = mem.GetPaymentByExternalID(ctx, "pay-1")
	assert.ErrorIs(t, err, store.ErrPaymentNotFound)
}

func TestVerifyIdempotentReplay(t *testing.T) {
	svc, mem, _, scheduler := newTestPaymentService(t, VerificationPolicy{})
	ctx := context.Background()

	first, err := svc.Verify(ctx, validRequest())
	require.NoError(t, err)

	second, err := svc.Verify(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// only the first call processed anything
	payments, err := mem.GetPaymentsByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.Len(t, scheduler.scheduled, 1)
}

func TestVerifyReusesExistingBooking(t *testing.T) {
	svc, mem, _, scheduler := newTestPaymentService(t, VerificationPolicy{})
	ctx := context.Background()

	require.NoError(t, mem.CreateBookings(ctx, []*models.Booking{{
		ID: "b-1", SeatID: "A1", EntityType: "MOVIE", EntityID: "m-1",
		UserID: "u-1", PaymentID: "pay-1", Status: models.BookingStatusConfirmed,
	}}))

	result, err := svc.Verify(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "b-1", result.BookingID)

	bookings, err := mem.GetBookingsByPaymentID(ctx, "pay-1")
	require.NoError(t, err)
	assert.Len(t, bookings, 1, "no AUTO booking should be synthesized")
	require.Len(t, scheduler.scheduled, 1)
	assert.Equal(t, "b-1", scheduler.scheduled[0].ID)
}

func TestVerifyThroughFulfillment(t *testing.T) {
	mem := store.NewMemory()
	mem.AddEntity("CONCERT", "c-9")
	statusCache := newFakeStatusCache()
	ff := NewFulfillment(mem, NewTicketService(mem, "http://localhost:8080"), statusCache, nil, 5*time.Minute)
	bookings := NewBookingService(mem, NewSeatLedger(mem), nil, nil, 15*time.Minute, time.Hour)
	svc := NewPaymentService(mem, bookings, newFakeResultCache(), nil, ff, VerificationPolicy{}, testSecret, time.Hour)

	ff.Start(context.Background())

	req := validRequest()
	req.EntityType = "CONCERT"
	req.EntityID = "c-9"
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Valid)

	ff.Stop()

	status := ff.Status(context.Background(), result.BookingID)
	assert.Equal(t, models.TicketStatusCompleted, status.Status)

	ticket, err := mem.GetTicketByBookingID(context.Background(), result.BookingID)
	require.NoError(t, err)
	assert.Equal(t, status.TicketID, ticket.ID)
	assert.Contains(t, ticket.QRPayload, ":CONCERT:c-9:AUTO-")
}

func TestGetUserPayments(t *testing.T) {
	svc, mem, _, _ := newTestPaymentService(t, VerificationPolicy{})
	ctx := context.Background()

	require.NoError(t, mem.CreatePayment(ctx, &models.Payment{
		ID: "p-1", ExternalPaymentID: "pay-1", UserID: "u-1",
		Status: models.PaymentStatusSuccess, CreatedAt: time.Now(),
	}))

	payments, err := svc.GetUserPayments(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	payments, err = svc.GetUserPayments(ctx, "u-2")
	require.NoError(t, err)
	assert.Empty(t, payments)
}
