package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"booking-service/internal/models"
)

// Memory is an in-process Store used by tests and by local runs without a
// database. All methods are safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	bookings map[string]*models.Booking
	payments map[string]*models.Payment
	tickets  map[string]*models.Ticket // keyed by ticket id
	entities map[string]bool           // "TYPE:id" -> exists
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		bookings: make(map[string]*models.Booking),
		payments: make(map[string]*models.Payment),
		tickets:  make(map[string]*models.Ticket),
		entities: make(map[string]bool),
	}
}

// AddEntity registers a catalog entity so EntityExists reports it
func (s *Memory) AddEntity(entityType, entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[strings.ToUpper(entityType)+":"+entityID] = true
}

func (s *Memory) CreateBookings(ctx context.Context, bookings []*models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bookings {
		clone := *b
		s.bookings[b.ID] = &clone
	}
	return nil
}

func (s *Memory) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	clone := *b
	return &clone, nil
}

func (s *Memory) GetBookingsByEntity(ctx context.Context, entityType, entityID string) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if strings.EqualFold(b.EntityType, entityType) && b.EntityID == entityID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *Memory) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingTime.After(out[j].BookingTime) })
	return out, nil
}

func (s *Memory) GetBookingsByPaymentID(ctx context.Context, paymentID string) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.PaymentID == paymentID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *Memory) ConfirmBooking(ctx context.Context, bookingID, paymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return false, ErrBookingNotFound
	}
	if b.Status != models.BookingStatusReserved {
		return false, nil
	}
	b.Status = models.BookingStatusConfirmed
	b.PaymentID = paymentID
	b.ReservationExpiry = nil
	return true, nil
}

func (s *Memory) ExpireHolds(ctx context.Context, now time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []models.Booking
	for _, b := range s.bookings {
		if b.Status == models.BookingStatusReserved &&
			b.ReservationExpiry != nil && b.ReservationExpiry.Before(now) {
			b.Status = models.BookingStatusCancelled
			b.ReservationExpiry = nil
			expired = append(expired, *b)
		}
	}
	return expired, nil
}

func (s *Memory) CreatePayment(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *payment
	s.payments[payment.ID] = &clone
	return nil
}

func (s *Memory) GetPaymentByExternalID(ctx context.Context, externalPaymentID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Payment
	for _, p := range s.payments {
		if p.ExternalPaymentID == externalPaymentID {
			if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, ErrPaymentNotFound
	}
	clone := *latest
	return &clone, nil
}

func (s *Memory) GetPaymentsByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *ticket
	s.tickets[ticket.ID] = &clone
	return nil
}

func (s *Memory) GetTicketByBookingID(ctx context.Context, bookingID string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Ticket
	for _, t := range s.tickets {
		if t.BookingID == bookingID {
			if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
				latest = t
			}
		}
	}
	if latest == nil {
		return nil, ErrTicketNotFound
	}
	clone := *latest
	return &clone, nil
}

func (s *Memory) EntityExists(ctx context.Context, entityType, entityID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entities[strings.ToUpper(entityType)+":"+entityID], nil
}

func (s *Memory) Close() error { return nil }
