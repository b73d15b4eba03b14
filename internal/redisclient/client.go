package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned when a key is absent. Callers fall back to the
// durable store without logging it as a failure.
var ErrCacheMiss = errors.New("cache miss")

const (
	userBookingsPrefix   = "userBookings:"
	entityBookingsPrefix = "entityBookings:"
	paymentResultPrefix  = "payment:"
	ticketStatusPrefix   = "ticketStatus:"
)

type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

func (c *Client) getJSON(ctx context.Context, key string, v interface{}) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// GetUserBookings reads the cached booking list for a user
func (c *Client) GetUserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := c.getJSON(ctx, userBookingsPrefix+userID, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// SetUserBookings caches the booking list for a user
func (c *Client) SetUserBookings(ctx context.Context, userID string, bookings []models.Booking, ttl time.Duration) error {
	return c.setJSON(ctx, userBookingsPrefix+userID, bookings, ttl)
}

// GetEntityBookings reads the cached booking list for a catalog entity
func (c *Client) GetEntityBookings(ctx context.Context, entityType, entityID string) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := c.getJSON(ctx, entityBookingsKey(entityType, entityID), &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// SetEntityBookings caches the booking list for a catalog entity
func (c *Client) SetEntityBookings(ctx context.Context, entityType, entityID string, bookings []models.Booking, ttl time.Duration) error {
	return c.setJSON(ctx, entityBookingsKey(entityType, entityID), bookings, ttl)
}

// InvalidateBookings drops the cached lists touched by a mutation
func (c *Client) InvalidateBookings(ctx context.Context, userID, entityType, entityID string) error {
	keys := []string{entityBookingsKey(entityType, entityID)}
	if userID != "" {
		keys = append(keys, userBookingsPrefix+userID)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func entityBookingsKey(entityType, entityID string) string {
	return entityBookingsPrefix + entityType + ":" + entityID
}

// GetVerificationResult reads a cached payment verification result
func (c *Client) GetVerificationResult(ctx context.Context, externalPaymentID string, v interface{}) error {
	return c.getJSON(ctx, paymentResultPrefix+externalPaymentID, v)
}

// SetVerificationResult caches a payment verification result
func (c *Client) SetVerificationResult(ctx context.Context, externalPaymentID string, v interface{}, ttl time.Duration) error {
	return c.setJSON(ctx, paymentResultPrefix+externalPaymentID, v, ttl)
}

// GetTicketStatus reads the fulfillment status record for a booking
func (c *Client) GetTicketStatus(ctx context.Context, bookingID string) (*models.TicketStatus, error) {
	var status models.TicketStatus
	if err := c.getJSON(ctx, ticketStatusPrefix+bookingID, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetTicketStatus overwrites the fulfillment status record for a booking
func (c *Client) SetTicketStatus(ctx context.Context, status *models.TicketStatus, ttl time.Duration) error {
	return c.setJSON(ctx, ticketStatusPrefix+status.BookingID, status, ttl)
}
