package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HoldsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holds_created_total",
		Help: "Total number of seat holds created",
	})

	SeatConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seat_conflicts_total",
		Help: "Total number of hold requests rejected because a seat was taken",
	})

	HoldsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holds_confirmed_total",
		Help: "Total number of holds promoted to confirmed bookings",
	})

	HoldsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holds_expired_total",
		Help: "Total number of holds reclaimed by the expiry sweeper",
	})

	BookingsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	}, []string{"status"})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of failed booking requests",
	}, []string{"reason"})

	PaymentsVerifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Total number of payment verifications",
	}, []string{"result"})

	PaymentVerifyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_verify_latency_seconds",
		Help:    "Latency of payment verification",
		Buckets: prometheus.DefBuckets,
	})

	TicketsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_generated_total",
		Help: "Total number of tickets generated",
	})

	TicketsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_failed_total",
		Help: "Total number of ticket generation failures",
	})

	TicketGenerationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ticket_generation_latency_seconds",
		Help:    "Latency of asynchronous ticket generation",
		Buckets: prometheus.DefBuckets,
	})

	CacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_errors_total",
		Help: "Total number of cache errors degraded to the durable store",
	}, []string{"operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
