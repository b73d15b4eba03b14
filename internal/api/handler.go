package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/service"
	"booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	bookings    *service.BookingService
	payments    *service.PaymentService
	fulfillment *service.Fulfillment
}

// NewHandler creates a new HTTP handler
func NewHandler(bookings *service.BookingService, payments *service.PaymentService, fulfillment *service.Fulfillment) *Handler {
	return &Handler{
		bookings:    bookings,
		payments:    payments,
		fulfillment: fulfillment,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/bookings/hold", h.createHold)
		v1.POST("/bookings/confirm", h.confirmHold)
		v1.POST("/bookings", h.createBooking)
		v1.GET("/bookings/user/:id", h.getUserBookings)
		v1.GET("/bookings/entity/:type/:id", h.getEntityBookings)

		v1.POST("/payments/verify", h.verifyPayment)
		v1.GET("/payments/user/:id", h.getUserPayments)

		v1.GET("/tickets/status/:bookingId", h.getTicketStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type createHoldRequest struct {
	SeatIDs    []string `json:"seat_ids" binding:"required"`
	EntityType string   `json:"entity_type" binding:"required"`
	EntityID   string   `json:"entity_id" binding:"required"`
	UserID     string   `json:"user_id" binding:"required"`
	Amount     float64  `json:"amount"`
	Venue      string   `json:"venue"`
}

// createHold places short-lived reservations on the requested seats
func (h *Handler) createHold(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	bookings, err := h.bookings.CreateHold(c.Request.Context(),
		req.SeatIDs, req.EntityType, req.EntityID, req.UserID, req.Amount, req.Venue)
	if err != nil {
		h.bookingError(c, err, "Failed to create hold")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"bookings": bookings,
		"expires":  bookings[0].ReservationExpiry,
	})
}

type confirmHoldRequest struct {
	PaymentID  string   `json:"payment_id" binding:"required"`
	BookingIDs []string `json:"booking_ids" binding:"required"`
}

// confirmHold promotes active holds to confirmed bookings
func (h *Handler) confirmHold(c *gin.Context) {
	var req confirmHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.bookings.ConfirmHold(c.Request.Context(), req.PaymentID, req.BookingIDs); err != nil {
		h.bookingError(c, err, "Failed to confirm hold")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      models.BookingStatusConfirmed,
		"booking_ids": req.BookingIDs,
	})
}

type createBookingRequest struct {
	SeatIDs    []string `json:"seat_ids" binding:"required"`
	EntityType string   `json:"entity_type" binding:"required"`
	EntityID   string   `json:"entity_id" binding:"required"`
	UserID     string   `json:"user_id" binding:"required"`
	PaymentID  string   `json:"payment_id"`
	Amount     float64  `json:"amount"`
	Venue      string   `json:"venue"`
	Status     string   `json:"status"`
}

// createBooking records bookings directly, without the hold step
func (h *Handler) createBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	bookings, err := h.bookings.CreateDirectBooking(c.Request.Context(),
		req.SeatIDs, req.EntityType, req.EntityID, req.UserID, req.PaymentID,
		req.Amount, req.Venue, req.Status)
	if err != nil {
		h.bookingError(c, err, "Failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"bookings": bookings})
}

// getUserBookings lists all bookings of a user
func (h *Handler) getUserBookings(c *gin.Context) {
	bookings, err := h.bookings.GetUserBookings(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch bookings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// getEntityBookings lists all bookings for an entity
func (h *Handler) getEntityBookings(c *gin.Context) {
	bookings, err := h.bookings.GetEntityBookings(c.Request.Context(), c.Param("type"), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch bookings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

type verifyPaymentRequest struct {
	OrderID    string  `json:"order_id" binding:"required"`
	PaymentID  string  `json:"payment_id" binding:"required"`
	Signature  string  `json:"signature" binding:"required"`
	Amount     float64 `json:"amount"`
	Method     string  `json:"method"`
	EntityType string  `json:"entity_type" binding:"required"`
	EntityID   string  `json:"entity_id" binding:"required"`
	UserID     string  `json:"user_id" binding:"required"`
}

// verifyPayment validates a payment assertion and kicks off fulfillment.
// An invalid signature is a handled outcome (200 with valid=false), not an
// error status: the assertion was processed, it just failed the check.
func (h *Handler) verifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.payments.Verify(c.Request.Context(), &service.VerifyRequest{
		OrderID:    req.OrderID,
		PaymentID:  req.PaymentID,
		Signature:  req.Signature,
		Amount:     req.Amount,
		Method:     req.Method,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		UserID:     req.UserID,
	})
	if err != nil {
		h.bookingError(c, err, "Failed to verify payment")
		return
	}

	c.JSON(http.StatusOK, result)
}

// getUserPayments lists the payment records of a user
func (h *Handler) getUserPayments(c *gin.Context) {
	payments, err := h.payments.GetUserPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch payments",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// getTicketStatus reports fulfillment progress for a booking
func (h *Handler) getTicketStatus(c *gin.Context) {
	status := h.fulfillment.Status(c.Request.Context(), c.Param("bookingId"))
	c.JSON(http.StatusOK, status)
}

// bookingError maps service errors to HTTP statuses
func (h *Handler) bookingError(c *gin.Context, err error, msg string) {
	switch {
	case service.IsSeatConflict(err):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Seat already taken",
			"details": err.Error(),
		})
	case errors.Is(err, service.ErrEntityNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Entity not found",
			"details": err.Error(),
		})
	case errors.Is(err, service.ErrHoldNotActive):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Hold is no longer active",
			"details": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrNoSeats),
		errors.Is(err, service.ErrMissingUser),
		errors.Is(err, service.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   msg,
			"details": err.Error(),
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
