package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"booking-engine/internal/models"
	"booking-engine/internal/service"
	"booking-engine/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const dateLayout = "2006-01-02"

// Handler contains HTTP handlers
type Handler struct {
	stateMachine  *service.ReservationStateMachine
	orchestrator  *service.PaymentOrchestrator
	ledger        *service.RewardLedger
	catalog       *service.PropertyCatalog
	availability  *service.AvailabilityIndex
	webhookSecret string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	stateMachine *service.ReservationStateMachine,
	orchestrator *service.PaymentOrchestrator,
	ledger *service.RewardLedger,
	catalog *service.PropertyCatalog,
	availability *service.AvailabilityIndex,
	webhookSecret string,
) *Handler {
	return &Handler{
		stateMachine:  stateMachine,
		orchestrator:  orchestrator,
		ledger:        ledger,
		catalog:       catalog,
		availability:  availability,
		webhookSecret: webhookSecret,
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
		v1.POST("/reservations", h.createReservation)
		v1.GET("/reservations/:id", h.getReservation)
		v1.POST("/reservations/:id/cancel", h.cancelReservation)
		v1.POST("/reservations/:id/approve", h.approveReservation)
		v1.POST("/reservations/:id/reject", h.rejectReservation)
		v1.GET("/guests/:guestId/reservations", h.listGuestReservations)
		v1.GET("/properties/:id/availability", h.propertyAvailability)
		v1.POST("/webhooks/payment", h.paymentWebhook)
		v1.GET("/rewards/:userId/balance", h.rewardBalance)
		v1.GET("/rewards/:userId/transactions", h.rewardTransactions)
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

type createReservationRequest struct {
	PropertyID    int64  `json:"property_id" binding:"required"`
	GuestID       int64  `json:"guest_id" binding:"required"`
	StartDate     string `json:"start_date" binding:"required"`
	EndDate       string `json:"end_date" binding:"required"`
	GuestCount    int    `json:"guest_count" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// createReservation handles booking creation
func (h *Handler) createReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	startDate, err := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid start_date, expected YYYY-MM-DD",
			"code":  "INVALID_DATE",
		})
		return
	}
	endDate, err := time.ParseInLocation(dateLayout, req.EndDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid end_date, expected YYYY-MM-DD",
			"code":  "INVALID_DATE",
		})
		return
	}

	capacity, err := h.catalog.Capacity(c.Request.Context(), req.PropertyID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if req.GuestCount > capacity {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Guest count exceeds property capacity",
			"code":  "CAPACITY_EXCEEDED",
		})
		return
	}

	reservation, err := h.stateMachine.CreateReservation(c.Request.Context(), &service.CreateReservationInput{
		PropertyID:    req.PropertyID,
		GuestID:       req.GuestID,
		StartDate:     startDate,
		EndDate:       endDate,
		GuestCount:    req.GuestCount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

// getReservation handles get reservation by ID
func (h *Handler) getReservation(c *gin.Context) {
	reservation, err := h.stateMachine.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// listGuestReservations returns a guest's reservations, newest first
func (h *Handler) listGuestReservations(c *gin.Context) {
	guestID, err := strconv.ParseInt(c.Param("guestId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid guest ID"})
		return
	}

	reservations, err := h.stateMachine.ListGuestReservations(c.Request.Context(), guestID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"guest_id":     guestID,
		"reservations": reservations,
	})
}

// propertyAvailability returns the ranges currently blocking a
// property's calendar, unexpired holds included
func (h *Handler) propertyAvailability(c *gin.Context) {
	propertyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID"})
		return
	}

	slots, err := h.availability.Occupying(c.Request.Context(), propertyID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"property_id": propertyID,
		"occupied":    slots,
	})
}

type cancelRequest struct {
	Actor string `json:"actor"`
}

// cancelReservation handles guest or host cancellation
func (h *Handler) cancelReservation(c *gin.Context) {
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)
	if req.Actor == "" {
		req.Actor = "guest"
	}

	decision, err := h.stateMachine.Cancel(c.Request.Context(), c.Param("id"), req.Actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        models.StatusCancelled,
		"refundable":    decision.Refundable,
		"refund_amount": decision.RefundAmount,
	})
}

// approveReservation handles host approval of a cash booking
func (h *Handler) approveReservation(c *gin.Context) {
	if err := h.stateMachine.Approve(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusConfirmed})
}

// rejectReservation handles host rejection of a cash booking
func (h *Handler) rejectReservation(c *gin.Context) {
	if err := h.stateMachine.Reject(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusCancelled})
}

// paymentWebhook receives gateway callbacks. The body is verified
// against the shared secret before anything is parsed from it.
func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if !h.verifySignature(body, c.GetHeader("X-Gateway-Signature")) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid signature",
			"code":  "INVALID_SIGNATURE",
		})
		return
	}

	var event models.GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid event payload",
			"code":  "INVALID_REQUEST",
		})
		return
	}
	if event.EventID == "" || event.IntentRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing event_id or intent_ref",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	if err := h.orchestrator.HandleGatewayEvent(c.Request.Context(), &event); err != nil {
		// A 5xx tells the gateway to redeliver; the dedup layers make
		// the retry safe.
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// rewardBalance returns a user's points balance
func (h *Handler) rewardBalance(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"balance": balance,
	})
}

// rewardTransactions returns a user's ledger entries
func (h *Handler) rewardTransactions(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	transactions, err := h.ledger.Transactions(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"transactions": transactions,
	})
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// writeError maps domain errors to HTTP responses with stable codes
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrSlotUnavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Requested dates are not available",
			"code":  "SLOT_UNAVAILABLE",
		})
	case errors.Is(err, models.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid date range",
			"code":  "INVALID_RANGE",
		})
	case errors.Is(err, models.ErrInvalidGuestCount):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Guest count must be at least 1",
			"code":  "INVALID_GUEST_COUNT",
		})
	case errors.Is(err, models.ErrInvalidPaymentMethod):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Payment method must be ONLINE or CASH_ON_ARRIVAL",
			"code":  "INVALID_PAYMENT_METHOD",
		})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Reservation is not in a state that allows this operation",
			"code":    "INVALID_TRANSITION",
			"details": err.Error(),
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Not found",
			"code":  "NOT_FOUND",
		})
	case errors.Is(err, models.ErrPaymentGateway):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Payment gateway unavailable",
			"code":  "GATEWAY_ERROR",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
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
