package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rotasul/transport-backend/internal/database"
	"github.com/rotasul/transport-backend/internal/middleware"
	"github.com/rotasul/transport-backend/internal/models"
	"github.com/rotasul/transport-backend/internal/services"
)

// ReservationHandler serves the booking/checkout surface
type ReservationHandler struct {
	reservationService *services.ReservationService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservationService *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// respondDomainError maps storage-layer sentinel errors to HTTP responses
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrSeatConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "seat_conflict", "message": "Seat is already reserved for this trip"})
	case errors.Is(err, database.ErrNoSeatsAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": "no_seats_available", "message": "No seats available on this trip"})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Record not found"})
	case errors.Is(err, database.ErrAlreadyCancelled):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "already_cancelled", "message": "Reservation is already cancelled"})
	case errors.Is(err, database.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_transition", "message": "State change not allowed from current status"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Something went wrong"})
	}
}

// Create handles POST /api/v1/reservations
func (h *ReservationHandler) Create(c *gin.Context) {
	tenant, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	reservation, err := h.reservationService.Create(tenant.TenantID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

// Cancel handles POST /api/v1/reservations/:id/cancel
func (h *ReservationHandler) Cancel(c *gin.Context) {
	h.transition(c, h.reservationService.Cancel)
}

// CheckIn handles POST /api/v1/reservations/:id/check-in
func (h *ReservationHandler) CheckIn(c *gin.Context) {
	h.transition(c, h.reservationService.CheckIn)
}

// MarkNoShow handles POST /api/v1/reservations/:id/no-show
func (h *ReservationHandler) MarkNoShow(c *gin.Context) {
	h.transition(c, h.reservationService.MarkNoShow)
}

func (h *ReservationHandler) transition(c *gin.Context, op func(tenantID, id uuid.UUID) (*models.Reservation, error)) {
	tenant, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "id must be a valid UUID"})
		return
	}

	reservation, err := op(tenant.TenantID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// ConfirmPayment handles POST /api/v1/reservations/:id/payment
func (h *ReservationHandler) ConfirmPayment(c *gin.Context) {
	tenant, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "id must be a valid UUID"})
		return
	}

	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	reservation, err := h.reservationService.ConfirmPayment(tenant.TenantID, id, req.Amount, req.PaymentMethod)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// GetByTicketCode handles GET /api/v1/tickets/:code
func (h *ReservationHandler) GetByTicketCode(c *gin.Context) {
	tenant, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "ticket code is required"})
		return
	}

	reservation, err := h.reservationService.GetByTicketCode(tenant.TenantID, code)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}
