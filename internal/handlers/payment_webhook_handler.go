package handlers

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rotasul/transport-backend/internal/database"
	"github.com/rotasul/transport-backend/internal/models"
	"github.com/rotasul/transport-backend/internal/services"
	"github.com/sirupsen/logrus"
)

const webhookSecretHeader = "X-Webhook-Secret"

// PaymentWebhookHandler receives payment confirmations from external gateways
type PaymentWebhookHandler struct {
	paymentService *services.PaymentService
	secret         string
	logger         *logrus.Logger
}

// NewPaymentWebhookHandler creates a new PaymentWebhookHandler
func NewPaymentWebhookHandler(paymentService *services.PaymentService, secret string, logger *logrus.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		paymentService: paymentService,
		secret:         secret,
		logger:         logger,
	}
}

// Handle processes POST /api/v1/webhooks/payment
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	provided := c.GetHeader(webhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		h.logger.WithField("remote_addr", c.ClientIP()).Warn("Payment webhook rejected: invalid secret")
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid webhook secret"})
		return
	}

	var req models.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payload: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	result, err := h.paymentService.ConfirmFromWebhook(&req)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Reservation not found"})
		case errors.Is(err, database.ErrInvalidTransition), errors.Is(err, database.ErrAlreadyCancelled):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "message": "Reservation cannot accept payment in its current status"})
		default:
			h.logger.WithError(err).Error("Payment webhook processing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to process payment"})
		}
		return
	}

	if result.Duplicate {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment already processed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Payment confirmed for ticket %s", result.Reservation.TicketCode),
	})
}
