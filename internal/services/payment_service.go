package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotasul/transport-backend/internal/database"
	"github.com/rotasul/transport-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentService handles payment confirmations delivered by the payment
// gateway webhook.
type PaymentService struct {
	reservationRepo *database.ReservationRepository
	logger          *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(reservationRepo *database.ReservationRepository, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		reservationRepo: reservationRepo,
		logger:          logger,
	}
}

// WebhookResult reports the outcome of a webhook delivery
type WebhookResult struct {
	Reservation *models.Reservation
	Duplicate   bool
}

// ConfirmFromWebhook resolves the target reservation (by id, falling back to
// the gateway's transaction id) and atomically accumulates the payment,
// confirms the reservation and appends the income ledger entry. A replayed
// delivery with an already-recorded transaction id is answered as a
// duplicate, not an error.
func (s *PaymentService) ConfirmFromWebhook(req *models.PaymentWebhookRequest) (*WebhookResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var reservationID *uuid.UUID
	if req.ReservationID != nil {
		id, err := uuid.Parse(*req.ReservationID)
		if err == nil {
			reservationID = &id
		}
	}

	reservation, err := s.reservationRepo.FindForPayment(reservationID, req.TransactionID)
	if err != nil {
		return nil, err
	}

	entryDate := time.Now()
	if req.PaymentDate != nil {
		if parsed, err := time.Parse("2006-01-02", *req.PaymentDate); err == nil {
			entryDate = parsed
		}
	}

	updated, err := s.reservationRepo.ConfirmPaymentWithLedger(
		reservation.TenantID, reservation.ID,
		*req.Amount, *req.PaymentMethod,
		req.TransactionID, entryDate,
	)
	if errors.Is(err, database.ErrDuplicatePayment) {
		s.logger.WithFields(logrus.Fields{
			"tenant_id":      reservation.TenantID,
			"reservation_id": reservation.ID,
			"transaction_id": req.TransactionID,
		}).Warn("Duplicate webhook delivery ignored")
		return &WebhookResult{Reservation: reservation, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id":      updated.TenantID,
		"reservation_id": updated.ID,
		"ticket_code":    updated.TicketCode,
		"amount":         *req.Amount,
		"amount_paid":    updated.AmountPaid,
	}).Info("Webhook payment confirmed")

	return &WebhookResult{Reservation: updated}, nil
}
