package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus represents the status of a reservation
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCheckedIn ReservationStatus = "checked_in"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusNoShow    ReservationStatus = "no_show"
)

// legacyReservationStatuses maps historical Portuguese spellings to the
// canonical set, same migration-on-touch contract as trip statuses.
var legacyReservationStatuses = map[string]ReservationStatus{
	"PENDENTE":       ReservationStatusPending,
	"CONFIRMADA":     ReservationStatusConfirmed,
	"EMBARCADO":      ReservationStatusCheckedIn,
	"CONCLUIDA":      ReservationStatusCompleted,
	"CANCELADA":      ReservationStatusCancelled,
	"NAO_COMPARECEU": ReservationStatusNoShow,
}

// NormalizeReservationStatus maps a raw stored status to the canonical set
func NormalizeReservationStatus(raw string) ReservationStatus {
	if s, ok := legacyReservationStatuses[raw]; ok {
		return s
	}
	return ReservationStatus(raw)
}

// LegacyReservationStatusSpellings returns the raw spellings matching a
// canonical status for guard SQL IN lists
func LegacyReservationStatusSpellings(status ReservationStatus) []string {
	spellings := []string{string(status)}
	for raw, canonical := range legacyReservationStatuses {
		if canonical == status {
			spellings = append(spellings, raw)
		}
	}
	return spellings
}

// ActiveReservationSpellings returns every spelling that counts as an active
// (non-cancelled) reservation for seat-exclusivity checks
func ActiveReservationSpellings() []string {
	var spellings []string
	for _, s := range []ReservationStatus{
		ReservationStatusPending,
		ReservationStatusConfirmed,
		ReservationStatusCheckedIn,
		ReservationStatusCompleted,
		ReservationStatusNoShow,
	} {
		spellings = append(spellings, LegacyReservationStatusSpellings(s)...)
	}
	return spellings
}

// Reservation represents a passenger's claim on a trip
type Reservation struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	TenantID          uuid.UUID         `json:"tenant_id" db:"tenant_id"`
	TripID            uuid.UUID         `json:"trip_id" db:"trip_id"`
	SeatID            *uuid.UUID        `json:"seat_id,omitempty" db:"seat_id"`
	PassengerName     string            `json:"passenger_name" db:"passenger_name"`
	PassengerDocument *string           `json:"passenger_document,omitempty" db:"passenger_document"`
	PassengerPhone    *string           `json:"passenger_phone,omitempty" db:"passenger_phone"`
	PassengerEmail    *string           `json:"passenger_email,omitempty" db:"passenger_email"`
	Status            ReservationStatus `json:"status" db:"status"`
	TicketCode        string            `json:"ticket_code" db:"ticket_code"`
	Price             float64           `json:"price" db:"price"`
	AmountPaid        float64           `json:"amount_paid" db:"amount_paid"`
	PaymentMethod     *string           `json:"payment_method,omitempty" db:"payment_method"`
	ExternalPaymentID *string           `json:"external_payment_id,omitempty" db:"external_payment_id"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`

	// ExpiresAt is derived from the tenant's expiration window at booking
	// time, never stored
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"-"`
}

// CanCancel checks if the reservation can be cancelled
func (r *Reservation) CanCancel() bool {
	return r.Status == ReservationStatusPending || r.Status == ReservationStatusConfirmed
}

// CanConfirmPayment checks if payment can be recorded against the reservation
func (r *Reservation) CanConfirmPayment() bool {
	return r.Status == ReservationStatusPending || r.Status == ReservationStatusConfirmed
}

// CanCheckIn checks if the passenger can be checked in
func (r *Reservation) CanCheckIn() bool {
	return r.Status == ReservationStatusConfirmed
}

// IsTerminal checks if the reservation is in a terminal state
func (r *Reservation) IsTerminal() bool {
	switch r.Status {
	case ReservationStatusCancelled, ReservationStatusCompleted, ReservationStatusNoShow:
		return true
	}
	return false
}

// CreateReservationRequest represents the booking request body
type CreateReservationRequest struct {
	TripID            string  `json:"trip_id" binding:"required"`
	SeatID            *string `json:"seat_id,omitempty"`
	SeatNumber        *string `json:"seat_number,omitempty"`
	PassengerName     string  `json:"passenger_name" binding:"required"`
	PassengerDocument *string `json:"passenger_document,omitempty"`
	PassengerPhone    *string `json:"passenger_phone,omitempty"`
	PassengerEmail    *string `json:"passenger_email,omitempty"`
	Price             float64 `json:"price" binding:"required"`
}

// Validate validates the create reservation request
func (r *CreateReservationRequest) Validate() error {
	if _, err := uuid.Parse(r.TripID); err != nil {
		return errors.New("trip_id must be a valid UUID")
	}
	if r.SeatID != nil {
		if _, err := uuid.Parse(*r.SeatID); err != nil {
			return errors.New("seat_id must be a valid UUID")
		}
	}
	if r.Price < 0 {
		return errors.New("price must not be negative")
	}
	return nil
}

// ConfirmPaymentRequest represents an interactive payment confirmation body
type ConfirmPaymentRequest struct {
	Amount        float64 `json:"amount" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
}

// PaymentWebhookRequest represents the payment gateway webhook payload
type PaymentWebhookRequest struct {
	ReservationID *string  `json:"reservation_id,omitempty"`
	TransactionID *string  `json:"transaction_id,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
	PaymentMethod *string  `json:"payment_method,omitempty"`
	PaymentDate   *string  `json:"payment_date,omitempty"`
}

// Validate validates the webhook payload
func (r *PaymentWebhookRequest) Validate() error {
	if r.ReservationID == nil && r.TransactionID == nil {
		return errors.New("reservation_id or transaction_id is required")
	}
	if r.Amount == nil {
		return errors.New("amount is required")
	}
	if *r.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if r.PaymentMethod == nil || *r.PaymentMethod == "" {
		return errors.New("payment_method is required")
	}
	return nil
}
