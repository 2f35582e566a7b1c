package database

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by the storage layer. Handlers match these with
// errors.Is to pick response codes.
var (
	// ErrNotFound indicates the reservation/trip/seat does not exist for the
	// given tenant and id.
	ErrNotFound = errors.New("record not found")

	// ErrSeatConflict indicates the seat is already held by an active
	// reservation on the same trip.
	ErrSeatConflict = errors.New("seat already reserved for this trip")

	// ErrInvalidTransition indicates the requested state change is not allowed
	// from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAlreadyCancelled indicates a cancel/expire on a reservation that is
	// already cancelled. Callers may treat it as success for retry tolerance.
	ErrAlreadyCancelled = errors.New("reservation already cancelled")

	// ErrNoSeatsAvailable indicates the trip's seat counter is exhausted.
	ErrNoSeatsAvailable = errors.New("no seats available on this trip")

	// ErrDuplicatePayment indicates a ledger entry for the same external
	// payment id already exists (replayed webhook delivery).
	ErrDuplicatePayment = errors.New("payment already processed")
)

// Unique index names acting as storage-level arbiters.
const (
	seatExclusivityConstraint = "reservations_active_seat_key"
	ledgerDocumentConstraint  = "ledger_entries_tenant_document_ref_key"
)

// mapUniqueViolation translates a Postgres unique violation into the matching
// sentinel error, or returns the original error untouched.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	switch pqErr.Constraint {
	case seatExclusivityConstraint:
		return ErrSeatConflict
	case ledgerDocumentConstraint:
		return ErrDuplicatePayment
	}
	return err
}
