package models

import (
	"time"

	"github.com/google/uuid"
)

// Seat represents a physical seat definition on a vehicle. Read-only from the
// reservation core's perspective.
type Seat struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	VehicleID uuid.UUID `json:"vehicle_id" db:"vehicle_id"`
	Number    string    `json:"number" db:"number"`
	Deck      int       `json:"deck" db:"deck"`
	Position  *string   `json:"position,omitempty" db:"position"`
	SeatClass string    `json:"seat_class" db:"seat_class"`
	Price     float64   `json:"price" db:"price"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
