package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant parameter names read by the core. Values are stored as strings and
// parsed with a default fallback when absent or malformed.
const (
	ParamReservationExpirationMinutes = "reservation_expiration_minutes"
	ParamTripSafetyMarginHours        = "trip_auto_complete_safety_margin_hours"
	ParamTimezone                     = "timezone"
)

// SystemParameter represents a per-tenant named setting
type SystemParameter struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
