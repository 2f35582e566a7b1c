package models

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus represents the status of a trip
type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusBoarding  TripStatus = "boarding"
	TripStatusInTransit TripStatus = "in_transit"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
	TripStatusDelayed   TripStatus = "delayed"
)

// legacyTripStatuses maps historical Portuguese spellings still present in older
// rows to the canonical set. Writes always store the canonical value; rows
// migrate as they are touched.
var legacyTripStatuses = map[string]TripStatus{
	"AGENDADA":    TripStatusScheduled,
	"EMBARQUE":    TripStatusBoarding,
	"EM_TRANSITO": TripStatusInTransit,
	"CONCLUIDA":   TripStatusCompleted,
	"CANCELADA":   TripStatusCancelled,
	"ATRASADA":    TripStatusDelayed,
}

// NormalizeTripStatus maps a raw stored status to the canonical set
func NormalizeTripStatus(raw string) TripStatus {
	if s, ok := legacyTripStatuses[raw]; ok {
		return s
	}
	return TripStatus(raw)
}

// LegacyTripStatusSpellings returns the raw spellings that match a canonical
// status, canonical one included, for use in guard SQL IN lists
func LegacyTripStatusSpellings(status TripStatus) []string {
	spellings := []string{string(status)}
	for raw, canonical := range legacyTripStatuses {
		if canonical == status {
			spellings = append(spellings, raw)
		}
	}
	return spellings
}

// Trip represents a scheduled journey along a route
type Trip struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	TenantID       uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	RouteID        uuid.UUID  `json:"route_id" db:"route_id"`
	ReturnRouteID  *uuid.UUID `json:"return_route_id,omitempty" db:"return_route_id"`
	VehicleID      uuid.UUID  `json:"vehicle_id" db:"vehicle_id"`
	DriverID       uuid.UUID  `json:"driver_id" db:"driver_id"`
	DepartureDate  time.Time  `json:"departure_date" db:"departure_date"`
	DepartureTime  string     `json:"departure_time" db:"departure_time"`
	ArrivalDate    *time.Time `json:"arrival_date,omitempty" db:"arrival_date"`
	ArrivalTime    *string    `json:"arrival_time,omitempty" db:"arrival_time"`
	Status         TripStatus `json:"status" db:"status"`
	SeatsAvailable int        `json:"seats_available" db:"seats_available"`
	Active         bool       `json:"active" db:"active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// DepartureAt combines departure date and time in the given location
func (t *Trip) DepartureAt(loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", t.DepartureTime)
	if err != nil {
		// Some rows carry seconds
		parsed, err = time.Parse("15:04:05", t.DepartureTime)
		if err != nil {
			return time.Time{}, err
		}
	}
	d := t.DepartureDate
	return time.Date(d.Year(), d.Month(), d.Day(), parsed.Hour(), parsed.Minute(), parsed.Second(), 0, loc), nil
}

// HasDeparted checks whether the trip departure has passed
func (t *Trip) HasDeparted(now time.Time, loc *time.Location) bool {
	departure, err := t.DepartureAt(loc)
	if err != nil {
		return false
	}
	return !now.Before(departure)
}
