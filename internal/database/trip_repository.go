package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rotasul/transport-backend/internal/models"
)

// TripRepository handles trip database operations. Automatic status
// transitions are single cross-tenant guarded UPDATEs; per-tenant timezone and
// safety-margin parameters are resolved inside the statement with a defaulted
// lookup.
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripColumns = `
	id, tenant_id, route_id, return_route_id, vehicle_id, driver_id,
	departure_date, departure_time, arrival_date, arrival_time,
	status, seats_available, active, created_at, updated_at`

type tripRow struct {
	ID             uuid.UUID  `db:"id"`
	TenantID       uuid.UUID  `db:"tenant_id"`
	RouteID        uuid.UUID  `db:"route_id"`
	ReturnRouteID  *uuid.UUID `db:"return_route_id"`
	VehicleID      uuid.UUID  `db:"vehicle_id"`
	DriverID       uuid.UUID  `db:"driver_id"`
	DepartureDate  time.Time  `db:"departure_date"`
	DepartureTime  string     `db:"departure_time"`
	ArrivalDate    *time.Time `db:"arrival_date"`
	ArrivalTime    *string    `db:"arrival_time"`
	Status         string     `db:"status"`
	SeatsAvailable int        `db:"seats_available"`
	Active         bool       `db:"active"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (row *tripRow) toModel() *models.Trip {
	return &models.Trip{
		ID:             row.ID,
		TenantID:       row.TenantID,
		RouteID:        row.RouteID,
		ReturnRouteID:  row.ReturnRouteID,
		VehicleID:      row.VehicleID,
		DriverID:       row.DriverID,
		DepartureDate:  row.DepartureDate,
		DepartureTime:  row.DepartureTime,
		ArrivalDate:    row.ArrivalDate,
		ArrivalTime:    row.ArrivalTime,
		Status:         models.NormalizeTripStatus(row.Status),
		SeatsAvailable: row.SeatsAvailable,
		Active:         row.Active,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

var (
	startableTripSpellings = statusList(append(models.LegacyTripStatusSpellings(models.TripStatusScheduled), models.LegacyTripStatusSpellings(models.TripStatusBoarding)...))
	inTransitSpellings     = statusList(models.LegacyTripStatusSpellings(models.TripStatusInTransit))
	completedTripSpellings = statusList(models.LegacyTripStatusSpellings(models.TripStatusCompleted))
)

// tenantTimezoneSQL resolves a tenant's timezone parameter with a defaulted
// fallback, correlated against the trips row under update.
func tenantTimezoneSQL(defaultPlaceholder string) string {
	return fmt.Sprintf(`COALESCE(
		(SELECT NULLIF(p.value, '') FROM system_parameters p
		  WHERE p.tenant_id = trips.tenant_id AND p.name = '%s'), %s)`,
		models.ParamTimezone, defaultPlaceholder)
}

// GetByID retrieves a trip by tenant and id
func (r *TripRepository) GetByID(tenantID, id uuid.UUID) (*models.Trip, error) {
	var row tripRow
	query := fmt.Sprintf(`SELECT %s FROM trips WHERE tenant_id = $1 AND id = $2`, tripColumns)
	err := r.db.Get(&row, query, tenantID, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return row.toModel(), nil
}

// StartDue transitions SCHEDULED and BOARDING trips to IN_TRANSIT once their
// departure timestamp has passed in the tenant's timezone. Returns rows
// affected; zero matches is not an error.
func (r *TripRepository) StartDue(now time.Time, defaultTimezone string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE trips
		SET status = $1, updated_at = NOW()
		WHERE status IN (%s)
		  AND active = TRUE
		  AND (departure_date + departure_time) AT TIME ZONE %s <= $3`,
		startableTripSpellings, tenantTimezoneSQL("$2"))

	result, err := r.db.Exec(query, models.TripStatusInTransit, defaultTimezone, now)
	if err != nil {
		return 0, fmt.Errorf("failed to start due trips: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// CompleteDue transitions IN_TRANSIT trips to COMPLETED and deactivates them.
// A trip completes when its arrival timestamp is set and has passed, or, when
// arrival info is missing, once departure plus the tenant's safety margin has
// passed. The margin exists because arrival times are frequently unset in
// operational data; without it a trip with no arrival would stay IN_TRANSIT
// forever.
func (r *TripRepository) CompleteDue(now time.Time, defaultTimezone string, defaultMarginHours int) (int64, error) {
	tz := tenantTimezoneSQL("$2")
	query := fmt.Sprintf(`
		UPDATE trips
		SET status = $1, active = FALSE, updated_at = NOW()
		WHERE status IN (%s)
		  AND (
		    (arrival_date IS NOT NULL AND arrival_time IS NOT NULL
		      AND (arrival_date + arrival_time) AT TIME ZONE %s <= $4)
		    OR
		    ((arrival_date IS NULL OR arrival_time IS NULL)
		      AND (departure_date + departure_time) AT TIME ZONE %s
		          + make_interval(hours => COALESCE(
		              (SELECT NULLIF(p.value, '')::int FROM system_parameters p
		                WHERE p.tenant_id = trips.tenant_id AND p.name = '%s'), $3)) <= $4)
		  )`,
		inTransitSpellings, tz, tz, models.ParamTripSafetyMarginHours)

	result, err := r.db.Exec(query, models.TripStatusCompleted, defaultTimezone, defaultMarginHours, now)
	if err != nil {
		return 0, fmt.Errorf("failed to complete due trips: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// DeactivateCompleted clears the active flag on COMPLETED trips that were
// completed through other paths (manual override) and never deactivated.
func (r *TripRepository) DeactivateCompleted() (int64, error) {
	query := fmt.Sprintf(`
		UPDATE trips
		SET active = FALSE, updated_at = NOW()
		WHERE status IN (%s) AND active = TRUE`,
		completedTripSpellings)

	result, err := r.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate completed trips: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
