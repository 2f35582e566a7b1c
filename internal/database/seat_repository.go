package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rotasul/transport-backend/internal/models"
)

// SeatRepository reads physical seat definitions. Seats belong to vehicles
// and are read-only from the reservation core's perspective.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository creates a new SeatRepository
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

const seatColumns = `id, tenant_id, vehicle_id, number, deck, position, seat_class, price, created_at`

// GetByID retrieves a seat by tenant and id
func (r *SeatRepository) GetByID(tenantID, id uuid.UUID) (*models.Seat, error) {
	var seat models.Seat
	query := fmt.Sprintf(`SELECT %s FROM seats WHERE tenant_id = $1 AND id = $2`, seatColumns)
	err := r.db.Get(&seat, query, tenantID, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seat: %w", err)
	}
	return &seat, nil
}

// GetByVehicleAndNumber retrieves a seat by its number on a vehicle, used to
// resolve portal bookings that identify seats by label ("12A") rather than id
func (r *SeatRepository) GetByVehicleAndNumber(tenantID, vehicleID uuid.UUID, number string) (*models.Seat, error) {
	var seat models.Seat
	query := fmt.Sprintf(`SELECT %s FROM seats WHERE tenant_id = $1 AND vehicle_id = $2 AND number = $3`, seatColumns)
	err := r.db.Get(&seat, query, tenantID, vehicleID, number)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seat by number: %w", err)
	}
	return &seat, nil
}
