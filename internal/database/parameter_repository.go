package database

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ParameterRepository reads per-tenant configuration parameters. The core
// never writes them. A missing or malformed parameter is recovered locally
// with the provided default and never surfaced as an error.
type ParameterRepository struct {
	db *sqlx.DB
}

// NewParameterRepository creates a new ParameterRepository
func NewParameterRepository(db *sqlx.DB) *ParameterRepository {
	return &ParameterRepository{db: db}
}

// GetString returns the tenant's value for a named parameter, or the default
// when absent or empty
func (r *ParameterRepository) GetString(tenantID uuid.UUID, name, defaultValue string) (string, error) {
	var value string
	err := r.db.Get(&value, `SELECT value FROM system_parameters WHERE tenant_id = $1 AND name = $2`, tenantID, name)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read parameter %s: %w", name, err)
	}
	if value == "" {
		return defaultValue, nil
	}
	return value, nil
}

// GetInt returns the tenant's value for a named parameter parsed as an
// integer, or the default when absent or malformed
func (r *ParameterRepository) GetInt(tenantID uuid.UUID, name string, defaultValue int) (int, error) {
	raw, err := r.GetString(tenantID, name, "")
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue, nil
	}
	return parsed, nil
}
