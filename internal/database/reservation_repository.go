package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rotasul/transport-backend/internal/models"
)

// ReservationRepository handles reservation database operations. All state
// transitions are guarded UPDATEs so that concurrent callers and overlapping
// scheduler instances cannot apply the same transition twice.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new ReservationRepository
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `
	id, tenant_id, trip_id, seat_id,
	passenger_name, passenger_document, passenger_phone, passenger_email,
	status, ticket_code, price, amount_paid, payment_method, external_payment_id,
	created_at, updated_at`

// reservationRow carries the raw stored status so legacy spellings can be
// normalized before the row leaves the storage layer.
type reservationRow struct {
	ID                uuid.UUID  `db:"id"`
	TenantID          uuid.UUID  `db:"tenant_id"`
	TripID            uuid.UUID  `db:"trip_id"`
	SeatID            *uuid.UUID `db:"seat_id"`
	PassengerName     string     `db:"passenger_name"`
	PassengerDocument *string    `db:"passenger_document"`
	PassengerPhone    *string    `db:"passenger_phone"`
	PassengerEmail    *string    `db:"passenger_email"`
	Status            string     `db:"status"`
	TicketCode        string     `db:"ticket_code"`
	Price             float64    `db:"price"`
	AmountPaid        float64    `db:"amount_paid"`
	PaymentMethod     *string    `db:"payment_method"`
	ExternalPaymentID *string    `db:"external_payment_id"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (row *reservationRow) toModel() *models.Reservation {
	return &models.Reservation{
		ID:                row.ID,
		TenantID:          row.TenantID,
		TripID:            row.TripID,
		SeatID:            row.SeatID,
		PassengerName:     row.PassengerName,
		PassengerDocument: row.PassengerDocument,
		PassengerPhone:    row.PassengerPhone,
		PassengerEmail:    row.PassengerEmail,
		Status:            models.NormalizeReservationStatus(row.Status),
		TicketCode:        row.TicketCode,
		Price:             row.Price,
		AmountPaid:        row.AmountPaid,
		PaymentMethod:     row.PaymentMethod,
		ExternalPaymentID: row.ExternalPaymentID,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func statusList(spellings []string) string {
	quoted := make([]string, len(spellings))
	for i, s := range spellings {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, ", ")
}

// Spelling lists baked into guard SQL. Legacy rows must still match transition
// predicates, so both spellings appear; writes always store canonical values.
var (
	pendingSpellings   = statusList(models.LegacyReservationStatusSpellings(models.ReservationStatusPending))
	payableSpellings   = statusList(append(models.LegacyReservationStatusSpellings(models.ReservationStatusPending), models.LegacyReservationStatusSpellings(models.ReservationStatusConfirmed)...))
	boardableSpellings = statusList(append(models.LegacyReservationStatusSpellings(models.ReservationStatusConfirmed), models.LegacyReservationStatusSpellings(models.ReservationStatusCheckedIn)...))
	confirmedSpellings = statusList(models.LegacyReservationStatusSpellings(models.ReservationStatusConfirmed))
	activeResSpellings = statusList(models.ActiveReservationSpellings())
)

// ============================================================================
// CREATE
// ============================================================================

// Create inserts a PENDING reservation, generates its ticket code and
// decrements the trip's seat counter, all in one transaction. The partial
// unique index on active (trip, seat) pairs is the final arbiter when two
// creations race past the pre-check.
func (r *ReservationRepository) Create(res *models.Reservation) error {
	res.ID = uuid.New()
	res.Status = models.ReservationStatusPending
	res.AmountPaid = 0
	res.CreatedAt = time.Now()
	res.UpdatedAt = res.CreatedAt

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Pre-check seat exclusivity (friendly error before touching counters)
	if res.SeatID != nil {
		var taken bool
		query := fmt.Sprintf(`
			SELECT EXISTS (
				SELECT 1 FROM reservations
				WHERE tenant_id = $1 AND trip_id = $2 AND seat_id = $3
				  AND status IN (%s)
			)`, activeResSpellings)
		if err := tx.Get(&taken, query, res.TenantID, res.TripID, *res.SeatID); err != nil {
			return fmt.Errorf("failed to check seat availability: %w", err)
		}
		if taken {
			return ErrSeatConflict
		}
	}

	// 2. Claim a seat on the counter, guarded so it can never go negative
	result, err := tx.Exec(`
		UPDATE trips
		SET seats_available = seats_available - 1, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND seats_available > 0`,
		res.TripID, res.TenantID)
	if err != nil {
		return fmt.Errorf("failed to decrement seat counter: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := tx.Get(&exists, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1 AND tenant_id = $2)`, res.TripID, res.TenantID); err != nil {
			return fmt.Errorf("failed to check trip existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrNoSeatsAvailable
	}

	// 3. Generate a unique ticket code
	code, err := r.generateTicketCode(tx, res.TenantID)
	if err != nil {
		return err
	}
	res.TicketCode = code

	// 4. Insert the reservation
	_, err = tx.Exec(`
		INSERT INTO reservations (
			id, tenant_id, trip_id, seat_id,
			passenger_name, passenger_document, passenger_phone, passenger_email,
			status, ticket_code, price, amount_paid,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		res.ID, res.TenantID, res.TripID, res.SeatID,
		res.PassengerName, res.PassengerDocument, res.PassengerPhone, res.PassengerEmail,
		res.Status, res.TicketCode, res.Price, res.AmountPaid,
		res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil
}

// generateTicketCode generates a short unique ticket code
// Format: TK-YYYYMMDD-XXXXXX (6 char hex)
func (r *ReservationRepository) generateTicketCode(tx *sqlx.Tx, tenantID uuid.UUID) (string, error) {
	todayStr := time.Now().Format("20060102")

	for attempts := 0; attempts < 10; attempts++ {
		randomBytes := make([]byte, 3)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		code := fmt.Sprintf("TK-%s-%s", todayStr, strings.ToUpper(hex.EncodeToString(randomBytes)))

		var count int
		err := tx.Get(&count, `SELECT COUNT(*) FROM reservations WHERE tenant_id = $1 AND ticket_code = $2`, tenantID, code)
		if err != nil {
			return "", fmt.Errorf("failed to check ticket code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique ticket code after 10 attempts")
}

// ============================================================================
// LOOKUPS
// ============================================================================

// GetByID retrieves a reservation by tenant and id
func (r *ReservationRepository) GetByID(tenantID, id uuid.UUID) (*models.Reservation, error) {
	var row reservationRow
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE tenant_id = $1 AND id = $2`, reservationColumns)
	err := r.db.Get(&row, query, tenantID, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return row.toModel(), nil
}

// GetByTicketCode retrieves a reservation by its human-lookup ticket code
func (r *ReservationRepository) GetByTicketCode(tenantID uuid.UUID, code string) (*models.Reservation, error) {
	var row reservationRow
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE tenant_id = $1 AND ticket_code = $2`, reservationColumns)
	err := r.db.Get(&row, query, tenantID, code)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation by ticket code: %w", err)
	}
	return row.toModel(), nil
}

// FindForPayment resolves a webhook target: by reservation id first, falling
// back to the payment gateway's external id. The tenant is resolved from the
// row itself because gateways do not know tenant ids.
func (r *ReservationRepository) FindForPayment(reservationID *uuid.UUID, externalPaymentID *string) (*models.Reservation, error) {
	var row reservationRow

	if reservationID != nil {
		query := fmt.Sprintf(`SELECT %s FROM reservations WHERE id = $1`, reservationColumns)
		err := r.db.Get(&row, query, *reservationID)
		if err == nil {
			return row.toModel(), nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to look up reservation by id: %w", err)
		}
	}

	if externalPaymentID != nil && *externalPaymentID != "" {
		query := fmt.Sprintf(`SELECT %s FROM reservations WHERE external_payment_id = $1`, reservationColumns)
		err := r.db.Get(&row, query, *externalPaymentID)
		if err == nil {
			return row.toModel(), nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to look up reservation by external payment id: %w", err)
		}
	}

	return nil, ErrNotFound
}

// ============================================================================
// STATE TRANSITIONS
// ============================================================================

// Cancel transitions PENDING|CONFIRMED to CANCELLED and restores the trip's
// seat counter in the same transaction. Idempotent: cancelling an already
// cancelled reservation reports ErrAlreadyCancelled without touching the
// counter again.
func (r *ReservationRepository) Cancel(tenantID, id uuid.UUID) (*models.Reservation, error) {
	return r.release(tenantID, id, payableSpellings)
}

// Expire is the system-only variant of Cancel used by the scheduler: only
// PENDING reservations are eligible, the seat restore is identical.
func (r *ReservationRepository) Expire(tenantID, id uuid.UUID) (*models.Reservation, error) {
	return r.release(tenantID, id, pendingSpellings)
}

func (r *ReservationRepository) release(tenantID, id uuid.UUID, fromSpellings string) (*models.Reservation, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row reservationRow
	query := fmt.Sprintf(`
		UPDATE reservations
		SET status = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3 AND status IN (%s)
		RETURNING %s`, fromSpellings, reservationColumns)
	err = tx.Get(&row, query, models.ReservationStatusCancelled, tenantID, id)
	if err == sql.ErrNoRows {
		return nil, r.classifyBlockedTransition(tenantID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE trips
		SET seats_available = seats_available + 1, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2`,
		row.TripID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore seat counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return row.toModel(), nil
}

// classifyBlockedTransition distinguishes a missing row from a guard miss
func (r *ReservationRepository) classifyBlockedTransition(tenantID, id uuid.UUID) error {
	var rawStatus string
	err := r.db.Get(&rawStatus, `SELECT status FROM reservations WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect reservation status: %w", err)
	}
	if models.NormalizeReservationStatus(rawStatus) == models.ReservationStatusCancelled {
		return ErrAlreadyCancelled
	}
	return ErrInvalidTransition
}

// ConfirmPayment accumulates amount_paid and sets CONFIRMED, allowed from
// PENDING or CONFIRMED. Repeated partial amounts accumulate rather than
// overwrite.
func (r *ReservationRepository) ConfirmPayment(tenantID, id uuid.UUID, amount float64, method string) (*models.Reservation, error) {
	var row reservationRow
	query := fmt.Sprintf(`
		UPDATE reservations
		SET status = $1,
		    amount_paid = amount_paid + $2,
		    payment_method = $3,
		    updated_at = NOW()
		WHERE tenant_id = $4 AND id = $5 AND status IN (%s)
		RETURNING %s`, payableSpellings, reservationColumns)
	err := r.db.Get(&row, query, models.ReservationStatusConfirmed, amount, method, tenantID, id)
	if err == sql.ErrNoRows {
		return nil, r.classifyBlockedTransition(tenantID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	return row.toModel(), nil
}

// ConfirmPaymentWithLedger performs the webhook confirmation atomically:
// accumulate amount_paid, set CONFIRMED, record the external payment id and
// append the income ledger entry. A replayed delivery with the same external
// payment id trips the ledger's unique document-ref index and rolls the whole
// transaction back, surfacing ErrDuplicatePayment.
func (r *ReservationRepository) ConfirmPaymentWithLedger(
	tenantID, id uuid.UUID,
	amount float64,
	method string,
	externalPaymentID *string,
	entryDate time.Time,
) (*models.Reservation, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row reservationRow
	query := fmt.Sprintf(`
		UPDATE reservations
		SET status = $1,
		    amount_paid = amount_paid + $2,
		    payment_method = $3,
		    external_payment_id = COALESCE($4, external_payment_id),
		    updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6 AND status IN (%s)
		RETURNING %s`, payableSpellings, reservationColumns)
	err = tx.Get(&row, query, models.ReservationStatusConfirmed, amount, method, externalPaymentID, tenantID, id)
	if err == sql.ErrNoRows {
		return nil, r.classifyBlockedTransition(tenantID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Kind:        models.LedgerEntryIncome,
		Description: fmt.Sprintf("Payment received for ticket %s", row.TicketCode),
		Amount:      amount,
		DocumentRef: externalPaymentID,
		TicketCode:  row.TicketCode,
		EntryDate:   entryDate,
	}
	if err := insertLedgerEntry(tx, entry); err != nil {
		return nil, mapUniqueViolation(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment confirmation: %w", err)
	}
	return row.toModel(), nil
}

// CheckIn transitions CONFIRMED to CHECKED_IN
func (r *ReservationRepository) CheckIn(tenantID, id uuid.UUID) (*models.Reservation, error) {
	return r.guardedTransition(tenantID, id, confirmedSpellings, models.ReservationStatusCheckedIn)
}

// MarkNoShow transitions CONFIRMED to NO_SHOW (terminal)
func (r *ReservationRepository) MarkNoShow(tenantID, id uuid.UUID) (*models.Reservation, error) {
	return r.guardedTransition(tenantID, id, confirmedSpellings, models.ReservationStatusNoShow)
}

func (r *ReservationRepository) guardedTransition(tenantID, id uuid.UUID, fromSpellings string, to models.ReservationStatus) (*models.Reservation, error) {
	var row reservationRow
	query := fmt.Sprintf(`
		UPDATE reservations
		SET status = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3 AND status IN (%s)
		RETURNING %s`, fromSpellings, reservationColumns)
	err := r.db.Get(&row, query, to, tenantID, id)
	if err == sql.ErrNoRows {
		return nil, r.classifyBlockedTransition(tenantID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition reservation: %w", err)
	}
	return row.toModel(), nil
}

// ============================================================================
// SCHEDULED PASSES
// ============================================================================

// StaleReservation identifies a PENDING reservation past its tenant's
// expiration window.
type StaleReservation struct {
	ID       uuid.UUID `db:"id"`
	TenantID uuid.UUID `db:"tenant_id"`
	TripID   uuid.UUID `db:"trip_id"`
}

// FindStalePending returns PENDING reservations older than their tenant's
// configured expiration window, across all tenants in one query with a
// defaulted per-tenant parameter lookup.
func (r *ReservationRepository) FindStalePending(now time.Time, defaultMinutes int, limit int) ([]StaleReservation, error) {
	query := fmt.Sprintf(`
		SELECT r.id, r.tenant_id, r.trip_id
		FROM reservations r
		LEFT JOIN system_parameters p
		  ON p.tenant_id = r.tenant_id AND p.name = '%s'
		WHERE r.status IN (%s)
		  AND r.created_at + make_interval(mins => COALESCE(NULLIF(p.value, '')::int, $1)) <= $2
		ORDER BY r.created_at
		LIMIT $3`, models.ParamReservationExpirationMinutes, pendingSpellings)

	var stale []StaleReservation
	if err := r.db.Select(&stale, query, defaultMinutes, now, limit); err != nil {
		return nil, fmt.Errorf("failed to find stale reservations: %w", err)
	}
	return stale, nil
}

// CompleteDeparted bulk-completes CONFIRMED and CHECKED_IN reservations whose
// trip has already departed in the tenant's timezone. One cross-tenant
// statement; the status guard makes a concurrent run a no-op.
func (r *ReservationRepository) CompleteDeparted(now time.Time, defaultTimezone string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE reservations r
		SET status = $1, updated_at = NOW()
		FROM trips t
		WHERE r.trip_id = t.id
		  AND r.tenant_id = t.tenant_id
		  AND r.status IN (%s)
		  AND (t.departure_date + t.departure_time) AT TIME ZONE COALESCE(
		        (SELECT NULLIF(p.value, '') FROM system_parameters p
		          WHERE p.tenant_id = t.tenant_id AND p.name = '%s'), $2) <= $3`,
		boardableSpellings, models.ParamTimezone)

	result, err := r.db.Exec(query, models.ReservationStatusCompleted, defaultTimezone, now)
	if err != nil {
		return 0, fmt.Errorf("failed to complete departed reservations: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
