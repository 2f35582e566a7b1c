package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rotasul/transport-backend/internal/models"
)

// insertLedgerEntry appends a finance ledger entry inside the caller's
// transaction so the financial record commits or rolls back together with the
// reservation change it documents. The unique (tenant, document_ref) index
// makes replayed gateway deliveries fail here rather than double-book income.
func insertLedgerEntry(tx *sqlx.Tx, entry *models.LedgerEntry) error {
	entry.CreatedAt = time.Now()
	if entry.EntryDate.IsZero() {
		entry.EntryDate = entry.CreatedAt
	}

	_, err := tx.Exec(`
		INSERT INTO ledger_entries (
			id, tenant_id, kind, description, amount,
			document_ref, ticket_code, entry_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.TenantID, entry.Kind, entry.Description, entry.Amount,
		entry.DocumentRef, entry.TicketCode, entry.EntryDate, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}
