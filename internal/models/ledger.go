package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntryKind represents the kind of a finance ledger entry
type LedgerEntryKind string

const (
	LedgerEntryIncome LedgerEntryKind = "income"
)

// LedgerEntry represents an append-only finance record. The core only ever
// inserts income entries on payment confirmation; it never reads them back.
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	TenantID    uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	Kind        LedgerEntryKind `json:"kind" db:"kind"`
	Description string          `json:"description" db:"description"`
	Amount      float64         `json:"amount" db:"amount"`
	DocumentRef *string         `json:"document_ref,omitempty" db:"document_ref"`
	TicketCode  string          `json:"ticket_code" db:"ticket_code"`
	EntryDate   time.Time       `json:"entry_date" db:"entry_date"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
