package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fincore/pkg/enums"
)

// LedgerTransaction groups the balanced entries of one posting.
type LedgerTransaction struct {
	ID                    uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	IdempotencyKey        string                  `gorm:"column:idempotency_key;not null" json:"idempotency_key"`
	ReferenceType         enums.ReferenceType     `gorm:"column:reference_type;type:ledger_reference_type_enum;not null" json:"reference_type"`
	ReferenceID           string                  `gorm:"column:reference_id;not null" json:"reference_id"`
	Description           string                  `gorm:"column:description;not null;default:''" json:"description"`
	Status                enums.TransactionStatus `gorm:"column:status;type:ledger_transaction_status_enum;not null;default:'posted'" json:"status"`
	CreatedBy             string                  `gorm:"column:created_by;not null" json:"created_by"`
	EntryHash             string                  `gorm:"column:entry_hash;not null" json:"entry_hash"`
	ReversesTransactionID *uuid.UUID              `gorm:"column:reverses_transaction_id;type:uuid" json:"reverses_transaction_id,omitempty"`
	VoidedByTransactionID *uuid.UUID              `gorm:"column:voided_by_transaction_id;type:uuid" json:"voided_by_transaction_id,omitempty"`
	PostedAt              time.Time               `gorm:"column:posted_at;not null" json:"posted_at"`
	VoidedAt              *time.Time              `gorm:"column:voided_at" json:"voided_at,omitempty"`
	CreatedAt             time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	Entries               []LedgerEntry           `gorm:"foreignKey:TransactionID" json:"entries,omitempty"`
}
