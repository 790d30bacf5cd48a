package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/pkg/enums"
)

// LedgerEntry is one immutable debit or credit line of a transaction.
type LedgerEntry struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransactionID uuid.UUID            `gorm:"column:transaction_id;type:uuid;not null" json:"transaction_id"`
	AccountID     uuid.UUID            `gorm:"column:account_id;type:uuid;not null" json:"account_id"`
	Direction     enums.EntryDirection `gorm:"column:direction;type:ledger_entry_direction_enum;not null" json:"direction"`
	Amount        decimal.Decimal      `gorm:"column:amount;type:numeric(20,4);not null" json:"amount"`
	BalanceAfter  decimal.Decimal      `gorm:"column:balance_after;type:numeric(20,4);not null" json:"balance_after"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
