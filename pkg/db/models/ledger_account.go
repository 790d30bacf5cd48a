package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/pkg/enums"
)

// LedgerAccount is a typed balance holder identified by owner, type and currency.
type LedgerAccount struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerType   enums.OwnerType   `gorm:"column:owner_type;type:ledger_owner_type_enum;not null" json:"owner_type"`
	OwnerID     uuid.UUID         `gorm:"column:owner_id;type:uuid;not null" json:"owner_id"`
	AccountType enums.AccountType `gorm:"column:account_type;type:ledger_account_type_enum;not null" json:"account_type"`
	Currency    enums.Currency    `gorm:"column:currency;type:text;not null;default:'INR'" json:"currency"`
	Balance     decimal.Decimal   `gorm:"column:balance;type:numeric(20,4);not null;default:0" json:"balance"`
	IsFrozen    bool              `gorm:"column:is_frozen;not null;default:false" json:"is_frozen"`
	Version     int64             `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
