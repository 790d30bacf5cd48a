package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierScore is the reliability of a supplier as seen by one merchant.
type SupplierScore struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID       uuid.UUID       `gorm:"column:merchant_id;type:uuid;not null"`
	SupplierID       uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null"`
	ReliabilityScore decimal.Decimal `gorm:"column:reliability_score;type:numeric(5,4);not null"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
