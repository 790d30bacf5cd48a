package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/pkg/enums"
)

// Order is the procurement order whose financial status this service drives.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MerchantID  uuid.UUID         `gorm:"column:merchant_id;type:uuid;not null" json:"merchant_id"`
	SupplierID  uuid.UUID         `gorm:"column:supplier_id;type:uuid;not null" json:"supplier_id"`
	PONumber    *string           `gorm:"column:po_number" json:"po_number,omitempty"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null;default:'draft'" json:"status"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	Currency    enums.Currency    `gorm:"column:currency;type:text;not null;default:'INR'" json:"currency"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
