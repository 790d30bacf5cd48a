package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/pkg/enums"
)

// RiskFeatures are the inputs a risk score was computed from.
type RiskFeatures struct {
	Amount        decimal.Decimal  `json:"amount"`
	Velocity1h    int64            `json:"velocity_1h"`
	BaseRisk      int              `json:"base_risk"`
	SupplierScore *decimal.Decimal `json:"supplier_score,omitempty"`
}

// RiskDecisionLog is the immutable audit row written for every evaluation.
type RiskDecisionLog struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID  uuid.UUID          `gorm:"column:merchant_id;type:uuid;not null"`
	SupplierID  *uuid.UUID         `gorm:"column:supplier_id;type:uuid"`
	OrderID     *uuid.UUID         `gorm:"column:order_id;type:uuid"`
	Amount      decimal.Decimal    `gorm:"column:amount;type:numeric(20,4);not null"`
	Score       int                `gorm:"column:score;not null"`
	Decision    enums.RiskDecision `gorm:"column:decision;type:risk_decision_enum;not null"`
	Reasons     []string           `gorm:"column:reasons;type:jsonb;serializer:json;not null"`
	Features    RiskFeatures       `gorm:"column:features;type:jsonb;serializer:json;not null"`
	EvaluatedAt time.Time          `gorm:"column:evaluated_at;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}
