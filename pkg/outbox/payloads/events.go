package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/pkg/enums"
)

// PostedEntry is one ledger line as published downstream.
type PostedEntry struct {
	AccountID    uuid.UUID            `json:"account_id"`
	AccountType  enums.AccountType    `json:"account_type,omitempty"`
	Direction    enums.EntryDirection `json:"direction"`
	Amount       decimal.Decimal      `json:"amount"`
	BalanceAfter decimal.Decimal      `json:"balance_after"`
}

// LedgerTransactionPostedEvent is emitted for every committed posting.
type LedgerTransactionPostedEvent struct {
	TransactionID         uuid.UUID           `json:"transaction_id"`
	IdempotencyKey        string              `json:"idempotency_key"`
	ReferenceType         enums.ReferenceType `json:"reference_type"`
	ReferenceID           string              `json:"reference_id"`
	CreatedBy             string              `json:"created_by"`
	EntryHash             string              `json:"entry_hash"`
	ReversesTransactionID *uuid.UUID          `json:"reverses_transaction_id,omitempty"`
	Currency              enums.Currency      `json:"currency"`
	Total                 decimal.Decimal     `json:"total"`
	Entries               []PostedEntry       `json:"entries"`
	PostedAt              time.Time           `json:"posted_at"`
}

// OrderLifecycleEvent is emitted whenever the orchestrator moves an order.
type OrderLifecycleEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	MerchantID    uuid.UUID         `json:"merchant_id"`
	SupplierID    uuid.UUID         `json:"supplier_id"`
	Status        enums.OrderStatus `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      enums.Currency    `json:"currency"`
	TransactionID *uuid.UUID        `json:"transaction_id,omitempty"`
	SupplierShare *decimal.Decimal  `json:"supplier_share,omitempty"`
	PlatformFee   *decimal.Decimal  `json:"platform_fee,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// OrderReviewRequestedEvent asks operators to look at a hold the risk gate refused.
type OrderReviewRequestedEvent struct {
	OrderID    uuid.UUID          `json:"order_id"`
	MerchantID uuid.UUID          `json:"merchant_id"`
	SupplierID uuid.UUID          `json:"supplier_id"`
	Amount     decimal.Decimal    `json:"amount"`
	Decision   enums.RiskDecision `json:"decision"`
	Score      int                `json:"score"`
	Reasons    []string           `json:"reasons"`
}

// RiskDecisionRecordedEvent mirrors a risk_decision_logs row for analytics.
type RiskDecisionRecordedEvent struct {
	DecisionLogID uuid.UUID          `json:"decision_log_id"`
	MerchantID    uuid.UUID          `json:"merchant_id"`
	SupplierID    *uuid.UUID         `json:"supplier_id,omitempty"`
	OrderID       *uuid.UUID         `json:"order_id,omitempty"`
	Amount        decimal.Decimal    `json:"amount"`
	Score         int                `json:"score"`
	Decision      enums.RiskDecision `json:"decision"`
	Reasons       []string           `json:"reasons"`
	Velocity1h    int64              `json:"velocity_1h"`
	SupplierScore *decimal.Decimal   `json:"supplier_score,omitempty"`
	EvaluatedAt   time.Time          `json:"evaluated_at"`
}
