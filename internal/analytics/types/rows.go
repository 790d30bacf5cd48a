package types

import (
	"fmt"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// RiskDecisionRow mirrors the risk_decisions BigQuery schema.
type RiskDecisionRow struct {
	EventID       string             `bigquery:"event_id"`
	DecisionLogID string             `bigquery:"decision_log_id"`
	MerchantID    string             `bigquery:"merchant_id"`
	SupplierID    *string            `bigquery:"supplier_id"`
	OrderID       *string            `bigquery:"order_id"`
	Amount        string             `bigquery:"amount"`
	Score         int64              `bigquery:"score"`
	Decision      string             `bigquery:"decision"`
	Reasons       []string           `bigquery:"reasons"`
	Velocity1h    int64              `bigquery:"velocity_1h"`
	SupplierScore *string            `bigquery:"supplier_score"`
	EvaluatedAt   time.Time          `bigquery:"evaluated_at"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

// Save implements bigquery.ValueSaver; the event id doubles as the insert id
// so redelivered events are deduplicated by the streaming API.
func (r *RiskDecisionRow) Save() (map[string]cbigquery.Value, string, error) {
	row := map[string]cbigquery.Value{
		"event_id":        r.EventID,
		"decision_log_id": r.DecisionLogID,
		"merchant_id":     r.MerchantID,
		"supplier_id":     r.SupplierID,
		"order_id":        r.OrderID,
		"amount":          r.Amount,
		"score":           r.Score,
		"decision":        r.Decision,
		"reasons":         r.Reasons,
		"velocity_1h":     r.Velocity1h,
		"supplier_score":  r.SupplierScore,
		"evaluated_at":    r.EvaluatedAt,
		"payload":         r.Payload,
	}
	return row, r.EventID, nil
}

// LedgerPostingRow mirrors the ledger_postings BigQuery schema: one row per entry.
type LedgerPostingRow struct {
	EventID               string    `bigquery:"event_id"`
	TransactionID         string    `bigquery:"transaction_id"`
	IdempotencyKey        string    `bigquery:"idempotency_key"`
	ReferenceType         string    `bigquery:"reference_type"`
	ReferenceID           string    `bigquery:"reference_id"`
	ReversesTransactionID *string   `bigquery:"reverses_transaction_id"`
	EntryIndex            int64     `bigquery:"entry_index"`
	AccountID             string    `bigquery:"account_id"`
	AccountType           string    `bigquery:"account_type"`
	Direction             string    `bigquery:"direction"`
	Amount                string    `bigquery:"amount"`
	BalanceAfter          string    `bigquery:"balance_after"`
	Currency              string    `bigquery:"currency"`
	PostedAt              time.Time `bigquery:"posted_at"`
}

// Save implements bigquery.ValueSaver with a per-entry insert id.
func (r *LedgerPostingRow) Save() (map[string]cbigquery.Value, string, error) {
	row := map[string]cbigquery.Value{
		"event_id":                r.EventID,
		"transaction_id":          r.TransactionID,
		"idempotency_key":         r.IdempotencyKey,
		"reference_type":          r.ReferenceType,
		"reference_id":            r.ReferenceID,
		"reverses_transaction_id": r.ReversesTransactionID,
		"entry_index":             r.EntryIndex,
		"account_id":              r.AccountID,
		"account_type":            r.AccountType,
		"direction":               r.Direction,
		"amount":                  r.Amount,
		"balance_after":           r.BalanceAfter,
		"currency":                r.Currency,
		"posted_at":               r.PostedAt,
	}
	return row, fmt.Sprintf("%s:%d", r.EventID, r.EntryIndex), nil
}
