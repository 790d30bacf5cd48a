package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateLedgerTransaction OutboxAggregateType = "ledger_transaction"
	AggregateOrder             OutboxAggregateType = "order"
	AggregateRiskDecision      OutboxAggregateType = "risk_decision"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLedgerTransaction,
	AggregateOrder,
	AggregateRiskDecision,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventLedgerTransactionPosted OutboxEventType = "ledger_transaction_posted"
	EventOrderFundsHeld          OutboxEventType = "order_funds_held"
	EventOrderPaymentCaptured    OutboxEventType = "order_payment_captured"
	EventOrderCancelled          OutboxEventType = "order_cancelled"
	EventOrderShipped            OutboxEventType = "order_shipped"
	EventOrderReviewRequested    OutboxEventType = "order_review_requested"
	EventRiskDecisionRecorded    OutboxEventType = "risk_decision_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventLedgerTransactionPosted,
	EventOrderFundsHeld,
	EventOrderPaymentCaptured,
	EventOrderCancelled,
	EventOrderShipped,
	EventOrderReviewRequested,
	EventRiskDecisionRecorded,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why a row left the publish loop for good.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// IsValid reports whether the value matches outbox_dlq_error_reason_enum.
func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
