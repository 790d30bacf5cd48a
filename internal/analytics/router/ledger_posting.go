package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/fincore/internal/analytics/types"
	"github.com/angelmondragon/fincore/pkg/outbox/payloads"
)

type ledgerPostingHandler struct {
	writer Writer
}

func newLedgerPostingHandler(w Writer) Handler {
	return &ledgerPostingHandler{writer: w}
}

// Handle fans a posting out into one row per entry.
func (h *ledgerPostingHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.LedgerTransactionPostedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, envelope.EventType)
	}
	if len(event.Entries) == 0 {
		return fmt.Errorf("ledger posting %s has no entries", event.TransactionID)
	}
	rows := make([]types.LedgerPostingRow, len(event.Entries))
	for i, entry := range event.Entries {
		rows[i] = types.LedgerPostingRow{
			EventID:               envelope.EventID.String(),
			TransactionID:         event.TransactionID.String(),
			IdempotencyKey:        event.IdempotencyKey,
			ReferenceType:         string(event.ReferenceType),
			ReferenceID:           event.ReferenceID,
			ReversesTransactionID: uuidString(event.ReversesTransactionID),
			EntryIndex:            int64(i),
			AccountID:             entry.AccountID.String(),
			AccountType:           string(entry.AccountType),
			Direction:             string(entry.Direction),
			Amount:                entry.Amount.String(),
			BalanceAfter:          entry.BalanceAfter.String(),
			Currency:              string(event.Currency),
			PostedAt:              event.PostedAt.UTC(),
		}
	}
	return h.writer.InsertLedgerPostings(ctx, rows)
}
