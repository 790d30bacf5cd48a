package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
)

// BalanceDrift is an account whose stored balance disagrees with its entries.
type BalanceDrift struct {
	AccountID uuid.UUID
	Stored    decimal.Decimal
	Computed  decimal.Decimal
}

func (d BalanceDrift) Error() string {
	return fmt.Sprintf("account %s balance %s differs from entry sum %s", d.AccountID, d.Stored, d.Computed)
}

// HashMismatch is a transaction whose entries no longer match its entry_hash.
type HashMismatch struct {
	TransactionID uuid.UUID
	Stored        string
	Computed      string
}

func (m HashMismatch) Error() string {
	return fmt.Sprintf("transaction %s entry hash mismatch", m.TransactionID)
}

// Reconciler re-derives balances and hashes from the immutable entries.
type Reconciler struct {
	repo Repository
}

// NewReconciler builds a reconciler over repo.
func NewReconciler(repo Repository) (*Reconciler, error) {
	if repo == nil {
		return nil, errors.New("ledger repository required")
	}
	return &Reconciler{repo: repo}, nil
}

// VerifyBalances checks balance = Σ signed entry deltas for every account.
func (r *Reconciler) VerifyBalances(ctx context.Context) ([]BalanceDrift, error) {
	accounts, err := r.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	totals, err := r.repo.SumEntriesByAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum entries: %w", err)
	}

	byAccount := make(map[uuid.UUID]map[enums.EntryDirection]decimal.Decimal, len(totals))
	for _, t := range totals {
		if byAccount[t.AccountID] == nil {
			byAccount[t.AccountID] = map[enums.EntryDirection]decimal.Decimal{}
		}
		byAccount[t.AccountID][t.Direction] = t.Total
	}

	var drifts []BalanceDrift
	for _, account := range accounts {
		computed := computeBalance(account, byAccount[account.ID])
		if !computed.Equal(account.Balance) {
			drifts = append(drifts, BalanceDrift{AccountID: account.ID, Stored: account.Balance, Computed: computed})
		}
	}
	return drifts, nil
}

func computeBalance(account models.LedgerAccount, totals map[enums.EntryDirection]decimal.Decimal) decimal.Decimal {
	balance := decimal.Zero
	for direction, total := range totals {
		balance = balance.Add(signedDelta(account.AccountType, direction, total))
	}
	return balance
}

// VerifyHashes recomputes entry_hash for transactions posted since the cutoff.
func (r *Reconciler) VerifyHashes(ctx context.Context, since time.Time) ([]HashMismatch, error) {
	txns, err := r.repo.ListTransactionsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	var mismatches []HashMismatch
	for _, txn := range txns {
		lines := make([]EntryLine, len(txn.Entries))
		for i, e := range txn.Entries {
			lines[i] = EntryLine{AccountID: e.AccountID, Direction: e.Direction, Amount: e.Amount}
		}
		computed := ComputeEntryHash(txn.IdempotencyKey, txn.ReferenceType, txn.ReferenceID, lines)
		if computed != txn.EntryHash {
			mismatches = append(mismatches, HashMismatch{TransactionID: txn.ID, Stored: txn.EntryHash, Computed: computed})
		}
	}
	return mismatches, nil
}
