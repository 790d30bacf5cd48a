package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/fincore/internal/ledger"
	"github.com/angelmondragon/fincore/pkg/logger"
)

const defaultIntegrityLookback = 24 * time.Hour

type ledgerReconciler interface {
	VerifyBalances(ctx context.Context) ([]ledger.BalanceDrift, error)
	VerifyHashes(ctx context.Context, since time.Time) ([]ledger.HashMismatch, error)
}

type LedgerIntegrityJobParams struct {
	Logger     *logger.Logger
	Reconciler ledgerReconciler
	Lookback   time.Duration
}

// NewLedgerIntegrityJob checks stored balances against entry sums and
// re-derives the entry hash of recent transactions.
func NewLedgerIntegrityJob(params LedgerIntegrityJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("ledger reconciler required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultIntegrityLookback
	}
	return &ledgerIntegrityJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
		lookback:   lookback,
		now:        time.Now,
	}, nil
}

type ledgerIntegrityJob struct {
	logg       *logger.Logger
	reconciler ledgerReconciler
	lookback   time.Duration
	now        func() time.Time
}

func (j *ledgerIntegrityJob) Name() string { return "ledger-integrity" }

// Run reports every finding rather than stopping at the first one.
func (j *ledgerIntegrityJob) Run(ctx context.Context) error {
	var errs []error

	drifts, err := j.reconciler.VerifyBalances(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("verify balances: %w", err))
	}
	for _, drift := range drifts {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"account_id": drift.AccountID.String(),
			"stored":     drift.Stored.String(),
			"computed":   drift.Computed.String(),
		})
		j.logg.Error(logCtx, "ledger balance drift", drift)
		errs = append(errs, drift)
	}

	since := j.now().UTC().Add(-j.lookback)
	mismatches, err := j.reconciler.VerifyHashes(ctx, since)
	if err != nil {
		errs = append(errs, fmt.Errorf("verify hashes: %w", err))
	}
	for _, mismatch := range mismatches {
		j.logg.Error(j.logg.WithField(ctx, "transaction_id", mismatch.TransactionID.String()), "ledger hash mismatch", mismatch)
		errs = append(errs, mismatch)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"since":           since,
		"balance_drifts":  len(drifts),
		"hash_mismatches": len(mismatches),
	}), "ledger integrity check complete")
	return multierr.Combine(errs...)
}
