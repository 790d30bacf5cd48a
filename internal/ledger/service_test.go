package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fincore/internal/accounts"
	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/db/dbtest"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
	"github.com/angelmondragon/fincore/pkg/outbox"
)

type fixture struct {
	client   *db.Client
	ledger   Service
	accounts accounts.Service
	system   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(client.DB()),
		TxRunner:   client,
		Outbox:     outbox.NewService(outbox.NewRepository(client.DB()), nil),
	})
	require.NoError(t, err)
	registry, err := accounts.NewService(accounts.NewRepository(client.DB()), enums.CurrencyINR, nil)
	require.NoError(t, err)
	return &fixture{client: client, ledger: svc, accounts: registry, system: uuid.New()}
}

func (f *fixture) account(t *testing.T, owner enums.OwnerType, ownerID uuid.UUID, accountType enums.AccountType) *models.LedgerAccount {
	t.Helper()
	account, err := f.accounts.GetOrCreate(context.Background(), accounts.GetOrCreateInput{
		OwnerType:   owner,
		OwnerID:     ownerID,
		AccountType: accountType,
	})
	require.NoError(t, err)
	return account
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.LedgerAccount {
	t.Helper()
	account, err := f.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return account
}

func (f *fixture) fund(t *testing.T, wallet *models.LedgerAccount, amount string) {
	t.Helper()
	settlement := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeSettlement)
	_, err := f.ledger.Post(context.Background(), PostRequest{
		IdempotencyKey: "fund_" + uuid.NewString(),
		ReferenceType:  enums.ReferenceFunding,
		ReferenceID:    wallet.OwnerID.String(),
		CreatedBy:      "test",
		Entries: []EntryInput{
			{AccountID: settlement.ID, Direction: enums.EntryDirectionDebit, Amount: decimal.RequireFromString(amount)},
			{AccountID: wallet.ID, Direction: enums.EntryDirectionCredit, Amount: decimal.RequireFromString(amount)},
		},
	})
	require.NoError(t, err)
}

func holdRequest(key string, wallet, escrow uuid.UUID, amount string) PostRequest {
	return PostRequest{
		IdempotencyKey: key,
		ReferenceType:  enums.ReferenceOrderHold,
		ReferenceID:    "order-1",
		CreatedBy:      "svc",
		Entries: []EntryInput{
			{AccountID: wallet, Direction: enums.EntryDirectionDebit, Amount: decimal.RequireFromString(amount)},
			{AccountID: escrow, Direction: enums.EntryDirectionCredit, Amount: decimal.RequireFromString(amount)},
		},
	}
}

func TestPostBalancedTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := uuid.New()
	wallet := f.account(t, enums.OwnerTypeMerchant, merchant, enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "1000")

	txn, err := f.ledger.Post(ctx, holdRequest("hold_order_1", wallet.ID, escrow.ID, "500"))
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusPosted, txn.Status)
	require.Len(t, txn.Entries, 2)
	assert.NotEmpty(t, txn.EntryHash)

	assert.True(t, f.reload(t, wallet.ID).Balance.Equal(decimal.NewFromInt(500)))
	assert.True(t, f.reload(t, escrow.ID).Balance.Equal(decimal.NewFromInt(500)))

	stored, err := f.ledger.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, stored.Entries, 2)
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range stored.Entries {
		if e.Direction == enums.EntryDirectionDebit {
			debits = debits.Add(e.Amount)
			assert.True(t, e.BalanceAfter.Equal(decimal.NewFromInt(500)), "wallet balance_after")
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	assert.True(t, debits.Equal(credits))

	byKey, err := f.ledger.FindByIdempotencyKey(ctx, "hold_order_1")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, byKey.ID)

	var events []models.OutboxEvent
	require.NoError(t, f.client.DB().Where("event_type = ?", enums.EventLedgerTransactionPosted).Find(&events).Error)
	assert.Len(t, events, 2)
}

func TestPostRejectsReplayWithoutEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "1000")

	_, err := f.ledger.Post(ctx, holdRequest("hold_order_2", wallet.ID, escrow.ID, "100"))
	require.NoError(t, err)

	_, err = f.ledger.Post(ctx, holdRequest("hold_order_2", wallet.ID, escrow.ID, "100"))
	assert.Equal(t, pkgerrors.CodeIdempotency, pkgerrors.CodeOf(err))

	// replay wins over shape errors
	unbalanced := holdRequest("hold_order_2", wallet.ID, escrow.ID, "100")
	unbalanced.Entries[1].Amount = decimal.NewFromInt(1)
	_, err = f.ledger.Post(ctx, unbalanced)
	assert.Equal(t, pkgerrors.CodeIdempotency, pkgerrors.CodeOf(err))

	assert.True(t, f.reload(t, wallet.ID).Balance.Equal(decimal.NewFromInt(900)))
	var count int64
	require.NoError(t, f.client.DB().Model(&models.LedgerTransaction{}).Where("idempotency_key = ?", "hold_order_2").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPostRejectsInvalidShapes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "1000")

	cases := []struct {
		name    string
		entries []EntryInput
		code    pkgerrors.Code
	}{
		{
			name: "unbalanced",
			entries: []EntryInput{
				{AccountID: wallet.ID, Direction: enums.EntryDirectionDebit, Amount: decimal.NewFromInt(100)},
				{AccountID: escrow.ID, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(90)},
			},
			code: pkgerrors.CodeUnbalanced,
		},
		{
			name: "zero total",
			entries: []EntryInput{
				{AccountID: wallet.ID, Direction: enums.EntryDirectionDebit, Amount: decimal.Zero},
				{AccountID: escrow.ID, Direction: enums.EntryDirectionCredit, Amount: decimal.Zero},
			},
			code: pkgerrors.CodeDegenerate,
		},
		{
			name: "negative line",
			entries: []EntryInput{
				{AccountID: wallet.ID, Direction: enums.EntryDirectionDebit, Amount: decimal.NewFromInt(100)},
				{AccountID: escrow.ID, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(150)},
				{AccountID: escrow.ID, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(-50)},
			},
			code: pkgerrors.CodeDegenerate,
		},
		{
			name: "finer than storage scale",
			entries: []EntryInput{
				{AccountID: wallet.ID, Direction: enums.EntryDirectionDebit, Amount: decimal.RequireFromString("0.00005")},
				{AccountID: wallet.ID, Direction: enums.EntryDirectionDebit, Amount: decimal.RequireFromString("0.00005")},
				{AccountID: escrow.ID, Direction: enums.EntryDirectionCredit, Amount: decimal.RequireFromString("0.0001")},
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name:    "no entries",
			entries: nil,
			code:    pkgerrors.CodeValidation,
		},
		{
			name: "bad direction",
			entries: []EntryInput{
				{AccountID: wallet.ID, Direction: "sideways", Amount: decimal.NewFromInt(1)},
			},
			code: pkgerrors.CodeValidation,
		},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Post(ctx, PostRequest{
				IdempotencyKey: fmt.Sprintf("shape_%d", i),
				ReferenceType:  enums.ReferenceAdjustment,
				ReferenceID:    "adj",
				CreatedBy:      "svc",
				Entries:        tc.entries,
			})
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}

	_, err := f.ledger.Post(ctx, PostRequest{ReferenceType: enums.ReferenceAdjustment, ReferenceID: "adj", CreatedBy: "svc"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	assert.True(t, f.reload(t, wallet.ID).Balance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.reload(t, escrow.ID).Balance.IsZero())
}

func TestPostRejectsFrozenAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "1000")
	_, err := f.accounts.Freeze(ctx, wallet.ID)
	require.NoError(t, err)

	_, err = f.ledger.Post(ctx, holdRequest("hold_frozen", wallet.ID, escrow.ID, "100"))
	assert.Equal(t, pkgerrors.CodeAccountFrozen, pkgerrors.CodeOf(err))

	_, err = f.ledger.FindByIdempotencyKey(ctx, "hold_frozen")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.True(t, f.reload(t, wallet.ID).Balance.Equal(decimal.NewFromInt(1000)))
}

func TestPostRejectsInsufficientFundsAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "50")

	_, err := f.ledger.Post(ctx, holdRequest("hold_too_much", wallet.ID, escrow.ID, "100"))
	assert.Equal(t, pkgerrors.CodeInsufficientFunds, pkgerrors.CodeOf(err))

	assert.True(t, f.reload(t, wallet.ID).Balance.Equal(decimal.NewFromInt(50)))
	assert.True(t, f.reload(t, escrow.ID).Balance.IsZero())
	var entries int64
	require.NoError(t, f.client.DB().Model(&models.LedgerEntry{}).Where("account_id = ?", escrow.ID).Count(&entries).Error)
	assert.Zero(t, entries)
}

func TestPostRejectsMixedCurrenciesAndUnknownAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	merchant := uuid.New()
	wallet := f.account(t, enums.OwnerTypeMerchant, merchant, enums.AccountTypeWallet)
	f.fund(t, wallet, "100")
	usdEscrow, err := f.accounts.GetOrCreate(ctx, accounts.GetOrCreateInput{
		OwnerType: enums.OwnerTypeSystem, OwnerID: f.system, AccountType: enums.AccountTypeEscrowHold, Currency: enums.CurrencyUSD,
	})
	require.NoError(t, err)

	_, err = f.ledger.Post(ctx, holdRequest("hold_mixed", wallet.ID, usdEscrow.ID, "10"))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.ledger.Post(ctx, holdRequest("hold_ghost", wallet.ID, uuid.New(), "10"))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestConcurrentPostingsLoseNoUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "1000")

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Post(ctx, holdRequest(fmt.Sprintf("hold_conc_%d", i), wallet.ID, escrow.ID, "10.5"))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	gotWallet := f.reload(t, wallet.ID)
	assert.True(t, gotWallet.Balance.Equal(decimal.RequireFromString("790")), gotWallet.Balance.String())
	assert.True(t, f.reload(t, escrow.ID).Balance.Equal(decimal.RequireFromString("210")))
	assert.Equal(t, int64(workers+1), gotWallet.Version)

	reconciler, err := NewReconciler(NewRepository(f.client.DB()))
	require.NoError(t, err)
	drifts, err := reconciler.VerifyBalances(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestReversalVoidsOriginalOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "1000")

	hold, err := f.ledger.Post(ctx, holdRequest("hold_rev", wallet.ID, escrow.ID, "400"))
	require.NoError(t, err)

	reverse := func(key string) error {
		_, err := f.ledger.Post(ctx, PostRequest{
			IdempotencyKey: key,
			ReferenceType:  enums.ReferenceOrderVoid,
			ReferenceID:    "order-1",
			CreatedBy:      "svc",
			Reverses:       &hold.ID,
			Entries: []EntryInput{
				{AccountID: escrow.ID, Direction: enums.EntryDirectionDebit, Amount: decimal.NewFromInt(400)},
				{AccountID: wallet.ID, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(400)},
			},
		})
		return err
	}
	require.NoError(t, reverse("void_rev_1"))

	original, err := f.ledger.GetTransaction(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusVoided, original.Status)
	require.NotNil(t, original.VoidedByTransactionID)
	require.NotNil(t, original.VoidedAt)
	assert.True(t, f.reload(t, wallet.ID).Balance.Equal(decimal.NewFromInt(1000)))

	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(reverse("void_rev_2")))
	assert.True(t, f.reload(t, wallet.ID).Balance.Equal(decimal.NewFromInt(1000)))
}

func TestPostAcceptsTrailingZerosWithinScale(t *testing.T) {
	f := newFixture(t)
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "10")

	_, err := f.ledger.Post(context.Background(), holdRequest("hold_scale", wallet.ID, escrow.ID, "2.500000"))
	require.NoError(t, err)
	assert.True(t, f.reload(t, escrow.ID).Balance.Equal(decimal.RequireFromString("2.5")))
}

func TestOrderHoldReversibleOnlyByItsOrderVoid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "1000")

	hold, err := f.ledger.Post(ctx, holdRequest("hold_guard", wallet.ID, escrow.ID, "300"))
	require.NoError(t, err)

	release := func(key string, refType enums.ReferenceType, refID string) error {
		_, err := f.ledger.Post(ctx, PostRequest{
			IdempotencyKey: key,
			ReferenceType:  refType,
			ReferenceID:    refID,
			CreatedBy:      "svc",
			Reverses:       &hold.ID,
			Entries: []EntryInput{
				{AccountID: escrow.ID, Direction: enums.EntryDirectionDebit, Amount: decimal.NewFromInt(300)},
				{AccountID: wallet.ID, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(300)},
			},
		})
		return err
	}

	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(release("adj_release", enums.ReferenceAdjustment, "order-1")))
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(release("other_void", enums.ReferenceOrderVoid, "order-2")))

	original, err := f.ledger.GetTransaction(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusPosted, original.Status)
	assert.True(t, f.reload(t, escrow.ID).Balance.Equal(decimal.NewFromInt(300)))

	require.NoError(t, release("order_void", enums.ReferenceOrderVoid, "order-1"))
	assert.True(t, f.reload(t, escrow.ID).Balance.IsZero())
}

type recordingRepository struct {
	Repository
	mu     sync.Mutex
	locked []uuid.UUID
}

func (r *recordingRepository) WithTx(*gorm.DB) Repository { return r }

func (r *recordingRepository) FindTransactionByKey(context.Context, string) (*models.LedgerTransaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *recordingRepository) CreateTransaction(context.Context, *models.LedgerTransaction) error {
	return nil
}

func (r *recordingRepository) LockAccount(_ context.Context, id uuid.UUID) (*models.LedgerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = append(r.locked, id)
	return &models.LedgerAccount{ID: id, AccountType: enums.AccountTypeSettlement, Currency: enums.CurrencyINR}, nil
}

func (r *recordingRepository) UpdateBalance(context.Context, uuid.UUID, decimal.Decimal) error {
	return nil
}

func (r *recordingRepository) CreateEntry(context.Context, *models.LedgerEntry) error {
	return nil
}

type inlineTx struct{}

func (inlineTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type discardEmitter struct{}

func (discardEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error { return nil }

func TestPostLocksAccountsInAscendingOrderOnce(t *testing.T) {
	repo := &recordingRepository{}
	svc, err := NewService(ServiceParams{Repository: repo, TxRunner: inlineTx{}, Outbox: discardEmitter{}})
	require.NoError(t, err)

	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	mid := uuid.MustParse("7fffffff-0000-0000-0000-000000000000")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	_, err = svc.Post(context.Background(), PostRequest{
		IdempotencyKey: "capture_order_x",
		ReferenceType:  enums.ReferenceOrderCapture,
		ReferenceID:    "x",
		CreatedBy:      "svc",
		Entries: []EntryInput{
			{AccountID: high, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(2)},
			{AccountID: low, Direction: enums.EntryDirectionDebit, Amount: decimal.NewFromInt(100)},
			{AccountID: mid, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(98)},
			{AccountID: high, Direction: enums.EntryDirectionCredit, Amount: decimal.Zero},
		},
	})
	// the zero line makes the posting degenerate before any lock is taken
	assert.Equal(t, pkgerrors.CodeDegenerate, pkgerrors.CodeOf(err))
	assert.Empty(t, repo.locked)

	_, err = svc.Post(context.Background(), PostRequest{
		IdempotencyKey: "capture_order_y",
		ReferenceType:  enums.ReferenceOrderCapture,
		ReferenceID:    "y",
		CreatedBy:      "svc",
		Entries: []EntryInput{
			{AccountID: high, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(1)},
			{AccountID: low, Direction: enums.EntryDirectionDebit, Amount: decimal.NewFromInt(100)},
			{AccountID: mid, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(98)},
			{AccountID: high, Direction: enums.EntryDirectionCredit, Amount: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{low, mid, high}, repo.locked)
}

func TestReconcilerDetectsTampering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "1000")
	hold, err := f.ledger.Post(ctx, holdRequest("hold_tamper", wallet.ID, escrow.ID, "250"))
	require.NoError(t, err)

	reconciler, err := NewReconciler(NewRepository(f.client.DB()))
	require.NoError(t, err)
	since := hold.PostedAt.Add(-time.Second)
	mismatches, err := reconciler.VerifyHashes(ctx, since)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	conn := f.client.DB()
	require.NoError(t, conn.Model(&models.LedgerAccount{}).Where("id = ?", wallet.ID).Update("balance", decimal.NewFromInt(9999)).Error)
	require.NoError(t, conn.Model(&models.LedgerEntry{}).Where("transaction_id = ? AND account_id = ?", hold.ID, escrow.ID).Update("amount", decimal.NewFromInt(1)).Error)

	drifts, err := reconciler.VerifyBalances(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 2)

	mismatches, err = reconciler.VerifyHashes(ctx, since)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, hold.ID, mismatches[0].TransactionID)
}

func TestComputeEntryHashIsOrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	lines := []EntryLine{
		{AccountID: a, Direction: enums.EntryDirectionDebit, Amount: decimal.NewFromInt(5)},
		{AccountID: b, Direction: enums.EntryDirectionCredit, Amount: decimal.RequireFromString("5.0")},
	}
	reversed := []EntryLine{lines[1], lines[0]}
	assert.Equal(t,
		ComputeEntryHash("k", enums.ReferenceAdjustment, "r", lines),
		ComputeEntryHash("k", enums.ReferenceAdjustment, "r", reversed))
	assert.NotEqual(t,
		ComputeEntryHash("k", enums.ReferenceAdjustment, "r", lines),
		ComputeEntryHash("k2", enums.ReferenceAdjustment, "r", lines))
}

func TestListAccountEntriesPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	escrow := f.account(t, enums.OwnerTypeSystem, f.system, enums.AccountTypeEscrowHold)
	f.fund(t, wallet, "1000")
	for i := 0; i < 3; i++ {
		_, err := f.ledger.Post(ctx, holdRequest(fmt.Sprintf("hold_page_%d", i), wallet.ID, escrow.ID, "100"))
		require.NoError(t, err)
	}

	first, err := f.ledger.ListAccountEntries(ctx, wallet.ID, ListParams{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Entries, 3)
	require.NotEmpty(t, first.Cursor)
	assert.True(t, first.Entries[0].BalanceAfter.Equal(decimal.NewFromInt(700)), "newest entry first")

	second, err := f.ledger.ListAccountEntries(ctx, wallet.ID, ListParams{Limit: 3, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Entries, 1)
	assert.Empty(t, second.Cursor)
	assert.True(t, second.Entries[0].BalanceAfter.Equal(decimal.NewFromInt(1000)), "funding entry last")

	seen := map[uuid.UUID]bool{}
	for _, e := range append(first.Entries, second.Entries...) {
		assert.False(t, seen[e.ID], "entry repeated across pages")
		seen[e.ID] = true
		assert.Equal(t, wallet.ID, e.AccountID)
	}
}

func TestListAccountEntriesErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ListAccountEntries(ctx, uuid.New(), ListParams{})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	wallet := f.account(t, enums.OwnerTypeMerchant, uuid.New(), enums.AccountTypeWallet)
	_, err = f.ledger.ListAccountEntries(ctx, wallet.ID, ListParams{Cursor: "not-a-cursor"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	page, err := f.ledger.ListAccountEntries(ctx, wallet.ID, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.NotNil(t, page.Entries)
}
