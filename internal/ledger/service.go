package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/metrics"
	"github.com/angelmondragon/fincore/pkg/outbox"
	"github.com/angelmondragon/fincore/pkg/outbox/payloads"
	"github.com/angelmondragon/fincore/pkg/pagination"
)

const idempotencyConstraint = "ux_ledger_transactions_idempotency_key"

// amountScale matches the numeric(20,4) amount and balance columns.
const amountScale int32 = 4

// Service is the ledger engine: the only writer of balances and entries.
type Service interface {
	Post(ctx context.Context, req PostRequest) (*models.LedgerTransaction, error)
	PostTx(ctx context.Context, tx *gorm.DB, req PostRequest) (*models.LedgerTransaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.LedgerTransaction, error)
	LockPostedTx(ctx context.Context, tx *gorm.DB, key string) (*models.LedgerTransaction, error)
	ListAccountEntries(ctx context.Context, accountID uuid.UUID, params ListParams) (*EntryPage, error)
}

// ListParams configures statement pagination.
type ListParams struct {
	Limit  int
	Cursor string
}

// EntryPage is one page of an account statement. Cursor is empty on the last page.
type EntryPage struct {
	Entries []models.LedgerEntry `json:"entries"`
	Cursor  string               `json:"cursor"`
}

// EntryInput is one requested debit or credit.
type EntryInput struct {
	AccountID uuid.UUID
	Direction enums.EntryDirection
	Amount    decimal.Decimal
}

// PostRequest describes a balanced posting. Reverses names the transaction this
// one compensates; that transaction is flipped to voided in the same commit.
type PostRequest struct {
	IdempotencyKey string
	ReferenceType  enums.ReferenceType
	ReferenceID    string
	Description    string
	CreatedBy      string
	Entries        []EntryInput
	Reverses       *uuid.UUID
}

// ServiceParams wires the ledger engine.
type ServiceParams struct {
	Repository Repository
	TxRunner   db.TxRunner
	Outbox     outbox.Emitter
	Metrics    *metrics.LedgerMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo    Repository
	tx      db.TxRunner
	outbox  outbox.Emitter
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the ledger engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repository,
		tx:      params.TxRunner,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// Post runs the posting in its own database transaction.
func (s *service) Post(ctx context.Context, req PostRequest) (*models.LedgerTransaction, error) {
	var posted *models.LedgerTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		posted, err = s.PostTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, mapStorageError(err, "commit ledger transaction")
	}
	return posted, nil
}

// PostTx joins the caller's transaction. Any returned error leaves the caller
// responsible for rolling back.
func (s *service) PostTx(ctx context.Context, tx *gorm.DB, req PostRequest) (txn *models.LedgerTransaction, err error) {
	started := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = string(pkgerrors.CodeOf(err))
		}
		s.metrics.ObservePosting(string(req.ReferenceType), result, time.Since(started))
		if err != nil && s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"idempotency_key": req.IdempotencyKey,
				"reference_type":  req.ReferenceType,
				"reference_id":    req.ReferenceID,
				"error_code":      result,
			})
			s.logg.Warn(logCtx, "ledger posting rejected")
		}
	}()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	if _, err := repo.FindTransactionByKey(ctx, req.IdempotencyKey); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "duplicate submission")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, mapStorageError(err, "check idempotency key")
	}

	total, err := checkShape(req.Entries)
	if err != nil {
		return nil, err
	}

	var reversed *models.LedgerTransaction
	if req.Reverses != nil {
		if reversed, err = lockReversible(ctx, repo, req); err != nil {
			return nil, err
		}
	}

	postedAt := s.now()
	lines := make([]EntryLine, len(req.Entries))
	for i, e := range req.Entries {
		lines[i] = EntryLine{AccountID: e.AccountID, Direction: e.Direction, Amount: e.Amount}
	}
	txn = &models.LedgerTransaction{
		ID:                    uuid.New(),
		IdempotencyKey:        req.IdempotencyKey,
		ReferenceType:         req.ReferenceType,
		ReferenceID:           req.ReferenceID,
		Description:           req.Description,
		Status:                enums.TransactionStatusPosted,
		CreatedBy:             req.CreatedBy,
		EntryHash:             ComputeEntryHash(req.IdempotencyKey, req.ReferenceType, req.ReferenceID, lines),
		ReversesTransactionID: req.Reverses,
		PostedAt:              postedAt,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, idempotencyConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "duplicate submission")
		}
		return nil, mapStorageError(err, "insert ledger transaction")
	}

	entries, err := s.applyEntries(ctx, repo, txn.ID, req.Entries)
	if err != nil {
		return nil, err
	}
	txn.Entries = make([]models.LedgerEntry, len(entries))
	for i, e := range entries {
		txn.Entries[i] = e.LedgerEntry
	}

	if reversed != nil {
		if err := repo.MarkVoided(ctx, reversed.ID, txn.ID, postedAt); err != nil {
			return nil, mapStorageError(err, "void reversed transaction")
		}
	}

	if err := s.outbox.Emit(ctx, tx, postedEvent(txn, total, entries[0].currency, accountsOf(entries))); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit ledger event")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"transaction_id":  txn.ID.String(),
			"idempotency_key": txn.IdempotencyKey,
			"reference_type":  txn.ReferenceType,
			"reference_id":    txn.ReferenceID,
			"total":           total.String(),
		})
		s.logg.Info(logCtx, "ledger transaction posted")
	}
	return txn, nil
}

type postedEntry struct {
	models.LedgerEntry
	accountType enums.AccountType
	currency    enums.Currency
}

// applyEntries locks each distinct account in ascending id order and applies
// the signed deltas. Ordering is what keeps concurrent postings deadlock free.
func (s *service) applyEntries(ctx context.Context, repo Repository, txnID uuid.UUID, inputs []EntryInput) ([]postedEntry, error) {
	ordered := make([]EntryInput, len(inputs))
	copy(ordered, inputs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].AccountID[:], ordered[j].AccountID[:]) < 0
	})

	locked := make(map[uuid.UUID]*models.LedgerAccount, len(ordered))
	var currency enums.Currency
	out := make([]postedEntry, 0, len(ordered))
	for _, in := range ordered {
		account, ok := locked[in.AccountID]
		if !ok {
			var err error
			account, err = repo.LockAccount(ctx, in.AccountID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found").
						WithDetails(map[string]any{"account_id": in.AccountID})
				}
				return nil, mapStorageError(err, "lock account")
			}
			locked[in.AccountID] = account
		}
		if account.IsFrozen {
			return nil, pkgerrors.New(pkgerrors.CodeAccountFrozen, "account is frozen").
				WithDetails(map[string]any{"account_id": account.ID})
		}
		if currency == "" {
			currency = account.Currency
		} else if account.Currency != currency {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "entries span multiple currencies")
		}

		next := account.Balance.Add(signedDelta(account.AccountType, in.Direction, in.Amount))
		if next.IsNegative() && !account.AccountType.AllowsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds").
				WithDetails(map[string]any{
					"account_id": account.ID,
					"balance":    account.Balance.String(),
					"requested":  in.Amount.String(),
				})
		}
		if err := repo.UpdateBalance(ctx, account.ID, next); err != nil {
			return nil, mapStorageError(err, "update balance")
		}
		account.Balance = next
		account.Version++

		entry := models.LedgerEntry{
			ID:            uuid.New(),
			TransactionID: txnID,
			AccountID:     account.ID,
			Direction:     in.Direction,
			Amount:        in.Amount,
			BalanceAfter:  next,
		}
		if err := repo.CreateEntry(ctx, &entry); err != nil {
			return nil, mapStorageError(err, "insert ledger entry")
		}
		out = append(out, postedEntry{LedgerEntry: entry, accountType: account.AccountType, currency: account.Currency})
	}
	return out, nil
}

// lockReversible locks the transaction being compensated. Only a posted
// transaction can be reversed, and an order hold only by its own order void.
func lockReversible(ctx context.Context, repo Repository, req PostRequest) (*models.LedgerTransaction, error) {
	original, err := repo.LockTransaction(ctx, *req.Reverses)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reversed transaction not found")
		}
		return nil, mapStorageError(err, "lock reversed transaction")
	}
	if original.Status != enums.TransactionStatusPosted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already voided").
			WithDetails(map[string]any{"transaction_id": original.ID})
	}
	if original.ReferenceType == enums.ReferenceOrderHold &&
		(req.ReferenceType != enums.ReferenceOrderVoid || req.ReferenceID != original.ReferenceID) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order hold can only be released by voiding its order").
			WithDetails(map[string]any{"transaction_id": original.ID, "reference_id": original.ReferenceID})
	}
	return original, nil
}

// LockPostedTx locks the transaction recorded under key inside tx and fails
// with STATE_CONFLICT unless it is still posted.
func (s *service) LockPostedTx(ctx context.Context, tx *gorm.DB, key string) (*models.LedgerTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)
	found, err := repo.FindTransactionByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no posted transaction for key").
				WithDetails(map[string]any{"idempotency_key": key})
		}
		return nil, mapStorageError(err, "find transaction")
	}
	locked, err := repo.LockTransaction(ctx, found.ID)
	if err != nil {
		return nil, mapStorageError(err, "lock transaction")
	}
	if locked.Status != enums.TransactionStatusPosted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already voided").
			WithDetails(map[string]any{"transaction_id": locked.ID, "idempotency_key": key})
	}
	return locked, nil
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	txn, err := s.repo.FindTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, mapStorageError(err, "load transaction")
	}
	return txn, nil
}

func (s *service) FindByIdempotencyKey(ctx context.Context, key string) (*models.LedgerTransaction, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	txn, err := s.repo.FindTransactionByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, mapStorageError(err, "load transaction")
	}
	return txn, nil
}

// ListAccountEntries returns the account's entries newest first. Each entry
// carries the balance right after it was applied.
func (s *service) ListAccountEntries(ctx context.Context, accountID uuid.UUID, params ListParams) (*EntryPage, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	query := listEntriesParams{AccountID: accountID, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	if _, err := s.repo.FindAccount(ctx, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, mapStorageError(err, "load account")
	}

	entries, next, err := s.repo.ListEntriesByAccount(ctx, query)
	if err != nil {
		return nil, mapStorageError(err, "list entries")
	}
	page := &EntryPage{Entries: entries}
	if page.Entries == nil {
		page.Entries = []models.LedgerEntry{}
	}
	if next != nil {
		page.Cursor = next.Encode()
	}
	return page, nil
}

func validateRequest(req PostRequest) error {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	if !req.ReferenceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid reference type")
	}
	if strings.TrimSpace(req.ReferenceID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference id required")
	}
	if strings.TrimSpace(req.CreatedBy) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "created_by required")
	}
	if len(req.Entries) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one entry required")
	}
	for i, e := range req.Entries {
		if !e.Amount.Truncate(amountScale).Equal(e.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entry %d: amount has more than %d decimal places", i, amountScale))
		}
		if e.AccountID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entry %d: account id required", i))
		}
		if !e.Direction.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entry %d: invalid direction", i))
		}
	}
	if req.Reverses != nil && *req.Reverses == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reversed transaction id is empty")
	}
	return nil
}

// checkShape enforces Σdebits = Σcredits, then a positive total and positive lines.
func checkShape(entries []EntryInput) (decimal.Decimal, error) {
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Direction == enums.EntryDirectionDebit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	if !debits.Equal(credits) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnbalanced, "debits and credits differ").
			WithDetails(map[string]any{"debits": debits.String(), "credits": credits.String()})
	}
	if !debits.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDegenerate, "transaction total must be positive")
	}
	for i, e := range entries {
		if !e.Amount.IsPositive() {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeDegenerate, fmt.Sprintf("entry %d: amount must be positive", i))
		}
	}
	return debits, nil
}

// signedDelta is +amount on the account's normal side and -amount otherwise.
func signedDelta(accountType enums.AccountType, direction enums.EntryDirection, amount decimal.Decimal) decimal.Decimal {
	if direction == accountType.NormalSide() {
		return amount
	}
	return amount.Neg()
}

func mapStorageError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsLockTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, "account lock wait exceeded")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func accountsOf(entries []postedEntry) []payloads.PostedEntry {
	out := make([]payloads.PostedEntry, len(entries))
	for i, e := range entries {
		out[i] = payloads.PostedEntry{
			AccountID:    e.AccountID,
			AccountType:  e.accountType,
			Direction:    e.Direction,
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
		}
	}
	return out
}

func postedEvent(txn *models.LedgerTransaction, total decimal.Decimal, currency enums.Currency, entries []payloads.PostedEntry) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventLedgerTransactionPosted,
		AggregateType: enums.AggregateLedgerTransaction,
		AggregateID:   txn.ID,
		Actor:         &outbox.ActorRef{ID: txn.CreatedBy},
		OccurredAt:    txn.PostedAt,
		Data: payloads.LedgerTransactionPostedEvent{
			TransactionID:         txn.ID,
			IdempotencyKey:        txn.IdempotencyKey,
			ReferenceType:         txn.ReferenceType,
			ReferenceID:           txn.ReferenceID,
			CreatedBy:             txn.CreatedBy,
			EntryHash:             txn.EntryHash,
			ReversesTransactionID: txn.ReversesTransactionID,
			Currency:              currency,
			Total:                 total,
			Entries:               entries,
			PostedAt:              txn.PostedAt,
		},
	}
}
