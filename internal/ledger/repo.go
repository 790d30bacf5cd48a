package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fincore/internal/repo"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/angelmondragon/fincore/pkg/pagination"
)

// DirectionTotal is the summed amount of one account's entries on one side.
type DirectionTotal struct {
	AccountID uuid.UUID
	Direction enums.EntryDirection
	Total     decimal.Decimal
}

// Repository is the persistence surface of the ledger engine. It is the only
// place that writes balances or entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindTransactionByKey(ctx context.Context, key string) (*models.LedgerTransaction, error)
	FindTransaction(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error)
	CreateTransaction(ctx context.Context, txn *models.LedgerTransaction) error
	LockAccount(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	LockTransaction(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error)
	MarkVoided(ctx context.Context, id, voidedBy uuid.UUID, at time.Time) error
	ListAccounts(ctx context.Context) ([]models.LedgerAccount, error)
	SumEntriesByAccount(ctx context.Context) ([]DirectionTotal, error)
	ListTransactionsSince(ctx context.Context, since time.Time) ([]models.LedgerTransaction, error)
	FindAccount(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error)
	ListEntriesByAccount(ctx context.Context, params listEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error)
}

type listEntriesParams struct {
	AccountID uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindTransactionByKey(ctx context.Context, key string) (*models.LedgerTransaction, error) {
	var txn models.LedgerTransaction
	if err := r.DB(ctx).Where("idempotency_key = ?", key).Take(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindTransaction(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error) {
	var txn models.LedgerTransaction
	err := r.DB(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("account_id ASC").Order("direction ASC")
		}).
		Where("id = ?", id).
		Take(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.LedgerTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.DB(ctx).Omit(clause.Associations).Create(txn).Error
}

// LockAccount reads the account with SELECT ... FOR UPDATE.
func (r *repository) LockAccount(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	err := r.ForUpdate(ctx).
		Where("id = ?", id).
		Take(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return r.DB(ctx).
		Model(&models.LedgerAccount{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":    balance,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) LockTransaction(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error) {
	var txn models.LedgerTransaction
	err := r.ForUpdate(ctx).
		Where("id = ?", id).
		Take(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) MarkVoided(ctx context.Context, id, voidedBy uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.LedgerTransaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusPosted).
		Updates(map[string]any{
			"status":                   enums.TransactionStatusVoided,
			"voided_by_transaction_id": voidedBy,
			"voided_at":                at,
		}).Error
}

func (r *repository) ListAccounts(ctx context.Context) ([]models.LedgerAccount, error) {
	var accounts []models.LedgerAccount
	if err := r.DB(ctx).Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repository) SumEntriesByAccount(ctx context.Context) ([]DirectionTotal, error) {
	var rows []DirectionTotal
	err := r.DB(ctx).
		Model(&models.LedgerEntry{}).
		Select("account_id, direction, SUM(amount) AS total").
		Group("account_id, direction").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListTransactionsSince(ctx context.Context, since time.Time) ([]models.LedgerTransaction, error) {
	var txns []models.LedgerTransaction
	err := r.DB(ctx).
		Preload("Entries").
		Where("posted_at >= ?", since).
		Order("posted_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) FindAccount(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	if err := r.DB(ctx).Where("id = ?", id).Take(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ListEntriesByAccount pages an account's entries newest first.
func (r *repository) ListEntriesByAccount(ctx context.Context, params listEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error) {
	query := r.DB(ctx).Model(&models.LedgerEntry{}).Where("account_id = ?", params.AccountID)
	if c := params.Cursor; c != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var entries []models.LedgerEntry
	err := query.Order("created_at DESC, id DESC").Limit(pagination.FetchLimit(params.Limit)).Find(&entries).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(entries, params.Limit, func(e models.LedgerEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return page, next, nil
}
