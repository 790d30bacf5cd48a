package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fincore/internal/repo"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
)

// Identity is the natural key of a ledger account.
type Identity struct {
	OwnerType   enums.OwnerType
	OwnerID     uuid.UUID
	AccountType enums.AccountType
	Currency    enums.Currency
}

// Repository persists ledger accounts. Balances are never written here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByIdentity(ctx context.Context, id Identity) (*models.LedgerAccount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error)
	InsertIfAbsent(ctx context.Context, account *models.LedgerAccount) error
	SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an account repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindByIdentity(ctx context.Context, id Identity) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	err := r.DB(ctx).
		Where("owner_type = ? AND owner_id = ? AND account_type = ? AND currency = ?",
			id.OwnerType, id.OwnerID, id.AccountType, id.Currency).
		Take(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	if err := r.DB(ctx).Where("id = ?", id).Take(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// InsertIfAbsent inserts the account unless one with the same identity exists.
func (r *repository) InsertIfAbsent(ctx context.Context, account *models.LedgerAccount) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_type"}, {Name: "owner_id"}, {Name: "account_type"}, {Name: "currency"}},
			DoNothing: true,
		}).
		Create(account).Error
}

func (r *repository) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) (int64, error) {
	res := r.DB(ctx).
		Model(&models.LedgerAccount{}).
		Where("id = ?", id).
		Update("is_frozen", frozen)
	return res.RowsAffected, res.Error
}
