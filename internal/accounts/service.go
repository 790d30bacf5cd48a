package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
	"github.com/angelmondragon/fincore/pkg/logger"
)

// Service is the account registry.
type Service interface {
	GetOrCreate(ctx context.Context, input GetOrCreateInput) (*models.LedgerAccount, error)
	Get(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error)
	Freeze(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error)
	Unfreeze(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error)
}

// GetOrCreateInput names the account to resolve. An empty Currency means the default.
type GetOrCreateInput struct {
	OwnerType   enums.OwnerType
	OwnerID     uuid.UUID
	AccountType enums.AccountType
	Currency    enums.Currency
}

type service struct {
	repo            Repository
	defaultCurrency enums.Currency
	logg            *logger.Logger
}

// NewService builds the registry. defaultCurrency applies when callers omit one.
func NewService(repo Repository, defaultCurrency enums.Currency, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("accounts repository required")
	}
	if !defaultCurrency.IsValid() {
		return nil, errors.New("valid default currency required")
	}
	return &service{repo: repo, defaultCurrency: defaultCurrency, logg: logg}, nil
}

// GetOrCreate returns the unique account for the identity, creating it with a
// zero balance when absent. Concurrent callers converge on the same row.
func (s *service) GetOrCreate(ctx context.Context, input GetOrCreateInput) (*models.LedgerAccount, error) {
	identity, err := s.identity(input)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.FindByIdentity(ctx, identity)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	candidate := &models.LedgerAccount{
		ID:          uuid.New(),
		OwnerType:   identity.OwnerType,
		OwnerID:     identity.OwnerID,
		AccountType: identity.AccountType,
		Currency:    identity.Currency,
	}
	if err := s.repo.InsertIfAbsent(ctx, candidate); err != nil && !db.IsUniqueViolation(err, "ux_ledger_accounts_identity") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}

	account, err = s.repo.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload account")
	}
	if s.logg != nil && account.ID == candidate.ID {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"account_id":   account.ID.String(),
			"owner_type":   account.OwnerType,
			"owner_id":     account.OwnerID.String(),
			"account_type": account.AccountType,
			"currency":     account.Currency,
		})
		s.logg.Info(logCtx, "ledger account created")
	}
	return account, nil
}

func (s *service) identity(input GetOrCreateInput) (Identity, error) {
	if !input.OwnerType.IsValid() {
		return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid owner type")
	}
	if input.OwnerID == uuid.Nil {
		return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if !input.AccountType.IsValid() {
		return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid account type")
	}
	currency := input.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !currency.IsValid() {
		return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	return Identity{
		OwnerType:   input.OwnerType,
		OwnerID:     input.OwnerID,
		AccountType: input.AccountType,
		Currency:    currency,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

func (s *service) Freeze(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error) {
	return s.setFrozen(ctx, id, true)
}

func (s *service) Unfreeze(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error) {
	return s.setFrozen(ctx, id, false)
}

func (s *service) setFrozen(ctx context.Context, id uuid.UUID, frozen bool) (*models.LedgerAccount, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	affected, err := s.repo.SetFrozen(ctx, id, frozen)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"account_id": id.String(), "is_frozen": frozen})
		s.logg.Info(logCtx, "ledger account freeze flag changed")
	}
	return s.Get(ctx, id)
}
