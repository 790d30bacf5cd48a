package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fincore/internal/accounts"
	"github.com/angelmondragon/fincore/internal/ledger"
	"github.com/angelmondragon/fincore/internal/risk"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
)

// Repository reads orders and writes their status. Nothing else in an order
// row is owned by this service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
}

// LedgerPoster is the slice of the ledger engine the orchestrator drives.
type LedgerPoster interface {
	PostTx(ctx context.Context, tx *gorm.DB, req ledger.PostRequest) (*models.LedgerTransaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.LedgerTransaction, error)
	LockPostedTx(ctx context.Context, tx *gorm.DB, key string) (*models.LedgerTransaction, error)
}

// AccountResolver finds or opens the accounts a flow posts against.
type AccountResolver interface {
	GetOrCreate(ctx context.Context, input accounts.GetOrCreateInput) (*models.LedgerAccount, error)
}

// RiskEvaluator scores a hold before any funds move.
type RiskEvaluator interface {
	Evaluate(ctx context.Context, input risk.Input) (*risk.Decision, error)
}
