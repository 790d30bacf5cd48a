package risk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fincore/internal/repo"
	"github.com/angelmondragon/fincore/pkg/db/models"
)

// Repository reads the risk features and stores the audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CountOrdersSince(ctx context.Context, merchantID uuid.UUID, since time.Time) (int64, error)
	FindReliability(ctx context.Context, merchantID, supplierID uuid.UUID) (*decimal.Decimal, error)
	CreateDecisionLog(ctx context.Context, log *models.RiskDecisionLog) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a risk repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CountOrdersSince(ctx context.Context, merchantID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Order{}).
		Where("merchant_id = ? AND created_at >= ?", merchantID, since).
		Count(&count).Error
	return count, err
}

// FindReliability returns nil when no score exists for the pair.
func (r *repository) FindReliability(ctx context.Context, merchantID, supplierID uuid.UUID) (*decimal.Decimal, error) {
	var score models.SupplierScore
	err := r.DB(ctx).
		Where("merchant_id = ? AND supplier_id = ?", merchantID, supplierID).
		Take(&score).Error
	if repo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &score.ReliabilityScore, nil
}

func (r *repository) CreateDecisionLog(ctx context.Context, log *models.RiskDecisionLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	return r.DB(ctx).Create(log).Error
}
