package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/metrics"
)

const (
	baseRisk        = 10
	highValueRisk   = 40
	velocityRisk    = 50
	lowTrustRisk    = 30
	blockThreshold  = 80
	reviewThreshold = 50
)

// Input is what the gate scores.
type Input struct {
	MerchantID uuid.UUID
	SupplierID *uuid.UUID
	OrderID    *uuid.UUID
	Amount     decimal.Decimal
}

// Decision is the gate's verdict with the features it was derived from.
type Decision struct {
	Decision    enums.RiskDecision  `json:"decision"`
	Score       int                 `json:"score"`
	Reasons     []string            `json:"reasons"`
	Features    models.RiskFeatures `json:"features"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
}

// AuditRecord pairs an evaluation with its input for the audit trail.
type AuditRecord struct {
	Input    Input
	Decision Decision
}

// AuditSink receives every evaluation. Implementations must not block.
type AuditSink interface {
	Record(ctx context.Context, record AuditRecord)
}

// Service is the risk gate.
type Service interface {
	Evaluate(ctx context.Context, input Input) (*Decision, error)
}

// Thresholds are the tunable limits of the scoring rules.
type Thresholds struct {
	AutoApproveCeiling decimal.Decimal
	VelocityLimit      int64
	VelocityWindow     time.Duration
	LowTrustThreshold  decimal.Decimal
}

// ThresholdsFromConfig maps the risk config section.
func ThresholdsFromConfig(cfg config.RiskConfig) Thresholds {
	return Thresholds{
		AutoApproveCeiling: cfg.AutoApproveCeiling,
		VelocityLimit:      cfg.VelocityLimit,
		VelocityWindow:     cfg.VelocityWindow,
		LowTrustThreshold:  cfg.LowTrustThreshold,
	}
}

// ServiceParams wires the gate.
type ServiceParams struct {
	Repository Repository
	Thresholds Thresholds
	Audit      AuditSink
	Metrics    *metrics.RiskMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo       Repository
	thresholds Thresholds
	audit      AuditSink
	metrics    *metrics.RiskMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the risk gate.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, errors.New("risk repository required")
	}
	if !params.Thresholds.AutoApproveCeiling.IsPositive() {
		return nil, errors.New("auto-approve ceiling must be positive")
	}
	if params.Thresholds.VelocityWindow <= 0 {
		return nil, errors.New("velocity window must be positive")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:       params.Repository,
		thresholds: params.Thresholds,
		audit:      params.Audit,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

// Evaluate scores the input. Feature reads fail closed; auditing never fails the call.
func (s *service) Evaluate(ctx context.Context, input Input) (*Decision, error) {
	if input.MerchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}

	evaluatedAt := s.now()
	velocity, err := s.repo.CountOrdersSince(ctx, input.MerchantID, evaluatedAt.Add(-s.thresholds.VelocityWindow))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "risk velocity lookup failed")
	}
	var reliability *decimal.Decimal
	if input.SupplierID != nil && *input.SupplierID != uuid.Nil {
		reliability, err = s.repo.FindReliability(ctx, input.MerchantID, *input.SupplierID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "risk reliability lookup failed")
		}
	}

	decision := s.score(input.Amount, velocity, reliability)
	decision.EvaluatedAt = evaluatedAt

	s.metrics.IncDecision(string(decision.Decision))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"merchant_id": input.MerchantID.String(),
			"amount":      input.Amount.String(),
			"score":       decision.Score,
			"decision":    decision.Decision,
			"velocity_1h": velocity,
		})
		if input.OrderID != nil {
			logCtx = s.logg.WithField(logCtx, "order_id", input.OrderID.String())
		}
		s.logg.Info(logCtx, "risk decision evaluated")
	}
	if s.audit != nil {
		s.audit.Record(ctx, AuditRecord{Input: input, Decision: *decision})
	}
	return decision, nil
}

func (s *service) score(amount decimal.Decimal, velocity int64, reliability *decimal.Decimal) *Decision {
	score := baseRisk
	reasons := []string{}
	overCeiling := amount.GreaterThan(s.thresholds.AutoApproveCeiling)
	if overCeiling {
		score += highValueRisk
		reasons = append(reasons, fmt.Sprintf("High Value Transaction (> %s)", s.thresholds.AutoApproveCeiling.String()))
	}
	if velocity > s.thresholds.VelocityLimit {
		score += velocityRisk
		reasons = append(reasons, fmt.Sprintf("High Velocity (%d orders in %s)", velocity, s.thresholds.VelocityWindow))
	}
	if reliability != nil && reliability.LessThan(s.thresholds.LowTrustThreshold) {
		score += lowTrustRisk
		reasons = append(reasons, "Low Supplier Reliability")
	}

	verdict := enums.RiskDecisionApprove
	switch {
	case score >= blockThreshold:
		verdict = enums.RiskDecisionBlock
	case score >= reviewThreshold || overCeiling:
		verdict = enums.RiskDecisionReview
	}

	return &Decision{
		Decision: verdict,
		Score:    score,
		Reasons:  reasons,
		Features: models.RiskFeatures{
			Amount:        amount,
			Velocity1h:    velocity,
			BaseRisk:      baseRisk,
			SupplierScore: reliability,
		},
	}
}
