package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fincore/internal/accounts"
	"github.com/angelmondragon/fincore/internal/ledger"
	"github.com/angelmondragon/fincore/internal/risk"
	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/outbox"
	"github.com/angelmondragon/fincore/pkg/outbox/payloads"
)

const (
	MessageFundsReserved   = "Funds reserved successfully."
	MessageAlreadyHeld     = "Funds already held."
	MessagePaymentCaptured = "Payment captured."
	MessageAlreadyCaptured = "Payment already captured."
	MessageVoided          = "Transaction voided, funds refunded."
	MessageAlreadyVoided   = "Order already voided."
	MessageShipped         = "Order marked as shipped."
	MessageAlreadyShipped  = "Order already shipped."
)

// Actor is the authenticated caller driving an order operation.
type Actor struct {
	ID   string
	Role string
}

// Result is returned by every orchestrator operation, including no-op replays.
type Result struct {
	OrderID       uuid.UUID         `json:"order_id"`
	Status        enums.OrderStatus `json:"status"`
	Message       string            `json:"message"`
	TransactionID *uuid.UUID        `json:"transaction_id,omitempty"`
}

// Service moves orders through their financial lifecycle. Each money-moving
// call performs one ledger posting in the same transaction as the status change.
type Service interface {
	PlaceOrderHold(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error)
	CaptureOrderPayment(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error)
	VoidTransaction(ctx context.Context, orderID uuid.UUID, reason string, actor Actor) (*Result, error)
	MarkShipped(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error)
}

// ServiceParams wires the orchestrator.
type ServiceParams struct {
	Repository    Repository
	TxRunner      db.TxRunner
	Ledger        LedgerPoster
	Accounts      AccountResolver
	Risk          RiskEvaluator
	Outbox        outbox.Emitter
	Logger        *logger.Logger
	SystemOwnerID uuid.UUID
	FeeRate       decimal.Decimal
	Now           func() time.Time
}

type service struct {
	repo     Repository
	tx       db.TxRunner
	ledger   LedgerPoster
	accounts AccountResolver
	risk     RiskEvaluator
	outbox   outbox.Emitter
	logg     *logger.Logger
	system   uuid.UUID
	feeRate  decimal.Decimal
	now      func() time.Time
}

// NewService builds the transaction orchestrator with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger required")
	case params.Accounts == nil:
		return nil, fmt.Errorf("account registry required")
	case params.Risk == nil:
		return nil, fmt.Errorf("risk gate required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.SystemOwnerID == uuid.Nil:
		return nil, fmt.Errorf("system owner id required")
	}
	if params.FeeRate.IsNegative() || params.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("fee rate must be in [0, 1)")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repository,
		tx:       params.TxRunner,
		ledger:   params.Ledger,
		accounts: params.Accounts,
		risk:     params.Risk,
		outbox:   params.Outbox,
		logg:     params.Logger,
		system:   params.SystemOwnerID,
		feeRate:  params.FeeRate,
		now:      now,
	}, nil
}

func holdKey(orderID uuid.UUID) string    { return "hold_order_" + orderID.String() }
func captureKey(orderID uuid.UUID) string { return "capture_order_" + orderID.String() }
func voidKey(orderID uuid.UUID) string    { return "void_order_" + orderID.String() }

func (s *service) PlaceOrderHold(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case enums.OrderStatusFundsHeld:
		return s.replay(ctx, order, MessageAlreadyHeld, holdKey(order.ID)), nil
	case enums.OrderStatusPending:
	default:
		return nil, stateConflict(order, "hold")
	}

	// scored outside any lock so a slow feature read never pins the order row
	supplierID := order.SupplierID
	decision, err := s.risk.Evaluate(ctx, risk.Input{
		MerchantID: order.MerchantID,
		SupplierID: &supplierID,
		OrderID:    &order.ID,
		Amount:     order.TotalAmount,
	})
	if err != nil {
		return nil, err
	}
	if decision.Decision != enums.RiskDecisionApprove {
		if decision.Decision == enums.RiskDecisionReview {
			s.requestReview(ctx, order, decision, actor)
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthorized, "transaction not authorized by risk gate").
			WithDetails(map[string]any{
				"decision": decision.Decision,
				"score":    decision.Score,
				"reasons":  decision.Reasons,
			})
	}

	wallet, err := s.account(ctx, enums.OwnerTypeMerchant, order.MerchantID, enums.AccountTypeWallet, order.Currency)
	if err != nil {
		return nil, err
	}
	escrow, err := s.account(ctx, enums.OwnerTypeSystem, s.system, enums.AccountTypeEscrowHold, order.Currency)
	if err != nil {
		return nil, err
	}
	if wallet.Balance.LessThan(order.TotalAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance").
			WithDetails(map[string]any{
				"available": wallet.Balance.String(),
				"required":  order.TotalAmount.String(),
			})
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.lock(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if locked.Status == enums.OrderStatusFundsHeld {
			result = &Result{OrderID: locked.ID, Status: locked.Status, Message: MessageAlreadyHeld}
			return nil
		}
		if locked.Status != enums.OrderStatusPending {
			return stateConflict(locked, "hold")
		}

		txn, err := s.ledger.PostTx(ctx, tx, ledger.PostRequest{
			IdempotencyKey: holdKey(locked.ID),
			ReferenceType:  enums.ReferenceOrderHold,
			ReferenceID:    locked.ID.String(),
			Description:    "Escrow hold for order " + locked.ID.String(),
			CreatedBy:      actor.ID,
			Entries: []ledger.EntryInput{
				{AccountID: wallet.ID, Direction: enums.EntryDirectionDebit, Amount: locked.TotalAmount},
				{AccountID: escrow.ID, Direction: enums.EntryDirectionCredit, Amount: locked.TotalAmount},
			},
		})
		if err != nil {
			return err
		}
		if err := s.transition(ctx, tx, locked, enums.OrderStatusFundsHeld); err != nil {
			return err
		}
		event := lifecycleEvent(locked, txn, s.now())
		if err := s.emit(ctx, tx, enums.EventOrderFundsHeld, locked, actor, event); err != nil {
			return err
		}
		result = &Result{OrderID: locked.ID, Status: locked.Status, Message: MessageFundsReserved, TransactionID: &txn.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.TransactionID == nil {
		return s.replay(ctx, order, MessageAlreadyHeld, holdKey(order.ID)), nil
	}
	s.logResult(ctx, result, "order funds held")
	return result, nil
}

func (s *service) CaptureOrderPayment(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case enums.OrderStatusCompleted:
		return s.replay(ctx, order, MessageAlreadyCaptured, captureKey(order.ID)), nil
	case enums.OrderStatusFundsHeld, enums.OrderStatusShipped:
	default:
		return nil, stateConflict(order, "capture")
	}

	escrow, err := s.account(ctx, enums.OwnerTypeSystem, s.system, enums.AccountTypeEscrowHold, order.Currency)
	if err != nil {
		return nil, err
	}
	payable, err := s.account(ctx, enums.OwnerTypeSupplier, order.SupplierID, enums.AccountTypePayable, order.Currency)
	if err != nil {
		return nil, err
	}
	revenue, err := s.account(ctx, enums.OwnerTypeSystem, s.system, enums.AccountTypeRevenue, order.Currency)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.lock(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if locked.Status == enums.OrderStatusCompleted {
			result = &Result{OrderID: locked.ID, Status: locked.Status, Message: MessageAlreadyCaptured}
			return nil
		}
		if locked.Status != enums.OrderStatusFundsHeld && locked.Status != enums.OrderStatusShipped {
			return stateConflict(locked, "capture")
		}
		if _, err := s.ledger.LockPostedTx(ctx, tx, holdKey(locked.ID)); err != nil {
			return err
		}

		total := locked.TotalAmount
		fee, share := s.split(total)
		entries := []ledger.EntryInput{
			{AccountID: escrow.ID, Direction: enums.EntryDirectionDebit, Amount: total},
			{AccountID: payable.ID, Direction: enums.EntryDirectionCredit, Amount: share},
		}
		if fee.IsPositive() {
			entries = append(entries, ledger.EntryInput{AccountID: revenue.ID, Direction: enums.EntryDirectionCredit, Amount: fee})
		}
		txn, err := s.ledger.PostTx(ctx, tx, ledger.PostRequest{
			IdempotencyKey: captureKey(locked.ID),
			ReferenceType:  enums.ReferenceOrderCapture,
			ReferenceID:    locked.ID.String(),
			Description:    "Capture for order " + locked.ID.String(),
			CreatedBy:      actor.ID,
			Entries:        entries,
		})
		if err != nil {
			return err
		}
		if err := s.transition(ctx, tx, locked, enums.OrderStatusCompleted); err != nil {
			return err
		}
		event := lifecycleEvent(locked, txn, s.now())
		event.SupplierShare = &share
		event.PlatformFee = &fee
		if err := s.emit(ctx, tx, enums.EventOrderPaymentCaptured, locked, actor, event); err != nil {
			return err
		}
		result = &Result{OrderID: locked.ID, Status: locked.Status, Message: MessagePaymentCaptured, TransactionID: &txn.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.TransactionID == nil {
		return s.replay(ctx, order, MessageAlreadyCaptured, captureKey(order.ID)), nil
	}
	s.logResult(ctx, result, "order payment captured")
	return result, nil
}

func (s *service) VoidTransaction(ctx context.Context, orderID uuid.UUID, reason string, actor Actor) (*Result, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case enums.OrderStatusCancelled:
		return s.replay(ctx, order, MessageAlreadyVoided, voidKey(order.ID)), nil
	case enums.OrderStatusFundsHeld:
	default:
		return nil, stateConflict(order, "void")
	}

	wallet, err := s.account(ctx, enums.OwnerTypeMerchant, order.MerchantID, enums.AccountTypeWallet, order.Currency)
	if err != nil {
		return nil, err
	}
	escrow, err := s.account(ctx, enums.OwnerTypeSystem, s.system, enums.AccountTypeEscrowHold, order.Currency)
	if err != nil {
		return nil, err
	}

	description := "Void of order " + order.ID.String()
	if reason != "" {
		description += ": " + reason
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.lock(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if locked.Status == enums.OrderStatusCancelled {
			result = &Result{OrderID: locked.ID, Status: locked.Status, Message: MessageAlreadyVoided}
			return nil
		}
		if locked.Status != enums.OrderStatusFundsHeld {
			return stateConflict(locked, "void")
		}
		hold, err := s.ledger.LockPostedTx(ctx, tx, holdKey(locked.ID))
		if err != nil {
			return err
		}

		txn, err := s.ledger.PostTx(ctx, tx, ledger.PostRequest{
			IdempotencyKey: voidKey(locked.ID),
			ReferenceType:  enums.ReferenceOrderVoid,
			ReferenceID:    locked.ID.String(),
			Description:    description,
			CreatedBy:      actor.ID,
			Reverses:       &hold.ID,
			Entries: []ledger.EntryInput{
				{AccountID: escrow.ID, Direction: enums.EntryDirectionDebit, Amount: locked.TotalAmount},
				{AccountID: wallet.ID, Direction: enums.EntryDirectionCredit, Amount: locked.TotalAmount},
			},
		})
		if err != nil {
			return err
		}
		if err := s.transition(ctx, tx, locked, enums.OrderStatusCancelled); err != nil {
			return err
		}
		event := lifecycleEvent(locked, txn, s.now())
		event.Reason = reason
		if err := s.emit(ctx, tx, enums.EventOrderCancelled, locked, actor, event); err != nil {
			return err
		}
		result = &Result{OrderID: locked.ID, Status: locked.Status, Message: MessageVoided, TransactionID: &txn.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.TransactionID == nil {
		return s.replay(ctx, order, MessageAlreadyVoided, voidKey(order.ID)), nil
	}
	s.logResult(ctx, result, "order voided")
	return result, nil
}

func (s *service) MarkShipped(ctx context.Context, orderID uuid.UUID, actor Actor) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.lock(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if locked.Status == enums.OrderStatusShipped {
			result = &Result{OrderID: locked.ID, Status: locked.Status, Message: MessageAlreadyShipped}
			return nil
		}
		if locked.Status != enums.OrderStatusFundsHeld {
			return stateConflict(locked, "ship")
		}
		if err := s.transition(ctx, tx, locked, enums.OrderStatusShipped); err != nil {
			return err
		}
		event := lifecycleEvent(locked, nil, s.now())
		if err := s.emit(ctx, tx, enums.EventOrderShipped, locked, actor, event); err != nil {
			return err
		}
		result = &Result{OrderID: locked.ID, Status: locked.Status, Message: MessageShipped}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, orderError(err, "load order")
	}
	return order, nil
}

func (s *service) lock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.WithTx(tx).LockOrder(ctx, orderID)
	if err != nil {
		return nil, orderError(err, "lock order")
	}
	return order, nil
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, order *models.Order, next enums.OrderStatus) error {
	if !order.Status.CanTransitionTo(next) {
		return stateConflict(order, string(next))
	}
	if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, next); err != nil {
		return orderError(err, "update order status")
	}
	order.Status = next
	return nil
}

func (s *service) account(ctx context.Context, owner enums.OwnerType, ownerID uuid.UUID, accountType enums.AccountType, currency enums.Currency) (*models.LedgerAccount, error) {
	return s.accounts.GetOrCreate(ctx, accounts.GetOrCreateInput{
		OwnerType:   owner,
		OwnerID:     ownerID,
		AccountType: accountType,
		Currency:    currency,
	})
}

// split returns the platform fee and the supplier share of total.
func (s *service) split(total decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	fee := total.Mul(s.feeRate).Round(2)
	return fee, total.Sub(fee)
}

// replay answers a repeated call; the transaction id is attached when the
// original posting can still be found.
func (s *service) replay(ctx context.Context, order *models.Order, message, key string) *Result {
	result := &Result{OrderID: order.ID, Status: order.Status, Message: message}
	if current, err := s.repo.FindOrder(ctx, order.ID); err == nil {
		result.Status = current.Status
	}
	if txn, err := s.ledger.FindByIdempotencyKey(ctx, key); err == nil {
		result.TransactionID = &txn.ID
	}
	return result
}

// requestReview queues an operator review in its own transaction. The caller
// is already being refused, so a failure here is only logged.
func (s *service) requestReview(ctx context.Context, order *models.Order, decision *risk.Decision, actor Actor) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReviewRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{ID: actor.ID, Role: actor.Role},
			OccurredAt:    decision.EvaluatedAt,
			Data: payloads.OrderReviewRequestedEvent{
				OrderID:    order.ID,
				MerchantID: order.MerchantID,
				SupplierID: order.SupplierID,
				Amount:     order.TotalAmount,
				Decision:   decision.Decision,
				Score:      decision.Score,
				Reasons:    decision.Reasons,
			},
		})
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "order review request failed", err)
	}
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, actor Actor, data payloads.OrderLifecycleEvent) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{ID: actor.ID, Role: actor.Role},
		OccurredAt:    data.OccurredAt,
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
	}
	return nil
}

func (s *service) logResult(ctx context.Context, result *Result, msg string) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{
		"order_id": result.OrderID.String(),
		"status":   result.Status,
	}
	if result.TransactionID != nil {
		fields["transaction_id"] = result.TransactionID.String()
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func lifecycleEvent(order *models.Order, txn *models.LedgerTransaction, now time.Time) payloads.OrderLifecycleEvent {
	event := payloads.OrderLifecycleEvent{
		OrderID:    order.ID,
		MerchantID: order.MerchantID,
		SupplierID: order.SupplierID,
		Status:     order.Status,
		Amount:     order.TotalAmount,
		Currency:   order.Currency,
		OccurredAt: now,
	}
	if txn != nil {
		id := txn.ID
		event.TransactionID = &id
	}
	return event
}

func stateConflict(order *models.Order, action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s order in status %s", action, order.Status)).
		WithDetails(map[string]any{"order_id": order.ID.String(), "status": order.Status})
}

func orderError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if db.IsLockTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, action)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
