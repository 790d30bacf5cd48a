package risk

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/metrics"
	"github.com/angelmondragon/fincore/pkg/outbox"
	"github.com/angelmondragon/fincore/pkg/outbox/payloads"
)

// ErrAuditWriterClosed is returned by Start after Close.
var ErrAuditWriterClosed = errors.New("risk audit writer closed")

// AsyncAuditWriter persists risk decisions off the request path. Records are
// dropped, never blocked on, when the queue is full.
type AsyncAuditWriter struct {
	repo    Repository
	tx      db.TxRunner
	outbox  outbox.Emitter
	metrics *metrics.RiskMetrics
	logg    *logger.Logger
	workers int

	queue chan auditItem
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool
}

type auditItem struct {
	ctx    context.Context
	record AuditRecord
}

// AuditWriterParams wires the writer.
type AuditWriterParams struct {
	Repository Repository
	TxRunner   db.TxRunner
	Outbox     outbox.Emitter
	Metrics    *metrics.RiskMetrics
	Logger     *logger.Logger
	QueueSize  int
	Workers    int
}

// NewAsyncAuditWriter builds a writer; call Start to begin draining.
func NewAsyncAuditWriter(params AuditWriterParams) (*AsyncAuditWriter, error) {
	if params.Repository == nil {
		return nil, errors.New("risk repository required")
	}
	if params.TxRunner == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	size := params.QueueSize
	if size <= 0 {
		size = 1024
	}
	workers := params.Workers
	if workers <= 0 {
		workers = 1
	}
	return &AsyncAuditWriter{
		repo:    params.Repository,
		tx:      params.TxRunner,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		workers: workers,
		queue:   make(chan auditItem, size),
	}, nil
}

// Start launches the workers. It is safe to call once.
func (w *AsyncAuditWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrAuditWriterClosed
	}
	if w.started {
		return nil
	}
	w.started = true
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
	return nil
}

// Record enqueues the record without blocking.
func (w *AsyncAuditWriter) Record(ctx context.Context, record AuditRecord) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.drop(ctx, record, "writer closed")
		return
	}
	// request contexts are cancelled once the response is written
	item := auditItem{ctx: context.WithoutCancel(ctx), record: record}
	select {
	case w.queue <- item:
	default:
		w.drop(ctx, record, "queue full")
	}
}

// Close stops intake and waits for queued records to drain or ctx to expire.
func (w *AsyncAuditWriter) Close(ctx context.Context) error {
	w.stopIntake()
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	if !started {
		for item := range w.queue {
			w.persist(item.ctx, item.record)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopIntake closes the queue once. Later Records are dropped and counted.
func (w *AsyncAuditWriter) stopIntake() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.queue)
}

func (w *AsyncAuditWriter) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case item, ok := <-w.queue:
			if !ok {
				return
			}
			w.persist(item.ctx, item.record)
		case <-ctx.Done():
			// records already accepted are still written
			w.stopIntake()
			for item := range w.queue {
				w.persist(item.ctx, item.record)
			}
			return
		}
	}
}

func (w *AsyncAuditWriter) persist(ctx context.Context, record AuditRecord) {
	entry := decisionLog(record)
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := w.repo.WithTx(tx).CreateDecisionLog(ctx, entry); err != nil {
			return err
		}
		return w.outbox.Emit(ctx, tx, recordedEvent(entry))
	})
	if err != nil {
		w.metrics.IncAuditFailure()
		if w.logg != nil {
			w.logg.Error(w.logg.WithFields(ctx, map[string]any{
				"merchant_id": record.Input.MerchantID.String(),
				"decision":    record.Decision.Decision,
			}), "risk audit write failed", err)
		}
	}
}

func (w *AsyncAuditWriter) drop(ctx context.Context, record AuditRecord, reason string) {
	w.metrics.IncAuditDropped()
	if w.logg != nil {
		w.logg.Warn(w.logg.WithFields(ctx, map[string]any{
			"merchant_id": record.Input.MerchantID.String(),
			"decision":    record.Decision.Decision,
			"reason":      reason,
		}), "risk audit record dropped")
	}
}

func decisionLog(record AuditRecord) *models.RiskDecisionLog {
	reasons := record.Decision.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return &models.RiskDecisionLog{
		ID:          uuid.New(),
		MerchantID:  record.Input.MerchantID,
		SupplierID:  record.Input.SupplierID,
		OrderID:     record.Input.OrderID,
		Amount:      record.Input.Amount,
		Score:       record.Decision.Score,
		Decision:    record.Decision.Decision,
		Reasons:     reasons,
		Features:    record.Decision.Features,
		EvaluatedAt: record.Decision.EvaluatedAt,
	}
}

func recordedEvent(entry *models.RiskDecisionLog) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventRiskDecisionRecorded,
		AggregateType: enums.AggregateRiskDecision,
		AggregateID:   entry.ID,
		OccurredAt:    entry.EvaluatedAt,
		Data: payloads.RiskDecisionRecordedEvent{
			DecisionLogID: entry.ID,
			MerchantID:    entry.MerchantID,
			SupplierID:    entry.SupplierID,
			OrderID:       entry.OrderID,
			Amount:        entry.Amount,
			Score:         entry.Score,
			Decision:      entry.Decision,
			Reasons:       entry.Reasons,
			Velocity1h:    entry.Features.Velocity1h,
			SupplierScore: entry.Features.SupplierScore,
			EvaluatedAt:   entry.EvaluatedAt,
		},
	}
}
