package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/fincore/internal/analytics/types"
	"github.com/angelmondragon/fincore/internal/analytics/writer"
	"github.com/angelmondragon/fincore/pkg/outbox/payloads"
)

type riskDecisionHandler struct {
	writer Writer
}

func newRiskDecisionHandler(w Writer) Handler {
	return &riskDecisionHandler{writer: w}
}

func (h *riskDecisionHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.RiskDecisionRecordedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, envelope.EventType)
	}
	raw, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return err
	}
	reasons := event.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	row := types.RiskDecisionRow{
		EventID:       envelope.EventID.String(),
		DecisionLogID: event.DecisionLogID.String(),
		MerchantID:    event.MerchantID.String(),
		SupplierID:    uuidString(event.SupplierID),
		OrderID:       uuidString(event.OrderID),
		Amount:        event.Amount.String(),
		Score:         int64(event.Score),
		Decision:      string(event.Decision),
		Reasons:       reasons,
		Velocity1h:    event.Velocity1h,
		SupplierScore: decimalString(event.SupplierScore),
		EvaluatedAt:   event.EvaluatedAt.UTC(),
		Payload:       raw,
	}
	return h.writer.InsertRiskDecisions(ctx, []types.RiskDecisionRow{row})
}
