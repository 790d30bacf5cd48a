package risk

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/api/responses"
	"github.com/angelmondragon/fincore/api/validators"
	internalrisk "github.com/angelmondragon/fincore/internal/risk"
	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
	"github.com/angelmondragon/fincore/pkg/logger"
)

type evaluateRequest struct {
	MerchantID uuid.UUID       `json:"merchant_id" validate:"required"`
	SupplierID *uuid.UUID      `json:"supplier_id,omitempty"`
	OrderID    *uuid.UUID      `json:"order_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

// Evaluate scores a prospective transaction without moving money.
func Evaluate(svc internalrisk.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "risk service unavailable"))
			return
		}

		var req evaluateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, err := svc.Evaluate(r.Context(), internalrisk.Input{
			MerchantID: req.MerchantID,
			SupplierID: req.SupplierID,
			OrderID:    req.OrderID,
			Amount:     req.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decision)
	}
}
