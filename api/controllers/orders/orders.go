package orders

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/fincore/api/middleware"
	"github.com/angelmondragon/fincore/api/responses"
	"github.com/angelmondragon/fincore/api/validators"
	internalorders "github.com/angelmondragon/fincore/internal/orders"
	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
	"github.com/angelmondragon/fincore/pkg/logger"
)

type voidRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type orderAction func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*internalorders.Result, error)

// Hold reserves the order total from the merchant wallet into escrow.
func Hold(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(svc, logg, func(svc internalorders.Service) orderAction { return svc.PlaceOrderHold })
}

// Capture settles escrow to the supplier minus the platform fee.
func Capture(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(svc, logg, func(svc internalorders.Service) orderAction { return svc.CaptureOrderPayment })
}

func Ship(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return runAction(svc, logg, func(svc internalorders.Service) orderAction { return svc.MarkShipped })
}

// Void refunds held funds back to the merchant wallet.
func Void(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req voidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VoidTransaction(r.Context(), orderID, validators.SanitizeString(req.Reason, 500), actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func runAction(svc internalorders.Service, logg *logger.Logger, pick func(internalorders.Service) orderAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := pick(svc)(r.Context(), orderID, actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func actorFrom(r *http.Request) internalorders.Actor {
	caller := middleware.ActorFrom(r.Context())
	return internalorders.Actor{ID: caller.UserID, Role: caller.Role.String()}
}
