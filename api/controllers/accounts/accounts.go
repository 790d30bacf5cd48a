package accounts

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/fincore/api/responses"
	"github.com/angelmondragon/fincore/api/validators"
	internalaccounts "github.com/angelmondragon/fincore/internal/accounts"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
	"github.com/angelmondragon/fincore/pkg/logger"
)

type createAccountRequest struct {
	OwnerType   string    `json:"owner_type" validate:"required"`
	OwnerID     uuid.UUID `json:"owner_id" validate:"required"`
	AccountType string    `json:"account_type" validate:"required"`
	Currency    string    `json:"currency,omitempty" validate:"omitempty,len=3"`
}

func (r createAccountRequest) toInput() (internalaccounts.GetOrCreateInput, error) {
	ownerType, err := enums.ParseOwnerType(strings.TrimSpace(r.OwnerType))
	if err != nil {
		return internalaccounts.GetOrCreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner_type")
	}
	accountType, err := enums.ParseAccountType(strings.TrimSpace(r.AccountType))
	if err != nil {
		return internalaccounts.GetOrCreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account_type")
	}
	input := internalaccounts.GetOrCreateInput{
		OwnerType:   ownerType,
		OwnerID:     r.OwnerID,
		AccountType: accountType,
	}
	if raw := strings.ToUpper(strings.TrimSpace(r.Currency)); raw != "" {
		currency, err := enums.ParseCurrency(raw)
		if err != nil {
			return internalaccounts.GetOrCreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		input.Currency = currency
	}
	return input, nil
}

// GetOrCreate resolves the account for an owner identity, creating it on first use.
func GetOrCreate(svc internalaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		var req createAccountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetOrCreate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}

func Get(svc internalaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}

// Freeze blocks further postings against the account.
func Freeze(svc internalaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return setFrozen(svc.Freeze, logg)
}

func Unfreeze(svc internalaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return setFrozen(svc.Unfreeze, logg)
}

func setFrozen(apply func(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := apply(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}
