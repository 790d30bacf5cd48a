package transactions

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/api/middleware"
	"github.com/angelmondragon/fincore/api/responses"
	"github.com/angelmondragon/fincore/api/validators"
	"github.com/angelmondragon/fincore/internal/ledger"
	"github.com/angelmondragon/fincore/pkg/enums"
	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/pagination"
)

const idempotencyHeader = "Idempotency-Key"

type entryRequest struct {
	AccountID uuid.UUID       `json:"account_id" validate:"required"`
	Direction string          `json:"direction" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

type postTransactionRequest struct {
	IdempotencyKey string         `json:"idempotency_key" validate:"omitempty,max=255"`
	ReferenceType  string         `json:"reference_type" validate:"required"`
	ReferenceID    string         `json:"reference_id" validate:"required,max=255"`
	Description    string         `json:"description" validate:"max=1000"`
	Entries        []entryRequest `json:"entries" validate:"required,min=1,dive"`
	Reverses       *uuid.UUID     `json:"reverses_transaction_id,omitempty"`
}

func (p postTransactionRequest) toPostRequest(r *http.Request) (ledger.PostRequest, error) {
	key := strings.TrimSpace(p.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(r.Header.Get(idempotencyHeader))
	}
	if key == "" {
		return ledger.PostRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "idempotency_key is required").WithDetails(map[string]any{"field": "idempotency_key"})
	}

	refType, err := enums.ParseReferenceType(strings.TrimSpace(p.ReferenceType))
	if err != nil {
		return ledger.PostRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reference_type")
	}
	if refType.IsOrderFlow() {
		return ledger.PostRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "order postings go through the order endpoints").
			WithDetails(map[string]any{"field": "reference_type"})
	}

	entries := make([]ledger.EntryInput, 0, len(p.Entries))
	for i, e := range p.Entries {
		direction, err := enums.ParseEntryDirection(strings.ToLower(strings.TrimSpace(e.Direction)))
		if err != nil {
			return ledger.PostRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid direction").WithDetails(map[string]any{"entry": i})
		}
		entries = append(entries, ledger.EntryInput{
			AccountID: e.AccountID,
			Direction: direction,
			Amount:    e.Amount,
		})
	}

	return ledger.PostRequest{
		IdempotencyKey: key,
		ReferenceType:  refType,
		ReferenceID:    strings.TrimSpace(p.ReferenceID),
		Description:    validators.SanitizeString(p.Description, 1000),
		CreatedBy:      middleware.ActorFrom(r.Context()).CreatedBy(),
		Entries:        entries,
		Reverses:       p.Reverses,
	}, nil
}

// Post records a balanced manual transaction. A body idempotency_key that was
// already posted is rejected with IDEMPOTENCY_KEY_REUSED; only requests carrying
// the Idempotency-Key header are replayed, by the idempotency middleware.
func Post(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var body postTransactionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := body.toPostRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Post(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

func Get(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.GetTransaction(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// ListEntries serves an account statement, newest entry first.
func ListEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := validators.PathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.QueryInt(r, "limit", validators.IntRange{Default: pagination.DefaultLimit, Min: 1, Max: pagination.MaxLimit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListAccountEntries(r.Context(), accountID, ledger.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
