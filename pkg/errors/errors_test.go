package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error"},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeUnbalanced, status: http.StatusUnprocessableEntity, publicMsg: "debits and credits do not balance", detailsOK: true},
		{code: CodeAccountFrozen, status: http.StatusLocked, publicMsg: "account is frozen", detailsOK: true},
		{code: CodeInsufficientFunds, status: http.StatusUnprocessableEntity, publicMsg: "insufficient funds", detailsOK: true},
		{code: CodeNotAuthorized, status: http.StatusForbidden, publicMsg: "transaction not authorized", detailsOK: true},
		{code: CodeLockTimeout, status: http.StatusServiceUnavailable, publicMsg: "resource busy, retry with the same idempotency key", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestPublicMessage(t *testing.T) {
	if got := New(CodeInsufficientFunds, "wallet short by 40").PublicMessage(); got != "wallet short by 40" {
		t.Fatalf("domain message should pass through, got %q", got)
	}
	if got := New(CodeInsufficientFunds, "").PublicMessage(); got != "insufficient funds" {
		t.Fatalf("empty message should fall back, got %q", got)
	}
	if got := Wrap(CodeDependency, stdErrors.New("dial tcp"), "load account").PublicMessage(); got != "dependency unavailable" {
		t.Fatalf("dependency message must stay generic, got %q", got)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsInvalidShape(t *testing.T) {
	if !IsInvalidShape(CodeUnbalanced) || !IsInvalidShape(CodeDegenerate) {
		t.Fatalf("expected shape codes to be grouped")
	}
	if IsInvalidShape(CodeIdempotency) {
		t.Fatalf("replay rejection is not a shape error")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(CodeAccountFrozen, "frozen"))
	if got := CodeOf(wrapped); got != CodeAccountFrozen {
		t.Fatalf("expected ACCOUNT_FROZEN through wrapping, got %s", got)
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("expected INTERNAL_ERROR for untyped error, got %s", got)
	}
}

func TestLogFields(t *testing.T) {
	if LogFields(nil) != nil {
		t.Fatalf("nil error should produce no fields")
	}

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_ledger_transactions_idempotency_key"}
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "post transaction").
		WithDetails(map[string]any{"step": "insert_transaction"})

	fields := LogFields(err)
	if fields["error_code"] != CodeConflict {
		t.Fatalf("unexpected code %v", fields["error_code"])
	}
	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "ux_ledger_transactions_idempotency_key" {
		t.Fatalf("postgres diagnostics missing: %v", fields)
	}
	if _, ok := fields["pg_table"]; ok {
		t.Fatalf("empty diagnostics should be omitted")
	}
	if fields["step"] != "insert_transaction" {
		t.Fatalf("step detail missing: %v", fields)
	}
	if chain, ok := fields["error_chain"].([]string); !ok || len(chain) != 3 {
		t.Fatalf("expected three links in chain, got %v", fields["error_chain"])
	}
}
