package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
)

type voidBody struct {
	Reason string `json:"reason" validate:"required,max=10"`
}

func bodyRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBody(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"reason":"dup"}`},
		{name: "empty", body: ``, wantErr: "request body required"},
		{name: "unknown field", body: `{"reason":"x","extra":1}`, wantErr: "invalid request body"},
		{name: "trailing object", body: `{"reason":"x"}{"reason":"y"}`, wantErr: "single JSON object"},
		{name: "failed tag", body: `{"reason":"much too long for this"}`, wantErr: "validation failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dest voidBody
			err := DecodeJSONBody(bodyRequest(tc.body), &dest)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "dup", dest.Reason)
				return
			}
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	type line struct {
		AccountID string `json:"account_id" validate:"required"`
	}
	type posting struct {
		Entries []line `json:"entries" validate:"required,min=1,dive"`
	}
	var dest posting
	err := DecodeJSONBody(bodyRequest(`{"entries":[{"account_id":"a"},{"account_id":""}]}`), &dest)
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["entries[1].account_id"])
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	big := `{"reason":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	var dest voidBody
	err := DecodeJSONBody(bodyRequest(big), &dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "buyer cancelled", SanitizeString("  buyer\x00 cancelled \x07 ", 0))
	assert.Equal(t, "ab", SanitizeString("abc", 2))
	// "é" is two bytes; a three-byte cut must not split it
	assert.Equal(t, "aé", SanitizeString("aéé", 4))
	assert.Equal(t, "a", SanitizeString("aé", 2))
	assert.Equal(t, "line\nnext", SanitizeString("line\nnext", 100))
}

func routeRequest(key, value, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/x"+query, nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	got, err := PathUUID(routeRequest("accountId", id.String(), ""), "accountId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = PathUUID(routeRequest("accountId", "nope", ""), "accountId")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = PathUUID(routeRequest("other", "x", ""), "accountId")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = PathUUID(routeRequest("accountId", uuid.Nil.String(), ""), "accountId")
	assert.ErrorContains(t, err, "accountId must be a uuid")
}

func TestQueryInt(t *testing.T) {
	v, err := QueryInt(routeRequest("k", "v", ""), "limit", IntRange{Default: 25, Min: 1, Max: 100})
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	v, err = QueryInt(routeRequest("k", "v", "?limit=7"), "limit", IntRange{Default: 25, Min: 1, Max: 100})
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = QueryInt(routeRequest("k", "v", "?limit=abc"), "limit", IntRange{Default: 25, Min: 1, Max: 100})
	assert.Error(t, err)
	_, err = QueryInt(routeRequest("k", "v", "?limit=0"), "limit", IntRange{Default: 25, Min: 1, Max: 100})
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, map[string]any{"field": "limit", "min": 1, "max": 100}, typed.Details())
}
