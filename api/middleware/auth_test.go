package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fincore/pkg/auth"
	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "fincore-test", ExpirationMinutes: 60}

func mintTestToken(t *testing.T, userID uuid.UUID, role enums.ActorRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsForeignSigningKey(t *testing.T) {
	other := testJWT
	other.Secret = "other"
	token, err := auth.MintAccessToken(other, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthSeedsActor(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, userID, enums.ActorRoleOperator)

	var user, actor string
	var role enums.ActorRole
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := ActorFrom(r.Context())
		user, role, actor = caller.UserID, caller.Role, caller.CreatedBy()
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, userID.String(), user)
	require.Equal(t, enums.ActorRoleOperator, role)
	require.Equal(t, "operator:"+userID.String(), actor)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.ActorRoleAdmin)(okHandler())

	cases := []struct {
		role enums.ActorRole
		want int
	}{
		{enums.ActorRoleAdmin, http.StatusOK},
		{enums.ActorRoleService, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if tc.role != "" {
			req = req.WithContext(WithActor(req.Context(), uuid.NewString(), tc.role))
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		require.Equal(t, tc.want, resp.Code, "role %q", tc.role)
	}
}

func TestActorFromEmptyContext(t *testing.T) {
	caller := ActorFrom(context.Background())
	require.Empty(t, caller.UserID)
	require.Empty(t, caller.CreatedBy())
}
