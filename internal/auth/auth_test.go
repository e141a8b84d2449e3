package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func agentClaims(id uuid.UUID) Claims {
	return Claims{
		Name: "Adaeze Obi",
		Role: RoleAgent,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestResolve(t *testing.T) {
	v := NewVerifier(testSecret)
	id := uuid.New()

	identity, err := v.Resolve(signToken(t, testSecret, agentClaims(id)))
	require.NoError(t, err)

	assert.Equal(t, id, identity.ID)
	assert.Equal(t, "Adaeze Obi", identity.Name)
	assert.Equal(t, RoleAgent, identity.Role)
}

func TestResolveRejects(t *testing.T) {
	v := NewVerifier(testSecret)
	id := uuid.New()

	expired := agentClaims(id)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	badRole := agentClaims(id)
	badRole.Role = "superuser"

	badSubject := agentClaims(id)
	badSubject.Subject = "not-a-uuid"

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "other-secret", agentClaims(id))},
		{"expired", signToken(t, testSecret, expired)},
		{"unknown role", signToken(t, testSecret, badRole)},
		{"bad subject", signToken(t, testSecret, badSubject)},
		{"garbage", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Resolve(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestResolveEmptySecretRejectsEverything(t *testing.T) {
	v := NewVerifier("")
	id := uuid.New()

	admin := agentClaims(id)
	admin.Role = RoleAdmin

	// A token signed with the empty key must not resolve either.
	_, err := v.Resolve(signToken(t, "", admin))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Resolve(signToken(t, testSecret, agentClaims(id)))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret)
	id := uuid.New()

	var seen *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := v.Middleware(RoleAgent)(next)

	t.Run("no token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		admin := agentClaims(id)
		admin.Role = RoleAdmin

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, admin))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid agent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, agentClaims(id)))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, id, seen.ID)
	})
}
