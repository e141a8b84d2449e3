// Package auth resolves bearer credentials to an agent or admin identity.
// Token issuance happens elsewhere; this side only validates.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/collectiva/loan-engine/pkg/response"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)

const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// Identity is the resolved caller of a request.
type Identity struct {
	ID   uuid.UUID
	Name string
	Role string
}

type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Resolve parses and validates a bearer token into an Identity.
func (v *Verifier) Resolve(tokenString string) (*Identity, error) {
	// An empty key would accept any token signed with the empty byte slice.
	if len(v.secret) == 0 {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Role != RoleAgent && claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Identity{ID: id, Name: claims.Name, Role: claims.Role}, nil
}

type contextKey struct{}

// FromContext returns the identity the middleware attached, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}

// Middleware authenticates requests and requires one of the given roles.
func (v *Verifier) Middleware(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				response.Unauthorized(w, "missing bearer token")
				return
			}

			identity, err := v.Resolve(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				response.Unauthorized(w, "invalid token")
				return
			}

			if len(allowed) > 0 && !allowed[identity.Role] {
				response.Forbidden(w, "insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
