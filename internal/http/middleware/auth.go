package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
	"github.com/Niyati251208/sports-performance-analyzer/internal/utils/jwt"
)

type contextKey string

const IdentityKey contextKey = "identity"

// IdentityMiddleware attaches the identity of a valid Bearer token to the request context.
// Requests without a token, or with a bad one, pass through anonymously.
func IdentityMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if jwtSecret == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			claims, err := jwt.ParseToken(token, jwtSecret)
			if err != nil {
				slog.Debug("Ignoring invalid bearer token", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			name, email := claims.Name, claims.Email
			identity := &uploads.Identity{Email: &email}
			if name != "" {
				identity.Name = &name
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext returns the token identity, if the request carried one.
func GetIdentityFromContext(ctx context.Context) (*uploads.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*uploads.Identity)
	return identity, ok && identity != nil
}
