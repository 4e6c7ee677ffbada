package interceptor

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/vasapolrittideah/accounts-api/shared/auth"
)

type contextKey struct{ name string }

var UserClaimsKey = &contextKey{"user-claims"}

// NewJWTMiddleware rejects requests without a valid bearer access token and
// stores the token claims in the request context.
func NewJWTMiddleware(jwtAuth auth.JWTAuthenticator, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractAndValidateJWT(r, jwtAuth, secret)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": err.Error()})
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by NewJWTMiddleware.
func ClaimsFromContext(ctx context.Context) (*auth.AccessClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.AccessClaims)
	return claims, ok
}

func extractAndValidateJWT(r *http.Request, jwtAuth auth.JWTAuthenticator, secret string) (*auth.AccessClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errors.New("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, errors.New("invalid authorization header format")
	}

	claims, err := jwtAuth.ParseAccessToken(parts[1], secret)
	if err != nil {
		return nil, errors.New("invalid or expired access token")
	}

	return claims, nil
}
