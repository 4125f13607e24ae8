package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-bakery/utils"
)

type contextKey string

// UserContextKey holds the verified session claims of an admin request.
const UserContextKey = contextKey("user")

// Auth verifies admin session tokens
type Auth struct {
	tokens *utils.TokenService
}

func NewAuth(tokens *utils.TokenService) *Auth {
	return &Auth{tokens: tokens}
}

// ClaimsFrom returns the session claims attached by AuthMiddleware.
func ClaimsFrom(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*utils.Claims)
	return claims, ok && claims != nil
}

// AuthMiddleware requires a valid "Bearer <token>" session header
func (a *Auth) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Please log in to the dashboard")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" || strings.Contains(token, " ") {
			writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		claims, err := a.tokens.ParseJWT(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired, please log in again")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, claims)))
	})
}

// AdminMiddleware rejects sessions without the admin role
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := ClaimsFrom(r.Context()); !ok || claims.Role != utils.RoleAdmin {
			writeError(w, http.StatusForbidden, "Forbidden: dashboard access only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
