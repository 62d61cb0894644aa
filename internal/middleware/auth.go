package middleware

import (
	"context"
	"net/http"
	"strings"

	"mobeebot/internal/auth"
)

type contextKey string

const adminKey contextKey = "admin"

type Admin struct {
	ID   int64
	Role string
}

func AdminFromContext(ctx context.Context) (Admin, bool) {
	admin, ok := ctx.Value(adminKey).(Admin)
	return admin, ok
}

func WithAdmin(ctx context.Context, admin Admin) context.Context {
	return context.WithValue(ctx, adminKey, admin)
}

// Auth accepts a bearer token, or a token query parameter for websocket
// upgrades where browsers cannot set headers.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseToken(secret, raw)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := WithAdmin(r.Context(), Admin{ID: claims.AdminID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if token := r.URL.Query().Get("token"); token != "" && isUpgrade(r) {
			return token, true
		}
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
