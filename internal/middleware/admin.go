package middleware

import (
	"context"
	"errors"
	"net/http"

	"mobeebot/internal/auth"
	"mobeebot/internal/models"
	"mobeebot/internal/store"
)

type AdminStore interface {
	GetByID(ctx context.Context, id int64) (models.Admin, error)
}

func RequireRole(adminStore AdminStore, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := AdminFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			admin, err := adminStore.GetByID(r.Context(), claims.ID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					http.Error(w, "admin privileges required", http.StatusForbidden)
					return
				}
				http.Error(w, "unable to verify admin", http.StatusInternalServerError)
				return
			}
			if !auth.RoleAllows(admin.Role, role) {
				http.Error(w, "missing required role", http.StatusForbidden)
				return
			}
			ctx := WithAdmin(r.Context(), Admin{ID: admin.ID, Role: admin.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
