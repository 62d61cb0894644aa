package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mobeebot/internal/auth"
	"mobeebot/internal/models"
	"mobeebot/internal/store"
)

type stubAdminStore struct {
	getByIDFn func(ctx context.Context, id int64) (models.Admin, error)
}

func (s stubAdminStore) GetByID(ctx context.Context, id int64) (models.Admin, error) {
	return s.getByIDFn(ctx, id)
}

func serveWithAdmin(handler http.Handler, admin *Admin) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if admin != nil {
		req = req.WithContext(WithAdmin(req.Context(), *admin))
	}
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRequireRoleMissingAdmin(t *testing.T) {
	handler := RequireRole(stubAdminStore{
		getByIDFn: func(context.Context, int64) (models.Admin, error) {
			t.Fatalf("unexpected call")
			return models.Admin{}, nil
		},
	}, auth.RoleViewer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	}))
	if rr := serveWithAdmin(handler, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireRoleRemovedAdmin(t *testing.T) {
	handler := RequireRole(stubAdminStore{
		getByIDFn: func(context.Context, int64) (models.Admin, error) {
			return models.Admin{}, store.ErrNotFound
		},
	}, auth.RoleViewer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	}))
	if rr := serveWithAdmin(handler, &Admin{ID: 1, Role: auth.RoleSuper}); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireRoleStoreError(t *testing.T) {
	handler := RequireRole(stubAdminStore{
		getByIDFn: func(context.Context, int64) (models.Admin, error) {
			return models.Admin{}, errors.New("db down")
		},
	}, auth.RoleViewer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	}))
	if rr := serveWithAdmin(handler, &Admin{ID: 1, Role: auth.RoleSuper}); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestRequireRoleUsesStoredRole(t *testing.T) {
	demoted := RequireRole(stubAdminStore{
		getByIDFn: func(context.Context, int64) (models.Admin, error) {
			return models.Admin{ID: 1, Role: auth.RoleViewer}, nil
		},
	}, auth.RoleSuper)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	}))
	if rr := serveWithAdmin(demoted, &Admin{ID: 1, Role: auth.RoleSuper}); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	allowed := RequireRole(stubAdminStore{
		getByIDFn: func(context.Context, int64) (models.Admin, error) {
			return models.Admin{ID: 1, Role: auth.RoleSuper}, nil
		},
	}, auth.RoleOperator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	if rr := serveWithAdmin(allowed, &Admin{ID: 1, Role: auth.RoleViewer}); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
