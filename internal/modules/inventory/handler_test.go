package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	svc, _, _ := newTestService(t)
	r := chi.NewRouter()
	NewHandler(svc, zap.NewNop()).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerProductLifecycle(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/products/", `{"name":"Cheese"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var p Product
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = do(t, r, http.MethodPatch, "/api/v1/products/"+p.ID.String(), `{"stock_level":"LOW"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil || !p.IsOnShoppingList {
		t.Fatalf("expected product on list: %+v (%v)", p, err)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/shopping-list", "")
	var items []Product
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil || len(items) != 1 {
		t.Fatalf("shopping list: %s (%v)", rec.Body.String(), err)
	}

	rec = do(t, r, http.MethodDelete, "/api/v1/products/"+p.ID.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = do(t, r, http.MethodDelete, "/api/v1/products/"+p.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
}

func TestHandlerValidationErrors(t *testing.T) {
	r := newTestRouter(t)
	if rec := do(t, r, http.MethodPost, "/api/v1/products/", `{"name":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty name: %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/products/", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rec.Code)
	}
	rec := do(t, r, http.MethodPost, "/api/v1/products/", `{"name":"Tea"}`)
	var p Product
	json.Unmarshal(rec.Body.Bytes(), &p)
	if rec := do(t, r, http.MethodPatch, "/api/v1/products/"+p.ID.String(), `{"stock_level":"plenty"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad level: %d", rec.Code)
	}
}

func TestHandlerImport(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/api/v1/products/import", `{"names":["Bread","Eggs"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	var result ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil || len(result.Added) != 2 {
		t.Fatalf("unexpected result %s (%v)", rec.Body.String(), err)
	}
}
