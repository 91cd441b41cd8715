package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kumarav1nash/vendorpro-engine/internal/cache"
	"github.com/kumarav1nash/vendorpro-engine/internal/service"
	"github.com/kumarav1nash/vendorpro-engine/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager
// and real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("SEED_OWNER_PASSWORD", "test-owner-pass")
	t.Setenv("SEED_SALESMAN_PASSWORD", "test-rep-pass")

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopSummaryCache{}, "main-shop", 5, 30*time.Second)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginAs(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = fmt.Sprintf("10.0.0.%d:4000", len(username))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d (body: %s)", username, rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("expected access token, got %v", body)
	}
	return token
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "owner",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLoginRateLimit(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "owner",
		"password": "wrongpassword",
	})
	var last int
	for i := 0; i < 7; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.10:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated attempts, got %d", last)
	}
}

func TestSalesRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/sales", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	ownerToken := loginAs(t, handler, "owner", "test-owner-pass")
	repToken := loginAs(t, handler, "salesman", "test-rep-pass")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", repToken, map[string]any{
		"items": []map[string]any{
			{"product_id": "prod_seed_1", "quantity": 2, "sold_at": "500"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Sale struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if created.Sale.Status != "pending" {
		t.Fatalf("expected pending sale, got %s", created.Sale.Status)
	}

	// salesman may not approve
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/"+created.Sale.ID+"/approve", repToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for salesman approve, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/"+created.Sale.ID+"/approve", ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/"+created.Sale.ID+"/approve", ownerToken, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second approve: expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/"+created.Sale.ID+"/reject", ownerToken, map[string]any{"reason": "late"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("reject after approve: expected 409, got %d", rec.Code)
	}
}

func TestInsufficientStockMapsToConflict(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	ownerToken := loginAs(t, handler, "owner", "test-owner-pass")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", ownerToken, map[string]any{
		"items": []map[string]any{
			{"product_id": "prod_seed_3", "quantity": 9999, "sold_at": "350"},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestInvalidCommissionRuleMapsToUnprocessable(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	ownerToken := loginAs(t, handler, "owner", "test-owner-pass")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/commission-rules", ownerToken, map[string]any{
		"kind":  "tiered",
		"value": "10",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCommissionPayFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	ownerToken := loginAs(t, handler, "owner", "test-owner-pass")
	repToken := loginAs(t, handler, "salesman", "test-rep-pass")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/commission-rules/rule_seed_1/assign", ownerToken, map[string]any{
		"salesman_id": "rep_seed_1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("assign rule: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", repToken, map[string]any{
		"items": []map[string]any{
			{"product_id": "prod_seed_1", "quantity": 2, "sold_at": "500"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Sale struct {
			ID string `json:"id"`
		} `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode sale: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/"+created.Sale.ID+"/approve", ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/commissions", ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list commissions: %d", rec.Code)
	}
	var listed struct {
		Commissions []struct {
			ID     string `json:"id"`
			Amount string `json:"amount"`
			Paid   bool   `json:"paid"`
		} `json:"commissions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode commissions: %v", err)
	}
	if len(listed.Commissions) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(listed.Commissions))
	}
	if listed.Commissions[0].Amount != "100" {
		t.Fatalf("expected amount 100, got %s", listed.Commissions[0].Amount)
	}

	payPath := "/api/v1/commissions/" + listed.Commissions[0].ID + "/pay"
	rec = doJSON(t, handler, http.MethodPost, payPath, ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pay: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, payPath, ownerToken, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second pay: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/commissions/summary", repToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var summarized struct {
		Summary struct {
			Total string `json:"total"`
			Paid  string `json:"paid"`
		} `json:"summary"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&summarized); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summarized.Summary.Total != "100" || summarized.Summary.Paid != "100" {
		t.Fatalf("unexpected summary %+v", summarized.Summary)
	}
}

func TestDashboardKPIsOwnerOnly(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	repToken := loginAs(t, handler, "salesman", "test-rep-pass")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/dashboard/kpis", repToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for salesman, got %d", rec.Code)
	}
}
