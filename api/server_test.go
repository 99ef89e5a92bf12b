package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zfs-agent/zfs-agent/internal/dispatch"
	"github.com/zfs-agent/zfs-agent/internal/events"
	"github.com/zfs-agent/zfs-agent/internal/safety"
	"github.com/zfs-agent/zfs-agent/internal/tasks"
	"github.com/zfs-agent/zfs-agent/internal/zfserr"
	"github.com/zfs-agent/zfs-agent/internal/zfsengine"
)

const testAPIKey = "test-key"

// fakeEngine is a minimal Engine stub; tests wire in just enough behavior
// to exercise the HTTP layer's envelope/status-code handling, not the
// engine's own logic (which has its own package tests).
type fakeEngine struct {
	zfsengine.Engine
	pools map[string]zfsengine.Pool
}

func (f *fakeEngine) ListPools(ctx context.Context) ([]zfsengine.Pool, error) {
	var out []zfsengine.Pool
	for _, p := range f.pools {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeEngine) GetPool(ctx context.Context, name string) (zfsengine.Pool, error) {
	p, ok := f.pools[name]
	if !ok {
		return zfsengine.Pool{}, zfserr.New(zfserr.NotFound, "pool %q not found", name)
	}
	return p, nil
}

func (f *fakeEngine) CreatePool(ctx context.Context, name string, vdevSpec map[string]any) error {
	if _, ok := f.pools[name]; ok {
		return zfserr.New(zfserr.AlreadyExists, "pool %q already exists", name)
	}
	f.pools[name] = zfsengine.Pool{Name: name, Health: zfsengine.HealthOnline}
	return nil
}

func newTestServer() *Server {
	lock := &safety.Lock{}
	engine := &fakeEngine{pools: map[string]zfsengine.Pool{
		"tank": {Name: "tank", Health: zfsengine.HealthOnline},
	}}
	d := dispatch.New(engine, lock, tasks.NewManager(), events.NewHub(8))
	return NewServer(d, "127.0.0.1:0", testAPIKey)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealthRequiresNoAPIKey(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "success" {
		t.Errorf("status = %v, want success", body["status"])
	}
}

func TestMutatingRequestWithoutAPIKeyIsRejected(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/pools", strings.NewReader(`{"name":"tank2"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
}

func TestListPoolsSucceeds(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/pools", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if _, ok := body["pools"]; !ok {
		t.Errorf("expected a pools key, got %v", body)
	}
}

func TestGetUnknownPoolReturns404(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/pools/missing", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404, body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "error" {
		t.Errorf("status = %v, want error", body["status"])
	}
}

func TestCreatePoolWithValidKeySucceeds(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/pools", strings.NewReader(`{"name":"newpool"}`))
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK && rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, want 200/201, body=%s", rec.Code, rec.Body.String())
	}
}

func TestCreateDuplicatePoolReturnsConflict(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/pools", strings.NewReader(`{"name":"tank"}`))
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("code = %d, want 409, body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetTaskUnknownIDReturns404(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/tasks/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404, body=%s", rec.Code, rec.Body.String())
	}
}

func TestSafetyStatusSucceeds(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/safety", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if _, ok := body["safety"]; !ok {
		t.Errorf("expected a safety key, got %v", body)
	}
}

func TestSafetyActionRejectsUnknownAction(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/safety", strings.NewReader(`{"action":"bogus"}`))
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400, body=%s", rec.Code, rec.Body.String())
	}
}
