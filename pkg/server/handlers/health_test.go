package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/percorso/pkg/graph"
)

// stubAdmin is a canned percorso.GraphAdmin for probe tests.
type stubAdmin struct {
	stats *graph.Stats
	err   error
}

func (s *stubAdmin) Stats(ctx context.Context) (*graph.Stats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

func (s *stubAdmin) Close(ctx context.Context) error {
	return nil
}

func newHealthRouter(h *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthz", h.Healthz)
	router.GET("/readyz", h.Readyz)
	return router
}

func TestHealthz(t *testing.T) {
	router := newHealthRouter(NewHealthHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["status"] != "healthy" {
		t.Errorf("expected status healthy, got %v", response["status"])
	}

	if response["service"] != "percorso" {
		t.Errorf("expected service percorso, got %v", response["service"])
	}

	if _, ok := response["timestamp"]; !ok {
		t.Error("expected timestamp in response")
	}

	if _, ok := response["version"]; !ok {
		t.Error("expected version in response")
	}

	if _, ok := response["build_info"]; !ok {
		t.Error("expected build_info in response")
	}
}

func TestReadyzWithNilClient(t *testing.T) {
	router := newHealthRouter(NewHealthHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// With a nil client, readiness must fail
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["status"] != "not_ready" {
		t.Errorf("expected status not_ready, got %v", response["status"])
	}

	checks, ok := response["checks"].(map[string]interface{})
	if !ok {
		t.Fatal("expected checks in response")
	}

	storeCheck, ok := checks["store"].(map[string]interface{})
	if !ok {
		t.Fatal("expected store check in response")
	}

	if storeCheck["status"] != "unhealthy" {
		t.Errorf("expected store status unhealthy, got %v", storeCheck["status"])
	}
}

func TestReadyzWithReachableStore(t *testing.T) {
	admin := &stubAdmin{
		stats: &graph.Stats{
			NodeCount:   3,
			EdgeCount:   2,
			LastUpdated: time.Now(),
		},
	}
	router := newHealthRouter(NewHealthHandler(admin))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["status"] != "ready" {
		t.Errorf("expected status ready, got %v", response["status"])
	}

	checks := response["checks"].(map[string]interface{})
	storeCheck := checks["store"].(map[string]interface{})

	if storeCheck["status"] != "healthy" {
		t.Errorf("expected store status healthy, got %v", storeCheck["status"])
	}

	if storeCheck["nodes"] != float64(3) { // JSON numbers decode as float64
		t.Errorf("expected 3 nodes, got %v", storeCheck["nodes"])
	}
}

func TestReadyzWithFailingStore(t *testing.T) {
	admin := &stubAdmin{err: errors.New("connection refused")}
	router := newHealthRouter(NewHealthHandler(admin))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	checks := response["checks"].(map[string]interface{})
	storeCheck := checks["store"].(map[string]interface{})

	if storeCheck["status"] != "unhealthy" {
		t.Errorf("expected store status unhealthy, got %v", storeCheck["status"])
	}

	if storeCheck["error"] != "connection refused" {
		t.Errorf("expected store error to surface, got %v", storeCheck["error"])
	}
}
