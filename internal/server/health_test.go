package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func getJSON[T any](t *testing.T, handler http.Handler, path string) (int, T) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body T
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding %s response: %v", path, err)
	}
	return rec.Code, body
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(nil)

	code, body := getJSON[HealthResponse](t, h.LivenessHandler(), "/healthz")
	if code != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want %d", code, http.StatusOK)
	}
	if body.Status != healthStatusOK {
		t.Errorf("status = %q, want %q", body.Status, healthStatusOK)
	}

	// Liveness ignores readiness; only process health matters.
	h.SetReady(false)
	code, _ = getJSON[HealthResponse](t, h.LivenessHandler(), "/healthz")
	if code != http.StatusOK {
		t.Errorf("GET /healthz while not ready status = %d, want %d", code, http.StatusOK)
	}
}

func TestReadinessHandler(t *testing.T) {
	h := NewHealthChecker(nil)
	if !h.IsReady() {
		t.Error("a new health checker should report ready")
	}

	code, body := getJSON[HealthResponse](t, h.ReadinessHandler(), "/readyz")
	if code != http.StatusOK {
		t.Errorf("GET /readyz status = %d, want %d", code, http.StatusOK)
	}
	if body.Checks["ready"] != healthStatusOK || body.Checks["shutdown"] != healthStatusOK {
		t.Errorf("checks = %v, want both ok", body.Checks)
	}

	h.SetReady(false)
	if h.IsReady() {
		t.Error("IsReady() should track SetReady(false)")
	}
	code, body = getJSON[HealthResponse](t, h.ReadinessHandler(), "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz while not ready status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Status != healthStatusNotReady {
		t.Errorf("status = %q, want %q", body.Status, healthStatusNotReady)
	}
	if body.Checks["ready"] != healthStatusNotReady {
		t.Errorf("checks[ready] = %q, want %q", body.Checks["ready"], healthStatusNotReady)
	}
}

func TestReadinessHandler_Shutdown(t *testing.T) {
	sc, err := NewServerContext(context.Background())
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	if err := sc.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	h := NewHealthChecker(sc)
	code, body := getJSON[HealthResponse](t, h.ReadinessHandler(), "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz during shutdown status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Checks["shutdown"] != healthStatusShuttingDown {
		t.Errorf("checks[shutdown] = %q, want %q", body.Checks["shutdown"], healthStatusShuttingDown)
	}
}

func TestReadinessHandler_DeliveryDoesNotFailProbe(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetDelivering(true)

	code, _ := getJSON[HealthResponse](t, h.ReadinessHandler(), "/readyz")
	if code != http.StatusOK {
		t.Errorf("GET /readyz during a delivery run status = %d, want %d", code, http.StatusOK)
	}
}

func TestDetailedHealthHandler(t *testing.T) {
	h := NewHealthChecker(nil)

	code, body := getJSON[DetailedHealthResponse](t, h.DetailedHealthHandler(), "/healthz/detailed")
	if code != http.StatusOK {
		t.Errorf("GET /healthz/detailed status = %d, want %d", code, http.StatusOK)
	}
	if body.Status != healthStatusOK {
		t.Errorf("status = %q, want %q", body.Status, healthStatusOK)
	}
	if body.Uptime == "" {
		t.Error("uptime should be reported")
	}
	if body.Delivering {
		t.Error("delivering should start false")
	}

	h.SetDelivering(true)
	code, body = getJSON[DetailedHealthResponse](t, h.DetailedHealthHandler(), "/healthz/detailed")
	if code != http.StatusOK {
		t.Errorf("GET /healthz/detailed during a run status = %d, want %d", code, http.StatusOK)
	}
	if !body.Delivering {
		t.Error("delivering flag should surface in the detailed response")
	}

	h.SetReady(false)
	code, body = getJSON[DetailedHealthResponse](t, h.DetailedHealthHandler(), "/healthz/detailed")
	if code != http.StatusServiceUnavailable {
		t.Errorf("GET /healthz/detailed while not ready status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Status != healthStatusNotReady {
		t.Errorf("status = %q, want %q", body.Status, healthStatusNotReady)
	}
}

func TestRegisterHealthEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthChecker(nil).RegisterHealthEndpoints(mux)

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
