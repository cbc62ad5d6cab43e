package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tradescan/marketscout/internal/store"
)

func passingCheck(name string) Check {
	return Check{Name: name, Probe: func(ctx context.Context) error { return nil }}
}

func failingCheck(name string) Check {
	return Check{Name: name, Probe: func(ctx context.Context) error {
		return errors.New("connection refused")
	}}
}

func readyz(t *testing.T, s *Server) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	return w
}

func TestReadyz_AllChecksPass(t *testing.T) {
	s := newTestServer(t, passingCheck("markets"), passingCheck("contracts"))
	w := readyz(t, s)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}

	var resp struct {
		Ready  bool `json:"ready"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !resp.Ready {
		t.Fatal("expected ready=true")
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(resp.Checks))
	}
}

func TestReadyz_FailingCheckReports503(t *testing.T) {
	s := newTestServer(t, passingCheck("markets"), failingCheck("contracts"))
	w := readyz(t, s)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp struct {
		Ready  bool `json:"ready"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Ready {
		t.Fatal("expected ready=false")
	}

	found := false
	for _, c := range resp.Checks {
		if c.Name == "contracts" {
			found = true
			if c.Status != "failed" || c.Error == "" {
				t.Fatalf("expected failed contracts check with error, got %+v", c)
			}
		}
	}
	if !found {
		t.Fatal("contracts check missing from response")
	}
}

func TestReadyz_NoChecksIsReady(t *testing.T) {
	s := newTestServer(t)
	w := readyz(t, s)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestStoreChecks_ProbeLiveStores(t *testing.T) {
	checks := StoreChecks(store.NewMemoryMarketStore(), store.NewMemoryContractStore())
	if len(checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(checks))
	}
	for _, c := range checks {
		if err := c.Probe(context.Background()); err != nil {
			t.Fatalf("check %s failed against live stores: %v", c.Name, err)
		}
	}
}
