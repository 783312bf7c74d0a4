package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cuemby/vpncoord/pkg/cluster"
	"github.com/cuemby/vpncoord/pkg/consensus"
	"github.com/cuemby/vpncoord/pkg/events"
	"github.com/cuemby/vpncoord/pkg/kv"
	"github.com/cuemby/vpncoord/pkg/userdir"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	broker := events.NewBroker()
	state := cluster.NewState("test-cluster", broker)
	store := kv.NewMemoryStore()
	engine := consensus.NewSimpleEngine("node-1", store, state)
	dir, err := userdir.NewDirectory(t.TempDir(), broker, nil)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	tokens := cluster.NewTokenManager()

	return NewServer(Deps{
		State:  state,
		Engine: engine,
		Users:  dir,
		Tokens: tokens,
	})
}

func TestHandleClusterReturnsStatus(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/cluster", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"is_leader":true`) {
		t.Errorf("body = %s, want is_leader true (SimpleEngine is always leader)", rec.Body.String())
	}
}

func TestHandleUsersCreateAndList(t *testing.T) {
	s := newTestServer(t)

	createReq := httptest.NewRequest(http.MethodPost, "/v1/users", strings.NewReader(`{"name":"alice","protocol":"vless"}`))
	createRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(createRec, createReq)
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", createRec.Code, createRec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	listRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", listRec.Code)
	}
	if !strings.Contains(listRec.Body.String(), "alice") {
		t.Errorf("list body = %s, want to contain alice", listRec.Body.String())
	}
}

func TestHandleTokensIssueAndList(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/tokens", strings.NewReader(`{"role":"follower","ttl":"1h"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/v1/tokens", nil)
	listRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", listRec.Code)
	}
}

func TestHandleContainersWithoutRuntimeReturns503(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/containers", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleUserByIDNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/users/does-not-exist", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpointsForwardToMetrics(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/health", "/ready", "/live"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code == http.StatusNotFound {
			t.Errorf("%s returned 404, want a health-handler response", path)
		}
	}
}
