package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/escrow-admin/internal/contracts"
	"github.com/smartdevs17/escrow-admin/internal/gateway"
	"github.com/smartdevs17/escrow-admin/internal/journal"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/internal/orchestrator"
	"github.com/smartdevs17/escrow-admin/internal/wallet"
)

const dealJSON = `{"id":"rec-1","dealIdOnChain":1,"clientWallet":"0x1111111111111111111111111111111111111111","sellerWallet":"0x2222222222222222222222222222222222222222","token":"0x00000000000000000000000000000000000000aa","amount":"1000","status":"CREATED","txCreate":null,"txFund":null,"txRelease":null,"txRefund":null,"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}`

type backend struct {
	hits atomic.Int32
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.hits.Add(1)
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/deals":
		fmt.Fprint(w, "["+dealJSON+"]")
	case r.Method == http.MethodPost && r.URL.Path == "/deals":
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	case r.URL.Path == "/deals/1":
		fmt.Fprint(w, dealJSON)
	case r.URL.Path == "/deals/1/risk":
		fmt.Fprint(w, `{"dealIdOnChain":1,"riskScore":12.5,"riskLevel":"LOW","riskReasons":["new seller"]}`)
	case r.URL.Path == "/admin/release":
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"Deal is not COMPLETED on-chain"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	backend *backend
	server  *HTTPServer
	metrics *metrics.Manager
}

func newTestEnv(t *testing.T, cors ...string) *testEnv {
	t.Helper()
	be := &backend{}
	api := httptest.NewServer(be)
	t.Cleanup(api.Close)

	m := metrics.NewManager()
	session := wallet.NewSession(nil, m)
	gw := gateway.NewClient(gateway.Config{BaseURL: api.URL, Metrics: m})
	chain := contracts.NewFacade(contracts.Config{TokenAddress: "0x00000000000000000000000000000000000000aa", Metrics: m}, session)
	jr := journal.New(journal.NewMemoryStore(), m)

	srv, err := NewHTTPServer(&ServerConfig{
		EnableHealth:  true,
		EnableMetrics: true,
		CORSOrigins:   cors,
		Version:       "test",
	}, Dependencies{
		Registry:      orchestrator.NewRegistry(gw, chain, orchestrator.Options{Journal: jr, Metrics: m, Wallet: session}),
		Board:         orchestrator.NewBoard(gw, m),
		Session:       session,
		Journal:       jr,
		Metrics:       m,
		Summary:       map[string]interface{}{"api_url": api.URL},
		TargetChainID: 31,
	})
	require.NoError(t, err)
	return &testEnv{backend: be, server: srv, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var payload map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodGet, "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["wallet_present"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestInvalidDealIDIsRejectedWithoutBackendCalls(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/v1/deals/0",
		"/api/v1/deals/-3/fund",
		"/api/v1/deals/abc/release",
		"/api/v1/deals/1.5/rescore",
		"/api/v1/deals/0/actions",
	} {
		method := http.MethodPost
		if !strings.Contains(strings.TrimPrefix(path, "/api/v1/deals/"), "/") || strings.HasSuffix(path, "/actions") {
			method = http.MethodGet
		}
		rec, body := env.do(t, method, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "Invalid deal id", body["error"], path)
	}
	assert.Zero(t, env.backend.hits.Load())
}

func TestGetDealLoadsViewState(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodGet, "/api/v1/deals/1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	deal := body["deal"].(map[string]interface{})
	assert.Equal(t, "CREATED", deal["status"])
	risk := body["risk"].(map[string]interface{})
	assert.Equal(t, "available", risk["status"])
	assert.Equal(t, false, body["disabled"])
}

func TestAdminReleaseRejected(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodPost, "/api/v1/deals/1/release", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "Deal is not COMPLETED on-chain", body["error"])
	state := body["state"].(map[string]interface{})
	assert.Equal(t, "Deal is not COMPLETED on-chain", state["error"])

	rec, body = env.do(t, http.MethodGet, "/api/v1/deals/1/actions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	actions := body["actions"].([]interface{})
	require.Len(t, actions, 1)
	entry := actions[0].(map[string]interface{})
	assert.Equal(t, "release", entry["action"])
	assert.Equal(t, "failed", entry["status"])
}

func TestFundWithoutEscrowAddress(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodPost, "/api/v1/deals/1/fund", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "escrow contract address is not configured", body["error"])
}

func TestCreateDeal(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/deals", `{"dealIdOnChain":5,"clientWallet":"0xa","sellerWallet":"0xb","token":"0xc","amount":"1000"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	board := body["board"].(map[string]interface{})
	assert.Equal(t, float64(6), board["nextDealId"])

	rec, body = env.do(t, http.MethodPost, "/api/v1/deals", `{"dealIdOnChain":0,"clientWallet":"0xa","sellerWallet":"0xb","token":"0xc","amount":"1000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid deal id", body["error"])

	rec, _ = env.do(t, http.MethodPost, "/api/v1/deals", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDeals(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodGet, "/api/v1/deals", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["deals"], 1)
}

func TestWalletWithoutProvider(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/v1/wallet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["present"])
	assert.Equal(t, false, body["connected"])
	assert.Equal(t, false, body["wrongNetwork"])
	assert.Equal(t, float64(31), body["targetChainId"])

	rec, body = env.do(t, http.MethodPost, "/api/v1/wallet/connect", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No wallet found", body["error"])
}

func TestMetricsEndpointUsesRouteTemplates(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/deals/1", "")

	rec, _ := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/api/v1/deals/{id}"`)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, "http://panel.local")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/deals/1/fund", nil)
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://panel.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, env.backend.hits.Load())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrInvalidDealID, http.StatusBadRequest},
		{orchestrator.ErrBusy, http.StatusConflict},
		{orchestrator.ErrDealNotLoaded, http.StatusConflict},
		{&orchestrator.ActionError{Action: "fund", Message: "boom"}, http.StatusUnprocessableEntity},
		{&orchestrator.ActionError{Action: "load", Message: "Request failed (500)"}, http.StatusBadGateway},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestNewHTTPServerRequiresComponents(t *testing.T) {
	_, err := NewHTTPServer(&ServerConfig{}, Dependencies{})
	assert.Error(t, err)
}
