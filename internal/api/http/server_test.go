package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/p2efarm/internal/api/http/middleware"
	"github.com/weisyn/p2efarm/internal/config"
	"github.com/weisyn/p2efarm/internal/core/controller"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/clock"
	infraevent "github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	infralog "github.com/weisyn/p2efarm/internal/core/infrastructure/log"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/storage/memory"
	fakes "github.com/weisyn/p2efarm/internal/testutil"
)

const lastClaim = 1_700_000_000

type apiFixture struct {
	server     *Server
	controller *controller.Controller
	chain      *fakes.FakeChain
	provider   *fakes.FakeProvider
}

func setupAPI(t *testing.T, chainID string) *apiFixture {
	t.Helper()
	logger := infralog.NewNoopLogger()
	clk := clock.NewMockClock(time.Unix(lastClaim+30, 0))

	store, err := memory.New(memory.Options{LifeWindow: time.Hour}, clk, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.DefaultConfig()
	cfg.Alerts.TTL = config.Duration(time.Hour)
	cfg.API.Listen = "127.0.0.1:0"

	chain := fakes.NewFakeChain()
	chain.Token.SetBalance(fakes.Alice, big.NewInt(1_000))
	chain.Farm.AddFarm(fakes.NewFarm(fakes.Alice, 7, 1, 1, lastClaim), big.NewInt(50))

	provider := fakes.NewFakeProvider(chainID, fakes.Alice)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	ctrl, err := controller.NewController(controller.ControllerDeps{
		Config:   cfg,
		Provider: provider,
		Binder:   chain.Binder(),
		Bus:      infraevent.New(logger),
		Clock:    clk,
		Store:    store,
		Logger:   logger,
		Metrics:  m,
	})
	require.NoError(t, err)
	t.Cleanup(ctrl.Stop)

	return &apiFixture{
		server:     NewServer(cfg.API, ctrl, reg, m, logger),
		controller: ctrl,
		chain:      chain,
		provider:   provider,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestHealth(t *testing.T) {
	f := setupAPI(t, fakes.SepoliaChainID)

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session":"disconnected"`)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
}

func TestRequestIDPropagated(t *testing.T) {
	f := setupAPI(t, fakes.SepoliaChainID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(middleware.HeaderRequestID))
	assert.Contains(t, rec.Body.String(), `"requestId":"req-123"`)
}

func TestConnectAndState(t *testing.T) {
	f := setupAPI(t, fakes.SepoliaChainID)

	rec := f.do(t, http.MethodPost, "/api/v1/connect", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, f.controller.Refresh(context.Background()))

	rec = f.do(t, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data controller.StateView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "connected", resp.Data.Session)
	assert.Equal(t, fakes.Alice.Hex(), resp.Data.Signer)
	assert.Equal(t, "1000", resp.Data.Balance)
	require.Len(t, resp.Data.Farms, 1)

	rec = f.do(t, http.MethodPost, "/api/v1/disconnect", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session":"disconnected"`)
}

func TestConnectWrongNetwork(t *testing.T) {
	f := setupAPI(t, fakes.MainnetChainID)

	rec := f.do(t, http.MethodPost, "/api/v1/connect", "")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "WRONG_NETWORK", decodeError(t, rec))
}

func TestActions(t *testing.T) {
	t.Run("无会话", func(t *testing.T) {
		f := setupAPI(t, fakes.SepoliaChainID)
		rec := f.do(t, http.MethodPost, "/api/v1/actions", `{"kind":"buy"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("参数非法", func(t *testing.T) {
		f := setupAPI(t, fakes.SepoliaChainID)
		require.NoError(t, f.controller.Connect(context.Background()))
		before := len(f.chain.Calls.Calls())

		for _, body := range []string{
			`{}`,
			`{"kind":"plant"}`,
			`{"kind":"claim"}`,
			`{"kind":"claim","farm_id":"x"}`,
			`{"kind":"transfer","to":"nope","amount":1}`,
			`not json`,
		} {
			rec := f.do(t, http.MethodPost, "/api/v1/actions", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
		assert.Len(t, f.chain.Calls.Calls(), before, "非法参数不触达合约")
	})

	t.Run("受理并完成", func(t *testing.T) {
		f := setupAPI(t, fakes.SepoliaChainID)
		require.NoError(t, f.controller.Connect(context.Background()))

		rec := f.do(t, http.MethodPost, "/api/v1/actions", `{"kind":"claim","farm_id":7}`)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"status":"accepted"`)

		require.Eventually(t, func() bool {
			for _, a := range f.controller.State().Alerts {
				if a.Message == "Rewards claimed!" {
					return true
				}
			}
			return false
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("忙碌", func(t *testing.T) {
		f := setupAPI(t, fakes.SepoliaChainID)
		require.NoError(t, f.controller.Connect(context.Background()))
		release := f.chain.Confirmer.Hold()
		defer release()

		rec := f.do(t, http.MethodPost, "/api/v1/actions", `{"kind":"sell","farm_id":"7"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.Eventually(t, func() bool { return f.controller.State().Busy }, time.Second, 5*time.Millisecond)

		rec = f.do(t, http.MethodPost, "/api/v1/actions", `{"kind":"claim","farm_id":"7"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "TX_IN_PROGRESS", decodeError(t, rec))
	})
}

func TestDismissAlert(t *testing.T) {
	f := setupAPI(t, fakes.MainnetChainID)
	_ = f.controller.Connect(context.Background())

	alerts := f.controller.State().Alerts
	require.Len(t, alerts, 1)
	path := fmt.Sprintf("/api/v1/alerts/%d", alerts[0].ID)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodDelete, "/api/v1/alerts/abc", "").Code)
}

func TestWatchAsset(t *testing.T) {
	f := setupAPI(t, fakes.SepoliaChainID)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/v1/watch-asset", "").Code)

	require.NoError(t, f.controller.Connect(context.Background()))
	rec := f.do(t, http.MethodPost, "/api/v1/watch-asset", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.provider.WatchedAssets(), 1)
}

func TestWalletAccounts(t *testing.T) {
	f := setupAPI(t, fakes.SepoliaChainID)

	rec := f.do(t, http.MethodGet, "/api/v1/wallet/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`{"index":0,"address":"%s"}`, fakes.Alice.Hex()))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/connect", "").Code)

	for _, body := range []string{``, `{}`, `{"index":-1}`, `{"index":"x"}`} {
		rec = f.do(t, http.MethodPost, "/api/v1/wallet/account", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/wallet/account", `{"index":3}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec))

	rec = f.do(t, http.MethodPost, "/api/v1/wallet/account", `{"index":0}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, fakes.Alice.Hex(), f.controller.State().Signer)

	rec = f.do(t, http.MethodPost, "/api/v1/wallet/lock", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "disconnected", f.controller.State().Session)
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupAPI(t, fakes.SepoliaChainID)
	f.do(t, http.MethodGet, "/health", "")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "p2efarm_api_requests_total")
}

func TestServerStartStop(t *testing.T) {
	f := setupAPI(t, fakes.SepoliaChainID)

	require.NoError(t, f.server.Start())
	addr := f.server.Addr()
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, f.server.Stop(context.Background()))
}
