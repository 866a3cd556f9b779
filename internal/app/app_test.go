package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/p2efarm/internal/config"
	"github.com/weisyn/p2efarm/internal/core/session"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Wallet.Mode = config.WalletModeNone
	cfg.Log.ToConsole = false
	cfg.Log.FilePath = ""
	cfg.API.Listen = "127.0.0.1:0"
	return cfg
}

func TestBootstrapApp_WithoutWallet(t *testing.T) {
	app, err := BootstrapApp(WithConfig(testConfig()), WithoutAPI(), WithAutoConnect())
	require.NoError(t, err)

	ctrl := app.Controller()
	require.NotNil(t, ctrl)
	assert.Equal(t, "disconnected", ctrl.State().Session)
	assert.NotEmpty(t, ctrl.State().Alerts, "自动连接失败应产生告警")

	assert.ErrorIs(t, ctrl.Connect(context.Background()), session.ErrNoWallet)
	require.NoError(t, app.Stop())
}

func TestBootstrapApp_ServesAPI(t *testing.T) {
	cfg := testConfig()
	cfg.API.Listen = "127.0.0.1:18391"

	app, err := BootstrapApp(WithConfig(cfg), WithAPI())
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Stop()) }()

	resp, err := http.Get("http://127.0.0.1:18391/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://127.0.0.1:18391/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBootstrapApp_InvalidWalletMode(t *testing.T) {
	cfg := testConfig()
	cfg.Wallet.Mode = "ledger"

	_, err := BootstrapApp(WithConfig(cfg), WithoutAPI())
	assert.Error(t, err)
}

func TestWait_StopsOnContext(t *testing.T) {
	app, err := BootstrapApp(WithConfig(testConfig()), WithoutAPI())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, app.Wait(ctx))
}
