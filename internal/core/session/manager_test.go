package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/p2efarm/internal/core/alert"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/clock"
	infraevent "github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	infralog "github.com/weisyn/p2efarm/internal/core/infrastructure/log"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/internal/core/network"
	fakes "github.com/weisyn/p2efarm/internal/testutil"
	"github.com/weisyn/p2efarm/pkg/interfaces/game"
	"github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

type fixture struct {
	manager  *Manager
	provider *fakes.FakeProvider
	chain    *fakes.FakeChain
	alerts   *alert.Queue
	bus      *infraevent.EventBus
	metrics  *metrics.Metrics
}

func setupManager(t *testing.T, provider *fakes.FakeProvider) *fixture {
	t.Helper()
	logger := infralog.NewNoopLogger()
	clk := clock.NewMockClock(time.Unix(1_700_000_000, 0))
	bus := infraevent.New(logger)
	alerts := alert.NewQueue(alert.Options{TTL: time.Hour}, clk, nil, nil)
	t.Cleanup(alerts.Close)

	var p wallet.Provider
	if provider != nil {
		p = provider
	}
	guard, err := network.NewGuard(network.Options{
		Name:    "Sepolia",
		ChainID: fakes.SepoliaChainID,
		URL:     "https://sepolia.infura.io/v3/",
	}, p, alerts, logger)
	require.NoError(t, err)

	chain := fakes.NewFakeChain()
	m := metrics.NewUnregistered()
	return &fixture{
		manager: NewManager(Deps{
			Provider: p,
			Guard:    guard,
			Binder:   chain.Binder(),
			Alerts:   alerts,
			Bus:      bus,
			Clock:    clk,
			Logger:   logger,
			Metrics:  m,
		}),
		provider: provider,
		chain:    chain,
		alerts:   alerts,
		bus:      bus,
		metrics:  m,
	}
}

func TestConnect_NoWallet(t *testing.T) {
	f := setupManager(t, nil)

	err := f.manager.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoWallet)
	assert.Equal(t, Disconnected, f.manager.State())

	list := f.alerts.List()
	require.Len(t, list, 1)
	assert.Equal(t, MessageNoWallet, list[0].Message)
}

func TestConnect_WrongNetwork(t *testing.T) {
	provider := fakes.NewFakeProvider(fakes.MainnetChainID, fakes.Alice)
	f := setupManager(t, provider)

	err := f.manager.Connect(context.Background())
	assert.ErrorIs(t, err, ErrWrongNetwork)
	assert.Equal(t, Disconnected, f.manager.State())
	assert.Nil(t, f.manager.Current())
	assert.NotContains(t, provider.Requests(), wallet.MethodRequestAccounts, "网络校验失败后不再请求账户")
	assert.Len(t, f.alerts.List(), 1)
}

func TestConnect_Success(t *testing.T) {
	provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice, fakes.Bob)
	f := setupManager(t, provider)

	var published atomic.Int32
	require.NoError(t, f.bus.Subscribe(infraevent.TopicSessionChanged, func(s *Session) {
		if s != nil {
			published.Add(1)
		}
	}))

	require.NoError(t, f.manager.Connect(context.Background()))

	s := f.manager.Current()
	require.NotNil(t, s)
	assert.Equal(t, fakes.Alice, s.Signer, "使用第一个账户")
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, f.chain.Farm, s.Farm)
	assert.Equal(t, Connected, f.manager.State())
	assert.Equal(t, int32(1), published.Load())
	assert.Equal(t, 1, provider.ActiveSubscriptions())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SessionState))
	assert.Empty(t, f.alerts.List())
}

func TestConnect_NoAccounts(t *testing.T) {
	provider := fakes.NewFakeProvider(fakes.SepoliaChainID)
	f := setupManager(t, provider)

	err := f.manager.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoAccounts)
	assert.Equal(t, Disconnected, f.manager.State())
	assert.Equal(t, 0, provider.ActiveSubscriptions())
}

func TestConnect_RequestRejected(t *testing.T) {
	provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
	provider.FailMethod(wallet.MethodRequestAccounts, wallet.ErrUserRejected)
	f := setupManager(t, provider)

	err := f.manager.Connect(context.Background())
	assert.ErrorIs(t, err, wallet.ErrUserRejected)
	assert.Equal(t, Disconnected, f.manager.State())
	require.Len(t, f.alerts.List(), 1)
	assert.Equal(t, MessageConnectFailed, f.alerts.List()[0].Message)
}

func TestConnect_BinderFailure(t *testing.T) {
	provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
	f := setupManager(t, provider)
	f.manager.deps.Binder = func(context.Context, wallet.Provider, common.Address) (game.Bindings, error) {
		return game.Bindings{}, errors.New("abi mismatch")
	}

	err := f.manager.Connect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Disconnected, f.manager.State())
	assert.Nil(t, f.manager.Current())
}

func TestConnect_InProgress(t *testing.T) {
	provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
	f := setupManager(t, provider)

	entered := make(chan struct{})
	release := make(chan struct{})
	bind := f.chain.Binder()
	f.manager.deps.Binder = func(ctx context.Context, p wallet.Provider, a common.Address) (game.Bindings, error) {
		close(entered)
		<-release
		return bind(ctx, p, a)
	}

	done := make(chan error, 1)
	go func() { done <- f.manager.Connect(context.Background()) }()

	<-entered
	assert.Equal(t, Connecting, f.manager.State())
	assert.ErrorIs(t, f.manager.Connect(context.Background()), ErrConnectInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Connected, f.manager.State())
}

func TestConnect_ResetDuringConnectAborts(t *testing.T) {
	provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
	f := setupManager(t, provider)

	bind := f.chain.Binder()
	f.manager.deps.Binder = func(ctx context.Context, p wallet.Provider, a common.Address) (game.Bindings, error) {
		f.manager.Reset()
		return bind(ctx, p, a)
	}

	err := f.manager.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectAborted)
	assert.Equal(t, Disconnected, f.manager.State())
	assert.Nil(t, f.manager.Current())
	assert.Empty(t, f.alerts.List())
}

func TestConnect_RepeatedKeepsSingleSubscription(t *testing.T) {
	provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
	f := setupManager(t, provider)
	ctx := context.Background()

	require.NoError(t, f.manager.Connect(ctx))
	first := f.manager.Current()
	require.NoError(t, f.manager.Connect(ctx))

	assert.NotSame(t, first, f.manager.Current(), "重新连接产生全新会话")
	assert.Equal(t, 1, provider.ActiveSubscriptions())
	assert.Equal(t, 1, provider.TotalSubscriptions())

	// 断开后重新连接，旧订阅已注销
	f.manager.Disconnect()
	assert.Equal(t, 0, provider.ActiveSubscriptions())
	require.NoError(t, f.manager.Connect(ctx))
	assert.Equal(t, 1, provider.ActiveSubscriptions())
}

func TestWalletEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("切换账户重新初始化", func(t *testing.T) {
		provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
		f := setupManager(t, provider)
		require.NoError(t, f.manager.Connect(ctx))
		before := f.manager.Current()

		provider.Emit(wallet.Event{Name: wallet.EventAccountsChanged, Accounts: []common.Address{fakes.Bob}})

		after := f.manager.Current()
		require.NotNil(t, after)
		assert.Equal(t, fakes.Bob, after.Signer)
		assert.NotEqual(t, before.ID, after.ID)
		assert.Equal(t, 1, provider.ActiveSubscriptions())
	})

	t.Run("账户清空时重置", func(t *testing.T) {
		provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
		f := setupManager(t, provider)
		require.NoError(t, f.manager.Connect(ctx))

		var resets atomic.Int32
		f.manager.OnReset(func() { resets.Add(1) })

		provider.Emit(wallet.Event{Name: wallet.EventAccountsChanged})

		assert.Nil(t, f.manager.Current())
		assert.Equal(t, Disconnected, f.manager.State())
		assert.Equal(t, int32(1), resets.Load())
		assert.Equal(t, 0, provider.ActiveSubscriptions())
	})

	t.Run("切换账户失败时不保留旧会话", func(t *testing.T) {
		provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
		f := setupManager(t, provider)
		require.NoError(t, f.manager.Connect(ctx))

		bind := f.chain.Binder()
		f.manager.deps.Binder = func(ctx context.Context, p wallet.Provider, a common.Address) (game.Bindings, error) {
			if a == fakes.Bob {
				return game.Bindings{}, errors.New("rpc unavailable")
			}
			return bind(ctx, p, a)
		}

		provider.Emit(wallet.Event{Name: wallet.EventAccountsChanged, Accounts: []common.Address{fakes.Bob}})

		assert.Nil(t, f.manager.Current())
		assert.Equal(t, Disconnected, f.manager.State())
		assert.Equal(t, 0, provider.ActiveSubscriptions())
		list := f.alerts.List()
		require.Len(t, list, 1)
		assert.Equal(t, MessageConnectFailed, list[0].Message)
	})

	t.Run("切换期间重置不被覆盖", func(t *testing.T) {
		provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
		f := setupManager(t, provider)
		require.NoError(t, f.manager.Connect(ctx))

		bind := f.chain.Binder()
		f.manager.deps.Binder = func(ctx context.Context, p wallet.Provider, a common.Address) (game.Bindings, error) {
			f.manager.Reset()
			return bind(ctx, p, a)
		}

		provider.Emit(wallet.Event{Name: wallet.EventAccountsChanged, Accounts: []common.Address{fakes.Bob}})

		assert.Nil(t, f.manager.Current())
		assert.Equal(t, Disconnected, f.manager.State())
		assert.Equal(t, 0, provider.ActiveSubscriptions())
		assert.Empty(t, f.alerts.List())
	})

	t.Run("切换链时总是重置", func(t *testing.T) {
		provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
		f := setupManager(t, provider)
		require.NoError(t, f.manager.Connect(ctx))

		provider.Emit(wallet.Event{Name: wallet.EventChainChanged, ChainID: fakes.SepoliaChainID})

		assert.Nil(t, f.manager.Current())
		assert.Equal(t, Disconnected, f.manager.State())
	})
}

func TestReset_Idempotent(t *testing.T) {
	provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
	f := setupManager(t, provider)

	var cleared atomic.Int32
	require.NoError(t, f.bus.Subscribe(infraevent.TopicSessionChanged, func(s *Session) {
		if s == nil {
			cleared.Add(1)
		}
	}))

	// 未连接时调用安全，不发布事件
	f.manager.Reset()
	assert.Equal(t, int32(0), cleared.Load())

	require.NoError(t, f.manager.Connect(context.Background()))
	f.manager.Reset()
	f.manager.Reset()

	assert.Equal(t, int32(1), cleared.Load())
	assert.Equal(t, Disconnected, f.manager.State())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.SessionState))
}

func TestInitialize_InvalidAccount(t *testing.T) {
	f := setupManager(t, fakes.NewFakeProvider(fakes.SepoliaChainID))

	err := f.manager.Initialize(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAccount)
	assert.Nil(t, f.manager.Current())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())

	text, err := Connected.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "connected", string(text))
}
