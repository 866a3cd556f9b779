package wallet

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraevent "github.com/weisyn/p2efarm/internal/core/infrastructure/event"
	infralog "github.com/weisyn/p2efarm/internal/core/infrastructure/log"
	walletInterface "github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

var farmContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func setupLocal(t *testing.T) (*LocalProvider, *fakeNode) {
	t.Helper()
	node, srv := newFakeNode(t)
	logger := infralog.NewNoopLogger()

	p, err := NewLocalProvider(context.Background(), LocalOptions{
		NodeURL:      srv.URL,
		Mnemonic:     testMnemonic,
		AccountCount: 2,
	}, infraevent.New(logger), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, node
}

func TestNewLocalProvider_RequiresKeys(t *testing.T) {
	_, err := NewLocalProvider(context.Background(), LocalOptions{NodeURL: "http://127.0.0.1:1"}, nil, infralog.NewNoopLogger())
	assert.Error(t, err)
}

func TestLocalProvider_Accounts(t *testing.T) {
	p, _ := setupLocal(t)
	ctx := context.Background()

	require.Len(t, p.Accounts(), 2)

	var accounts []common.Address
	require.NoError(t, p.Request(ctx, &accounts, walletInterface.MethodRequestAccounts))
	assert.Equal(t, []common.Address{common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")}, accounts)

	require.NoError(t, p.SwitchAccount(1))
	require.NoError(t, p.Request(ctx, &accounts, walletInterface.MethodAccounts))
	assert.Equal(t, []common.Address{common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")}, accounts)

	assert.ErrorIs(t, p.SwitchAccount(5), ErrUnknownAccount)

	// 锁定后返回空列表
	p.Lock()
	require.NoError(t, p.Request(ctx, &accounts, walletInterface.MethodRequestAccounts))
	assert.Empty(t, accounts)
}

func TestLocalProvider_ChainIDCached(t *testing.T) {
	p, node := setupLocal(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		var id string
		require.NoError(t, p.Request(ctx, &id, walletInterface.MethodChainID))
		assert.Equal(t, "0xaa36a7", id)
	}
	assert.Equal(t, 1, node.called("eth_chainId"))
}

func TestLocalProvider_WatchAsset(t *testing.T) {
	p, _ := setupLocal(t)

	var added bool
	err := p.Request(context.Background(), &added, walletInterface.MethodWatchAsset, walletInterface.WatchAssetParams{
		Type:    "ERC20",
		Options: walletInterface.WatchAssetOption{Address: farmContract.Hex(), Symbol: "CRT", Decimals: 18},
	})
	require.NoError(t, err)
	assert.True(t, added)

	watched := p.WatchedAssets()
	require.Len(t, watched, 1)
	assert.Equal(t, "CRT", watched[0].Options.Symbol)

	assert.Error(t, p.Request(context.Background(), &added, walletInterface.MethodWatchAsset))
}

func TestLocalProvider_SendTransaction(t *testing.T) {
	p, node := setupLocal(t)
	ctx := context.Background()
	from := p.Accounts()[0]
	to := farmContract

	var hash string
	err := p.Request(ctx, &hash, walletInterface.MethodSendTransaction, walletInterface.SendTxArgs{
		From: from,
		To:   &to,
		Data: "0x4e71d92d",
	})
	require.NoError(t, err)

	sent := node.sent()
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Equal(t, tx.Hash().Hex(), hash)
	assert.Equal(t, uint8(ethtypes.LegacyTxType), tx.Type())
	assert.Equal(t, to, *tx.To())
	assert.Equal(t, hexutil.MustDecode("0x4e71d92d"), tx.Data())
	assert.Equal(t, uint64(5), tx.Nonce())
	assert.Equal(t, uint64(0xc350), tx.Gas())
	assert.Equal(t, big.NewInt(1_000_000_000), tx.GasPrice())

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(11155111)), tx)
	require.NoError(t, err)
	assert.Equal(t, from, sender)
}

func TestLocalProvider_SendTransactionRejected(t *testing.T) {
	p, node := setupLocal(t)
	ctx := context.Background()
	to := farmContract

	t.Run("非当前账户", func(t *testing.T) {
		err := p.Request(ctx, nil, walletInterface.MethodSendTransaction, walletInterface.SendTxArgs{
			From: common.HexToAddress("0x01"),
			To:   &to,
		})
		assert.ErrorIs(t, err, ErrUnknownAccount)
	})

	t.Run("缺少目标地址", func(t *testing.T) {
		err := p.Request(ctx, nil, walletInterface.MethodSendTransaction, walletInterface.SendTxArgs{From: p.Accounts()[0]})
		assert.Error(t, err)
	})

	t.Run("已锁定", func(t *testing.T) {
		p.Lock()
		err := p.Request(ctx, nil, walletInterface.MethodSendTransaction, walletInterface.SendTxArgs{From: p.Accounts()[0], To: &to})
		assert.ErrorIs(t, err, ErrLocked)
	})

	assert.Empty(t, node.sent())
}

func TestLocalProvider_ForwardsOtherMethods(t *testing.T) {
	p, node := setupLocal(t)

	var block hexutil.Uint64
	require.NoError(t, p.Request(context.Background(), &block, "eth_blockNumber"))
	assert.Equal(t, hexutil.Uint64(16), block)
	assert.Equal(t, 1, node.called("eth_blockNumber"))
}

func TestLocalProvider_Subscribe(t *testing.T) {
	p, _ := setupLocal(t)

	events := make(chan walletInterface.Event, 4)
	sub, err := p.Subscribe(func(ev walletInterface.Event) { events <- ev })
	require.NoError(t, err)

	require.NoError(t, p.SwitchAccount(1))
	select {
	case ev := <-events:
		assert.Equal(t, walletInterface.EventAccountsChanged, ev.Name)
		assert.Equal(t, []common.Address{p.Accounts()[1]}, ev.Accounts)
	case <-time.After(time.Second):
		t.Fatal("accountsChanged not delivered")
	}

	p.Lock()
	select {
	case ev := <-events:
		assert.Empty(t, ev.Accounts)
	case <-time.After(time.Second):
		t.Fatal("lock event not delivered")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, p.SwitchAccount(0))
	select {
	case ev := <-events:
		t.Fatalf("unexpected event after unsubscribe: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
