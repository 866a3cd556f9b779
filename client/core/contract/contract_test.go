package contract

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/p2efarm/internal/config"
	fakes "github.com/weisyn/p2efarm/internal/testutil"
	walletInterface "github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

var (
	tokenAddr = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	farmAddr  = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
)

// abiBackend 按选择器分派 eth_call 的链后端
type abiBackend struct {
	mu      sync.Mutex
	results map[string][]interface{}
	calls   []ethereum.CallMsg
}

func newABIBackend() *abiBackend {
	return &abiBackend{results: make(map[string][]interface{})}
}

func (b *abiBackend) set(method string, outputs ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[method] = outputs
}

func (b *abiBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (b *abiBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)

	var method *abi.Method
	for _, parsed := range []abi.ABI{tokenABI, farmABI} {
		if m, err := parsed.MethodById(call.Data[:4]); err == nil {
			method = m
			break
		}
	}
	if method == nil {
		return nil, errors.New("unknown selector")
	}
	outputs, ok := b.results[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return method.Outputs.Pack(outputs...)
}

func (b *abiBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: hash}, nil
}

func (b *abiBackend) lastCall() ethereum.CallMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[len(b.calls)-1]
}

func setupContracts(t *testing.T) (*Token, *Farm, *abiBackend, *fakes.FakeProvider) {
	t.Helper()
	backend := newABIBackend()
	provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
	provider.SetBackend(backend)
	return NewToken(tokenAddr, provider, fakes.Alice), NewFarm(farmAddr, provider, fakes.Alice), backend, provider
}

func TestABI_Selectors(t *testing.T) {
	tests := []struct {
		parsed    abi.ABI
		method    string
		signature string
	}{
		{tokenABI, "balanceOf", "balanceOf(address)"},
		{tokenABI, "approve", "approve(address,uint256)"},
		{tokenABI, "transfer", "transfer(address,uint256)"},
		{farmABI, "getIdsFarm", "getIdsFarm(address)"},
		{farmABI, "allFarms", "allFarms(uint256)"},
		{farmABI, "FARM_PRICE", "FARM_PRICE()"},
		{farmABI, "buyFarm", "buyFarm()"},
		{farmABI, "upgradeMaxCapacity", "upgradeMaxCapacity(uint256)"},
		{farmABI, "upgradeRewardRate", "upgradeRewardRate(uint256)"},
		{farmABI, "claimRewards", "claimRewards(uint256)"},
		{farmABI, "sellFarm", "sellFarm(uint256)"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			m, ok := tt.parsed.Methods[tt.method]
			require.True(t, ok)
			assert.Equal(t, crypto.Keccak256([]byte(tt.signature))[:4], m.ID)
		})
	}

	assert.Equal(t, hexutil.MustDecode("0x70a08231"), tokenABI.Methods["balanceOf"].ID)
	assert.Equal(t, hexutil.MustDecode("0x095ea7b3"), tokenABI.Methods["approve"].ID)
}

func TestToken_Reads(t *testing.T) {
	token, _, backend, _ := setupContracts(t)
	ctx := context.Background()

	backend.set("balanceOf", big.NewInt(1234))
	backend.set("symbol", "CRT")
	backend.set("decimals", uint8(18))

	balance, err := token.BalanceOf(ctx, fakes.Alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), balance.Int64())

	call := backend.lastCall()
	assert.Equal(t, fakes.Alice, call.From)
	assert.Equal(t, tokenAddr, *call.To)

	meta, err := token.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CRT", meta.Symbol)
	assert.Equal(t, uint8(18), meta.Decimals)
	assert.Equal(t, tokenAddr, meta.Address)
}

func TestToken_MetadataReverted(t *testing.T) {
	token, _, backend, _ := setupContracts(t)
	backend.set("symbol", "CRT")

	_, err := token.Metadata(context.Background())
	assert.Error(t, err)
}

func TestFarm_Reads(t *testing.T) {
	_, farm, backend, _ := setupContracts(t)
	ctx := context.Background()

	backend.set("getIdsFarm", []*big.Int{big.NewInt(3), big.NewInt(9)})
	backend.set("allFarms", fakes.Alice, big.NewInt(3), big.NewInt(2), big.NewInt(4), big.NewInt(0), big.NewInt(1_700_000_000))
	backend.set("FARM_PRICE", big.NewInt(100))
	backend.set("currentCostUpgradeMaxCapacity", big.NewInt(20))
	backend.set("getFarmSellPrice", big.NewInt(75))

	ids, err := farm.GetIdsFarm(ctx, fakes.Alice)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, int64(9), ids[1].Int64())

	rec, err := farm.AllFarms(ctx, big.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, fakes.Alice, rec.Owner)
	assert.Equal(t, int64(3), rec.ID.Int64())
	assert.Equal(t, int64(2), rec.RateLevel.Int64())
	assert.Equal(t, int64(4), rec.CapacityLevel.Int64())
	assert.Equal(t, int64(1_700_000_000), rec.LastClaimTime.Int64())

	price, err := farm.FarmPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), price.Int64())

	cost, err := farm.CurrentCostUpgradeMaxCapacity(ctx, big.NewInt(4))
	require.NoError(t, err)
	assert.Equal(t, int64(20), cost.Int64())

	sell, err := farm.GetFarmSellPrice(ctx, big.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(75), sell.Int64())

	_, err = farm.CurrentCostUpgradeRewardRate(ctx, big.NewInt(1))
	assert.Error(t, err)
}

func TestWrites_GoThroughWallet(t *testing.T) {
	token, farm, _, provider := setupContracts(t)
	ctx := context.Background()

	hash, err := token.Approve(ctx, farmAddr, big.NewInt(100))
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)

	_, err = farm.ClaimRewards(ctx, big.NewInt(7))
	require.NoError(t, err)
	_, err = farm.BuyFarm(ctx)
	require.NoError(t, err)

	sent := provider.SentTransactions()
	require.Len(t, sent, 3)

	assert.Equal(t, fakes.Alice, sent[0].From)
	assert.Equal(t, tokenAddr, *sent[0].To)
	wantApprove, err := tokenABI.Pack("approve", farmAddr, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(wantApprove), sent[0].Data)

	assert.Equal(t, farmAddr, *sent[1].To)
	wantClaim, err := farmABI.Pack("claimRewards", big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(wantClaim), sent[1].Data)

	assert.Equal(t, hexutil.Encode(farmABI.Methods["buyFarm"].ID), sent[2].Data)
}

func TestWrites_WalletRejected(t *testing.T) {
	_, farm, _, provider := setupContracts(t)
	provider.FailMethod(walletInterface.MethodSendTransaction, walletInterface.ErrUserRejected)

	_, err := farm.SellFarm(context.Background(), big.NewInt(1))
	assert.ErrorIs(t, err, walletInterface.ErrUserRejected)
}

func TestNewBinder(t *testing.T) {
	binder := NewBinder(config.ContractsConfig{Farm: farmAddr.Hex(), Token: tokenAddr.Hex()}, 10*time.Millisecond)
	ctx := context.Background()

	_, err := binder(ctx, nil, fakes.Alice)
	assert.Error(t, err)

	provider := fakes.NewFakeProvider(fakes.SepoliaChainID, fakes.Alice)
	_, err = binder(ctx, provider, fakes.Alice)
	assert.Error(t, err, "没有链后端")

	provider.SetBackend(newABIBackend())
	b, err := binder(ctx, provider, fakes.Alice)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, b.Token.Address())
	assert.Equal(t, farmAddr, b.Farm.Address())

	receipt, err := b.Confirmer.WaitMined(ctx, common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Equal(t, ethtypes.ReceiptStatusSuccessful, receipt.Status)
}
