// Package network 校验钱包所在链
package network

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/p2efarm/internal/core/alert"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/p2efarm/pkg/interfaces/wallet"
)

// Options 必需网络
type Options struct {
	Name    string // 展示名称
	ChainID string // 0x 前缀十六进制
	URL     string // 提示中展示的地址
}

// Guard 网络守卫
type Guard struct {
	provider wallet.Provider
	required *big.Int
	message  string
	alerts   *alert.Queue
	logger   log.Logger
}

// NewGuard 创建网络守卫，opts.ChainID 无法解析时返回错误
func NewGuard(opts Options, provider wallet.Provider, alerts *alert.Queue, logger log.Logger) (*Guard, error) {
	required, err := ParseChainID(opts.ChainID)
	if err != nil {
		return nil, fmt.Errorf("invalid required chain id: %w", err)
	}
	return &Guard{
		provider: provider,
		required: required,
		message:  fmt.Sprintf("Please connect to %s network (%s)!", opts.Name, opts.URL),
		alerts:   alerts,
		logger:   logger,
	}, nil
}

// Required 必需链 ID
func (g *Guard) Required() *big.Int { return new(big.Int).Set(g.required) }

// Message 网络错误提示
func (g *Guard) Message() string { return g.message }

// Check 钱包链 ID 与必需网络一致时返回 true
//
// 其他任何情况（不一致、无法解析、请求失败）都推送一条错误告警并返回 false，不重试。
func (g *Guard) Check(ctx context.Context) bool {
	if g.provider == nil {
		g.fail("no wallet provider")
		return false
	}

	var raw string
	if err := g.provider.Request(ctx, &raw, wallet.MethodChainID); err != nil {
		g.fail(fmt.Sprintf("eth_chainId failed: %v", err))
		return false
	}

	current, err := ParseChainID(raw)
	if err != nil {
		g.fail(fmt.Sprintf("unparsable chain id %q: %v", raw, err))
		return false
	}
	if current.Cmp(g.required) != 0 {
		g.fail(fmt.Sprintf("chain id 0x%x, want 0x%x", current, g.required))
		return false
	}
	return true
}

func (g *Guard) fail(reason string) {
	g.logger.Warnf("网络校验失败: %s", reason)
	g.alerts.Error(g.message)
}

// ParseChainID 解析链 ID
//
// 0x 前缀按 EIP-1474 quantity 严格解析（不允许前导零），否则按十进制。
func ParseChainID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty chain id")
	}

	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		id, err := hexutil.DecodeBig(s)
		if err != nil {
			return nil, fmt.Errorf("malformed chain id %q: %w", s, err)
		}
		return id, nil
	}

	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("malformed chain id %q", s)
	}
	return id, nil
}
