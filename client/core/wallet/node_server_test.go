package wallet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcReplyError  `json:"error,omitempty"`
}

type rpcReplyError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeNode 最小的以太坊节点 JSON-RPC 模拟
type fakeNode struct {
	mu       sync.Mutex
	methods  []string
	raw      []*ethtypes.Transaction
	handlers map[string]func(params []json.RawMessage) (interface{}, *rpcReplyError)
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	t.Helper()
	n := &fakeNode{handlers: map[string]func([]json.RawMessage) (interface{}, *rpcReplyError){}}

	n.on("eth_chainId", func([]json.RawMessage) (interface{}, *rpcReplyError) { return "0xaa36a7", nil })
	n.on("eth_gasPrice", func([]json.RawMessage) (interface{}, *rpcReplyError) { return "0x3b9aca00", nil })
	n.on("eth_getCode", func([]json.RawMessage) (interface{}, *rpcReplyError) { return "0x6080", nil })
	n.on("eth_estimateGas", func([]json.RawMessage) (interface{}, *rpcReplyError) { return "0xc350", nil })
	n.on("eth_getTransactionCount", func([]json.RawMessage) (interface{}, *rpcReplyError) { return "0x5", nil })
	n.on("eth_blockNumber", func([]json.RawMessage) (interface{}, *rpcReplyError) { return "0x10", nil })
	n.on("eth_sendRawTransaction", func(params []json.RawMessage) (interface{}, *rpcReplyError) {
		var encoded string
		if len(params) == 0 || json.Unmarshal(params[0], &encoded) != nil {
			return nil, &rpcReplyError{Code: -32602, Message: "bad params"}
		}
		data, err := hexutil.Decode(encoded)
		if err != nil {
			return nil, &rpcReplyError{Code: -32602, Message: err.Error()}
		}
		tx := new(ethtypes.Transaction)
		if err := tx.UnmarshalBinary(data); err != nil {
			return nil, &rpcReplyError{Code: -32602, Message: err.Error()}
		}
		n.mu.Lock()
		n.raw = append(n.raw, tx)
		n.mu.Unlock()
		return tx.Hash().Hex(), nil
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		n.mu.Lock()
		n.methods = append(n.methods, req.Method)
		h, ok := n.handlers[req.Method]
		n.mu.Unlock()

		reply := rpcReply{JSONRPC: "2.0", ID: req.ID}
		if !ok {
			reply.Error = &rpcReplyError{Code: -32601, Message: "method not found"}
		} else {
			reply.Result, reply.Error = h(req.Params)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return n, srv
}

func (n *fakeNode) on(method string, h func([]json.RawMessage) (interface{}, *rpcReplyError)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

func (n *fakeNode) called(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, m := range n.methods {
		if m == method {
			count++
		}
	}
	return count
}

func (n *fakeNode) sent() []*ethtypes.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*ethtypes.Transaction{}, n.raw...)
}
