package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralog "github.com/weisyn/p2efarm/internal/core/infrastructure/log"
)

func newEventServer(t *testing.T, messages []string, hold bool) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if hold {
			// 等待客户端关闭
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type collector struct {
	mu    sync.Mutex
	items []Notification
}

func (c *collector) add(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

func (c *collector) snapshot() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

func TestEventStream_DeliversNotifications(t *testing.T) {
	srv := newEventServer(t, []string{
		`{"jsonrpc":"2.0","id":1,"result":true}`,
		`{"jsonrpc":"2.0","method":"wallet_event","params":{"name":"chainChanged","chain_id":"0x1"}}`,
		`{"jsonrpc":"2.0","method":"wallet_event","params":{"name":"accountsChanged","accounts":[]}}`,
	}, true)

	got := &collector{}
	s, err := DialEventStream(context.Background(), wsURL(srv), got.add, infralog.NewNoopLogger())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(got.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	items := got.snapshot()
	assert.Equal(t, MethodWalletEvent, items[0].Method)
	assert.JSONEq(t, `{"name":"chainChanged","chain_id":"0x1"}`, string(items[0].Params))

	require.NoError(t, s.Close())
	<-s.Done()
	assert.NoError(t, s.Err(), "主动关闭不记录错误")
	assert.NoError(t, s.Close(), "重复关闭安全")
}

func TestEventStream_ServerDisconnect(t *testing.T) {
	srv := newEventServer(t, nil, false)

	s, err := DialEventStream(context.Background(), wsURL(srv), func(Notification) {}, infralog.NewNoopLogger())
	require.NoError(t, err)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("读取协程未退出")
	}
	assert.Error(t, s.Err())
	_ = s.Close()
}

func TestDialEventStream_Failure(t *testing.T) {
	_, err := DialEventStream(context.Background(), "ws://127.0.0.1:1/events", func(Notification) {}, infralog.NewNoopLogger())
	assert.Error(t, err)
}
