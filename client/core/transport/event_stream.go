package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
)

// MethodWalletEvent 钱包桥推送事件使用的通知方法名
const MethodWalletEvent = "wallet_event"

// Notification 服务端推送的 JSON-RPC 通知（无 id）
type Notification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// EventStream WebSocket 事件流（只读）
//
// 连接断开后不自动重连，Done 关闭，Err 返回断开原因。
type EventStream struct {
	conn    *websocket.Conn
	handler func(Notification)
	logger  log.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// wsMessage WebSocket消息
type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *uint64         `json:"id,omitempty"`
}

// DialEventStream 连接事件地址，每条通知在读取协程中同步交给 handler
func DialEventStream(ctx context.Context, endpoint string, handler func(Notification), logger log.Logger) (*EventStream, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	s := &EventStream{
		conn:    conn,
		handler: handler,
		logger:  logger,
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// readLoop 消息读取循环
func (s *EventStream) readLoop() {
	defer close(s.done)

	for {
		var msg wsMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.closeCh:
			default:
				s.logger.Warnf("事件流已断开: %v", err)
				s.setErr(fmt.Errorf("websocket read: %w", err))
			}
			return
		}

		// 只处理通知，忽略响应
		if msg.ID != nil || msg.Method == "" {
			continue
		}
		s.handler(Notification{Method: msg.Method, Params: msg.Params})
	}
}

func (s *EventStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Err 断开原因；主动关闭或仍在运行时为 nil
func (s *EventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done 读取协程退出时关闭
func (s *EventStream) Done() <-chan struct{} { return s.done }

// Close 关闭WebSocket连接并等待读取协程退出
func (s *EventStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
		<-s.done
	})
	return err
}
