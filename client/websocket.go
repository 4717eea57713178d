package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// websocketClient WebSocket 客户端实现
type websocketClient struct {
	endpoint string
	conn     *websocket.Conn
	logger   Logger
	timeout  time.Duration
	mu       sync.Mutex // 串行化写操作
	closed   int32
	nextID   uint64
	requests map[uint64]chan *jsonrpcResponse
	subs     map[string]chan *Event
	early    map[string][]*Event // 订阅 ID 登记前到达的推送
	muReq    sync.Mutex
	done     chan struct{}
	once     sync.Once
}

// 每个未登记订阅最多缓存的推送数
const maxEarlyEvents = 16

// wsMessage 读取到的消息：响应（带 id）或订阅推送（method = eth_subscription）
type wsMessage struct {
	ID     *uint64         `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
	Method string          `json:"method,omitempty"`
	Params *struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params,omitempty"`
}

// NewWebSocketClient 创建 WebSocket 客户端
func NewWebSocketClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	endpoint := toWebSocketURL(config.Endpoint)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(endpoint, nil)
	if err != nil {
		return nil, NewNetworkError(fmt.Errorf("dial websocket: %w", err))
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &websocketClient{
		endpoint: endpoint,
		conn:     conn,
		logger:   config.logger(),
		timeout:  timeout,
		requests: make(map[uint64]chan *jsonrpcResponse),
		subs:     make(map[string]chan *Event),
		early:    make(map[string][]*Event),
		done:     make(chan struct{}),
	}

	// 启动消息读取循环
	go client.readLoop()

	return client, nil
}

// toWebSocketURL 将 http(s):// 转换为 ws(s)://
func toWebSocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "ws://"), strings.HasPrefix(endpoint, "wss://"):
		return endpoint
	}
	return "ws://" + endpoint
}

// readLoop 消息读取循环
func (c *websocketClient) readLoop() {
	defer func() {
		atomic.StoreInt32(&c.closed, 1)
		c.muReq.Lock()
		for id, ch := range c.requests {
			close(ch)
			delete(c.requests, id)
		}
		for id, ch := range c.subs {
			close(ch)
			delete(c.subs, id)
		}
		c.muReq.Unlock()
		close(c.done)
	}()

	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if atomic.LoadInt32(&c.closed) == 0 {
				c.logger.Warn("websocket read failed", "endpoint", c.endpoint, "error", err)
			}
			return
		}

		// 订阅推送
		if msg.Method == "eth_subscription" && msg.Params != nil {
			ev := &Event{Subscription: msg.Params.Subscription, Data: msg.Params.Result}
			c.muReq.Lock()
			ch, ok := c.subs[ev.Subscription]
			if !ok && len(c.early[ev.Subscription]) < maxEarlyEvents {
				c.early[ev.Subscription] = append(c.early[ev.Subscription], ev)
			}
			c.muReq.Unlock()
			if ok {
				select {
				case ch <- ev:
				default:
					c.logger.Warn("subscription buffer full, dropping event", "subscription", ev.Subscription)
				}
			}
			continue
		}

		if msg.ID == nil {
			continue
		}

		// 查找对应的请求通道
		c.muReq.Lock()
		ch, exists := c.requests[*msg.ID]
		if exists {
			delete(c.requests, *msg.ID)
		}
		c.muReq.Unlock()

		if exists {
			ch <- &jsonrpcResponse{JSONRPC: "2.0", Result: msg.Result, Error: msg.Error, ID: *msg.ID}
		}
	}
}

// call 发送请求并等待原始响应
func (c *websocketClient) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return nil, NewNetworkError(fmt.Errorf("websocket client is closed"))
	}
	if params == nil {
		params = []interface{}{}
	}

	reqID := atomic.AddUint64(&c.nextID, 1)
	req := jsonrpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      reqID,
	}

	respCh := make(chan *jsonrpcResponse, 1)
	c.muReq.Lock()
	c.requests[reqID] = respCh
	c.muReq.Unlock()

	c.mu.Lock()
	err := c.conn.WriteJSON(req)
	c.mu.Unlock()
	if err != nil {
		c.forget(reqID)
		return nil, NewNetworkError(fmt.Errorf("write request: %w", err))
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-respCh:
		if !ok || resp == nil {
			return nil, NewNetworkError(fmt.Errorf("connection closed"))
		}
		if resp.Error != nil {
			return nil, NewRPCError(resp.Error.Code, resp.Error.Message, resp.Error.Data)
		}
		return resp.Result, nil

	case <-ctx.Done():
		c.forget(reqID)
		return nil, ctx.Err()

	case <-timer.C:
		c.forget(reqID)
		return nil, NewTimeoutError()
	}
}

func (c *websocketClient) forget(reqID uint64) {
	c.muReq.Lock()
	delete(c.requests, reqID)
	c.muReq.Unlock()
}

// Call 调用 JSON-RPC 方法
func (c *websocketClient) Call(ctx context.Context, method string, params interface{}) (interface{}, error) {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return decodeResult(raw)
}

// SendRawTransaction 发送已签名的原始交易
func (c *websocketClient) SendRawTransaction(ctx context.Context, signedTxHex string) (*SendTxResult, error) {
	return sendRawTransaction(ctx, c, signedTxHex)
}

// Subscribe 订阅节点推送（eth_subscribe），ctx 结束时自动取消订阅
func (c *websocketClient) Subscribe(ctx context.Context, filter *SubscriptionFilter) (<-chan *Event, error) {
	params, err := subscribeParams(filter)
	if err != nil {
		return nil, err
	}

	raw, err := c.call(ctx, "eth_subscribe", params)
	if err != nil {
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}

	var subscriptionID string
	if err := json.Unmarshal(raw, &subscriptionID); err != nil || subscriptionID == "" {
		return nil, NewInvalidResponseError("missing subscription ID")
	}

	eventCh := make(chan *Event, 100)
	c.muReq.Lock()
	if atomic.LoadInt32(&c.closed) == 1 {
		c.muReq.Unlock()
		return nil, NewNetworkError(fmt.Errorf("connection closed"))
	}
	for _, ev := range c.early[subscriptionID] {
		eventCh <- ev
	}
	delete(c.early, subscriptionID)
	c.subs[subscriptionID] = eventCh
	c.muReq.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-c.done:
			return
		}

		c.muReq.Lock()
		ch, ok := c.subs[subscriptionID]
		delete(c.subs, subscriptionID)
		c.muReq.Unlock()
		if ok {
			close(ch)
		}

		unsubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := c.call(unsubCtx, "eth_unsubscribe", []interface{}{subscriptionID}); err != nil {
			c.logger.Debug("unsubscribe failed", "subscription", subscriptionID, "error", err)
		}
	}()

	return eventCh, nil
}

// Close 关闭连接
func (c *websocketClient) Close() error {
	var err error
	c.once.Do(func() {
		atomic.StoreInt32(&c.closed, 1)
		c.mu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.conn.Close()
		c.mu.Unlock()
		<-c.done
	})
	return err
}
