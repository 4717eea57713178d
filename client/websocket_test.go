package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeWSNode 支持 eth_chainId / eth_subscribe 的 WebSocket 节点
func newFakeWSNode(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req struct {
				ID     uint64 `json:"id"`
				Method string `json:"method"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			switch req.Method {
			case "eth_chainId":
				_ = conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0x1"})
			case "eth_subscribe":
				_ = conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0xsub"})
				_ = conn.WriteJSON(map[string]interface{}{
					"jsonrpc": "2.0",
					"method":  "eth_subscription",
					"params": map[string]interface{}{
						"subscription": "0xsub",
						"result":       map[string]interface{}{"number": "0x2a", "hash": "0x01"},
					},
				})
			case "eth_unsubscribe":
				_ = conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": true})
			default:
				_ = conn.WriteJSON(map[string]interface{}{
					"jsonrpc": "2.0", "id": req.ID,
					"error": map[string]interface{}{"code": -32601, "message": "method not found"},
				})
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWebSocketClient_Call(t *testing.T) {
	server := newFakeWSNode(t)

	c, err := NewClient(&Config{Endpoint: server.URL, Protocol: ProtocolWebSocket, Timeout: 5})
	require.NoError(t, err)
	defer c.Close()

	result, err := c.Call(context.Background(), "eth_chainId", nil)
	require.NoError(t, err)
	assert.Equal(t, "0x1", result)

	_, err = c.Call(context.Background(), "eth_unknown", nil)
	_, ok := AsRPCError(err)
	assert.True(t, ok)
}

func TestEVMClient_SubscribeNewHeads(t *testing.T) {
	server := newFakeWSNode(t)

	c, err := NewEVMClient(&Config{Endpoint: server.URL, Protocol: ProtocolWebSocket, Timeout: 5})
	require.NoError(t, err)
	defer c.Close()
	require.True(t, c.SupportsSubscriptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	heads, err := c.SubscribeNewHeads(ctx)
	require.NoError(t, err)

	select {
	case h := <-heads:
		require.NotNil(t, h)
		assert.Equal(t, uint64(42), h.Number)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for head")
	}
}

func TestToWebSocketURL(t *testing.T) {
	assert.Equal(t, "ws://node:8546", toWebSocketURL("http://node:8546"))
	assert.Equal(t, "wss://node", toWebSocketURL("https://node"))
	assert.Equal(t, "wss://node", toWebSocketURL("wss://node"))
	assert.Equal(t, "ws://node", toWebSocketURL("node"))
}

func TestSubscribeParams(t *testing.T) {
	params, err := subscribeParams(&SubscriptionFilter{Kind: SubscriptionLogs, Addresses: []string{"0x01"}})
	require.NoError(t, err)
	data, _ := json.Marshal(params)
	assert.JSONEq(t, `["logs",{"address":["0x01"]}]`, string(data))

	_, err = subscribeParams(&SubscriptionFilter{Kind: "pendingTransactions"})
	assert.Error(t, err)
}
