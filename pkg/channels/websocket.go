package channels

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sipeed/picoclaw/pkg/bus"
)

// ChannelWebSocket is the channel name websocket-bridged messages are
// tagged with.
const ChannelWebSocket = "websocket"

type wireMessage struct {
	Content string `json:"content"`
}

// WebSocketAdapter is an http.Handler that upgrades incoming connections to
// websockets and bridges each one onto router: text frames become
// bus.InboundMessage, and bus.OutboundMessage addressed to this channel is
// written back to the connection whose ID matches ChatID.
type WebSocketAdapter struct {
	router   *bus.Router
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

// NewWebSocketAdapter constructs an adapter bound to router. Subscribe must
// be called before any client is expected to receive replies.
func NewWebSocketAdapter(router *bus.Router) *WebSocketAdapter {
	return &WebSocketAdapter{
		router: router,
		conns:  make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Subscribe registers the adapter as an OutboundMessage listener on router.
func (a *WebSocketAdapter) Subscribe() error { return a.router.Subscribe(a) }

// ServeHTTP upgrades the request to a websocket and pumps inbound frames
// onto the router until the connection closes.
func (a *WebSocketAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	connID := uuid.NewString()
	a.mu.Lock()
	a.conns[connID] = conn
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.conns, connID)
		a.mu.Unlock()
		conn.Close()
	}()

	a.router.PublishSystem(bus.SystemEvent{Type: "adapter.connected", Source: ChannelWebSocket, Data: connID})

	for {
		var wire wireMessage
		if err := conn.ReadJSON(&wire); err != nil {
			return
		}
		msg := bus.InboundMessage{
			ID:         uuid.NewString(),
			Channel:    ChannelWebSocket,
			ChatID:     connID,
			Content:    wire.Content,
			SessionKey: ChannelWebSocket + ":" + connID,
			ReceivedAt: time.Now(),
		}
		if err := a.router.PublishInboundAsync(msg); err != nil {
			return
		}
	}
}

// HandleOutboundMessage writes msg to the connection identified by
// msg.ChatID, if one is still open. Messages addressed to other channels,
// or to a connection that has since closed, are silently dropped.
func (a *WebSocketAdapter) HandleOutboundMessage(msg bus.OutboundMessage) error {
	if msg.Channel != ChannelWebSocket {
		return nil
	}
	a.mu.RLock()
	conn, ok := a.conns[msg.ChatID]
	a.mu.RUnlock()
	if !ok {
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, mustJSON(wireMessage{Content: msg.Content}))
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}
