package bus

import "time"

// InboundMessage is a message arriving from a chat channel adapter (Discord,
// a websocket bridge, ...). It is published on the event bus and delivered
// to whichever listener declared a Handle method for it or one of its
// embedding super-types.
type InboundMessage struct {
	ID         string            `json:"id"`
	Channel    string            `json:"channel"`
	SenderID   string            `json:"sender_id"`
	ChatID     string            `json:"chat_id"`
	Content    string            `json:"content"`
	Media      []string          `json:"media,omitempty"`
	SessionKey string            `json:"session_key"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ReceivedAt time.Time         `json:"received_at"`
}

// OutboundMessage is a reply routed back out to a chat channel adapter.
type OutboundMessage struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

// SystemEvent is a typed event flowing through the bus for observability:
// task lifecycle, adapter lifecycle, scheduler ticks.
type SystemEvent struct {
	Type   string `json:"type"`   // e.g. "adapter.connected", "heartbeat"
	Source string `json:"source"` // e.g. "discord", "scheduler"
	Data   any    `json:"data,omitempty"`
}

// MessageHandler is the function shape a channel adapter registers under
// its own channel name.
type MessageHandler func(InboundMessage) error
