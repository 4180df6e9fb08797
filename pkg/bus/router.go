// Package bus defines the message shapes the swarm's channel adapters and
// listeners exchange, and Router, a thin domain-specific façade over
// eventbus.Bus. The original MessageHandler-per-channel map is kept for
// adapters that want direct dispatch by channel name; everything else flows
// through the reflective bus so a listener only has to declare a Handle
// method for the message type it cares about.
package bus

import (
	"sync"

	"github.com/sipeed/picoclaw/pkg/eventbus"
)

// Router publishes InboundMessage, OutboundMessage and SystemEvent values on
// an underlying eventbus.Bus, and keeps a small registry of per-channel
// handlers for adapters that prefer direct dispatch over subscribing.
type Router struct {
	engine *eventbus.Bus

	mu       sync.RWMutex
	handlers map[string]MessageHandler
}

// NewRouter wraps engine. engine is not started by NewRouter; call Start
// once every adapter and listener has subscribed.
func NewRouter(engine *eventbus.Bus) *Router {
	return &Router{engine: engine, handlers: make(map[string]MessageHandler)}
}

// Subscribe registers listener on the underlying bus (see eventbus.Bus.Subscribe).
func (r *Router) Subscribe(listener any) error { return r.engine.Subscribe(listener) }

// Unsubscribe removes listener from the underlying bus.
func (r *Router) Unsubscribe(listener any) { r.engine.Unsubscribe(listener) }

// PublishInbound delivers msg synchronously to every matching listener.
func (r *Router) PublishInbound(msg InboundMessage) error { return r.engine.Publish(msg) }

// PublishInboundAsync enqueues msg for delivery by a worker, applying
// back-pressure if the queue is saturated rather than dropping the message.
func (r *Router) PublishInboundAsync(msg InboundMessage) error {
	return r.engine.PublishAsync(msg)
}

// PublishOutbound delivers msg synchronously to every OutboundMessage
// listener; each channel adapter ignores messages whose Channel is not its own.
func (r *Router) PublishOutbound(msg OutboundMessage) error { return r.engine.Publish(msg) }

// PublishSystem delivers evt synchronously to every SystemEvent listener.
func (r *Router) PublishSystem(evt SystemEvent) error { return r.engine.Publish(evt) }

// RegisterHandler records a direct, per-channel handler. Adapters that
// prefer not to declare a Handle method (e.g. a one-off script) can look
// this up instead of subscribing.
func (r *Router) RegisterHandler(channel string, handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[channel] = handler
}

// GetHandler returns the handler registered for channel, if any.
func (r *Router) GetHandler(channel string) (MessageHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[channel]
	return h, ok
}

// Start launches the underlying bus's dispatcher pool.
func (r *Router) Start() { r.engine.Start() }

// Shutdown stops the underlying bus. In-flight async messages may be
// discarded (no drain guarantee).
func (r *Router) Shutdown() { r.engine.Shutdown() }
