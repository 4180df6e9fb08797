package bus

import (
	"testing"
	"time"

	"github.com/sipeed/picoclaw/pkg/eventbus"
)

type recordingListener struct {
	inbound  []InboundMessage
	outbound []OutboundMessage
	system   []SystemEvent
}

func (l *recordingListener) HandleInboundMessage(msg InboundMessage) { l.inbound = append(l.inbound, msg) }
func (l *recordingListener) HandleOutboundMessage(msg OutboundMessage) {
	l.outbound = append(l.outbound, msg)
}
func (l *recordingListener) HandleSystemEvent(evt SystemEvent) { l.system = append(l.system, evt) }

func newTestRouter() *Router {
	return NewRouter(eventbus.New(eventbus.Config{WorkerThreads: 2}))
}

func TestRouterDeliversInboundToSubscribedListener(t *testing.T) {
	r := newTestRouter()
	l := &recordingListener{}
	if err := r.Subscribe(l); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	msg := InboundMessage{ID: "1", Channel: "discord", Content: "hello", ReceivedAt: time.Now()}
	if err := r.PublishInbound(msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(l.inbound) != 1 || l.inbound[0].Content != "hello" {
		t.Fatalf("expected one delivered inbound message, got %v", l.inbound)
	}
}

func TestRouterUnsubscribeStopsDelivery(t *testing.T) {
	r := newTestRouter()
	l := &recordingListener{}
	r.Subscribe(l)
	r.Unsubscribe(l)

	r.PublishOutbound(OutboundMessage{ID: "1", Channel: "discord", Content: "bye"})
	if len(l.outbound) != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %v", l.outbound)
	}
}

func TestRouterRegisterHandlerLookup(t *testing.T) {
	r := newTestRouter()
	var seen InboundMessage
	r.RegisterHandler("discord", func(msg InboundMessage) error {
		seen = msg
		return nil
	})

	h, ok := r.GetHandler("discord")
	if !ok {
		t.Fatal("expected a registered handler for \"discord\"")
	}
	if err := h(InboundMessage{Content: "direct dispatch"}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if seen.Content != "direct dispatch" {
		t.Fatalf("handler did not observe the message: %+v", seen)
	}

	if _, ok := r.GetHandler("slack"); ok {
		t.Fatal("expected no handler registered for \"slack\"")
	}
}

func TestRouterSystemEventFanout(t *testing.T) {
	r := newTestRouter()
	a, b := &recordingListener{}, &recordingListener{}
	r.Subscribe(a)
	r.Subscribe(b)

	r.PublishSystem(SystemEvent{Type: "heartbeat", Source: "scheduler"})

	if len(a.system) != 1 || len(b.system) != 1 {
		t.Fatalf("expected both listeners to observe the event, got a=%v b=%v", a.system, b.system)
	}
}

func TestRouterStartShutdown(t *testing.T) {
	r := newTestRouter()
	r.Start()
	if err := r.PublishInboundAsync(InboundMessage{ID: "async-1", Content: "queued"}); err != nil {
		t.Fatalf("publish async: %v", err)
	}
	r.Shutdown()
}
