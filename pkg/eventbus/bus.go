// Package eventbus implements swarmbus's subscription/dispatch engine: the
// in-process publish/subscribe core of spec.md, translated to idiomatic Go.
// Listener structs declare handler methods via the naming convention in
// SPEC_FULL.md §2.1, register with Subscribe, and other components call
// Publish (synchronous) or PublishAsync (enqueue-and-return).
package eventbus

import (
	"context"
	"reflect"
)

// Bus is the public façade of spec.md §6: Subscribe/Unsubscribe by listener
// identity, Publish/PublishAsync of 1..3-arity or slice message tuples,
// error-sink registration, and pool lifecycle control.
type Bus struct {
	mode  PublishMode
	table *SubscriptionTable
	queue *DispatchQueue
	pool  *DispatcherPool

	errors *errorRegistry

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Bus per cfg. The returned Bus is ready to Subscribe and
// Publish immediately; Start must be called before PublishAsync workers
// begin draining the queue (PublishAsync itself may be called beforehand —
// envelopes simply queue up).
func New(cfg Config) *Bus {
	errs := newErrorRegistry()
	table := NewSubscriptionTable(errs)

	qCap := cfg.QueueCapacity
	if qCap <= 0 {
		qCap = 1024
	}
	queue := NewDispatchQueue(qCap)

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bus{
		mode:   cfg.PublishMode,
		table:  table,
		queue:  queue,
		errors: errs,
		ctx:    ctx,
		cancel: cancel,
	}
	b.pool = NewDispatcherPool(cfg.WorkerThreads, queue, func(env DispatchEnvelope) error {
		return b.publishTuple(env.Tuple())
	}, errs)
	return b
}

// Subscribe registers listener, scanning its concrete type for handler
// methods on first sight (spec.md §4.3). Subscribing the same instance more
// than once delivers exactly one invocation per publish.
func (b *Bus) Subscribe(listener any) error {
	if listener == nil {
		return ErrNilListener
	}
	b.table.Subscribe(reflect.TypeOf(listener), listener)
	return nil
}

// Unsubscribe removes listener from every handler it was registered
// against. Idempotent; tolerates listeners that were never subscribed.
func (b *Bus) Unsubscribe(listener any) {
	if listener == nil {
		return
	}
	b.table.Unsubscribe(reflect.TypeOf(listener), listener)
}

// Publish delivers messages synchronously, returning after every matching
// handler has completed or errored. A publish with no matches is
// re-published once as a DeadMessage (spec.md §4.4).
func (b *Bus) Publish(messages ...any) error {
	if len(messages) == 0 {
		return nil
	}
	return b.publishTuple(messages)
}

func (b *Bus) publishTuple(tuple []any) error {
	types := typesOf(tuple)
	subs := b.resolveSubscriptions(types)
	if len(subs) == 0 {
		dead := DeadMessage{Tuple: append([]any(nil), tuple...)}
		deadSubs := b.resolveSubscriptions([]reflect.Type{reflect.TypeOf(dead)})
		if len(deadSubs) > 0 {
			b.invoke(deadSubs, []any{dead})
		}
		return nil
	}
	b.invoke(subs, tuple)
	return nil
}

func (b *Bus) invoke(subs []*Subscription, tuple []any) {
	// Arity-1 publishes may match handlers via struct-embedding super-type
	// resolution, which requires per-subscription argument adaptation
	// (matcher.go's adaptArg) since Go doesn't upcast structs the way a
	// Java subclass is assignable to its superclass.
	if len(tuple) == 1 {
		base := reflect.ValueOf(tuple[0])
		for _, s := range subs {
			arg := adaptArg(base, s.ParamType0())
			s.Invoke(b.errors, tuple, []reflect.Value{arg})
		}
		return
	}

	args := make([]reflect.Value, len(tuple))
	for i, m := range tuple {
		args[i] = reflect.ValueOf(m)
	}
	for _, s := range subs {
		s.Invoke(b.errors, tuple, args)
	}
}

// PublishAsync enqueues messages for delivery by a DispatcherPool worker
// and returns immediately, blocking only if the queue is saturated
// (back-pressure, never dropping, per spec.md §1). Any nil message
// argument is rejected with ErrNilMessage before enqueuing.
func (b *Bus) PublishAsync(messages ...any) error {
	if len(messages) == 0 {
		return nil
	}
	for _, m := range messages {
		if m == nil {
			return ErrNilMessage
		}
	}

	var env DispatchEnvelope
	switch len(messages) {
	case 1:
		env = envelope1(messages[0])
	case 2:
		env = envelope2(messages[0], messages[1])
	case 3:
		env = envelope3(messages[0], messages[1], messages[2])
	default:
		env = envelopeN(append([]any(nil), messages...))
	}
	return b.queue.Transfer(b.ctx, env)
}

// HasPendingMessages is advisory (spec.md §6).
func (b *Bus) HasPendingMessages() bool { return b.queue.HasPendingMessages() }

// AddErrorHandler registers an additional ErrorSink. The default
// stderr-logging sink is dropped the first time a caller adds its own.
func (b *Bus) AddErrorHandler(sink ErrorSink) { b.errors.Add(sink) }

// Start launches the DispatcherPool workers that drain PublishAsync
// envelopes.
func (b *Bus) Start() { b.pool.Start() }

// Shutdown stops accepting new async work and signals every worker to
// exit. In-flight envelopes still buffered in the queue may be discarded
// (no drain guarantee, spec.md §4.6).
func (b *Bus) Shutdown() {
	b.cancel()
	b.pool.Shutdown()
}
