package eventbus

import (
	"context"
	"sync"
)

// DispatcherPool is the fixed worker pool of spec.md §4.6: each worker
// loops take -> synchronous publish, converting interruption during a
// take-in-progress into a publication error for the envelope being
// processed, if any. Drain-on-shutdown is not guaranteed: in-flight
// envelopes still sitting in the queue when Shutdown is called may be
// discarded, matching source behavior (spec.md §4.6/§9).
type DispatcherPool struct {
	workers int
	queue   *DispatchQueue
	publish func(DispatchEnvelope) error
	sink    ErrorSink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcherPool creates a pool with workers rounded up to a power of
// two, minimum 2 (spec.md §4.6).
func NewDispatcherPool(workers int, queue *DispatchQueue, publish func(DispatchEnvelope) error, sink ErrorSink) *DispatcherPool {
	n := nextPowerOfTwo(workers)
	if n < 2 {
		n = 2
	}
	return &DispatcherPool{workers: n, queue: queue, publish: publish, sink: sink}
}

// Start spawns the worker goroutines. Calling Start twice is a no-op.
func (p *DispatcherPool) Start() {
	if p.ctx != nil {
		return
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
}

func (p *DispatcherPool) loop() {
	defer p.wg.Done()
	for {
		env, err := p.queue.Take(p.ctx)
		if err != nil {
			// Shutdown: exit cleanly, no envelope was dequeued.
			return
		}
		if pubErr := p.publish(env); pubErr != nil {
			p.sink.HandleError(&QueueError{Reason: "worker publish failed", Cause: pubErr})
		}
	}
}

// Shutdown signals every worker to exit and waits for them to do so. It
// does not drain the queue: envelopes still buffered after Shutdown
// returns may be discarded.
func (p *DispatcherPool) Shutdown() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
}
