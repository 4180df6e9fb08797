package eventbus

import (
	"context"
	"testing"
	"time"
)

func TestDispatchQueueRoundTrip(t *testing.T) {
	q := NewDispatchQueue(3) // rounds up to 4
	if q.Capacity() != 4 {
		t.Fatalf("got capacity %d, want 4", q.Capacity())
	}

	ctx := context.Background()
	if err := q.Transfer(ctx, envelope1(42)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !q.HasPendingMessages() {
		t.Fatal("expected a pending message")
	}

	env, err := q.Take(ctx)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if got := env.Tuple(); len(got) != 1 || got[0] != 42 {
		t.Fatalf("unexpected tuple: %v", got)
	}
}

func TestDispatchQueueTakeInterruptedOnShutdown(t *testing.T) {
	q := NewDispatchQueue(2)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Take(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from an interrupted take")
		}
	case <-time.After(time.Second):
		t.Fatal("take did not unblock on cancellation")
	}
}

func TestDispatchQueueTransferBlocksWhenFull(t *testing.T) {
	q := NewDispatchQueue(1)
	ctx := context.Background()
	if err := q.Transfer(ctx, envelopeN([]any{1, 2, 3})); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	blockCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := q.Transfer(blockCtx, envelope2(1, 2)); err == nil {
		t.Fatal("expected transfer to block (and time out) on a full queue")
	}
}
