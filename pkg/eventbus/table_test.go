package eventbus

import (
	"reflect"
	"testing"
)

func TestSubscriptionTableNonListenerFastReject(t *testing.T) {
	table := NewSubscriptionTable(newErrorRegistry())
	l := badListener{}
	lt := reflect.TypeOf(l)

	table.Subscribe(lt, l)
	if _, ok := table.subsByListenerClass[lt]; !ok {
		t.Fatal("expected listener class to be recorded even with no valid handlers")
	}

	// Re-subscribing must be a cheap no-op: no descriptors re-scanned, and
	// nothing added to subsByListenerClass beyond the nil marker.
	table.Subscribe(lt, l)
	if subs := table.subsByListenerClass[lt]; len(subs) != 0 {
		t.Fatalf("expected no subscriptions for a non-listener class, got %d", len(subs))
	}
}

func TestSubscriptionTableReusesSubscriptionOnResubscribe(t *testing.T) {
	table := NewSubscriptionTable(newErrorRegistry())
	lt := reflect.TypeOf(&intListener{})
	a, b := &intListener{}, &intListener{}

	table.Subscribe(lt, a)
	first := table.subsByListenerClass[lt]
	table.Subscribe(lt, b)
	second := table.subsByListenerClass[lt]

	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatal("expected the same Subscription object to be reused across instances of one listener class")
	}
}

func TestSubscriptionTableGetExactSingle(t *testing.T) {
	table := NewSubscriptionTable(newErrorRegistry())
	lt := reflect.TypeOf(&intListener{})
	l := &intListener{}
	table.Subscribe(lt, l)

	subs := table.GetExact(reflect.TypeOf(0))
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}
}

type pairListener struct{ calls int }

func (l *pairListener) HandlePair(a int, b string) { l.calls++ }

func TestSubscriptionTableMultiArityTrie(t *testing.T) {
	table := NewSubscriptionTable(newErrorRegistry())
	lt := reflect.TypeOf(&pairListener{})
	l := &pairListener{}
	table.Subscribe(lt, l)

	subs := table.GetExact(reflect.TypeOf(0), reflect.TypeOf(""))
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions for (int,string), want 1", len(subs))
	}
	if got := table.GetExact(reflect.TypeOf(""), reflect.TypeOf(0)); len(got) != 0 {
		t.Fatalf("wrong-order key must not match, got %d", len(got))
	}
}

func TestUnsubscribeDoesNotDeleteSubscription(t *testing.T) {
	table := NewSubscriptionTable(newErrorRegistry())
	lt := reflect.TypeOf(&intListener{})
	l := &intListener{}
	table.Subscribe(lt, l)
	table.Unsubscribe(lt, l)

	subs := table.subsByListenerClass[lt]
	if len(subs) != 1 {
		t.Fatalf("expected the Subscription to remain (now empty), got %d entries", len(subs))
	}
	if !subs[0].Empty() {
		t.Fatal("expected subscription to be empty after unsubscribe")
	}
}
