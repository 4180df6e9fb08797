package eventbus

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

// multiTrieNode is one node of the byMulti trie of spec.md §3, keyed by the
// full ordered parameter-type sequence of an arity>=2 handler (SPEC_FULL.md
// §4.3 resolves the "transposed key" open question in favor of the full
// sequence in document order).
type multiTrieNode struct {
	children map[reflect.Type]*multiTrieNode
	subs     []*Subscription
}

func newMultiTrieNode() *multiTrieNode {
	return &multiTrieNode{children: make(map[reflect.Type]*multiTrieNode)}
}

// clone returns a deep-enough copy of the trie for copy-on-write commits.
// The whole trie is cloned rather than only the affected path; multi-arity
// handlers are rare in practice (arity ranges 2..N against arity-1's
// dominant share), so this trades a larger but simpler write path for the
// partial-path-copying persistent-map approach spec.md §9 mentions as an
// alternative.
func (n *multiTrieNode) clone() *multiTrieNode {
	c := &multiTrieNode{
		children: make(map[reflect.Type]*multiTrieNode, len(n.children)),
		subs:     append([]*Subscription(nil), n.subs...),
	}
	for k, v := range n.children {
		c.children[k] = v.clone()
	}
	return c
}

func (n *multiTrieNode) insert(types []reflect.Type, sub *Subscription) {
	cur := n
	for _, t := range types {
		child, ok := cur.children[t]
		if !ok {
			child = newMultiTrieNode()
			cur.children[t] = child
		}
		cur = child
	}
	cur.subs = append(cur.subs, sub)
}

func (n *multiTrieNode) lookup(types []reflect.Type) []*Subscription {
	cur := n
	for _, t := range types {
		child, ok := cur.children[t]
		if !ok {
			return nil
		}
		cur = child
	}
	return cur.subs
}

// SubscriptionTable is the concurrent map from message-type signatures to
// Subscription arrays described in spec.md §3/§4.3: copy-on-write snapshots
// for lock-free reads, a single writer lock gating subscribe/unsubscribe.
type SubscriptionTable struct {
	writeMu sync.Mutex

	bySingle atomic.Pointer[map[reflect.Type][]*Subscription]
	byMulti  atomic.Pointer[multiTrieNode]

	nonListeners atomic.Pointer[map[reflect.Type]struct{}]

	// subsByListenerClass is written only under writeMu and read only by
	// Subscribe/Unsubscribe (never by Publish), so it needs no atomics.
	subsByListenerClass map[reflect.Type][]*Subscription

	varArgPossible atomic.Bool

	reader    *ListenerMetadataReader
	hierarchy *TypeHierarchyCache
	superMemo sync.Map // reflect.Type -> []*Subscription, invalidated on commit

	sink *errorRegistry
}

func NewSubscriptionTable(sink *errorRegistry) *SubscriptionTable {
	t := &SubscriptionTable{
		subsByListenerClass: make(map[reflect.Type][]*Subscription),
		reader:              NewListenerMetadataReader(),
		hierarchy:           NewTypeHierarchyCache(),
		sink:                sink,
	}
	emptySingle := make(map[reflect.Type][]*Subscription)
	t.bySingle.Store(&emptySingle)
	t.byMulti.Store(newMultiTrieNode())
	emptyNon := make(map[reflect.Type]struct{})
	t.nonListeners.Store(&emptyNon)
	return t
}

// Subscribe registers listener (of concrete type listenerType) against
// every handler descriptor discovered for listenerType, per spec.md §4.3.
func (t *SubscriptionTable) Subscribe(listenerType reflect.Type, listener any) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if non := *t.nonListeners.Load(); isNonListener(non, listenerType) {
		return
	}

	if subs, ok := t.subsByListenerClass[listenerType]; ok {
		for _, s := range subs {
			s.AddListener(listener)
		}
		return
	}

	descriptors, cfgErrs := t.reader.Describe(listenerType)
	for _, e := range cfgErrs {
		t.sink.HandleError(e)
	}

	if len(descriptors) == 0 {
		t.markNonListener(listenerType)
		return
	}

	subs := make([]*Subscription, len(descriptors))
	for i, d := range descriptors {
		subs[i] = newSubscription(listenerType, d)
	}
	t.subsByListenerClass[listenerType] = subs

	singleAdds := make(map[reflect.Type][]*Subscription)
	var multiAdds []*Subscription

	for _, s := range subs {
		s.AddListener(listener)
		if s.descriptor.Variadic {
			t.varArgPossible.Store(true)
		}
		key := s.descriptor.key()
		if len(key) == 1 {
			singleAdds[key[0]] = append(singleAdds[key[0]], s)
		} else {
			multiAdds = append(multiAdds, s)
		}
	}

	if len(singleAdds) > 0 {
		t.commitSingle(singleAdds)
	}
	if len(multiAdds) > 0 {
		t.commitMulti(multiAdds, subs)
	}
	t.hierarchy.Invalidate()
	invalidateSuperMemo(&t.superMemo)
}

// invalidateSuperMemo clears m in place via Range+Delete, the same technique
// TypeHierarchyCache.Invalidate uses. Reassigning a sync.Map by value (e.g.
// `*m = sync.Map{}`) races with a concurrent lock-free Load/Store on the
// same value and is flagged by go vet's copylocks check; clearing key by key
// keeps every access going through sync.Map's own synchronization.
func invalidateSuperMemo(m *sync.Map) {
	m.Range(func(key, _ any) bool {
		m.Delete(key)
		return true
	})
}

func isNonListener(non map[reflect.Type]struct{}, t reflect.Type) bool {
	_, ok := non[t]
	return ok
}

func (t *SubscriptionTable) markNonListener(listenerType reflect.Type) {
	old := *t.nonListeners.Load()
	fresh := make(map[reflect.Type]struct{}, len(old)+1)
	for k := range old {
		fresh[k] = struct{}{}
	}
	fresh[listenerType] = struct{}{}
	t.nonListeners.Store(&fresh)
	// Still record the (handler-less) type in subsByListenerClass's domain
	// so repeat Subscribe/Unsubscribe is a cheap no-op, per spec.md §3.
	t.subsByListenerClass[listenerType] = nil
}

// commitSingle applies arity-1 additions with a copy-on-write swap of the
// bySingle snapshot, mutating only the affected keys' array identities.
func (t *SubscriptionTable) commitSingle(adds map[reflect.Type][]*Subscription) {
	old := *t.bySingle.Load()
	fresh := make(map[reflect.Type][]*Subscription, len(old)+len(adds))
	for k, v := range old {
		fresh[k] = v
	}
	for k, newSubs := range adds {
		existing := fresh[k]
		merged := make([]*Subscription, len(existing)+len(newSubs))
		copy(merged, existing)
		copy(merged[len(existing):], newSubs)
		fresh[k] = merged
	}
	t.bySingle.Store(&fresh)
}

func (t *SubscriptionTable) commitMulti(_ []*Subscription, allNewSubs []*Subscription) {
	old := t.byMulti.Load()
	fresh := old.clone()
	for _, s := range allNewSubs {
		if len(s.descriptor.key()) >= 2 {
			fresh.insert(s.descriptor.key(), s)
		}
	}
	t.byMulti.Store(fresh)
}

// Unsubscribe removes listener from every Subscription belonging to
// listenerType. Subscriptions are never deleted; they may become empty and
// are reused on re-subscribe.
func (t *SubscriptionTable) Unsubscribe(listenerType reflect.Type, listener any) {
	t.writeMu.Lock()
	subs, ok := t.subsByListenerClass[listenerType]
	t.writeMu.Unlock()
	if !ok {
		return
	}
	for _, s := range subs {
		s.RemoveListener(listener)
	}
}

// GetExact returns the Subscriptions registered for an exact type
// signature. types must have length >= 1.
func (t *SubscriptionTable) GetExact(types ...reflect.Type) []*Subscription {
	if len(types) == 1 {
		m := *t.bySingle.Load()
		return m[types[0]]
	}
	return t.byMulti.Load().lookup(types)
}

// GetSuper returns, for a single message type, every Subscription whose
// declared parameter type is a super-type of t and whose descriptor accepts
// subtypes, in declared-supertype order with duplicates removed by
// identity (spec.md §4.3).
func (t *SubscriptionTable) GetSuper(msgType reflect.Type) []*Subscription {
	if v, ok := t.superMemo.Load(msgType); ok {
		return v.([]*Subscription)
	}

	single := *t.bySingle.Load()
	candidates := make([]reflect.Type, 0, len(single))
	for k := range single {
		candidates = append(candidates, k)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].String() < candidates[j].String() })

	supers := t.hierarchy.Supertypes(msgType, candidates)

	seen := make(map[*Subscription]bool)
	var out []*Subscription
	for _, s := range supers {
		for _, sub := range single[s] {
			if !sub.descriptor.Options.AcceptSubtypes {
				continue
			}
			if seen[sub] {
				continue
			}
			seen[sub] = true
			out = append(out, sub)
		}
	}

	t.superMemo.Store(msgType, out)
	return out
}

// GetVarArg returns the variadic Subscriptions registered under the slice
// type of elemType (spec.md §4.3's bySingle[seq-of-type]).
func (t *SubscriptionTable) GetVarArg(elemType reflect.Type) []*Subscription {
	if !t.varArgPossible.Load() {
		return nil
	}
	seqType := reflect.SliceOf(elemType)
	single := *t.bySingle.Load()
	var out []*Subscription
	for _, sub := range single[seqType] {
		if sub.descriptor.Variadic {
			out = append(out, sub)
		}
	}
	return out
}

// VarArgPossible reports the monotonic flag of spec.md §3.
func (t *SubscriptionTable) VarArgPossible() bool { return t.varArgPossible.Load() }
