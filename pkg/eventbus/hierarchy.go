package eventbus

import (
	"reflect"
	"sync"
)

// TypeHierarchyCache computes and memoizes the ordered set of super-types
// for a message type, in place of spec.md §3's ClassHierarchyCache. Go has
// no class hierarchy, so "super-type" is reinterpreted for two Go
// mechanisms:
//
//   - struct embedding: a message struct embedding another type promotes
//     that type's identity the way a Java subclass inherits its parent's;
//   - interface satisfaction: a message type "is-a" every interface type
//     it implements.
//
// Because Go provides no reflection API to enumerate "every interface a
// type implements" in the abstract, the candidate interface set is the set
// of currently-registered single-arity handler parameter types (passed in
// by the caller); this mirrors how the original engine's getSuper walks
// only classes with a chance of being subscribed. The result is memoized
// per message type and invalidated wholesale on every SubscriptionTable
// writer commit (spec.md §9's "purely a memoization" clarification, and
// SPEC_FULL.md §7).
//
// Ordering policy (deterministic, documented per spec.md §3): embedded
// struct types first in BFS field-declaration order, then interface
// candidates in the order supplied by the caller. The message type itself
// is excluded.
type TypeHierarchyCache struct {
	cache sync.Map // reflect.Type -> []reflect.Type
}

func NewTypeHierarchyCache() *TypeHierarchyCache {
	return &TypeHierarchyCache{}
}

// Supertypes returns t's cached super-type sequence, computing it against
// candidates on a cache miss.
func (c *TypeHierarchyCache) Supertypes(t reflect.Type, candidates []reflect.Type) []reflect.Type {
	if v, ok := c.cache.Load(t); ok {
		return v.([]reflect.Type)
	}
	supers := computeSupertypes(t, candidates)
	c.cache.Store(t, supers)
	return supers
}

// Invalidate drops all memoized results. Called by SubscriptionTable after
// every writer commit, since a newly-registered candidate type may now
// match message types whose super-type set was already memoized.
func (c *TypeHierarchyCache) Invalidate() {
	c.cache.Range(func(k, _ any) bool {
		c.cache.Delete(k)
		return true
	})
}

func computeSupertypes(t reflect.Type, candidates []reflect.Type) []reflect.Type {
	var result []reflect.Type
	seen := make(map[reflect.Type]bool)

	// BFS over embedded fields: superclass analogue.
	queue := embeddedTypesOf(t)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == t || seen[next] {
			continue
		}
		if containsType(candidates, next) {
			seen[next] = true
			result = append(result, next)
		}
		queue = append(queue, embeddedTypesOf(next)...)
	}

	// Interface satisfaction, in candidate order.
	ptrT := t
	if t.Kind() != reflect.Pointer {
		ptrT = reflect.PointerTo(t)
	}
	for _, c := range candidates {
		if c == t || seen[c] || c.Kind() != reflect.Interface {
			continue
		}
		if t.Implements(c) || ptrT.Implements(c) {
			seen[c] = true
			result = append(result, c)
		}
	}

	return result
}

func embeddedTypesOf(t reflect.Type) []reflect.Type {
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil
	}
	var out []reflect.Type
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous {
			out = append(out, f.Type)
		}
	}
	return out
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
