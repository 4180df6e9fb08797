package eventbus

import (
	"reflect"
	"testing"
)

type Stringer interface{ String() string }

type Named struct{ Name string }

func (n Named) String() string { return n.Name }

func TestSupertypesEmbeddingAndInterface(t *testing.T) {
	c := NewTypeHierarchyCache()
	candidates := []reflect.Type{
		reflect.TypeOf(Animal{}),
		reflect.TypeOf((*Stringer)(nil)).Elem(),
	}

	supers := c.Supertypes(reflect.TypeOf(Dog{}), candidates)
	if len(supers) != 1 || supers[0] != reflect.TypeOf(Animal{}) {
		t.Fatalf("expected [Animal], got %v", supers)
	}

	supers2 := c.Supertypes(reflect.TypeOf(Named{}), candidates)
	if len(supers2) != 1 || supers2[0] != candidates[1] {
		t.Fatalf("expected [Stringer], got %v", supers2)
	}
}

func TestSupertypesCachedAndInvalidated(t *testing.T) {
	c := NewTypeHierarchyCache()
	first := c.Supertypes(reflect.TypeOf(Dog{}), nil)
	if len(first) != 0 {
		t.Fatalf("expected no supertypes with no candidates, got %v", first)
	}

	c.Invalidate()
	second := c.Supertypes(reflect.TypeOf(Dog{}), []reflect.Type{reflect.TypeOf(Animal{})})
	if len(second) != 1 {
		t.Fatalf("expected recomputation to see the new candidate, got %v", second)
	}
}
