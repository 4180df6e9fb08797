package eventbus

import (
	"reflect"
	"testing"
)

type fixtureListener struct{}

func (fixtureListener) HandleA(n int)         {}
func (fixtureListener) HandleB(n int, s string) {}
func (fixtureListener) HandleVariadic(ns ...int) {}
func (fixtureListener) helperNotAHandler()    {} // unexported, ignored
func (fixtureListener) HandleAOptions() HandlerOptions {
	return HandlerOptions{Enabled: true, AcceptSubtypes: false, Synchronized: true}
}

func TestDescribeFindsHandlersAndAppliesOptions(t *testing.T) {
	r := NewListenerMetadataReader()
	descriptors, cfgErrs := r.Describe(reflect.TypeOf(fixtureListener{}))
	if len(cfgErrs) != 0 {
		t.Fatalf("unexpected configuration errors: %v", cfgErrs)
	}
	if len(descriptors) != 3 {
		t.Fatalf("got %d descriptors, want 3", len(descriptors))
	}

	byName := map[string]*HandlerDescriptor{}
	for _, d := range descriptors {
		byName[d.Method.Name] = d
	}

	a, ok := byName["HandleA"]
	if !ok {
		t.Fatal("expected HandleA descriptor")
	}
	if a.Options.AcceptSubtypes || !a.Options.Synchronized {
		t.Fatalf("HandleA options not applied: %+v", a.Options)
	}

	b, ok := byName["HandleB"]
	if !ok {
		t.Fatal("expected HandleB descriptor")
	}
	if len(b.ParamTypes) != 2 || b.Options != DefaultHandlerOptions {
		t.Fatalf("HandleB descriptor unexpected: %+v", b)
	}

	v, ok := byName["HandleVariadic"]
	if !ok {
		t.Fatal("expected HandleVariadic descriptor")
	}
	if !v.Variadic || v.ElemType.Kind() != reflect.Int {
		t.Fatalf("HandleVariadic descriptor unexpected: %+v", v)
	}
}

func TestDescribeIsCachedPerType(t *testing.T) {
	r := NewListenerMetadataReader()
	t1 := reflect.TypeOf(fixtureListener{})
	d1, _ := r.Describe(t1)
	d2, _ := r.Describe(t1)
	if len(d1) != len(d2) {
		t.Fatalf("expected identical cached results, got %d vs %d", len(d1), len(d2))
	}
	for i := range d1 {
		if d1[i] != d2[i] {
			t.Fatalf("expected identical descriptor pointers from cache at %d", i)
		}
	}
}

func TestDescribeZeroArityIsConfigurationError(t *testing.T) {
	r := NewListenerMetadataReader()
	descriptors, cfgErrs := r.Describe(reflect.TypeOf(badListener{}))
	if len(descriptors) != 0 {
		t.Fatalf("zero-arity handler should not produce a descriptor, got %d", len(descriptors))
	}
	if len(cfgErrs) != 1 {
		t.Fatalf("expected 1 configuration error, got %d", len(cfgErrs))
	}
}
