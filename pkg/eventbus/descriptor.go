package eventbus

import (
	"reflect"
	"strings"
	"sync"
)

// HandlerOptions mirrors the per-handler marker options of spec.md §6: a
// listener struct opts a Handle method into non-default behavior by
// providing a companion "<Handler>Options" method returning this type.
type HandlerOptions struct {
	Enabled        bool
	AcceptSubtypes bool
	Synchronized   bool
}

// DefaultHandlerOptions is applied when a handler declares no companion
// options method.
var DefaultHandlerOptions = HandlerOptions{Enabled: true, AcceptSubtypes: true, Synchronized: false}

// HandlerDescriptor is normalized, immutable metadata for one handler
// method, produced by ListenerMetadataReader.Describe. See spec.md §3.
type HandlerDescriptor struct {
	ListenerType reflect.Type
	Method       reflect.Method
	ParamTypes   []reflect.Type // in declared order, length 1..N
	Variadic     bool
	ElemType     reflect.Type // valid only when Variadic
	Options      HandlerOptions
}

// key returns the bySingle/byMulti trie key for this descriptor: the
// declared parameter type sequence, in document order. A single-parameter
// variadic handler is keyed by its slice type (spec.md §4.3's
// bySingle[seq-of-type]).
func (d *HandlerDescriptor) key() []reflect.Type {
	return d.ParamTypes
}

const handlerPrefix = "Handle"
const optionsSuffix = "Options"

// ListenerMetadataReader walks a listener type and its method set, producing
// the normalized handler descriptors spec.md §4.1 describes. Results are
// cached per reflect.Type so a listener class is scanned via reflection
// exactly once for the process lifetime (spec.md §8 invariant 5).
type ListenerMetadataReader struct {
	cache sync.Map // reflect.Type -> []*HandlerDescriptor
}

func NewListenerMetadataReader() *ListenerMetadataReader {
	return &ListenerMetadataReader{}
}

// Describe scans listenerType for exported methods named "Handle*" (and not
// ending in "Options", which is reserved for the companion options method).
// It returns the enabled descriptors plus any ConfigurationErrors found
// along the way (e.g. zero-arity handlers); the caller is responsible for
// forwarding those to an ErrorSink.
func (r *ListenerMetadataReader) Describe(listenerType reflect.Type) ([]*HandlerDescriptor, []error) {
	if cached, ok := r.cache.Load(listenerType); ok {
		return cached.([]*HandlerDescriptor), nil
	}

	var descriptors []*HandlerDescriptor
	var cfgErrs []error

	for i := 0; i < listenerType.NumMethod(); i++ {
		m := listenerType.Method(i)
		if !strings.HasPrefix(m.Name, handlerPrefix) || strings.HasSuffix(m.Name, optionsSuffix) {
			continue
		}

		mt := m.Func.Type()
		arity := mt.NumIn() - 1 // exclude receiver
		if arity == 0 {
			cfgErrs = append(cfgErrs, &ConfigurationError{
				ListenerType: listenerType,
				Method:       m.Name,
				Reason:       "handler declares zero parameters",
			})
			continue
		}

		opts := resolveOptions(listenerType, m.Name)
		if !opts.Enabled {
			continue
		}

		paramTypes := make([]reflect.Type, arity)
		for p := 0; p < arity; p++ {
			paramTypes[p] = mt.In(p + 1)
		}

		variadic := mt.IsVariadic()
		var elemType reflect.Type
		if variadic {
			elemType = paramTypes[len(paramTypes)-1].Elem()
		}

		descriptors = append(descriptors, &HandlerDescriptor{
			ListenerType: listenerType,
			Method:       m,
			ParamTypes:   paramTypes,
			Variadic:     variadic,
			ElemType:     elemType,
			Options:      opts,
		})
	}

	// Cache even the empty/nil result: a nonListener class must never be
	// rescanned (spec.md §8 invariant 5).
	actual, loaded := r.cache.LoadOrStore(listenerType, descriptors)
	if loaded {
		return actual.([]*HandlerDescriptor), cfgErrs
	}
	return descriptors, cfgErrs
}

// resolveOptions looks up "<handlerName>Options() HandlerOptions" on
// listenerType, falling back to DefaultHandlerOptions when absent or
// malformed.
func resolveOptions(listenerType reflect.Type, handlerName string) HandlerOptions {
	m, ok := listenerType.MethodByName(handlerName + optionsSuffix)
	if !ok {
		return DefaultHandlerOptions
	}
	mt := m.Func.Type()
	if mt.NumIn() != 1 || mt.NumOut() != 1 || mt.Out(0) != reflect.TypeOf(HandlerOptions{}) {
		return DefaultHandlerOptions
	}
	// Receiver-only call: the method is bound to the type, not an instance,
	// so invoke it against the zero value of the (possibly pointer)
	// receiver type is unsafe for pointer receivers with real state. The
	// options method is expected to be a pure function of no instance
	// state; callers should declare it accordingly.
	recv := reflect.New(derefType(listenerType))
	if listenerType.Kind() != reflect.Pointer {
		recv = recv.Elem()
	}
	out := recv.MethodByName(handlerName + optionsSuffix).Call(nil)
	return out[0].Interface().(HandlerOptions)
}

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
