package eventbus

import (
	"errors"
	"fmt"
	"reflect"
)

// Subscription is one {listener class, HandlerDescriptor} binding, per
// spec.md §3/§4.2. It is created once for a given (listenerType,
// descriptor) pair and retained for the life of the bus once any instance
// of listenerType has subscribed; its descriptor and listenerType never
// change after construction.
type Subscription struct {
	listenerType reflect.Type
	descriptor   *HandlerDescriptor
	listeners    WeakListenerList
}

func newSubscription(listenerType reflect.Type, d *HandlerDescriptor) *Subscription {
	return &Subscription{listenerType: listenerType, descriptor: d}
}

// AddListener registers listener with this subscription (idempotent).
func (s *Subscription) AddListener(listener any) { s.listeners.Add(listener) }

// RemoveListener unregisters listener from this subscription (no-op if
// absent).
func (s *Subscription) RemoveListener(listener any) { s.listeners.Remove(listener) }

// ParamType0 returns the declared type of the handler's sole parameter.
// Used by Bus.invoke to adapt an arity-1 super-type match (see matcher.go's
// adaptArg) to the value the handler actually expects.
func (s *Subscription) ParamType0() reflect.Type { return s.descriptor.ParamTypes[0] }

// Empty reports whether the subscription currently has no live listeners.
// Advisory only; a concurrent Add can invalidate the answer immediately.
func (s *Subscription) Empty() bool {
	empty := true
	s.listeners.Range(func(any, *weakNode) bool {
		empty = false
		return false
	})
	return empty
}

// Invoke calls the handler on every live listener with the message tuple
// carried by args (already converted to reflect.Value in call order). tuple
// holds the same values as `any`, used only for PublicationError reporting.
// Invoke returns true iff at least one live listener existed at traversal
// start (spec.md §4.2).
func (s *Subscription) Invoke(sink ErrorSink, tuple []any, args []reflect.Value) bool {
	return s.listeners.Range(func(listener any, node *weakNode) bool {
		if s.descriptor.Options.Synchronized {
			node.invokeMu.Lock()
			defer node.invokeMu.Unlock()
		}
		cancelled := s.invokeOne(sink, listener, tuple, args)
		return !cancelled
	}) > 0
}

// invokeOne calls the handler with args. reflect.Value.Call packs trailing
// scalar arguments into the variadic slice automatically when the method is
// variadic, so no separate CallSlice path is needed here (spec.md §4.2).
func (s *Subscription) invokeOne(sink ErrorSink, listener any, tuple []any, args []reflect.Value) (cancelled bool) {
	defer func() {
		if r := recover(); r != nil {
			sink.HandleError(&PublicationError{
				Message:         fmt.Sprintf("handler %s.%s panicked", s.listenerType, s.descriptor.Method.Name),
				Cause:           asError(r),
				PublishedObject: append([]any(nil), tuple...),
			})
		}
	}()

	method := reflect.ValueOf(listener).MethodByName(s.descriptor.Method.Name)
	results := method.Call(args)

	for _, r := range results {
		if err, ok := asReturnedError(r); ok && err != nil {
			if errors.Is(err, ErrCancelDispatch) {
				return true
			}
			sink.HandleError(&PublicationError{
				Message:         fmt.Sprintf("handler %s.%s returned an error", s.listenerType, s.descriptor.Method.Name),
				Cause:           err,
				PublishedObject: append([]any(nil), tuple...),
			})
		}
	}
	return false
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func asReturnedError(v reflect.Value) (error, bool) {
	if !v.Type().Implements(errorType) {
		return nil, false
	}
	if v.IsNil() {
		return nil, true
	}
	return v.Interface().(error), true
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
