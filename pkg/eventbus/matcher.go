package eventbus

import "reflect"

// resolveSubscriptions implements the three publish modes of spec.md §4.4:
// exact, exact+super-types, and exact+super-types+var-args. Ordering:
// exact matches first, then super-type matches, then var-arg matches,
// deduplicated by Subscription identity.
func (b *Bus) resolveSubscriptions(types []reflect.Type) []*Subscription {
	var subs []*Subscription

	if len(types) == 1 {
		subs = append(subs, b.table.GetExact(types[0])...)
		if b.mode >= ModeExactWithSuperTypes {
			subs = append(subs, b.table.GetSuper(types[0])...)
		}
	} else {
		subs = append(subs, b.table.GetExact(types...)...)
	}

	if b.mode == ModeExactWithSuperTypesAndVarArgs && b.table.VarArgPossible() {
		if elem, ok := uniformElemType(types); ok {
			subs = append(subs, b.table.GetVarArg(elem)...)
		}
	}

	return dedupeSubs(subs)
}

// uniformElemType reports whether every entry in types is identical, and if
// so returns that common type. A variadic handler with element type T only
// matches an N-ary publish where every published argument has type T.
func uniformElemType(types []reflect.Type) (reflect.Type, bool) {
	if len(types) == 0 {
		return nil, false
	}
	first := types[0]
	for _, t := range types[1:] {
		if t != first {
			return nil, false
		}
	}
	return first, true
}

func dedupeSubs(subs []*Subscription) []*Subscription {
	if len(subs) < 2 {
		return subs
	}
	seen := make(map[*Subscription]bool, len(subs))
	out := subs[:0:0]
	for _, s := range subs {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func typesOf(tuple []any) []reflect.Type {
	types := make([]reflect.Type, len(tuple))
	for i, m := range tuple {
		types[i] = reflect.TypeOf(m)
	}
	return types
}

// adaptArg converts a published message value to the shape a matched
// handler's declared parameter expects. Exact and interface-satisfaction
// matches pass the value through unchanged (Go's automatic interface
// conversion handles the latter in reflect.Value.Call). A struct-embedding
// super-type match, unlike a Java subclass, is not directly assignable to
// its embedded field's type, so the embedded field itself is extracted.
func adaptArg(msgVal reflect.Value, paramType reflect.Type) reflect.Value {
	if msgVal.Type() == paramType || paramType.Kind() == reflect.Interface {
		return msgVal
	}
	if field, ok := findEmbeddedField(msgVal, paramType); ok {
		return field
	}
	return msgVal
}

func findEmbeddedField(v reflect.Value, target reflect.Type) (reflect.Value, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if f.Type == target || (f.Type.Kind() == reflect.Pointer && f.Type.Elem() == target) {
			return v.Field(i), true
		}
		if sub, ok := findEmbeddedField(v.Field(i), target); ok {
			return sub, true
		}
	}
	return reflect.Value{}, false
}
