package layering

import (
	"reflect"
	"strings"
)

// MergeLayers composes values ordered from strongest to weakest, returning a
// new value that keeps settings from stronger layers and fills the gaps from
// weaker ones. Nil pointers, maps, slices and interfaces count as unset.
//
// Struct fields may carry a `merge` tag:
//
//	`merge:"atomic"`   the strongest set value wins whole, nothing is merged
//	`merge:"key=Name"` slices of structs are merged element-wise, matching
//	                   elements by the Name field; weaker order is kept and
//	                   new stronger elements are appended
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	merged := cloneValue(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeValue(reflect.ValueOf(layers[i]), merged)
	}

	if !merged.IsValid() {
		return zero
	}
	out, ok := merged.Interface().(T)
	if !ok {
		return zero
	}
	return out
}

type mergeTag struct {
	atomic bool
	key    string
}

func parseMergeTag(raw string) mergeTag {
	var tag mergeTag
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "atomic":
			tag.atomic = true
		case strings.HasPrefix(part, "key="):
			tag.key = strings.TrimPrefix(part, "key=")
		}
	}
	return tag
}

func isSet(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return !v.IsNil()
	default:
		return !v.IsZero()
	}
}

// fallback clones weak, or returns the zero value of typ when weak is
// missing or of another type.
func fallback(weak reflect.Value, typ reflect.Type) reflect.Value {
	if !weak.IsValid() || weak.Type() != typ {
		return reflect.Zero(typ)
	}
	return cloneValue(weak)
}

func mergeValue(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return cloneValue(weak)
	}
	if weak.IsValid() && weak.Type() != strong.Type() {
		weak = reflect.Value{}
	}

	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return fallback(weak, strong.Type())
		}
		var weakElem reflect.Value
		if weak.IsValid() && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		result := reflect.New(strong.Type().Elem())
		result.Elem().Set(mergeValue(strong.Elem(), weakElem))
		return result
	case reflect.Interface:
		if strong.IsNil() {
			return fallback(weak, strong.Type())
		}
		var weakElem reflect.Value
		if weak.IsValid() && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		result := reflect.New(strong.Type()).Elem()
		result.Set(mergeValue(strong.Elem(), weakElem))
		return result
	case reflect.Struct:
		return mergeStruct(strong, weak)
	case reflect.Map:
		if strong.IsNil() {
			return fallback(weak, strong.Type())
		}
		result := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && !weak.IsNil() {
			iter := weak.MapRange()
			for iter.Next() {
				result.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			key := iter.Key()
			if existing := result.MapIndex(key); existing.IsValid() {
				result.SetMapIndex(key, mergeValue(iter.Value(), existing))
				continue
			}
			result.SetMapIndex(key, cloneValue(iter.Value()))
		}
		return result
	case reflect.Slice:
		if strong.IsNil() {
			return fallback(weak, strong.Type())
		}
		return cloneValue(strong)
	case reflect.Array:
		result := reflect.New(strong.Type()).Elem()
		for i := 0; i < strong.Len(); i++ {
			var weakElem reflect.Value
			if weak.IsValid() {
				weakElem = weak.Index(i)
			}
			result.Index(i).Set(mergeValue(strong.Index(i), weakElem))
		}
		return result
	default:
		return cloneValue(strong)
	}
}

func mergeStruct(strong, weak reflect.Value) reflect.Value {
	typ := strong.Type()
	result := reflect.New(typ).Elem()
	for i := 0; i < strong.NumField(); i++ {
		field := result.Field(i)
		if !field.CanSet() {
			continue
		}
		var weakField reflect.Value
		if weak.IsValid() {
			weakField = weak.Field(i)
		}
		strongField := strong.Field(i)
		tag := parseMergeTag(typ.Field(i).Tag.Get("merge"))
		switch {
		case tag.atomic:
			if isSet(strongField) {
				field.Set(cloneValue(strongField))
			} else {
				field.Set(fallback(weakField, field.Type()))
			}
		case tag.key != "" && strongField.Kind() == reflect.Slice:
			field.Set(mergeKeyed(strongField, weakField, tag.key))
		default:
			field.Set(mergeValue(strongField, weakField))
		}
	}
	return result
}

func mergeKeyed(strong, weak reflect.Value, key string) reflect.Value {
	if strong.IsNil() {
		return fallback(weak, strong.Type())
	}
	if !weak.IsValid() || weak.IsNil() {
		return cloneValue(strong)
	}

	result := reflect.MakeSlice(strong.Type(), 0, weak.Len()+strong.Len())
	positions := map[any]int{}
	for i := 0; i < weak.Len(); i++ {
		elem := weak.Index(i)
		if k, ok := elementKey(elem, key); ok {
			positions[k] = result.Len()
		}
		result = reflect.Append(result, cloneValue(elem))
	}
	for i := 0; i < strong.Len(); i++ {
		elem := strong.Index(i)
		k, ok := elementKey(elem, key)
		if pos, found := positions[k]; ok && found {
			target := result.Index(pos)
			target.Set(mergeValue(elem, target))
			continue
		}
		if ok {
			positions[k] = result.Len()
		}
		result = reflect.Append(result, cloneValue(elem))
	}
	return result
}

func elementKey(elem reflect.Value, key string) (any, bool) {
	for elem.Kind() == reflect.Pointer || elem.Kind() == reflect.Interface {
		if elem.IsNil() {
			return nil, false
		}
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil, false
	}
	field := elem.FieldByName(key)
	if !field.IsValid() || !field.Type().Comparable() || !field.CanInterface() {
		return nil, false
	}
	return field.Interface(), true
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type()).Elem()
		clone.Set(cloneValue(v.Elem()))
		return clone
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		return clone
	}
}
