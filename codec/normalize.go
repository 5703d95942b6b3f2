package codec

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Transportable is implemented by values that provide their own JSON text
// for the wire.
type Transportable interface {
	ToTransportable() (string, error)
}

// Normalize converts a native result into a value encoding/json can send.
//
// Primitives, strings, maps and byte slices pass through. Slices and arrays
// are normalized element by element. Transportable values are replaced by
// their parsed JSON. Any other struct has its exported fields copied into an
// object, one level deep.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Map:
		if t, ok := v.(Transportable); ok {
			return transportable(t)
		}
		return v, nil
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, nil
		}
		return normalizeList(rv)
	case reflect.Array:
		return normalizeList(rv)
	}

	if t, ok := v.(Transportable); ok {
		return transportable(t)
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Elem().Kind() == reflect.Struct {
			return fields(rv.Elem()), nil
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Struct:
		return fields(rv), nil
	}

	return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
		GoType(rv.Type().String()).
		Detail("value has no wire form").
		Build()
}

func normalizeList(rv reflect.Value) ([]any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		n, err := Normalize(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func transportable(t Transportable) (any, error) {
	text, err := t.ToTransportable()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidInput, err, "ToTransportable")
	}
	return ParseJSON(text)
}

// fields copies the exported fields of a struct value. Field values are not
// normalized further.
func fields(rv reflect.Value) map[string]any {
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = rv.Field(i).Interface()
	}
	return out
}

// EncodeValue normalizes v and renders it as JSON text. A nil value renders
// as "null".
func EncodeValue(v any) (string, error) {
	n, err := Normalize(v)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(n)
	if err != nil {
		return "", errors.Wrap(errors.PhaseEncode, errors.KindInvalidInput, err, "marshal value")
	}
	return string(b), nil
}
