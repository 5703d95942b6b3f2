package dispatch

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"

	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// convert maps a decoded JSON value onto a Go parameter type. Numbers
// arrive as json.Number; composite targets go through a JSON round trip.
func convert(a any, t reflect.Type, path []string) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	av := reflect.ValueOf(a)
	if n, ok := a.(json.Number); ok {
		if v, ok := fromNumber(n, t); ok {
			return v, nil
		}
	} else if av.Type().AssignableTo(t) {
		return av, nil
	} else if av.Type().ConvertibleTo(t) && sameFamily(av.Kind(), t.Kind()) {
		return av.Convert(t), nil
	}

	switch t.Kind() {
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map, reflect.Pointer:
		b, err := json.Marshal(a)
		if err != nil {
			break
		}
		ptr := reflect.New(t)
		if err := json.Unmarshal(b, ptr.Interface()); err != nil {
			break
		}
		return ptr.Elem(), nil
	}
	return reflect.Value{}, errors.TypeMismatch(errors.PhaseDispatch, path, t.String(), a)
}

func fromNumber(n json.Number, t reflect.Type) (reflect.Value, bool) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil || f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
				return v, false
			}
			i = int64(f)
		}
		if v.OverflowInt(i) {
			return v, false
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil || v.OverflowUint(u) {
			return v, false
		}
		v.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := n.Float64()
		if err != nil || v.OverflowFloat(f) {
			return v, false
		}
		v.SetFloat(f)
	case reflect.String:
		// ids travel as numbers or strings
		v.SetString(n.String())
	case reflect.Interface:
		if !reflect.TypeOf(n).AssignableTo(t) {
			return v, false
		}
		v.Set(reflect.ValueOf(n))
	default:
		return v, false
	}
	return v, true
}

// sameFamily limits reflect conversions to ones that keep meaning, so a
// number never becomes a string rune.
func sameFamily(from, to reflect.Kind) bool {
	return family(from) != 0 && family(from) == family(to)
}

func family(k reflect.Kind) int {
	switch k {
	case reflect.Bool:
		return 1
	case reflect.String:
		return 2
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 3
	}
	return 0
}
