package fingerprint

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/architeacher/criteria/pkg/criteria"
)

// token is the canonical form of one value: its dynamic type next to a
// representation that is exact for that type.
type token struct {
	Type  string `json:"t"`
	Value any    `json:"v"`
}

var timeType = reflect.TypeOf(time.Time{})

// canonical rewrites the snapshot map so that every value carries its type.
// Non-nil pointers and values whose state is hidden from reflection are
// rejected, since a cached statement would hand their first instance back.
func canonical(snap criteria.Snapshot) (map[string]any, error) {
	out := make(map[string]any)

	for key, entry := range snap.Map() {
		byField, ok := entry.(map[string][]any)
		if !ok {
			out[key] = entry

			continue
		}

		typed := make(map[string][]token, len(byField))
		for field, values := range byField {
			tokens := make([]token, 0, len(values))
			for _, v := range values {
				t, err := tokenOf(v)
				if err != nil {
					return nil, fmt.Errorf("%s %s: %w", key, field, err)
				}

				tokens = append(tokens, t)
			}

			typed[field] = tokens
		}

		out[key] = typed
	}

	return out, nil
}

func tokenOf(v any) (token, error) {
	if v == nil {
		return token{Type: "nil"}, nil
	}

	name := fmt.Sprintf("%T", v)
	rv := reflect.ValueOf(v)

	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return token{Type: name}, nil
	}

	switch x := v.(type) {
	case criteria.Range:
		low, err := tokenOf(x.Low)
		if err != nil {
			return token{}, err
		}

		high, err := tokenOf(x.High)
		if err != nil {
			return token{}, err
		}

		return token{Type: name, Value: []token{low, high}}, nil
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return token{}, fmt.Errorf("%w: %s: %v", ErrUnencodable, name, err)
		}

		inner, err := tokenOf(dv)
		if err != nil {
			return token{}, err
		}

		return token{Type: name, Value: inner}, nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return token{Type: name, Value: strconv.FormatBool(rv.Bool())}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return token{Type: name, Value: strconv.FormatInt(rv.Int(), 10)}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return token{Type: name, Value: strconv.FormatUint(rv.Uint(), 10)}, nil
	case reflect.Float32, reflect.Float64:
		return token{Type: name, Value: strconv.FormatFloat(rv.Float(), 'g', -1, 64)}, nil
	case reflect.Complex64, reflect.Complex128:
		return token{Type: name, Value: strconv.FormatComplex(rv.Complex(), 'g', -1, 128)}, nil
	case reflect.String:
		return token{Type: name, Value: rv.String()}, nil
	case reflect.Slice:
		if rv.IsNil() {
			return token{Type: name}, nil
		}

		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return token{Type: name, Value: hex.EncodeToString(rv.Bytes())}, nil
		}

		return elements(name, rv)
	case reflect.Array:
		return elements(name, rv)
	case reflect.Struct:
		if rv.Type() == timeType {
			return token{Type: name, Value: rv.Interface().(time.Time).Format(time.RFC3339Nano)}, nil
		}
	}

	return token{}, fmt.Errorf("%w: %s", ErrUnencodable, name)
}

func elements(name string, rv reflect.Value) (token, error) {
	items := make([]token, 0, rv.Len())

	for i := range rv.Len() {
		t, err := tokenOf(rv.Index(i).Interface())
		if err != nil {
			return token{}, err
		}

		items = append(items, t)
	}

	return token{Type: name, Value: items}, nil
}
