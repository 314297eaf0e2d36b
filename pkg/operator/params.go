package operator

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Params is the parameter bag accumulated by the host while the user fills in
// a form. Nested objects are stored as maps.
type Params map[string]any

// Get returns the raw value stored under key.
func (p Params) Get(key string) any {
	return p[key]
}

// Has reports whether key holds a non-nil value.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the value under key as a string, or "" when unset.
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the value under key as a boolean. Strings are parsed.
func (p Params) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Float returns the numeric value under key and whether one was present.
func (p Params) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FloatPtr is Float returning nil when no number is present.
func (p Params) FloatPtr(key string) *float64 {
	if f, ok := p.Float(key); ok {
		return &f
	}
	return nil
}

// Strings returns the value under key as a string slice. A single string is
// returned as a one element slice.
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Map returns the nested object under key, or nil.
func (p Params) Map(key string) Params {
	switch v := p[key].(type) {
	case Params:
		return v
	case map[string]any:
		return Params(v)
	default:
		return nil
	}
}

// Decode weakly decodes the value under key into out. An empty key decodes
// the whole bag.
func (p Params) Decode(key string, out any) error {
	var input any = map[string]any(p)
	if key != "" {
		input = p[key]
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       emptyStringAsUnset,
		WeaklyTypedInput: true,
		TagName:          "param",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return nil
}

// emptyStringAsUnset decodes an empty string into a nil pointer when the
// pointed-to type is not a string, so optional numbers stay unset.
func emptyStringAsUnset(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Ptr || to.Elem().Kind() == reflect.String {
		return data, nil
	}
	if from.Kind() == reflect.String && data == "" {
		return nil, nil
	}
	return data, nil
}

// StringOr is String returning def when key is absent.
func (p Params) StringOr(key, def string) string {
	if !p.Has(key) {
		return def
	}
	return p.String(key)
}

// BoolOr is Bool returning def when key is absent.
func (p Params) BoolOr(key string, def bool) bool {
	if !p.Has(key) {
		return def
	}
	return p.Bool(key)
}
