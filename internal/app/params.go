package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/example/pluginhost/pkg/operator"
)

// ParamsFileFlag loads a YAML or JSON parameter bag before flags are applied.
const ParamsFileFlag = "params"

// ParseParamFlags parses operator parameters from command line arguments.
// It supports:
//
//	--key=value
//	--key value    (value may be a negative number)
//	--key          (boolean true)
//	--a.b=value    (nested object {"a": {"b": value}})
//	--params file  (YAML or JSON bag, overridden by the other flags)
//
// Values that are valid JSON (numbers, booleans, objects, arrays, quoted
// strings) are decoded; anything else is kept as a string.
func ParseParamFlags(args []string) (operator.Params, error) {
	params := operator.Params{}
	var file string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		key := strings.TrimLeft(arg, "-")
		value, hasValue := "", false
		if k, v, ok := strings.Cut(key, "="); ok {
			key, value, hasValue = k, v, true
		} else if i+1 < len(args) && isValue(args[i+1]) {
			value, hasValue = args[i+1], true
			i++
		}
		if key == "" {
			return nil, fmt.Errorf("invalid flag %q", arg)
		}

		if key == ParamsFileFlag {
			if !hasValue {
				return nil, fmt.Errorf("--%s requires a file", ParamsFileFlag)
			}
			file = value
			continue
		}

		var v any = true
		if hasValue {
			v = parseValue(value)
		}
		if err := setPath(params, key, v); err != nil {
			return nil, err
		}
	}

	if file == "" {
		return params, nil
	}
	base, err := LoadParamsFile(file)
	if err != nil {
		return nil, err
	}
	merge(base, params)
	return base, nil
}

// isValue reports whether a separate argument is the value of the preceding
// flag. Negative numbers are values, not flags.
func isValue(arg string) bool {
	if !strings.HasPrefix(arg, "-") {
		return true
	}
	_, err := strconv.ParseFloat(arg, 64)
	return err == nil
}

func parseValue(s string) any {
	if s == "" || !gjson.Valid(s) {
		return s
	}
	return gjson.Parse(s).Value()
}

func setPath(params operator.Params, key string, value any) error {
	parts := strings.Split(key, ".")
	m := map[string]any(params)
	for _, part := range parts[:len(parts)-1] {
		if part == "" {
			return fmt.Errorf("invalid parameter name %q", key)
		}
		next, ok := m[part].(map[string]any)
		if !ok {
			if _, exists := m[part]; exists {
				return fmt.Errorf("parameter %q is not an object", part)
			}
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	last := parts[len(parts)-1]
	if last == "" {
		return fmt.Errorf("invalid parameter name %q", key)
	}
	m[last] = value
	return nil
}

// merge copies src into dst, merging nested objects.
func merge(dst, src map[string]any) {
	for k, v := range src {
		sv, srcIsMap := v.(map[string]any)
		dv, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			merge(dv, sv)
			continue
		}
		dst[k] = v
	}
}

// LoadParamsFile reads a parameter bag from a YAML or JSON file.
func LoadParamsFile(path string) (operator.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}
	params := operator.Params{}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse params file %s: %w", path, err)
	}
	return params, nil
}
