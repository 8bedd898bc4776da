package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrUnsupportedValue is returned for values the store cannot hold.
var ErrUnsupportedValue = errors.New("unsupported config value")

// normalize checks that v is a scalar or a list of scalars.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []float64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// normalizeMap converts decoded documents into map[string]any trees.
func normalizeMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if err := validKey(k); err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case map[string]any:
			sub, err := normalizeMap(x)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		case map[any]any:
			conv := make(map[string]any, len(x))
			for kk, vv := range x {
				ks, ok := kk.(string)
				if !ok {
					return nil, fmt.Errorf("%w: non-string key %v", ErrInvalidKey, kk)
				}
				conv[ks] = vv
			}
			sub, err := normalizeMap(conv)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		default:
			n, err := normalize(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
	}
	return out, nil
}

func copyValue(v any) any {
	switch x := v.(type) {
	case []any:
		return slices.Clone(x)
	case map[string]any:
		return maps.Clone(x)
	default:
		return v
	}
}
