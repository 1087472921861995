package loader

import (
	"fmt"
	"math"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// parseYAML parses YAML data into a map using the same value types the
// TOML decoder produces, so callers see a single representation.
func parseYAML(source string, data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
	}

	doc := make(map[string]any, len(raw))
	for key, val := range raw {
		norm, err := normalizeYAML(val)
		if err != nil {
			return nil, &ParseError{
				Path:    source,
				Message: fmt.Sprintf("key %q: %v", key, err),
				Err:     err,
			}
		}
		doc[key] = norm
	}
	return doc, nil
}

// normalizeYAML narrows decoded YAML values to the TOML value set.
func normalizeYAML(val any) (any, error) {
	switch v := val.(type) {
	case string, bool, float64, int64, time.Time:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows 64-bit signed range", v)
		}
		return int64(v), nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			norm, err := normalizeYAML(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = norm
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			norm, err := normalizeYAML(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = norm
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			norm, err := normalizeYAML(item)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", key, err)
			}
			out[fmt.Sprint(key)] = norm
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("null values are not supported")
	default:
		return nil, fmt.Errorf("unsupported value of type %T", val)
	}
}

// encodeYAML serializes a document map as YAML. Timestamps are written as
// their TOML text form.
func encodeYAML(doc map[string]any) ([]byte, error) {
	out, err := yaml.Marshal(yamlSafe(doc))
	if err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return out, nil
}

func yamlSafe(val any) any {
	switch v := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = yamlSafe(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = yamlSafe(item)
		}
		return out
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case toml.LocalDateTime:
		return v.String()
	case toml.LocalDate:
		return v.String()
	case toml.LocalTime:
		return v.String()
	default:
		return v
	}
}
