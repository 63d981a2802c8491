package schema

import (
	"fmt"
	"regexp"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// AttributeSpec declares one attribute of a node or mark type.
type AttributeSpec struct {
	// Default is used when the attribute is not given.
	Default any

	// Required means the attribute has no default and must be given.
	Required bool

	// Validate checks a normalized value. Nil accepts anything.
	Validate func(value any) error
}

// computeAttrs validates given against specs and fills defaults.
// The result always contains every declared attribute.
func computeAttrs(typeName string, specs map[string]AttributeSpec, given map[string]any) (map[string]any, error) {
	for name := range given {
		if _, ok := specs[name]; !ok {
			return nil, &AttrError{Type: typeName, Attr: name, Value: given[name], Reason: "unknown attribute"}
		}
	}
	if len(specs) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(specs))
	for _, name := range sortedKeys(specs) {
		spec := specs[name]
		v, ok := given[name]
		if !ok {
			if spec.Required {
				return nil, &AttrError{Type: typeName, Attr: name, Reason: "required attribute missing"}
			}
			v = spec.Default
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, &AttrError{Type: typeName, Attr: name, Value: v, Reason: err.Error()}
		}
		if spec.Validate != nil && !(nv == nil && !spec.Required && spec.Default == nil) {
			if err := spec.Validate(nv); err != nil {
				return nil, &AttrError{Type: typeName, Attr: name, Value: nv, Reason: err.Error()}
			}
		}
		out[name] = nv
	}
	return out, nil
}

// NormalizeValue converts an attribute value into its canonical form.
// Numbers become float64 so values compare equal after a JSON round trip.
func NormalizeValue(v any) (any, error) {
	return normalizeValue(v)
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x, nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	default:
		return nil, fmt.Errorf("unsupported attribute value type %T", v)
	}
}

func sortedKeys(m map[string]AttributeSpec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OneOf accepts only the listed string values.
func OneOf(values ...string) func(any) error {
	return func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		for _, allowed := range values {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", values)
	}
}

// IntRange accepts whole numbers in [min, max].
func IntRange(min, max int) func(any) error {
	return func(v any) error {
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("expected number, got %T", v)
		}
		if f != float64(int(f)) {
			return fmt.Errorf("expected whole number")
		}
		if int(f) < min || int(f) > max {
			return fmt.Errorf("must be between %d and %d", min, max)
		}
		return nil
	}
}

// IsString accepts any string.
func IsString(v any) error {
	if _, ok := v.(string); !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	return nil
}

// IsBool accepts booleans.
func IsBool(v any) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", v)
	}
	return nil
}

// NonEmpty accepts non-empty strings.
func NonEmpty(v any) error {
	s, ok := v.(string)
	if !ok || s == "" {
		return fmt.Errorf("expected non-empty string")
	}
	return nil
}

// HexColor accepts "#rgb" or "#rrggbb" colors, or the empty string.
func HexColor(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	if s == "" {
		return nil
	}
	if _, err := colorful.Hex(s); err != nil {
		return fmt.Errorf("invalid color: %w", err)
	}
	return nil
}

var cssLengthPattern = regexp.MustCompile(`^(auto|0|\d+(\.\d+)?(px|rem|em|%|vh|vw))$`)

// CSSLength accepts CSS lengths such as "24px", "50%" or "auto", or the
// empty string meaning unset.
func CSSLength(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	if s == "" || cssLengthPattern.MatchString(s) {
		return nil
	}
	return fmt.Errorf("invalid CSS length %q", s)
}
