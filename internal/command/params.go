package command

import (
	"maps"

	"github.com/dshills/folio/internal/engine/model"
)

// Params are command parameters. Values decoded from JSON or Lua arrive
// as float64, []any and map[string]any; the accessors accept those.
type Params map[string]any

// Has reports whether key is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns a string parameter or def.
func (p Params) String(key, def string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return def
}

// Int returns a whole-number parameter or def.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Strings returns a string list parameter.
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// Attrs returns a map parameter, or nil.
func (p Params) Attrs(key string) map[string]any {
	if m, ok := p[key].(map[string]any); ok {
		return maps.Clone(m)
	}
	return nil
}

// Node returns a node parameter, or nil.
func (p Params) Node(key string) *model.Node {
	n, _ := p[key].(*model.Node)
	return n
}

// With returns a copy of p with key set.
func (p Params) With(key string, value any) Params {
	out := make(Params, len(p)+1)
	maps.Copy(out, p)
	out[key] = value
	return out
}
