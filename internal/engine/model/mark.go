package model

import (
	"reflect"
	"sort"
	"strings"

	"github.com/dshills/folio/internal/engine/schema"
)

// Mark is an inline decoration on a text node.
type Mark struct {
	typ   *schema.MarkType
	attrs map[string]any
}

// NewMark creates a mark with validated attributes.
func NewMark(t *schema.MarkType, attrs map[string]any) (*Mark, error) {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	return &Mark{typ: t, attrs: computed}, nil
}

// Type returns the mark type.
func (m *Mark) Type() *schema.MarkType { return m.typ }

// Attr returns a single attribute value.
func (m *Mark) Attr(name string) any { return m.attrs[name] }

// Attrs returns a copy of the attributes.
func (m *Mark) Attrs() map[string]any { return copyAttrs(m.attrs) }

// Equal reports whether two marks have the same type and attributes.
func (m *Mark) Equal(other *Mark) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	return m.typ == other.typ && attrsEqual(m.attrs, other.attrs)
}

// String renders the mark for debugging.
func (m *Mark) String() string { return m.typ.Name() }

// MarkSet is an ordered set of marks with at most one mark per type.
type MarkSet []*Mark

// normalizeMarks sorts by rank and keeps the last mark of each type.
func normalizeMarks(marks []*Mark) MarkSet {
	if len(marks) == 0 {
		return nil
	}
	byType := make(map[*schema.MarkType]*Mark, len(marks))
	for _, m := range marks {
		byType[m.typ] = m
	}
	out := make(MarkSet, 0, len(byType))
	for _, m := range byType {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].typ.Rank() < out[j].typ.Rank() })
	return out
}

// Equal reports whether two mark sets hold the same marks.
func (s MarkSet) Equal(other MarkSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !s[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Has reports whether the set contains a mark of type t.
func (s MarkSet) Has(t *schema.MarkType) bool {
	for _, m := range s {
		if m.typ == t {
			return true
		}
	}
	return false
}

// add returns the set with m added, replacing any mark of the same type.
func (s MarkSet) add(m *Mark) MarkSet {
	out := make([]*Mark, 0, len(s)+1)
	out = append(out, s...)
	return normalizeMarks(append(out, m))
}

// remove returns the set without marks of type t. A nil t removes all marks.
func (s MarkSet) remove(t *schema.MarkType) MarkSet {
	if t == nil {
		return nil
	}
	var out MarkSet
	for _, m := range s {
		if m.typ != t {
			out = append(out, m)
		}
	}
	return out
}

func (s MarkSet) String() string {
	names := make([]string, len(s))
	for i, m := range s {
		names[i] = m.String()
	}
	return strings.Join(names, ",")
}

func copyAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func attrsEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
