package model

import (
	"fmt"
	"strings"
)

// MapResult is the outcome of mapping a position.
type MapResult struct {
	// Pos is the mapped position.
	Pos int

	// Deleted reports whether the position was inside a replaced range.
	Deleted bool
}

// StepMap describes the position changes made by one step as a list of
// replaced ranges in the coordinates of the document the step applied to.
type StepMap struct {
	// ranges holds (start, oldSize, newSize) triples sorted by start.
	ranges []int
}

// IdentityMap is a StepMap that changes nothing.
var IdentityMap = &StepMap{}

// NewStepMap creates a map from (start, oldSize, newSize) triples.
func NewStepMap(ranges ...int) *StepMap {
	if len(ranges)%3 != 0 {
		panic("model: step map ranges must be triples")
	}
	out := make([]int, 0, len(ranges))
	for i := 0; i < len(ranges); i += 3 {
		if ranges[i+1] == 0 && ranges[i+2] == 0 {
			continue
		}
		out = append(out, ranges[i], ranges[i+1], ranges[i+2])
	}
	return &StepMap{ranges: out}
}

// Ranges returns a copy of the raw range triples.
func (m *StepMap) Ranges() []int {
	out := make([]int, len(m.ranges))
	copy(out, m.ranges)
	return out
}

// Map maps pos. assoc < 0 keeps an insertion point before inserted
// content, assoc > 0 moves it after.
func (m *StepMap) Map(pos, assoc int) int {
	return m.MapResult(pos, assoc).Pos
}

// MapResult maps pos and reports whether it fell inside a replaced range.
// A position strictly inside a replaced range maps to the start of the
// replacement.
func (m *StepMap) MapResult(pos, assoc int) MapResult {
	diff := 0
	for i := 0; i < len(m.ranges); i += 3 {
		start, oldSize, newSize := m.ranges[i], m.ranges[i+1], m.ranges[i+2]
		if start > pos {
			break
		}
		end := start + oldSize
		if pos <= end {
			side := -1
			switch {
			case oldSize == 0:
				side = assoc
			case pos == end:
				side = 1
			}
			res := start + diff
			if side > 0 {
				res += newSize
			}
			return MapResult{Pos: res, Deleted: pos > start && pos < end}
		}
		diff += newSize - oldSize
	}
	return MapResult{Pos: pos + diff}
}

// Invert returns the map that undoes m.
func (m *StepMap) Invert() *StepMap {
	out := make([]int, 0, len(m.ranges))
	diff := 0
	for i := 0; i < len(m.ranges); i += 3 {
		start, oldSize, newSize := m.ranges[i], m.ranges[i+1], m.ranges[i+2]
		out = append(out, start+diff, newSize, oldSize)
		diff += newSize - oldSize
	}
	return &StepMap{ranges: out}
}

// String renders the ranges for debugging.
func (m *StepMap) String() string {
	var sb strings.Builder
	sb.WriteString("StepMap[")
	for i := 0; i < len(m.ranges); i += 3 {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%d:%d->%d", m.ranges[i], m.ranges[i+1], m.ranges[i+2])
	}
	sb.WriteString("]")
	return sb.String()
}

// Mapping is a sequence of step maps applied in order.
type Mapping struct {
	maps []*StepMap
}

// NewMapping creates a mapping from step maps.
func NewMapping(maps ...*StepMap) *Mapping {
	m := &Mapping{}
	for _, sm := range maps {
		m.AppendMap(sm)
	}
	return m
}

// Maps returns the step maps.
func (m *Mapping) Maps() []*StepMap {
	out := make([]*StepMap, len(m.maps))
	copy(out, m.maps)
	return out
}

// Len returns the number of step maps.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.maps)
}

// AppendMap adds a step map to the end.
func (m *Mapping) AppendMap(sm *StepMap) {
	if sm == nil {
		sm = IdentityMap
	}
	m.maps = append(m.maps, sm)
}

// AppendMapping adds all maps of other to the end.
func (m *Mapping) AppendMapping(other *Mapping) {
	if other == nil {
		return
	}
	m.maps = append(m.maps, other.maps...)
}

// Slice returns the mapping restricted to maps [from, to).
func (m *Mapping) Slice(from, to int) *Mapping {
	out := &Mapping{}
	out.maps = append(out.maps, m.maps[from:to]...)
	return out
}

// Invert returns the mapping that undoes m.
func (m *Mapping) Invert() *Mapping {
	out := &Mapping{maps: make([]*StepMap, len(m.maps))}
	for i, sm := range m.maps {
		out.maps[len(m.maps)-1-i] = sm.Invert()
	}
	return out
}

// Map maps pos through every step map.
func (m *Mapping) Map(pos, assoc int) int {
	return m.MapResult(pos, assoc).Pos
}

// MapResult maps pos and reports whether any step deleted it.
func (m *Mapping) MapResult(pos, assoc int) MapResult {
	if m == nil {
		return MapResult{Pos: pos}
	}
	deleted := false
	for _, sm := range m.maps {
		r := sm.MapResult(pos, assoc)
		pos = r.Pos
		deleted = deleted || r.Deleted
	}
	return MapResult{Pos: pos, Deleted: deleted}
}
