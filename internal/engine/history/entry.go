package history

import (
	"time"

	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/engine/transform"
)

// Entry is one undoable unit.
type Entry struct {
	// Description names the change, usually the command name.
	Description string

	// Steps are the steps that were applied.
	Steps []transform.Step

	// Inverse undoes Steps when applied in order.
	Inverse []transform.Step

	// SelectionBefore and SelectionAfter are restored by undo and redo.
	SelectionBefore selection.Selection
	SelectionAfter  selection.Selection

	Timestamp time.Time
}

// NewEntry creates an entry stamped with the current time.
func NewEntry(desc string, steps, inverse []transform.Step, before, after selection.Selection) *Entry {
	return &Entry{
		Description:     desc,
		Steps:           steps,
		Inverse:         inverse,
		SelectionBefore: before,
		SelectionAfter:  after,
		Timestamp:       time.Now(),
	}
}

// remap maps the entry through m. Steps whose target was deleted are
// dropped.
func (e *Entry) remap(m *model.Mapping) {
	e.Steps = mapSteps(e.Steps, m)
	e.Inverse = mapSteps(e.Inverse, m)
	e.SelectionBefore = remapSelection(e.SelectionBefore, m)
	e.SelectionAfter = remapSelection(e.SelectionAfter, m)
}

// empty reports whether remapping removed every inverse step.
func (e *Entry) empty() bool { return len(e.Inverse) == 0 }

func mapSteps(steps []transform.Step, m *model.Mapping) []transform.Step {
	out := steps[:0:0]
	for _, st := range steps {
		if mapped := st.Map(m); mapped != nil {
			out = append(out, mapped)
		}
	}
	return out
}

func remapSelection(s selection.Selection, m *model.Mapping) selection.Selection {
	return selection.Selection{Kind: s.Kind, Anchor: m.Map(s.Anchor, -1), Head: m.Map(s.Head, -1)}
}

// merge combines e with a later entry into one undo unit.
func (e *Entry) merge(later *Entry, desc string) *Entry {
	steps := make([]transform.Step, 0, len(e.Steps)+len(later.Steps))
	steps = append(append(steps, e.Steps...), later.Steps...)
	inverse := make([]transform.Step, 0, len(e.Inverse)+len(later.Inverse))
	inverse = append(append(inverse, later.Inverse...), e.Inverse...)
	return &Entry{
		Description:     desc,
		Steps:           steps,
		Inverse:         inverse,
		SelectionBefore: e.SelectionBefore,
		SelectionAfter:  later.SelectionAfter,
		Timestamp:       later.Timestamp,
	}
}

// Info describes an entry without exposing its steps.
type Info struct {
	Description string
	Steps       int
	Timestamp   time.Time
}

func (e *Entry) info() Info {
	return Info{Description: e.Description, Steps: len(e.Steps), Timestamp: e.Timestamp}
}
