package history

import (
	"errors"
	"sync"

	"github.com/dshills/folio/internal/engine/model"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// ApplyFunc applies an entry to the live document. Undo passes the entry
// whose Inverse should run; Redo passes the entry whose Steps should run.
// The returned entry replaces the original on the opposite stack, so the
// caller can hand back steps recomputed against the current document. A
// nil entry keeps the original.
type ApplyFunc func(e *Entry) (*Entry, error)

// History manages undo/redo state for a document.
type History struct {
	mu sync.Mutex

	undoStack []*Entry
	redoStack []*Entry

	grouping     bool
	groupName    string
	groupEntries []*Entry

	// 0 means unbounded.
	maxEntries int
}

// New creates a history holding at most maxEntries undo entries.
// maxEntries <= 0 means unbounded.
func New(maxEntries int) *History {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &History{maxEntries: maxEntries}
}

// Push adds an entry to the undo stack and clears the redo stack.
func (h *History) Push(e *Entry) {
	if e == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		h.groupEntries = append(h.groupEntries, e)
		h.redoStack = nil
		return
	}

	h.pushLocked(e)
}

func (h *History) pushLocked(e *Entry) {
	h.undoStack = append(h.undoStack, e)
	h.redoStack = nil
	h.trimLocked()
}

func (h *History) trimLocked() {
	if h.maxEntries > 0 && len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.undoStack = h.undoStack[excess:]
	}
}

// Undo pops the newest entry and passes it to apply.
// The lock is released while apply runs; on failure the entry is restored.
func (h *History) Undo(apply ApplyFunc) error {
	h.mu.Lock()
	if len(h.undoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToUndo
	}
	entry := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.mu.Unlock()

	next, err := apply(entry)
	if err != nil {
		h.mu.Lock()
		h.undoStack = append(h.undoStack, entry)
		h.mu.Unlock()
		return err
	}
	if next == nil {
		next = entry
	}

	h.mu.Lock()
	h.redoStack = append(h.redoStack, next)
	h.mu.Unlock()
	return nil
}

// Redo pops the newest undone entry and passes it to apply.
func (h *History) Redo(apply ApplyFunc) error {
	h.mu.Lock()
	if len(h.redoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToRedo
	}
	entry := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.mu.Unlock()

	next, err := apply(entry)
	if err != nil {
		h.mu.Lock()
		h.redoStack = append(h.redoStack, entry)
		h.mu.Unlock()
		return err
	}
	if next == nil {
		next = entry
	}

	h.mu.Lock()
	h.undoStack = append(h.undoStack, next)
	h.trimLocked()
	h.mu.Unlock()
	return nil
}

// Remap maps every stored entry through m, the mapping of a transaction
// that was applied without being recorded. Entries left with nothing to
// undo are dropped.
func (h *History) Remap(m *model.Mapping) {
	if m.Len() == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = remapStack(h.undoStack, m)
	h.redoStack = remapStack(h.redoStack, m)
	h.groupEntries = remapStack(h.groupEntries, m)
}

func remapStack(stack []*Entry, m *model.Mapping) []*Entry {
	out := stack[:0]
	for _, e := range stack {
		e.remap(m)
		if !e.empty() {
			out = append(out, e)
		}
	}
	return out
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo entries.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo entries.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// BeginGroup starts a group. Entries pushed while grouping are merged
// into a single undo unit. Nested calls are ignored.
func (h *History) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		return
	}
	h.grouping = true
	h.groupName = name
	h.groupEntries = nil
}

// EndGroup merges the grouped entries and pushes the result.
func (h *History) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.grouping {
		return
	}
	h.grouping = false
	entries := h.groupEntries
	h.groupEntries = nil
	if len(entries) == 0 {
		return
	}

	merged := entries[0]
	name := h.groupName
	if name == "" {
		name = merged.Description
	}
	for _, e := range entries[1:] {
		merged = merged.merge(e, name)
	}
	merged.Description = name
	h.pushLocked(merged)
}

// CancelGroup drops the grouped entries without recording them.
// Changes already applied stay in the document.
func (h *History) CancelGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.grouping = false
	h.groupEntries = nil
}

// IsGrouping returns true inside BeginGroup/EndGroup.
func (h *History) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.groupEntries = nil
}

// UndoInfo describes the undo stack, oldest first.
func (h *History) UndoInfo() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.undoStack)
}

// RedoInfo describes the redo stack, oldest first.
func (h *History) RedoInfo() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.redoStack)
}

func infos(stack []*Entry) []Info {
	out := make([]Info, len(stack))
	for i, e := range stack {
		out[i] = e.info()
	}
	return out
}

// PeekUndo returns the next undo entry's info without removing it.
func (h *History) PeekUndo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undoStack) == 0 {
		return Info{}, false
	}
	return h.undoStack[len(h.undoStack)-1].info(), true
}

// PeekRedo returns the next redo entry's info without removing it.
func (h *History) PeekRedo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redoStack) == 0 {
		return Info{}, false
	}
	return h.redoStack[len(h.redoStack)-1].info(), true
}

// SetMaxEntries changes the cap. If the stack is larger, the oldest
// entries are removed. max <= 0 means unbounded.
func (h *History) SetMaxEntries(max int) {
	if max < 0 {
		max = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxEntries = max
	h.trimLocked()
}

// MaxEntries returns the cap, 0 when unbounded.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}
