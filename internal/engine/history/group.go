package history

// GroupScope groups entries until End is called:
//
//	defer h.GroupScope("Insert gallery").End()
type GroupScope struct {
	history *History
	active  bool
}

// GroupScope starts a new group scope.
func (h *History) GroupScope(name string) *GroupScope {
	h.BeginGroup(name)
	return &GroupScope{history: h, active: true}
}

// End ends the group. Only the first call has effect.
func (g *GroupScope) End() {
	if g.active {
		g.history.EndGroup()
		g.active = false
	}
}

// Cancel drops the group without recording it.
func (g *GroupScope) Cancel() {
	if g.active {
		g.history.CancelGroup()
		g.active = false
	}
}

// Group runs fn inside a group. If fn fails the group is cancelled.
func (h *History) Group(name string, fn func() error) error {
	h.BeginGroup(name)
	if err := fn(); err != nil {
		h.CancelGroup()
		return err
	}
	h.EndGroup()
	return nil
}

// Checkpoint marks a depth of the undo stack.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint records the current undo depth.
func (h *History) CreateCheckpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Checkpoint{undoDepth: len(h.undoStack)}
}

// UndoToCheckpoint undoes every entry pushed after cp.
func (h *History) UndoToCheckpoint(cp Checkpoint, apply ApplyFunc) error {
	for h.UndoCount() > cp.undoDepth {
		if err := h.Undo(apply); err != nil {
			return err
		}
	}
	return nil
}
