package model

// ResolvedPos is a position resolved against a document, carrying the
// chain of ancestors from the root down to the innermost parent.
type ResolvedPos struct {
	pos        int
	path       []pathEntry
	textOffset int
}

type pathEntry struct {
	node  *Node
	index int
	start int
}

// Resolve resolves pos in doc.
func Resolve(doc *Node, pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > doc.ContentSize() {
		return nil, &OutOfRangeError{Pos: pos, Size: doc.ContentSize()}
	}
	rp := &ResolvedPos{pos: pos}
	node, start := doc, 0
	for {
		offset := pos - start
		index, childStart := node.findIndex(offset)
		rp.path = append(rp.path, pathEntry{node: node, index: index, start: start})
		rem := offset - childStart
		if rem == 0 {
			break
		}
		child := node.content[index]
		if child.IsText() {
			rp.textOffset = rem
			break
		}
		node, start = child, start+childStart+1
	}
	return rp, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve(doc *Node, pos int) *ResolvedPos {
	rp, err := Resolve(doc, pos)
	if err != nil {
		panic(err)
	}
	return rp
}

// findIndex returns the index of the child containing offset and the
// offset at which that child starts.
func (n *Node) findIndex(offset int) (int, int) {
	pos := 0
	for i, c := range n.content {
		if offset == pos {
			return i, pos
		}
		end := pos + c.size
		if offset < end {
			return i, pos
		}
		pos = end
	}
	return len(n.content), pos
}

// Pos returns the resolved position.
func (r *ResolvedPos) Pos() int { return r.pos }

// Depth returns the depth of the innermost parent. The root is depth 0.
func (r *ResolvedPos) Depth() int { return len(r.path) - 1 }

func (r *ResolvedPos) depth(d int) int {
	if d < 0 {
		return r.Depth() + d + 1
	}
	return d
}

// Node returns the ancestor at depth d. Negative d counts up from the parent.
func (r *ResolvedPos) Node(d int) *Node { return r.path[r.depth(d)].node }

// Parent returns the innermost ancestor.
func (r *ResolvedPos) Parent() *Node { return r.Node(r.Depth()) }

// Doc returns the root node.
func (r *ResolvedPos) Doc() *Node { return r.path[0].node }

// Parents returns the ancestor chain from the root to the parent.
func (r *ResolvedPos) Parents() []*Node {
	out := make([]*Node, len(r.path))
	for i, e := range r.path {
		out[i] = e.node
	}
	return out
}

// Index returns the child index into the ancestor at depth d.
func (r *ResolvedPos) Index(d int) int { return r.path[r.depth(d)].index }

// IndexAfter returns the index pointing after this position at depth d.
func (r *ResolvedPos) IndexAfter(d int) int {
	d = r.depth(d)
	if d == r.Depth() && r.textOffset == 0 {
		return r.path[d].index
	}
	return r.path[d].index + 1
}

// Start returns the position at the start of the ancestor at depth d.
func (r *ResolvedPos) Start(d int) int { return r.path[r.depth(d)].start }

// End returns the position at the end of the ancestor at depth d.
func (r *ResolvedPos) End(d int) int {
	d = r.depth(d)
	return r.path[d].start + r.path[d].node.ContentSize()
}

// Before returns the position directly before the ancestor at depth d >= 1.
func (r *ResolvedPos) Before(d int) int { return r.Start(d) - 1 }

// After returns the position directly after the ancestor at depth d >= 1.
func (r *ResolvedPos) After(d int) int { return r.End(d) + 1 }

// ParentOffset returns the offset of the position into its parent.
func (r *ResolvedPos) ParentOffset() int { return r.pos - r.Start(r.Depth()) }

// TextOffset returns the offset into a text node when the position is
// strictly inside one, else 0.
func (r *ResolvedPos) TextOffset() int { return r.textOffset }

// NodeAfter returns the node directly after the position, cut when the
// position is inside a text node.
func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth())
	if index >= parent.ChildCount() {
		return nil
	}
	child := parent.Child(index)
	if r.textOffset > 0 {
		return child.Cut(r.textOffset, child.size)
	}
	return child
}

// NodeBefore returns the node directly before the position.
func (r *ResolvedPos) NodeBefore() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth())
	if r.textOffset > 0 {
		return parent.Child(index).Cut(0, r.textOffset)
	}
	if index == 0 {
		return nil
	}
	return parent.Child(index - 1)
}

// PosAtIndex returns the position before child index of the ancestor at depth d.
func (r *ResolvedPos) PosAtIndex(index, d int) int {
	d = r.depth(d)
	return r.path[d].start + r.path[d].node.ChildOffset(index)
}

// SharedDepth returns the depth of the deepest ancestor that also
// contains pos.
func (r *ResolvedPos) SharedDepth(pos int) int {
	for d := r.Depth(); d > 0; d-- {
		if r.Start(d) <= pos && r.End(d) >= pos {
			return d
		}
	}
	return 0
}

// Marks returns the marks active at the position: those of the text
// before it, or of the text after it at the start of a textblock.
func (r *ResolvedPos) Marks() MarkSet {
	if r.textOffset > 0 {
		return r.Parent().Child(r.Index(r.Depth())).marks
	}
	if before := r.NodeBefore(); before != nil {
		if before.IsText() {
			return before.marks
		}
		return nil
	}
	if after := r.NodeAfter(); after != nil && after.IsText() {
		return after.marks
	}
	return nil
}

// NodeAt returns the innermost node whose range strictly contains pos.
// It returns nil at a boundary between top-level blocks.
func NodeAt(doc *Node, pos int) (*Node, error) {
	rp, err := Resolve(doc, pos)
	if err != nil {
		return nil, err
	}
	if rp.textOffset > 0 {
		return rp.Parent().Child(rp.Index(rp.Depth())), nil
	}
	if rp.Depth() == 0 {
		return nil, nil
	}
	return rp.Parent(), nil
}

// NodeStartingAt returns the node directly after pos.
func NodeStartingAt(doc *Node, pos int) (*Node, error) {
	rp, err := Resolve(doc, pos)
	if err != nil {
		return nil, err
	}
	if rp.textOffset > 0 {
		return nil, nil
	}
	return rp.NodeAfter(), nil
}
