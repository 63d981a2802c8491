package model

import "fmt"

// Replace replaces the flat range [from, to) with nodes. Both ends must lie
// in the same parent. Text nodes at the edges are split as needed.
func Replace(doc *Node, from, to int, nodes []*Node) (*Node, *StepMap, error) {
	if from > to {
		return nil, nil, fmt.Errorf("model: replace range %d > %d", from, to)
	}
	rf, err := Resolve(doc, from)
	if err != nil {
		return nil, nil, err
	}
	rt, err := Resolve(doc, to)
	if err != nil {
		return nil, nil, err
	}
	d := rf.Depth()
	if rt.Depth() != d || rt.Start(d) != rf.Start(d) {
		return nil, nil, fmt.Errorf("%w: %d..%d", ErrCrossParent, from, to)
	}
	inserted := 0
	for _, n := range nodes {
		if err := n.Check(); err != nil {
			return nil, nil, err
		}
		inserted += n.size
	}
	parent := rf.Parent()
	children := cutChildren(parent.content, 0, rf.ParentOffset())
	children = append(children, nodes...)
	children = append(children, cutChildren(parent.content, rt.ParentOffset(), parent.contentSize)...)
	updated := parent.withContent(children)
	if err := updated.checkContent(); err != nil {
		return nil, nil, err
	}
	return rebuild(rf, d, updated), NewStepMap(from, to-from, inserted), nil
}

// Insert inserts nodes at pos.
func Insert(doc *Node, pos int, nodes ...*Node) (*Node, *StepMap, error) {
	return Replace(doc, pos, pos, nodes)
}

// Slice returns the content between two positions in the same parent.
func Slice(doc *Node, from, to int) ([]*Node, error) {
	rf, err := Resolve(doc, from)
	if err != nil {
		return nil, err
	}
	rt, err := Resolve(doc, to)
	if err != nil {
		return nil, err
	}
	d := rf.Depth()
	if rt.Depth() != d || rt.Start(d) != rf.Start(d) {
		return nil, fmt.Errorf("%w: %d..%d", ErrCrossParent, from, to)
	}
	return cutChildren(rf.Parent().content, rf.ParentOffset(), rt.ParentOffset()), nil
}

// rebuild returns the document in which the ancestor at depth d of rp is
// replaced by node.
func rebuild(rp *ResolvedPos, d int, node *Node) *Node {
	for k := d - 1; k >= 0; k-- {
		parent := rp.Node(k)
		children := make([]*Node, len(parent.content))
		copy(children, parent.content)
		children[rp.Index(k)] = node
		node = parent.withContent(children)
	}
	return node
}

// Deletion is the result of DeleteRange.
type Deletion struct {
	// Doc is the document after the deletion.
	Doc *Node

	// Map maps positions of the original document into Doc.
	Map *StepMap

	// From and To are the effective range after isolating truncation
	// and atom expansion.
	From, To int

	// Replacing [RestoreFrom, RestoreTo) in Doc with Removed restores
	// the original document.
	RestoreFrom, RestoreTo int
	Removed                []*Node
}

// EffectiveDeleteRange adjusts [from, to) so it never crosses an isolating
// boundary and never partially covers an atom.
func EffectiveDeleteRange(doc *Node, from, to int) (int, int, error) {
	if from > to {
		return 0, 0, fmt.Errorf("model: delete range %d > %d", from, to)
	}
	for from < to {
		rf, err := Resolve(doc, from)
		if err != nil {
			return 0, 0, err
		}
		rt, err := Resolve(doc, to)
		if err != nil {
			return 0, 0, err
		}
		shared := rf.SharedDepth(to)
		nf, nt := from, to
		for k := shared + 1; k <= rf.Depth(); k++ {
			if rf.Node(k).IsAtom() {
				nf = rf.Before(k)
				break
			}
		}
		for k := shared + 1; k <= rt.Depth(); k++ {
			if rt.Node(k).IsAtom() {
				nt = rt.After(k)
				break
			}
		}
		if nf == from && nt == to {
			for k := shared + 1; k <= rf.Depth(); k++ {
				if rf.Node(k).typ.IsIsolating() {
					nt = rf.End(k)
					break
				}
			}
		}
		if nf == from && nt == to {
			for k := shared + 1; k <= rt.Depth(); k++ {
				if rt.Node(k).typ.IsIsolating() {
					nf = rt.Start(k)
					break
				}
			}
		}
		if nf == from && nt == to {
			break
		}
		from, to = nf, nt
	}
	return from, to, nil
}

// DeleteRange deletes [from, to). When the ends lie in different parents,
// the open nodes at both edges are joined where the schema allows.
func DeleteRange(doc *Node, from, to int) (*Deletion, error) {
	from, to, err := EffectiveDeleteRange(doc, from, to)
	if err != nil {
		return nil, err
	}
	if from >= to {
		return &Deletion{Doc: doc, Map: IdentityMap, From: from, To: from, RestoreFrom: from, RestoreTo: from}, nil
	}
	rf, err := Resolve(doc, from)
	if err != nil {
		return nil, err
	}
	rt, err := Resolve(doc, to)
	if err != nil {
		return nil, err
	}
	d := rf.SharedDepth(to)
	if rf.Depth() == d && rt.Depth() == d {
		removed := cutChildren(rf.Parent().content, rf.ParentOffset(), rt.ParentOffset())
		out, m, err := Replace(doc, from, to, nil)
		if err != nil {
			return nil, err
		}
		return &Deletion{Doc: out, Map: m, From: from, To: to, RestoreFrom: from, RestoreTo: from, Removed: removed}, nil
	}

	parent := rf.Node(d)
	start := rf.Start(d)
	left := cutChildren(parent.content, 0, from-start)
	right := cutChildren(parent.content, to-start, parent.contentSize)
	children := make([]*Node, 0, len(left)+len(right))
	da, db := rf.Depth()-d, rt.Depth()-d
	if da > 0 && db > 0 && len(left) > 0 && len(right) > 0 {
		children = append(children, left[:len(left)-1]...)
		children = append(children, joinOpen(left[len(left)-1], right[0], da, db)...)
		children = append(children, right[1:]...)
	} else {
		children = append(children, left...)
		children = append(children, right...)
	}
	updated := parent.withContent(children)
	if err := updated.checkContent(); err != nil {
		return nil, err
	}

	first := rf.Index(d)
	last := rt.Index(d)
	if rt.Depth() == d && rt.TextOffset() == 0 {
		last--
	}
	removed := parent.content[first : last+1]
	for _, n := range updated.content {
		if err := n.Check(); err != nil {
			return nil, err
		}
	}
	out := rebuild(rf, d, updated)
	delta := doc.ContentSize() - out.ContentSize()
	oldSpan := 0
	for _, n := range removed {
		oldSpan += n.size
	}
	restoreFrom := rf.PosAtIndex(first, d)
	return &Deletion{
		Doc:         out,
		Map:         NewStepMap(from, to-from, to-from-delta),
		From:        from,
		To:          to,
		RestoreFrom: restoreFrom,
		RestoreTo:   restoreFrom + oldSpan - delta,
		Removed:     append([]*Node(nil), removed...),
	}, nil
}

// joinOpen joins the open right edge of a with the open left edge of b,
// descending while both sides stay open.
func joinOpen(a, b *Node, da, db int) []*Node {
	if da == 0 || db == 0 || a.IsText() || b.IsText() || a.IsLeaf() || b.IsLeaf() {
		return []*Node{a, b}
	}
	if a.typ.IsIsolating() || b.typ.IsIsolating() {
		return []*Node{a, b}
	}
	var inner []*Node
	if da > 1 && db > 1 && len(a.content) > 0 && len(b.content) > 0 {
		inner = append(inner, a.content[:len(a.content)-1]...)
		inner = append(inner, joinOpen(a.content[len(a.content)-1], b.content[0], da-1, db-1)...)
		inner = append(inner, b.content[1:]...)
	} else {
		inner = append(inner, a.content...)
		inner = append(inner, b.content...)
	}
	joined := a.withContent(inner)
	if joined.checkContent() != nil {
		return []*Node{a, b}
	}
	return []*Node{joined}
}
