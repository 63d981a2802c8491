package model

import (
	"fmt"
	"strings"

	"github.com/dshills/folio/internal/engine/schema"
)

// SetAttr sets one attribute on the node starting at pos.
func SetAttr(doc *Node, pos int, name string, value any) (*Node, *StepMap, error) {
	rp, err := Resolve(doc, pos)
	if err != nil {
		return nil, nil, err
	}
	node := rp.NodeAfter()
	if node == nil || rp.TextOffset() > 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrNoNode, pos)
	}
	if node.IsText() {
		return nil, nil, fmt.Errorf("model: cannot set attribute %q on text at %d", name, pos)
	}
	attrs := copyAttrs(node.attrs)
	if attrs == nil {
		attrs = make(map[string]any, 1)
	}
	attrs[name] = value
	computed, err := node.typ.ComputeAttrs(attrs)
	if err != nil {
		return nil, nil, err
	}
	d := rp.Depth()
	parent := rp.Parent()
	children := make([]*Node, len(parent.content))
	copy(children, parent.content)
	children[rp.Index(d)] = node.withAttrs(computed)
	return rebuild(rp, d, parent.withContent(children)), IdentityMap, nil
}

// BlockRange is a run of sibling nodes covering a position range.
type BlockRange struct {
	// Depth is the depth of the parent holding the run.
	Depth int

	// Parent holds the run.
	Parent *Node

	// StartIndex and EndIndex bound the run [StartIndex, EndIndex).
	StartIndex, EndIndex int

	// Start and End are the positions before the first and after the last node.
	Start, End int
}

// Nodes returns the nodes of the run.
func (r *BlockRange) Nodes() []*Node {
	return append([]*Node(nil), r.Parent.content[r.StartIndex:r.EndIndex]...)
}

// FindBlockRange returns the sibling run of blocks covering [from, to). A range
// inside a single textblock covers that textblock. It fails with
// ErrIsolating when the range crosses an isolating node boundary.
func FindBlockRange(doc *Node, from, to int) (*BlockRange, error) {
	if from > to {
		from, to = to, from
	}
	rf, err := Resolve(doc, from)
	if err != nil {
		return nil, err
	}
	rt, err := Resolve(doc, to)
	if err != nil {
		return nil, err
	}
	shared := rf.SharedDepth(to)
	for k := shared + 1; k <= rf.Depth(); k++ {
		if rf.Node(k).typ.IsIsolating() {
			return nil, fmt.Errorf("%w: %s at %d", ErrIsolating, rf.Node(k).typ.Name(), rf.Before(k))
		}
	}
	for k := shared + 1; k <= rt.Depth(); k++ {
		if rt.Node(k).typ.IsIsolating() {
			return nil, fmt.Errorf("%w: %s at %d", ErrIsolating, rt.Node(k).typ.Name(), rt.Before(k))
		}
	}
	d := shared
	if d > 0 && (rf.Node(d).IsTextblock() || rf.Node(d).ChildCount() == 0) {
		d--
	}
	parent := rf.Node(d)
	startIndex := rf.Index(d)
	endIndex := rt.IndexAfter(d)
	if endIndex <= startIndex {
		endIndex = startIndex + 1
	}
	if endIndex > parent.ChildCount() {
		return nil, fmt.Errorf("%w: no block at %d", ErrNoNode, from)
	}
	return &BlockRange{
		Depth:      d,
		Parent:     parent,
		StartIndex: startIndex,
		EndIndex:   endIndex,
		Start:      rf.PosAtIndex(startIndex, d),
		End:        rf.PosAtIndex(endIndex, d),
	}, nil
}

// Wrap wraps the block range covering [from, to) in a new node of type t.
func Wrap(doc *Node, from, to int, t *schema.NodeType, attrs map[string]any) (*Node, *StepMap, error) {
	br, err := FindBlockRange(doc, from, to)
	if err != nil {
		return nil, nil, err
	}
	wrapper, err := NewNode(t, attrs, br.Nodes()...)
	if err != nil {
		return nil, nil, err
	}
	children := make([]*Node, 0, br.Parent.ChildCount()-(br.EndIndex-br.StartIndex)+1)
	children = append(children, br.Parent.content[:br.StartIndex]...)
	children = append(children, wrapper)
	children = append(children, br.Parent.content[br.EndIndex:]...)
	updated := br.Parent.withContent(children)
	if err := updated.checkContent(); err != nil {
		return nil, nil, err
	}
	rp, err := Resolve(doc, br.Start)
	if err != nil {
		return nil, nil, err
	}
	return rebuild(rp, br.Depth, updated), NewStepMap(br.Start, 0, 1, br.End, 0, 1), nil
}

// TextblockSegments splits [from, to) into the parts that fall inside
// individual textblocks.
func TextblockSegments(doc *Node, from, to int) [][2]int {
	var out [][2]int
	doc.Descendants(func(n *Node, pos int, _ *Node, _ int) bool {
		end := pos + n.size
		if end <= from || pos >= to {
			return false
		}
		if n.IsTextblock() {
			s, e := max(from, pos+1), min(to, end-1)
			if s < e {
				out = append(out, [2]int{s, e})
			}
			return false
		}
		return true
	})
	return out
}

// TextBetween returns the text in [from, to), joining the parts from
// different textblocks with sep.
func (n *Node) TextBetween(from, to int, sep string) string {
	var parts []string
	for _, seg := range TextblockSegments(n, from, to) {
		rp, err := Resolve(n, seg[0])
		if err != nil {
			continue
		}
		start := rp.Start(rp.Depth())
		parts = append(parts, rp.Parent().Cut(seg[0]-start, seg[1]-start).TextContent())
	}
	return strings.Join(parts, sep)
}

// AddMark adds mark to all text in [from, to) whose parent allows it.
func AddMark(doc *Node, from, to int, mark *Mark) (*Node, *StepMap, error) {
	return updateMarks(doc, from, to, mark.typ, func(s MarkSet) MarkSet { return s.add(mark) })
}

// RemoveMark removes marks of type t from text in [from, to). A nil t
// removes every mark.
func RemoveMark(doc *Node, from, to int, t *schema.MarkType) (*Node, *StepMap, error) {
	return updateMarks(doc, from, to, nil, func(s MarkSet) MarkSet { return s.remove(t) })
}

func updateMarks(doc *Node, from, to int, check *schema.MarkType, fn func(MarkSet) MarkSet) (*Node, *StepMap, error) {
	if from > to {
		return nil, nil, fmt.Errorf("model: mark range %d > %d", from, to)
	}
	if from < 0 || to > doc.ContentSize() {
		return nil, nil, &OutOfRangeError{Pos: to, Size: doc.ContentSize()}
	}
	return markChildren(doc, 0, from, to, check, fn), IdentityMap, nil
}

// markChildren rewrites the marks of text in [from, to) below n, whose
// content starts at base.
func markChildren(n *Node, base, from, to int, check *schema.MarkType, fn func(MarkSet) MarkSet) *Node {
	var children []*Node
	changed := false
	pos := base
	for _, c := range n.content {
		end := pos + c.size
		next := c
		if end > from && pos < to {
			switch {
			case c.IsText():
				if check == nil || n.typ.AllowsMark(check) {
					next = nil
					s, e := max(from-pos, 0), min(to-pos, c.size)
					if s > 0 {
						children = append(children, c.Cut(0, s))
					}
					children = append(children, c.Cut(s, e).withMarks(fn(c.marks)))
					if e < c.size {
						children = append(children, c.Cut(e, c.size))
					}
					changed = true
				}
			case !c.IsLeaf():
				next = markChildren(c, pos+1, from, to, check, fn)
				changed = changed || next != c
			}
		}
		if next != nil {
			children = append(children, next)
		}
		pos = end
	}
	if !changed {
		return n
	}
	return n.withContent(children)
}
