package selection

import (
	"fmt"

	"github.com/dshills/folio/internal/engine/model"
)

// Kind distinguishes text and node selections.
type Kind uint8

const (
	// KindText is a text range or cursor.
	KindText Kind = iota
	// KindNode selects a single node.
	KindNode
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindNode {
		return "node"
	}
	return "text"
}

// Selection is a text range or a selected node.
type Selection struct {
	Kind   Kind
	Anchor int
	Head   int
}

// Text creates a text selection from anchor to head.
func Text(anchor, head int) Selection {
	return Selection{Kind: KindText, Anchor: anchor, Head: head}
}

// Cursor creates an empty text selection at pos.
func Cursor(pos int) Selection {
	return Selection{Kind: KindText, Anchor: pos, Head: pos}
}

// NodeSelectionAt selects the node starting at pos.
func NodeSelectionAt(doc *model.Node, pos int) (Selection, error) {
	rp, err := model.Resolve(doc, pos)
	if err != nil {
		return Selection{}, err
	}
	n := rp.NodeAfter()
	if n == nil || rp.TextOffset() > 0 {
		return Selection{}, &NotSelectableError{Pos: pos}
	}
	if !n.Type().IsSelectable() {
		return Selection{}, &NotSelectableError{Pos: pos, Type: n.Type().Name()}
	}
	return Selection{Kind: KindNode, Anchor: pos, Head: pos + n.NodeSize()}, nil
}

// AtStart returns a cursor at the first text position of doc, or at 0
// when the document has no textblock.
func AtStart(doc *model.Node) Selection {
	return Cursor(NearTextPos(doc, 0, 1))
}

// AtEnd returns a cursor at the last text position of doc.
func AtEnd(doc *model.Node) Selection {
	size := doc.ContentSize()
	return Cursor(NearTextPos(doc, size, -1))
}

// NearTextPos returns the closest position inside a textblock, searching
// in direction dir first (1 forward, -1 backward) and then the other way.
// It returns pos clamped to the document when there is no textblock.
func NearTextPos(doc *model.Node, pos, dir int) int {
	pos = clamp(pos, doc.ContentSize())
	if inTextblock(doc, pos) {
		return pos
	}
	var before, after = -1, -1
	doc.Descendants(func(n *model.Node, p int, _ *model.Node, _ int) bool {
		if !n.IsTextblock() {
			return true
		}
		start, end := p+1, p+n.NodeSize()-1
		if end <= pos {
			before = end
		} else if after < 0 && start >= pos {
			after = start
		}
		return false
	})
	first, second := after, before
	if dir < 0 {
		first, second = before, after
	}
	if first >= 0 {
		return first
	}
	if second >= 0 {
		return second
	}
	return pos
}

func inTextblock(doc *model.Node, pos int) bool {
	rp, err := model.Resolve(doc, pos)
	if err != nil {
		return false
	}
	return rp.Parent().IsTextblock()
}

// IsNode reports whether the selection selects a node.
func (s Selection) IsNode() bool { return s.Kind == KindNode }

// Empty reports whether the selection is a cursor.
func (s Selection) Empty() bool { return s.Anchor == s.Head }

// From returns the lower bound.
func (s Selection) From() int { return min(s.Anchor, s.Head) }

// To returns the upper bound.
func (s Selection) To() int { return max(s.Anchor, s.Head) }

// IsBackward reports whether head is before anchor.
func (s Selection) IsBackward() bool { return s.Head < s.Anchor }

// Extend moves the head, turning the selection into a text selection.
func (s Selection) Extend(pos int) Selection {
	return Text(s.Anchor, pos)
}

// Collapse collapses the selection to a cursor at the head.
func (s Selection) Collapse() Selection { return Cursor(s.Head) }

// Flip swaps anchor and head.
func (s Selection) Flip() Selection {
	return Selection{Kind: s.Kind, Anchor: s.Head, Head: s.Anchor}
}

// Node returns the selected node for node selections.
func (s Selection) Node(doc *model.Node) *model.Node {
	if !s.IsNode() {
		return nil
	}
	n, err := model.NodeStartingAt(doc, s.From())
	if err != nil {
		return nil
	}
	return n
}

// Clamp clamps both ends into [0, doc.ContentSize()].
func (s Selection) Clamp(doc *model.Node) Selection {
	size := doc.ContentSize()
	return Selection{Kind: s.Kind, Anchor: clamp(s.Anchor, size), Head: clamp(s.Head, size)}
}

// Validate checks that the selection resolves in doc.
func (s Selection) Validate(doc *model.Node) error {
	if _, err := model.Resolve(doc, s.Anchor); err != nil {
		return err
	}
	if _, err := model.Resolve(doc, s.Head); err != nil {
		return err
	}
	if s.IsNode() {
		sel, err := NodeSelectionAt(doc, s.From())
		if err != nil {
			return err
		}
		if sel.To() != s.To() {
			return &NotSelectableError{Pos: s.From()}
		}
	}
	return nil
}

// Equals reports whether two selections are identical.
func (s Selection) Equals(other Selection) bool { return s == other }

// String returns a string representation of the selection.
func (s Selection) String() string {
	switch {
	case s.IsNode():
		return fmt.Sprintf("Node(%d-%d)", s.From(), s.To())
	case s.Empty():
		return fmt.Sprintf("Cursor(%d)", s.Head)
	case s.IsBackward():
		return fmt.Sprintf("Selection(%d←%d)", s.Anchor, s.Head)
	default:
		return fmt.Sprintf("Selection(%d→%d)", s.Anchor, s.Head)
	}
}

func clamp(pos, size int) int {
	if pos < 0 {
		return 0
	}
	if pos > size {
		return size
	}
	return pos
}
