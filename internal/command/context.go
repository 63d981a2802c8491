package command

import (
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/selection"
)

// nodeRef locates a node in a document.
type nodeRef struct {
	node   *model.Node
	pos    int // position before the node
	parent *model.Node
	index  int // index of node in parent
}

func (r nodeRef) end() int { return r.pos + r.node.NodeSize() }

// contentStart is the first position inside the node.
func (r nodeRef) contentStart() int { return r.pos + 1 }

// ancestors returns the nodes around the selection, innermost first. A
// node selection yields the selected node first. A cursor between
// top-level blocks yields the block after it, or before it at the end.
func ancestors(doc *model.Node, sel selection.Selection) ([]nodeRef, error) {
	pos := sel.Head
	if sel.IsNode() {
		pos = sel.From()
	}
	rp, err := model.Resolve(doc, pos)
	if err != nil {
		return nil, err
	}

	var out []nodeRef
	if sel.IsNode() || rp.Depth() == 0 {
		d := rp.Depth()
		parent, index := rp.Parent(), rp.Index(d)
		if rp.TextOffset() == 0 {
			if after := rp.NodeAfter(); after != nil {
				out = append(out, nodeRef{node: after, pos: pos, parent: parent, index: index})
			} else if before := rp.NodeBefore(); before != nil && d == 0 {
				out = append(out, nodeRef{node: before, pos: pos - before.NodeSize(), parent: parent, index: index - 1})
			}
		}
	}
	for d := rp.Depth(); d > 0; d-- {
		out = append(out, nodeRef{
			node:   rp.Node(d),
			pos:    rp.Before(d),
			parent: rp.Node(d - 1),
			index:  rp.Index(d - 1),
		})
	}
	return out, nil
}

// find returns the innermost ancestor accepted by match.
func find(doc *model.Node, sel selection.Selection, match func(*model.Node) bool) (nodeRef, bool) {
	refs, err := ancestors(doc, sel)
	if err != nil {
		return nodeRef{}, false
	}
	for _, r := range refs {
		if match(r.node) {
			return r, true
		}
	}
	return nodeRef{}, false
}

// currentBlock returns the innermost node in the block group around the
// selection.
func currentBlock(doc *model.Node, sel selection.Selection) (nodeRef, error) {
	r, ok := find(doc, sel, func(n *model.Node) bool { return n.Type().InGroup("block") })
	if !ok {
		return nodeRef{}, failf("no block at selection")
	}
	return r, nil
}

// ofType returns the innermost ancestor of the named type.
func ofType(doc *model.Node, sel selection.Selection, name string) (nodeRef, bool) {
	return find(doc, sel, func(n *model.Node) bool { return n.Type().Name() == name })
}

// textblock returns the innermost textblock around the selection.
func textblock(doc *model.Node, sel selection.Selection) (nodeRef, bool) {
	return find(doc, sel, (*model.Node).IsTextblock)
}

// focus returns a cursor at the first text position inside the node
// spanning [from, to), or a node selection when it holds no text.
func focus(doc *model.Node, from, to int) selection.Selection {
	if p := selection.NearTextPos(doc, from, 1); p > from && p < to {
		return selection.Cursor(p)
	}
	if sel, err := selection.NodeSelectionAt(doc, from); err == nil {
		return sel
	}
	return selection.Cursor(selection.NearTextPos(doc, from, 1))
}

// shift moves sel by delta when it lies within [from, to), and otherwise
// focuses the node at [from+delta, to+delta) in doc.
func shift(doc *model.Node, sel selection.Selection, from, to, delta int) selection.Selection {
	if sel.From() >= from && sel.To() <= to {
		return selection.Selection{Kind: sel.Kind, Anchor: sel.Anchor + delta, Head: sel.Head + delta}
	}
	return focus(doc, from+delta, to+delta)
}
