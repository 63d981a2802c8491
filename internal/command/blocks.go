package command

import (
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/preset"
)

// nodeType looks up a node type by name.
func nodeType(reg *schema.Registry, name string) (*schema.NodeType, error) {
	if name == "" {
		return nil, failf("missing node type")
	}
	nt, ok := reg.Node(name)
	if !ok {
		return nil, failf("unknown node type %q", name)
	}
	return nt, nil
}

// duplicateNode inserts a deep copy of the current block right after it
// and moves the selection to the same place inside the copy.
func duplicateNode(st engine.State, _ Params) (*transform.Transaction, error) {
	b, err := currentBlock(st.Doc, st.Selection)
	if err != nil {
		return nil, err
	}
	tr := st.NewTransaction()
	if err := tr.Insert(b.end(), b.node.Copy()); err != nil {
		return nil, err
	}
	size := b.node.NodeSize()
	sel := st.Selection
	if sel.IsNode() && sel.From() == b.pos {
		ns, err := selection.NodeSelectionAt(tr.Doc(), b.end())
		if err != nil {
			return nil, err
		}
		tr.SetSelection(ns)
	} else {
		tr.SetSelection(shift(tr.Doc(), sel, b.pos, b.end(), size))
	}
	return tr, nil
}

// deleteNode removes the current block. The selection moves to the
// following sibling, or to the parent when there is none. A block that is
// the only child of its parent is replaced by the parent's default content.
func deleteNode(st engine.State, _ Params) (*transform.Transaction, error) {
	b, err := currentBlock(st.Doc, st.Selection)
	if err != nil {
		return nil, err
	}
	tr := st.NewTransaction()

	if b.parent.ChildCount() == 1 {
		fill, err := defaultChildren(b.parent.Type())
		if err != nil {
			return nil, err
		}
		if err := tr.Replace(b.pos, b.end(), fill...); err != nil {
			return nil, err
		}
		tr.SetSelection(focus(tr.Doc(), b.pos, b.pos+sizeOf(fill)))
		return tr, nil
	}

	if err := tr.Replace(b.pos, b.end()); err != nil {
		return nil, err
	}
	doc := tr.Doc()
	if b.index < b.parent.ChildCount()-1 {
		next := b.parent.Child(b.index + 1)
		tr.SetSelection(focus(doc, b.pos, b.pos+next.NodeSize()))
		return tr, nil
	}
	if parent, ok := parentRef(st.Doc, st.Selection, b); ok {
		if sel, err := selection.NodeSelectionAt(doc, parent.pos); err == nil {
			tr.SetSelection(sel)
			return tr, nil
		}
	}
	tr.SetSelection(selection.Cursor(selection.NearTextPos(doc, b.pos, -1)))
	return tr, nil
}

// parentRef returns the ancestor directly containing b, if it is not the
// document root.
func parentRef(doc *model.Node, sel selection.Selection, b nodeRef) (nodeRef, bool) {
	refs, err := ancestors(doc, sel)
	if err != nil {
		return nodeRef{}, false
	}
	for i, r := range refs {
		if r.pos == b.pos && r.node == b.node && i+1 < len(refs) {
			return refs[i+1], true
		}
	}
	return nodeRef{}, false
}

func defaultChildren(t *schema.NodeType) ([]*model.Node, error) {
	types, err := t.DefaultContent()
	if err != nil {
		return nil, err
	}
	out := make([]*model.Node, 0, len(types))
	for _, ct := range types {
		n, err := model.CreateAndFill(ct, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func sizeOf(nodes []*model.Node) int {
	n := 0
	for _, node := range nodes {
		n += node.NodeSize()
	}
	return n
}

// insertBlockAfter inserts a default-content node of the given type right
// after the current block and focuses its start.
//
// Params: type (default paragraph), attrs, text.
func insertBlockAfter(st engine.State, p Params) (*transform.Transaction, error) {
	node, err := newBlock(st.Schema, p.String("type", preset.Paragraph), p.Attrs("attrs"), p.String("text", ""))
	if err != nil {
		return nil, err
	}
	return insertNode(st, node, false)
}

// newBlock creates a node of the named type filled with default content,
// or with text when the type is a textblock.
func newBlock(reg *schema.Registry, name string, attrs map[string]any, text string) (*model.Node, error) {
	nt, err := nodeType(reg, name)
	if err != nil {
		return nil, err
	}
	if nt.IsInline() {
		return nil, failf("%s is not a block type", name)
	}
	if text != "" && nt.IsTextblock() {
		t, err := model.NewText(reg.Text(), text)
		if err != nil {
			return nil, err
		}
		return model.NewNode(nt, attrs, t)
	}
	return model.CreateAndFill(nt, attrs)
}

// insertNode inserts node after the current block, or in place of it when
// replaceEmpty is set and the block is an empty paragraph, and focuses it.
func insertNode(st engine.State, node *model.Node, replaceEmpty bool) (*transform.Transaction, error) {
	b, err := currentBlock(st.Doc, st.Selection)
	if err != nil {
		return nil, err
	}
	tr := st.NewTransaction()
	at := b.end()
	if replaceEmpty && b.node.Type().Name() == preset.Paragraph && b.node.ChildCount() == 0 {
		at = b.pos
		err = tr.Replace(b.pos, b.end(), node)
	} else {
		err = tr.Insert(at, node)
	}
	if err != nil {
		return nil, err
	}
	tr.SetSelection(focus(tr.Doc(), at, at+node.NodeSize()))
	return tr, nil
}

// moveNode swaps the current block with its previous (dir < 0) or next
// sibling, carrying the selection along.
func moveNode(dir int) Command {
	return func(st engine.State, _ Params) (*transform.Transaction, error) {
		b, err := currentBlock(st.Doc, st.Selection)
		if err != nil {
			return nil, err
		}
		tr := st.NewTransaction()
		if dir < 0 {
			if b.index == 0 {
				return nil, failf("block is already first")
			}
			prev := b.parent.Child(b.index - 1)
			from := b.pos - prev.NodeSize()
			if err := tr.Replace(from, b.end(), b.node, prev); err != nil {
				return nil, err
			}
			tr.SetSelection(shift(tr.Doc(), st.Selection, b.pos, b.end(), from-b.pos))
			return tr, nil
		}
		if b.index >= b.parent.ChildCount()-1 {
			return nil, failf("block is already last")
		}
		next := b.parent.Child(b.index + 1)
		if err := tr.Replace(b.pos, b.end()+next.NodeSize(), next, b.node); err != nil {
			return nil, err
		}
		tr.SetSelection(shift(tr.Doc(), st.Selection, b.pos, b.end(), next.NodeSize()))
		return tr, nil
	}
}

// turnInto converts the current textblock to another textblock type, or
// wraps the selected blocks in a container type. List types toggle a list.
//
// Params: type (required), attrs, level (headings).
func turnInto(st engine.State, p Params) (*transform.Transaction, error) {
	name := p.String("type", "")
	nt, err := nodeType(st.Schema, name)
	if err != nil {
		return nil, err
	}
	attrs := p.Attrs("attrs")
	if name == preset.Heading && p.Has("level") {
		if attrs == nil {
			attrs = map[string]any{}
		}
		attrs["level"] = p.Int("level", 1)
	}

	switch {
	case nt.InGroup("list"):
		return toggleList(st, Params{"type": name})
	case nt.IsTextblock():
		return convertTextblock(st, nt, attrs)
	case nt.IsAtom() || nt.IsInline():
		return nil, failf("cannot turn text into %s", name)
	}

	tr := st.NewTransaction()
	if err := tr.Wrap(st.Selection.From(), st.Selection.To(), nt, attrs); err != nil {
		return nil, err
	}
	return tr, nil
}

// convertTextblock replaces the textblock around the selection with one of
// type nt holding the same inline content. Marks and hard breaks are
// flattened when nt does not allow them, so sizes and positions are kept.
func convertTextblock(st engine.State, nt *schema.NodeType, attrs map[string]any) (*transform.Transaction, error) {
	b, ok := textblock(st.Doc, st.Selection)
	if !ok {
		return nil, failf("no textblock at selection")
	}
	children := b.node.Children()
	if !allowsInline(nt, children) {
		if text := flatText(b.node); text != "" {
			t, err := model.NewText(st.Schema.Text(), text)
			if err != nil {
				return nil, err
			}
			children = []*model.Node{t}
		} else {
			children = nil
		}
	}
	converted, err := model.NewNode(nt, attrs, children...)
	if err != nil {
		return nil, err
	}
	tr := st.NewTransaction()
	if err := tr.Replace(b.pos, b.end(), converted); err != nil {
		return nil, err
	}
	tr.SetSelection(st.Selection)
	return tr, nil
}

// allowsInline reports whether nodes can be children of nt unchanged.
func allowsInline(nt *schema.NodeType, nodes []*model.Node) bool {
	types := make([]*schema.NodeType, len(nodes))
	for i, n := range nodes {
		types[i] = n.Type()
		for _, m := range n.Marks() {
			if !nt.AllowsMark(m.Type()) {
				return false
			}
		}
	}
	return nt.ValidContent(types)
}

// flatText returns the textblock's text with hard breaks as newlines.
func flatText(n *model.Node) string {
	var s string
	for _, c := range n.Children() {
		if c.IsText() {
			s += c.Text()
		} else {
			s += "\n"
		}
	}
	return s
}

// toggleList wraps the current paragraph in a list, switches the list
// around it to another list type, or lifts its item out of the list.
//
// Params: type (bulletList or orderedList, default bulletList).
func toggleList(st engine.State, p Params) (*transform.Transaction, error) {
	name := p.String("type", preset.BulletList)
	listType, err := nodeType(st.Schema, name)
	if err != nil {
		return nil, err
	}
	if !listType.InGroup("list") {
		return nil, failf("%s is not a list type", name)
	}
	itemType, err := nodeType(st.Schema, preset.ListItem)
	if err != nil {
		return nil, err
	}

	tr := st.NewTransaction()
	item, inList := ofType(st.Doc, st.Selection, preset.ListItem)
	if !inList {
		b, ok := ofType(st.Doc, st.Selection, preset.Paragraph)
		if !ok {
			return nil, failf("lists wrap paragraphs")
		}
		li, err := model.NewNode(itemType, nil, b.node)
		if err != nil {
			return nil, err
		}
		list, err := model.NewNode(listType, nil, li)
		if err != nil {
			return nil, err
		}
		if err := tr.Replace(b.pos, b.end(), list); err != nil {
			return nil, err
		}
		tr.SetSelection(shift(tr.Doc(), st.Selection, b.pos, b.end(), 2))
		return tr, nil
	}

	list := nodeRef{node: item.parent, pos: item.pos - item.parent.ChildOffset(item.index) - 1}

	if item.parent.Type() != listType {
		switched, err := model.NewNode(listType, nil, item.parent.Children()...)
		if err != nil {
			return nil, err
		}
		if err := tr.Replace(list.pos, list.end(), switched); err != nil {
			return nil, err
		}
		tr.SetSelection(st.Selection)
		return tr, nil
	}

	items := item.parent.Children()
	var lifted []*model.Node
	before := 0
	if item.index > 0 {
		head, err := model.NewNode(item.parent.Type(), item.parent.Attrs(), items[:item.index]...)
		if err != nil {
			return nil, err
		}
		lifted = append(lifted, head)
		before = head.NodeSize()
	}
	lifted = append(lifted, item.node.Children()...)
	if item.index < len(items)-1 {
		tail, err := model.NewNode(item.parent.Type(), item.parent.Attrs(), items[item.index+1:]...)
		if err != nil {
			return nil, err
		}
		lifted = append(lifted, tail)
	}
	if err := tr.Replace(list.pos, list.end(), lifted...); err != nil {
		return nil, err
	}
	delta := list.pos + before - item.contentStart()
	tr.SetSelection(shift(tr.Doc(), st.Selection, item.contentStart(), item.end()-1, delta))
	return tr, nil
}

// copyNode selects the current block and hands a copy of it to the
// dispatcher's clipboard. The document is unchanged.
func copyNode(st engine.State, _ Params) (*transform.Transaction, error) {
	b, err := currentBlock(st.Doc, st.Selection)
	if err != nil {
		return nil, err
	}
	tr := st.NewTransaction()
	tr.SetMeta(MetaClipboard, b.node.Copy())
	if sel, err := selection.NodeSelectionAt(st.Doc, b.pos); err == nil {
		tr.SetSelection(sel)
	}
	return tr, nil
}

// pasteNode inserts a copy of the node parameter, or the clipboard, after
// the current block.
//
// Params: node (*model.Node), clipboard.
func pasteNode(st engine.State, p Params) (*transform.Transaction, error) {
	n := p.Node("node")
	if n == nil {
		n = p.Node(ParamClipboard)
	}
	if n == nil {
		return nil, failf("clipboard is empty")
	}
	if nt, ok := st.Schema.Node(n.Type().Name()); !ok || nt != n.Type() {
		return nil, failf("node %s belongs to another schema", n.Type().Name())
	}
	return insertNode(st, n.Copy(), true)
}
