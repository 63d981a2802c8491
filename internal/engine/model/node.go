package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/folio/internal/engine/schema"
)

// Node is an immutable element of the document tree.
type Node struct {
	typ         *schema.NodeType
	attrs       map[string]any
	content     []*Node
	text        string
	marks       MarkSet
	size        int
	contentSize int
}

// NewNode creates a non-text node with validated attributes and content.
func NewNode(t *schema.NodeType, attrs map[string]any, children ...*Node) (*Node, error) {
	if t.IsText() {
		return nil, fmt.Errorf("model: use NewText for %s", t.Name())
	}
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	n := newNode(t, computed, joinText(children), "", nil)
	if err := n.checkContent(); err != nil {
		return nil, err
	}
	return n, nil
}

// NewText creates a text node. Text must be non-empty.
func NewText(t *schema.NodeType, text string, marks ...*Mark) (*Node, error) {
	if !t.IsText() {
		return nil, fmt.Errorf("model: %s is not a text type", t.Name())
	}
	if text == "" {
		return nil, ErrEmptyText
	}
	return newNode(t, nil, nil, text, normalizeMarks(marks)), nil
}

// newNode builds a node without validation and computes its size.
func newNode(t *schema.NodeType, attrs map[string]any, content []*Node, text string, marks MarkSet) *Node {
	n := &Node{typ: t, attrs: attrs, content: content, text: text, marks: marks}
	switch {
	case t.IsText():
		n.size = graphemeLen(text)
	case t.IsLeaf():
		n.size = 1
	default:
		for _, c := range content {
			n.contentSize += c.size
		}
		n.size = n.contentSize + 2
	}
	return n
}

// withContent returns a copy of n holding the given children.
func (n *Node) withContent(children []*Node) *Node {
	return newNode(n.typ, n.attrs, joinText(children), "", nil)
}

// withText returns a copy of a text node with different text.
func (n *Node) withText(text string) *Node {
	return newNode(n.typ, nil, nil, text, n.marks)
}

// withMarks returns a copy of a text node with a different mark set.
func (n *Node) withMarks(marks MarkSet) *Node {
	return newNode(n.typ, nil, nil, n.text, marks)
}

// withAttrs returns a copy of n with different attributes.
func (n *Node) withAttrs(attrs map[string]any) *Node {
	return newNode(n.typ, attrs, n.content, n.text, n.marks)
}

// Type returns the node type.
func (n *Node) Type() *schema.NodeType { return n.typ }

// Attrs returns a copy of the attributes.
func (n *Node) Attrs() map[string]any { return copyAttrs(n.attrs) }

// Attr returns one attribute value.
func (n *Node) Attr(name string) any { return n.attrs[name] }

// AttrString returns a string attribute, or "" when absent or not a string.
func (n *Node) AttrString(name string) string {
	s, _ := n.attrs[name].(string)
	return s
}

// Text returns the text of a text node.
func (n *Node) Text() string { return n.text }

// Marks returns the marks of a text node.
func (n *Node) Marks() MarkSet { return n.marks }

// Children returns a copy of the child slice.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.content))
	copy(out, n.content)
	return out
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.content) }

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.content[i] }

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node {
	if len(n.content) == 0 {
		return nil
	}
	return n.content[0]
}

// LastChild returns the last child or nil.
func (n *Node) LastChild() *Node {
	if len(n.content) == 0 {
		return nil
	}
	return n.content[len(n.content)-1]
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.typ.IsText() }

// IsLeaf reports whether n accepts no children.
func (n *Node) IsLeaf() bool { return n.typ.IsLeaf() }

// IsAtom reports whether n is opaque.
func (n *Node) IsAtom() bool { return n.typ.IsAtom() }

// IsBlock reports whether n is block content.
func (n *Node) IsBlock() bool { return n.typ.IsBlock() }

// IsTextblock reports whether n is a block holding inline content.
func (n *Node) IsTextblock() bool { return n.typ.IsTextblock() }

// NodeSize returns the number of position tokens n occupies.
func (n *Node) NodeSize() int { return n.size }

// ContentSize returns the size of n's content.
func (n *Node) ContentSize() int {
	if n.IsText() {
		return n.size
	}
	return n.contentSize
}

// TextContent concatenates the text of all descendant text nodes.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.text
	}
	var sb strings.Builder
	for _, c := range n.content {
		sb.WriteString(c.TextContent())
	}
	return sb.String()
}

// ChildOffset returns the content offset at which child i starts.
func (n *Node) ChildOffset(i int) int {
	off := 0
	for j := 0; j < i && j < len(n.content); j++ {
		off += n.content[j].size
	}
	return off
}

// Equal reports whether two trees are structurally equal.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if n.typ != other.typ || n.text != other.text || !attrsEqual(n.attrs, other.attrs) {
		return false
	}
	if !n.marks.Equal(other.marks) || len(n.content) != len(other.content) {
		return false
	}
	for i := range n.content {
		if !n.content[i].Equal(other.content[i]) {
			return false
		}
	}
	return true
}

// Copy returns a deep structural copy of n.
func (n *Node) Copy() *Node {
	var children []*Node
	if len(n.content) > 0 {
		children = make([]*Node, len(n.content))
		for i, c := range n.content {
			children[i] = c.Copy()
		}
	}
	var marks MarkSet
	if len(n.marks) > 0 {
		marks = make(MarkSet, len(n.marks))
		copy(marks, n.marks)
	}
	return newNode(n.typ, copyAttrs(n.attrs), children, n.text, marks)
}

// CopyWithAttrs returns a deep copy of n with some attributes overridden.
func (n *Node) CopyWithAttrs(override map[string]any) (*Node, error) {
	merged := copyAttrs(n.attrs)
	if merged == nil {
		merged = make(map[string]any, len(override))
	}
	for k, v := range override {
		merged[k] = v
	}
	attrs, err := n.typ.ComputeAttrs(merged)
	if err != nil {
		return nil, err
	}
	return n.Copy().withAttrs(attrs), nil
}

// Cut returns n restricted to the content range [from, to).
// Text nodes are cut by grapheme offsets.
func (n *Node) Cut(from, to int) *Node {
	if n.IsText() {
		if from <= 0 && to >= n.size {
			return n
		}
		return n.withText(sliceGraphemes(n.text, from, to))
	}
	if from <= 0 && to >= n.contentSize {
		return n
	}
	return n.withContent(cutChildren(n.content, from, to))
}

func cutChildren(children []*Node, from, to int) []*Node {
	var out []*Node
	pos := 0
	for _, c := range children {
		end := pos + c.size
		if end > from && pos < to {
			switch {
			case c.IsText():
				c = c.Cut(max(0, from-pos), min(c.size, to-pos))
			case !c.IsLeaf() && (from > pos || to < end):
				c = c.Cut(max(0, from-pos-1), min(c.contentSize, to-pos-1))
			}
			if !c.IsText() || c.text != "" {
				out = append(out, c)
			}
		}
		pos = end
	}
	return out
}

// Descendants walks the subtree in document order. fn receives each node,
// its absolute position (relative to n's content start), its parent and its
// index. Returning false skips the node's children.
func (n *Node) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.walk(0, fn)
}

func (n *Node) walk(base int, fn func(*Node, int, *Node, int) bool) {
	pos := base
	for i, c := range n.content {
		if fn(c, pos, n, i) && !c.IsText() && !c.IsLeaf() {
			c.walk(pos+1, fn)
		}
		pos += c.size
	}
}

// FindByAttr returns the first descendant whose attribute equals value,
// together with its position.
func (n *Node) FindByAttr(attr string, value any) (*Node, int, bool) {
	var found *Node
	foundPos := -1
	n.Descendants(func(node *Node, pos int, _ *Node, _ int) bool {
		if found != nil {
			return false
		}
		if v, ok := node.attrs[attr]; ok && v == value {
			found, foundPos = node, pos
			return false
		}
		return true
	})
	return found, foundPos, found != nil
}

// Check validates the whole subtree against the schema.
func (n *Node) Check() error {
	if n.IsText() {
		if n.text == "" {
			return ErrEmptyText
		}
		return nil
	}
	if _, err := n.typ.ComputeAttrs(n.attrs); err != nil {
		return err
	}
	if err := n.checkContent(); err != nil {
		return err
	}
	for _, c := range n.content {
		if err := c.Check(); err != nil {
			return err
		}
	}
	return nil
}

// checkContent validates direct children and marks on inline children.
func (n *Node) checkContent() error {
	types := make([]*schema.NodeType, len(n.content))
	for i, c := range n.content {
		types[i] = c.typ
		for _, m := range c.marks {
			if !n.typ.AllowsMark(m.typ) {
				return fmt.Errorf("%w: %s in %s", ErrInvalidMark, m.typ.Name(), n.typ.Name())
			}
		}
	}
	if !n.typ.ValidContent(types) {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = t.Name()
		}
		return &ContentError{Type: n.typ.Name(), Children: names}
	}
	return nil
}

// String renders the tree for debugging, e.g. doc(paragraph("Hi")).
func (n *Node) String() string {
	if n.IsText() {
		s := strconv.Quote(n.text)
		for i := len(n.marks) - 1; i >= 0; i-- {
			s = n.marks[i].String() + "(" + s + ")"
		}
		return s
	}
	if len(n.content) == 0 {
		return n.typ.Name()
	}
	parts := make([]string, len(n.content))
	for i, c := range n.content {
		parts[i] = c.String()
	}
	return n.typ.Name() + "(" + strings.Join(parts, ", ") + ")"
}

// joinText merges adjacent text nodes carrying the same marks.
func joinText(children []*Node) []*Node {
	if len(children) < 2 {
		return children
	}
	out := make([]*Node, 0, len(children))
	for _, c := range children {
		if last := len(out) - 1; last >= 0 && c.IsText() && out[last].IsText() && out[last].marks.Equal(c.marks) {
			out[last] = out[last].withText(out[last].text + c.text)
			continue
		}
		out = append(out, c)
	}
	return out
}
