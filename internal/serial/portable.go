package serial

import (
	"fmt"

	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
)

// PortableNode is the persistable form of a node.
type PortableNode struct {
	Type    string          `json:"type"`
	Attrs   map[string]any  `json:"attrs,omitempty"`
	Content []*PortableNode `json:"content,omitempty"`
	Text    string          `json:"text,omitempty"`
	Marks   []PortableMark  `json:"marks,omitempty"`
}

// PortableMark is the persistable form of a mark.
type PortableMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ToPortable converts doc into a portable tree. Every node and mark type
// must still be registered in reg.
func ToPortable(reg *schema.Registry, doc *model.Node) (*PortableNode, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMalformed)
	}
	return toPortable(reg, doc)
}

func toPortable(reg *schema.Registry, n *model.Node) (*PortableNode, error) {
	if t, ok := reg.Node(n.Type().Name()); !ok || t != n.Type() {
		return nil, &UnknownNodeTypeError{Kind: "node", Type: n.Type().Name()}
	}
	out := &PortableNode{Type: n.Type().Name(), Attrs: n.Attrs()}
	if n.IsText() {
		out.Text = n.Text()
		for _, m := range n.Marks() {
			if t, ok := reg.Mark(m.Type().Name()); !ok || t != m.Type() {
				return nil, &UnknownNodeTypeError{Kind: "mark", Type: m.Type().Name()}
			}
			out.Marks = append(out.Marks, PortableMark{Type: m.Type().Name(), Attrs: m.Attrs()})
		}
		return out, nil
	}
	for _, c := range n.Children() {
		pc, err := toPortable(reg, c)
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, pc)
	}
	return out, nil
}

// FromPortable builds a document from tree. A nil tree yields a new empty
// document. The result is checked against the schema.
func FromPortable(reg *schema.Registry, tree *PortableNode) (*model.Node, error) {
	if tree == nil {
		return model.NewDoc(reg)
	}
	if tree.Type != reg.Top().Name() {
		return nil, fmt.Errorf("%w: root is %q, want %q", ErrMalformed, tree.Type, reg.Top().Name())
	}
	doc, err := fromPortable(reg, tree)
	if err != nil {
		return nil, err
	}
	if err := doc.Check(); err != nil {
		return nil, err
	}
	return doc, nil
}

// NodeFromPortable builds a single node of any type from tree and checks
// its content.
func NodeFromPortable(reg *schema.Registry, tree *PortableNode) (*model.Node, error) {
	n, err := fromPortable(reg, tree)
	if err != nil {
		return nil, err
	}
	if err := n.Check(); err != nil {
		return nil, err
	}
	return n, nil
}

func fromPortable(reg *schema.Registry, p *PortableNode) (*model.Node, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: null node", ErrMalformed)
	}
	t, ok := reg.Node(p.Type)
	if !ok {
		return nil, &UnknownNodeTypeError{Kind: "node", Type: p.Type}
	}
	if t.IsText() {
		marks := make([]*model.Mark, 0, len(p.Marks))
		for _, pm := range p.Marks {
			mt, ok := reg.Mark(pm.Type)
			if !ok {
				return nil, &UnknownNodeTypeError{Kind: "mark", Type: pm.Type}
			}
			m, err := model.NewMark(mt, pm.Attrs)
			if err != nil {
				return nil, err
			}
			marks = append(marks, m)
		}
		return model.NewText(t, p.Text, marks...)
	}

	children := make([]*model.Node, 0, len(p.Content))
	for _, pc := range p.Content {
		c, err := fromPortable(reg, pc)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return model.NewNode(t, p.Attrs, children...)
}
