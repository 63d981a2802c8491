package model

import (
	"fmt"

	"github.com/dshills/folio/internal/engine/schema"
)

// CreateAndFill creates the smallest valid node of type t, filling
// required children with their own default content.
func CreateAndFill(t *schema.NodeType, attrs map[string]any, children ...*Node) (*Node, error) {
	if t.IsText() {
		return nil, fmt.Errorf("model: cannot fill text type %s", t.Name())
	}
	if len(children) > 0 {
		if n, err := NewNode(t, attrs, children...); err == nil {
			return n, nil
		}
	}
	types, err := t.DefaultContent()
	if err != nil {
		return nil, err
	}
	filled := make([]*Node, 0, len(types))
	for _, ct := range types {
		child, err := CreateAndFill(ct, nil)
		if err != nil {
			return nil, err
		}
		filled = append(filled, child)
	}
	return NewNode(t, attrs, filled...)
}

// NewDoc creates an empty document for the registry's top type.
func NewDoc(reg *schema.Registry) (*Node, error) {
	return CreateAndFill(reg.Top(), nil)
}
