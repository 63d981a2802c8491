package model

import (
	"testing"

	"github.com/dshills/folio/internal/engine/schema"
)

var testSchema = func() *schema.Registry {
	r := schema.NewRegistry()
	for _, s := range []schema.NodeSpec{
		{Name: "text", Group: "inline", Text: true},
		{Name: "hardBreak", Group: "inline", Inline: true},
		{Name: "paragraph", Content: "inline*", Group: "block"},
		{Name: "heading", Content: "inline*", Group: "block", Attrs: map[string]schema.AttributeSpec{
			"level": {Default: 1, Validate: schema.IntRange(1, 6)},
		}},
		{Name: "codeBlock", Content: "text*", Group: "block", NoMarks: true},
		{Name: "image", Group: "block", Attrs: map[string]schema.AttributeSpec{
			"src": {Required: true, Validate: schema.NonEmpty},
		}},
		{Name: "blockquote", Content: "block+", Group: "block"},
		{Name: "listItem", Content: "paragraph block*"},
		{Name: "bulletList", Content: "listItem+", Group: "block"},
		{Name: "callout", Content: "paragraph+", Group: "block"},
		{Name: "cardHeader", Content: "inline*"},
		{Name: "cardContent", Content: "paragraph+"},
		{Name: "card", Content: "cardHeader cardContent", Group: "block", Isolating: true},
		{Name: "doc", Content: "block+"},
	} {
		r.MustRegister(s)
	}
	for _, name := range []string{"bold", "italic"} {
		if _, err := r.RegisterMark(schema.MarkSpec{Name: name}); err != nil {
			panic(err)
		}
	}
	if err := r.Finalize(); err != nil {
		panic(err)
	}
	return r
}()

func nodeType(t *testing.T, name string) *schema.NodeType {
	t.Helper()
	nt, ok := testSchema.Node(name)
	if !ok {
		t.Fatalf("unknown node type %s", name)
	}
	return nt
}

func mk(t *testing.T, name string, attrs map[string]any, children ...*Node) *Node {
	t.Helper()
	n, err := NewNode(nodeType(t, name), attrs, children...)
	if err != nil {
		t.Fatalf("NewNode(%s): %v", name, err)
	}
	return n
}

func txt(t *testing.T, s string, markNames ...string) *Node {
	t.Helper()
	marks := make([]*Mark, 0, len(markNames))
	for _, name := range markNames {
		mt, ok := testSchema.Mark(name)
		if !ok {
			t.Fatalf("unknown mark %s", name)
		}
		m, err := NewMark(mt, nil)
		if err != nil {
			t.Fatal(err)
		}
		marks = append(marks, m)
	}
	n, err := NewText(testSchema.Text(), s, marks...)
	if err != nil {
		t.Fatalf("NewText(%q): %v", s, err)
	}
	return n
}

func para(t *testing.T, s string) *Node {
	t.Helper()
	if s == "" {
		return mk(t, "paragraph", nil)
	}
	return mk(t, "paragraph", nil, txt(t, s))
}

func doc(t *testing.T, children ...*Node) *Node {
	t.Helper()
	return mk(t, "doc", nil, children...)
}

// cardDoc builds doc(card(cardHeader("Title"), cardContent(paragraph("Body"))), paragraph("After")).
//
//	card 0, cardHeader 1..8, cardContent 8..16, "Body" 10..14, card end 17,
//	paragraph 17..24, "After" 18..23.
func cardDoc(t *testing.T) *Node {
	t.Helper()
	card := mk(t, "card", nil,
		mk(t, "cardHeader", nil, txt(t, "Title")),
		mk(t, "cardContent", nil, para(t, "Body")),
	)
	return doc(t, card, para(t, "After"))
}

func mustMarkType(t *testing.T, name string) *schema.MarkType {
	t.Helper()
	mt, ok := testSchema.Mark(name)
	if !ok {
		t.Fatalf("unknown mark %s", name)
	}
	return mt
}
