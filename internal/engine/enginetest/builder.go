// Package enginetest provides document builders for tests.
package enginetest

import (
	"testing"

	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/preset"
)

// Builder builds museum-schema nodes, failing the test on any error.
type Builder struct {
	tb     testing.TB
	Schema *schema.Registry
}

// New returns a builder over a fresh museum schema.
func New(tb testing.TB) *Builder {
	tb.Helper()
	r, err := preset.NewMuseumSchema()
	if err != nil {
		tb.Fatalf("museum schema: %v", err)
	}
	return &Builder{tb: tb, Schema: r}
}

// Type returns a node type.
func (b *Builder) Type(name string) *schema.NodeType {
	b.tb.Helper()
	nt, ok := b.Schema.Node(name)
	if !ok {
		b.tb.Fatalf("unknown node type %q", name)
	}
	return nt
}

// Mark returns a mark of the named type.
func (b *Builder) Mark(name string, attrs map[string]any) *model.Mark {
	b.tb.Helper()
	mt, ok := b.Schema.Mark(name)
	if !ok {
		b.tb.Fatalf("unknown mark %q", name)
	}
	m, err := model.NewMark(mt, attrs)
	if err != nil {
		b.tb.Fatalf("mark %s: %v", name, err)
	}
	return m
}

// Node builds a node.
func (b *Builder) Node(name string, attrs map[string]any, children ...*model.Node) *model.Node {
	b.tb.Helper()
	n, err := model.NewNode(b.Type(name), attrs, children...)
	if err != nil {
		b.tb.Fatalf("node %s: %v", name, err)
	}
	return n
}

// Text builds a text node with marks given by name.
func (b *Builder) Text(s string, marks ...string) *model.Node {
	b.tb.Helper()
	ms := make([]*model.Mark, len(marks))
	for i, name := range marks {
		ms[i] = b.Mark(name, nil)
	}
	n, err := model.NewText(b.Schema.Text(), s, ms...)
	if err != nil {
		b.tb.Fatalf("text %q: %v", s, err)
	}
	return n
}

// TextWith builds a text node with explicit marks.
func (b *Builder) TextWith(s string, marks ...*model.Mark) *model.Node {
	b.tb.Helper()
	n, err := model.NewText(b.Schema.Text(), s, marks...)
	if err != nil {
		b.tb.Fatalf("text %q: %v", s, err)
	}
	return n
}

func (b *Builder) inline(s string) []*model.Node {
	if s == "" {
		return nil
	}
	return []*model.Node{b.Text(s)}
}

// Doc builds a document.
func (b *Builder) Doc(children ...*model.Node) *model.Node {
	b.tb.Helper()
	return b.Node(preset.Doc, nil, children...)
}

// P builds a paragraph with plain text.
func (b *Builder) P(s string) *model.Node {
	b.tb.Helper()
	return b.Node(preset.Paragraph, nil, b.inline(s)...)
}

// H builds a heading.
func (b *Builder) H(level int, s string) *model.Node {
	b.tb.Helper()
	return b.Node(preset.Heading, map[string]any{"level": level}, b.inline(s)...)
}

// Callout builds a callout of the given type.
func (b *Builder) Callout(kind string, paragraphs ...*model.Node) *model.Node {
	b.tb.Helper()
	return b.Node(preset.Callout, map[string]any{"type": kind}, paragraphs...)
}

// Card builds a card with a header and body blocks.
func (b *Builder) Card(header string, body ...*model.Node) *model.Node {
	b.tb.Helper()
	return b.Node(preset.Card, nil,
		b.Node(preset.CardHeader, nil, b.inline(header)...),
		b.Node(preset.CardContent, nil, body...),
	)
}

// Image builds an image.
func (b *Builder) Image(src string) *model.Node {
	b.tb.Helper()
	return b.Node(preset.Image, map[string]any{"src": src})
}

// BulletList builds a bullet list with one paragraph per item.
func (b *Builder) BulletList(items ...string) *model.Node {
	b.tb.Helper()
	children := make([]*model.Node, len(items))
	for i, s := range items {
		children[i] = b.Node(preset.ListItem, nil, b.P(s))
	}
	return b.Node(preset.BulletList, nil, children...)
}
