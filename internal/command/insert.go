package command

import (
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/preset"
)

// builder creates the node an insert command inserts.
type builder func(reg *schema.Registry, p Params) (*model.Node, error)

// inserting turns a builder into a command that inserts its node after
// the current block, replacing an empty paragraph.
func inserting(build builder) Command {
	return func(st engine.State, p Params) (*transform.Transaction, error) {
		n, err := build(st.Schema, p)
		if err != nil {
			return nil, err
		}
		return insertNode(st, n, true)
	}
}

// node builds a node of a registered type.
func node(reg *schema.Registry, name string, attrs map[string]any, children ...*model.Node) (*model.Node, error) {
	nt, err := nodeType(reg, name)
	if err != nil {
		return nil, err
	}
	return model.NewNode(nt, attrs, children...)
}

// inline returns a text node for s, or nothing for the empty string.
func inline(reg *schema.Registry, s string) ([]*model.Node, error) {
	if s == "" {
		return nil, nil
	}
	t, err := model.NewText(reg.Text(), s)
	if err != nil {
		return nil, err
	}
	return []*model.Node{t}, nil
}

// paragraph builds a paragraph holding s.
func paragraph(reg *schema.Registry, s string) (*model.Node, error) {
	content, err := inline(reg, s)
	if err != nil {
		return nil, err
	}
	return node(reg, preset.Paragraph, nil, content...)
}

// pick copies the listed params into an attribute map.
func pick(p Params, names ...string) map[string]any {
	attrs := p.Attrs("attrs")
	if attrs == nil {
		attrs = map[string]any{}
	}
	for _, name := range names {
		if v, ok := p[name]; ok {
			attrs[name] = v
		}
	}
	return attrs
}

// Params: level (default 1), text.
func buildHeading(reg *schema.Registry, p Params) (*model.Node, error) {
	content, err := inline(reg, p.String("text", ""))
	if err != nil {
		return nil, err
	}
	return node(reg, preset.Heading, map[string]any{"level": p.Int("level", 1)}, content...)
}

// Params: type (default info), color, text.
func buildCallout(reg *schema.Registry, p Params) (*model.Node, error) {
	para, err := paragraph(reg, p.String("text", ""))
	if err != nil {
		return nil, err
	}
	return node(reg, preset.Callout, pick(p, "type", "color"), para)
}

// Params: header, variant, text.
func buildCard(reg *schema.Registry, p Params) (*model.Node, error) {
	title, err := inline(reg, p.String("header", ""))
	if err != nil {
		return nil, err
	}
	header, err := node(reg, preset.CardHeader, nil, title...)
	if err != nil {
		return nil, err
	}
	para, err := paragraph(reg, p.String("text", ""))
	if err != nil {
		return nil, err
	}
	body, err := node(reg, preset.CardContent, nil, para)
	if err != nil {
		return nil, err
	}
	return node(reg, preset.Card, pick(p, "variant"), header, body)
}

// Params: count (2 to 4, default 2), gap.
func buildColumns(reg *schema.Registry, p Params) (*model.Node, error) {
	count := p.Int("count", 2)
	if count < 2 || count > 4 {
		return nil, failf("columns must number 2 to 4, got %d", count)
	}
	cols := make([]*model.Node, count)
	for i := range cols {
		para, err := paragraph(reg, "")
		if err != nil {
			return nil, err
		}
		if cols[i], err = node(reg, preset.Column, nil, para); err != nil {
			return nil, err
		}
	}
	return node(reg, preset.Columns, pick(p, "gap"), cols...)
}

// Params: srcs (required), columns.
func buildGallery(reg *schema.Registry, p Params) (*model.Node, error) {
	srcs := p.Strings("srcs")
	if len(srcs) == 0 {
		return nil, failf("gallery needs at least one image")
	}
	images := make([]*model.Node, len(srcs))
	for i, src := range srcs {
		img, err := node(reg, preset.Image, map[string]any{"src": src})
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	attrs := map[string]any{}
	if p.Has("columns") {
		attrs["columns"] = p.Int("columns", 3)
	}
	return node(reg, preset.Gallery, attrs, images...)
}

// Params: src (required), alt, title, width.
func buildImage(reg *schema.Registry, p Params) (*model.Node, error) {
	if p.String("src", "") == "" {
		return nil, failf("image needs a src")
	}
	return node(reg, preset.Image, pick(p, "src", "alt", "title", "width"))
}

// Params: src (required), provider, title.
func buildVideo(reg *schema.Registry, p Params) (*model.Node, error) {
	if p.String("src", "") == "" {
		return nil, failf("video needs a src")
	}
	return node(reg, preset.Video, pick(p, "src", "provider", "title"))
}

// Params: height, width, padding, margin, background.
func buildCustomPage(reg *schema.Registry, p Params) (*model.Node, error) {
	para, err := paragraph(reg, "")
	if err != nil {
		return nil, err
	}
	attrs := pick(p, append([]string{"background"}, preset.PageStyleAttrs...)...)
	return node(reg, preset.CustomPage, attrs, para)
}

func buildDivider(reg *schema.Registry, _ Params) (*model.Node, error) {
	return node(reg, preset.HorizontalRule, nil)
}
