package serial

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
)

// Element names for node types with a native HTML form. Other types
// render as <div data-node="name">.
var nodeTags = map[string]string{
	"paragraph":      "p",
	"blockquote":     "blockquote",
	"bulletList":     "ul",
	"orderedList":    "ol",
	"listItem":       "li",
	"codeBlock":      "pre",
	"image":          "img",
	"video":          "video",
	"horizontalRule": "hr",
	"hardBreak":      "br",
}

// Element names for marks. Other marks render as <span data-mark="name">.
var markTags = map[string]string{
	"bold":      "strong",
	"italic":    "em",
	"underline": "u",
	"strike":    "s",
	"code":      "code",
	"link":      "a",
	"highlight": "mark",
}

var tagAliases = map[string]string{"b": "strong", "i": "em", "del": "s", "strike": "s"}

// Attributes rendered under their own name rather than as data-*.
var nativeAttrs = map[string]bool{"src": true, "alt": true, "title": true, "href": true, "target": true, "start": true}

const (
	nodeAttr = "data-node"
	markAttr = "data-mark"
)

// ImportPolicy is the sanitizer applied by FromHTML.
var ImportPolicy = newImportPolicy()

func newImportPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataAttributes()
	p.AllowElements("video", "mark", "u", "s")
	p.AllowAttrs("src", "title", "controls").OnElements("video")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_(blank|self)$`)).OnElements("a")
	p.AllowAttrs("start").Matching(regexp.MustCompile(`^\d+$`)).OnElements("ol")
	return p
}

// ============================================================================
// Rendering
// ============================================================================

// ToHTML renders doc as an HTML fragment.
func ToHTML(reg *schema.Registry, doc *model.Node) (string, error) {
	if _, err := ToPortable(reg, doc); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, c := range doc.Children() {
		for _, hn := range renderNode(c) {
			if err := html.Render(&buf, hn); err != nil {
				return "", fmt.Errorf("serial: render html: %w", err)
			}
		}
	}
	return buf.String(), nil
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}

func renderNode(n *model.Node) []*html.Node {
	if n.IsText() {
		return []*html.Node{renderText(n)}
	}
	name := n.Type().Name()
	var el *html.Node
	skip := map[string]bool{}
	switch tag, ok := nodeTags[name]; {
	case name == "heading":
		level := 1
		if f, ok := n.Attr("level").(float64); ok && f >= 1 && f <= 6 {
			level = int(f)
		}
		el = element("h" + strconv.Itoa(level))
		skip["level"] = true
	case ok:
		el = element(tag)
	default:
		el = element("div", html.Attribute{Key: nodeAttr, Val: name})
	}
	if name == "video" {
		el.Attr = append(el.Attr, html.Attribute{Key: "controls"})
	}
	el.Attr = append(el.Attr, renderAttrs(n.Type().AttrSpecs(), n.Attrs(), skip)...)

	if name == "codeBlock" {
		code := element("code")
		if text := n.TextContent(); text != "" {
			code.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		}
		el.AppendChild(code)
		return []*html.Node{el}
	}
	for _, c := range n.Children() {
		for _, hc := range renderNode(c) {
			el.AppendChild(hc)
		}
	}
	return []*html.Node{el}
}

func renderText(n *model.Node) *html.Node {
	out := &html.Node{Type: html.TextNode, Data: n.Text()}
	marks := n.Marks()
	for i := len(marks) - 1; i >= 0; i-- {
		m := marks[i]
		name := m.Type().Name()
		var el *html.Node
		if tag, ok := markTags[name]; ok {
			el = element(tag)
		} else {
			el = element("span", html.Attribute{Key: markAttr, Val: name})
		}
		el.Attr = append(el.Attr, renderAttrs(m.Type().AttrSpecs(), m.Attrs(), nil)...)
		el.AppendChild(out)
		out = el
	}
	return out
}

func renderAttrs(specs map[string]schema.AttributeSpec, attrs map[string]any, skip map[string]bool) []html.Attribute {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []html.Attribute
	for _, name := range names {
		v := attrs[name]
		if skip[name] || v == nil || v == "" {
			continue
		}
		if def, err := schema.NormalizeValue(specs[name].Default); err == nil && def == v && !nativeAttrs[name] {
			continue
		}
		out = append(out, html.Attribute{Key: htmlAttrName(name), Val: formatAttr(v)})
	}
	return out
}

func htmlAttrName(name string) string {
	if nativeAttrs[name] {
		return name
	}
	return "data-" + kebab(name)
}

func kebab(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatAttr(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// ============================================================================
// Import
// ============================================================================

// FromHTML sanitizes src with ImportPolicy and parses it into a
// schema-valid document. Unknown elements are unwrapped; loose inline
// content is gathered into paragraphs.
func FromHTML(reg *schema.Registry, src string) (*model.Node, error) {
	clean := ImportPolicy.Sanitize(src)
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(clean), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	p := &htmlParser{reg: reg}
	blocks := p.blocks(nodes)
	if len(blocks) == 0 {
		return model.NewDoc(reg)
	}
	doc, err := model.NewNode(reg.Top(), nil, blocks...)
	if err != nil {
		return nil, fmt.Errorf("serial: import html: %w", err)
	}
	return doc, nil
}

var spaceRun = regexp.MustCompile(`\s+`)

type htmlParser struct {
	reg *schema.Registry
}

func (p *htmlParser) blocks(list []*html.Node) []*model.Node {
	var pending []*html.Node
	var result []*model.Node

	flush := func() {
		if len(pending) == 0 {
			return
		}
		run := pending
		pending = nil
		para, ok := p.reg.Node("paragraph")
		if !ok {
			return
		}
		inline := p.inlines(run, para, nil)
		if len(inline) == 0 {
			return
		}
		if n, err := model.NewNode(para, nil, inline...); err == nil {
			result = append(result, n)
		}
	}

	for _, hn := range list {
		switch {
		case hn.Type == html.TextNode:
			if strings.TrimSpace(hn.Data) != "" || len(pending) > 0 {
				pending = append(pending, hn)
			}
		case hn.Type != html.ElementNode:
		case p.isInline(hn):
			pending = append(pending, hn)
		default:
			flush()
			result = append(result, p.block(hn)...)
		}
	}
	flush()
	return result
}

// block converts one block element. Elements without a node type, or
// whose content does not fit their type, are unwrapped into their
// children.
func (p *htmlParser) block(el *html.Node) []*model.Node {
	t, attrs := p.nodeType(el)
	if t == nil {
		return p.blocks(children(el))
	}

	switch {
	case t.IsLeaf():
		if n, err := model.NewNode(t, attrs); err == nil {
			return []*model.Node{n}
		}
		return nil
	case t.Name() == "codeBlock":
		var kids []*model.Node
		if text := textOf(el); text != "" {
			if tn, err := model.NewText(p.reg.Text(), text); err == nil {
				kids = append(kids, tn)
			}
		}
		if n, err := model.NewNode(t, attrs, kids...); err == nil {
			return []*model.Node{n}
		}
		return nil
	case t.IsTextblock():
		n, err := model.NewNode(t, attrs, p.inlines(children(el), t, nil)...)
		if err != nil {
			return nil
		}
		return []*model.Node{n}
	}

	kids := p.blocks(children(el))
	if len(kids) == 0 {
		if n, err := model.CreateAndFill(t, attrs); err == nil {
			return []*model.Node{n}
		}
		return nil
	}
	if n, err := model.NewNode(t, attrs, kids...); err == nil {
		return []*model.Node{n}
	}
	return kids
}

func (p *htmlParser) inlines(list []*html.Node, parent *schema.NodeType, marks []*model.Mark) []*model.Node {
	var out []*model.Node
	for _, hn := range list {
		switch {
		case hn.Type == html.TextNode:
			text := spaceRun.ReplaceAllString(hn.Data, " ")
			if text == "" {
				continue
			}
			if tn, err := model.NewText(p.reg.Text(), text, marks...); err == nil {
				out = append(out, tn)
			}
		case hn.Type != html.ElementNode:
		case hn.DataAtom == atom.Br:
			if t, ok := p.reg.Node("hardBreak"); ok {
				if n, err := model.NewNode(t, nil); err == nil {
					out = append(out, n)
				}
			}
		default:
			inner := marks
			if m := p.mark(hn); m != nil && parent.AllowsMark(m.Type()) {
				inner = append(append([]*model.Mark(nil), marks...), m)
			}
			out = append(out, p.inlines(children(hn), parent, inner)...)
		}
	}
	return trimEdges(out)
}

// trimEdges drops leading and trailing whitespace of an inline run.
func trimEdges(nodes []*model.Node) []*model.Node {
	for len(nodes) > 0 && nodes[0].IsText() && strings.TrimSpace(nodes[0].Text()) == "" {
		nodes = nodes[1:]
	}
	for len(nodes) > 0 && nodes[len(nodes)-1].IsText() && strings.TrimSpace(nodes[len(nodes)-1].Text()) == "" {
		nodes = nodes[:len(nodes)-1]
	}
	return nodes
}

func (p *htmlParser) isInline(el *html.Node) bool {
	if el.DataAtom == atom.Br || el.DataAtom == atom.Span {
		return true
	}
	_, ok := p.markName(el)
	return ok
}

func (p *htmlParser) nodeType(el *html.Node) (*schema.NodeType, map[string]any) {
	name := ""
	attrs := map[string]any{}
	if v, ok := attr(el, nodeAttr); ok {
		name = v
	} else if len(el.Data) == 2 && el.Data[0] == 'h' && el.Data[1] >= '1' && el.Data[1] <= '6' {
		name = "heading"
		attrs["level"] = float64(el.Data[1] - '0')
	} else {
		for n, tag := range nodeTags {
			if tag == el.Data {
				name = n
				break
			}
		}
	}
	t, ok := p.reg.Node(name)
	if !ok || t.IsText() {
		return nil, nil
	}
	for k, v := range readAttrs(el, t.AttrSpecs()) {
		attrs[k] = v
	}
	return t, attrs
}

func (p *htmlParser) markName(el *html.Node) (string, bool) {
	if v, ok := attr(el, markAttr); ok {
		return v, true
	}
	tag := el.Data
	if alias, ok := tagAliases[tag]; ok {
		tag = alias
	}
	for name, t := range markTags {
		if t == tag {
			return name, true
		}
	}
	return "", false
}

func (p *htmlParser) mark(el *html.Node) *model.Mark {
	name, ok := p.markName(el)
	if !ok {
		return nil
	}
	mt, ok := p.reg.Mark(name)
	if !ok {
		return nil
	}
	m, err := model.NewMark(mt, readAttrs(el, mt.AttrSpecs()))
	if err != nil {
		return nil
	}
	return m
}

func readAttrs(el *html.Node, specs map[string]schema.AttributeSpec) map[string]any {
	out := map[string]any{}
	for name, spec := range specs {
		raw, ok := attr(el, htmlAttrName(name))
		if !ok {
			continue
		}
		out[name] = parseAttr(raw, spec.Default)
	}
	return out
}

func parseAttr(raw string, def any) any {
	switch def.(type) {
	case int, float64:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

func attr(el *html.Node, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func children(el *html.Node) []*html.Node {
	var out []*html.Node
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func textOf(el *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(el)
	return b.String()
}
