package command

import (
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/preset"
)

// setCalloutType sets the type, and optionally the color, of the callout
// around the selection.
//
// Params: type (required), color.
func setCalloutType(st engine.State, p Params) (*transform.Transaction, error) {
	c, ok := ofType(st.Doc, st.Selection, preset.Callout)
	if !ok {
		return nil, failf("selection is not in a callout")
	}
	kind := p.String("type", "")
	if kind == "" {
		return nil, failf("missing callout type")
	}
	tr := st.NewTransaction()
	if err := tr.SetNodeAttr(c.pos, "type", kind); err != nil {
		return nil, err
	}
	if p.Has("color") {
		if err := tr.SetNodeAttr(c.pos, "color", p["color"]); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// setPageStyle sets size and spacing attributes on the custom page around
// the selection. Only the attributes present in the params change.
//
// Params: height, width, padding, margin.
func setPageStyle(st engine.State, p Params) (*transform.Transaction, error) {
	page, ok := ofType(st.Doc, st.Selection, preset.CustomPage)
	if !ok {
		return nil, failf("selection is not in a custom page")
	}
	tr := st.NewTransaction()
	for _, name := range preset.PageStyleAttrs {
		if !p.Has(name) {
			continue
		}
		// Raw values so the schema rejects non-strings instead of clearing.
		if err := tr.SetNodeAttr(page.pos, name, p[name]); err != nil {
			return nil, err
		}
	}
	if len(tr.Steps) == 0 {
		return nil, failf("no page style attributes given")
	}
	return tr, nil
}

// resetPageStyle clears every page style attribute of the custom page
// around the selection.
func resetPageStyle(st engine.State, _ Params) (*transform.Transaction, error) {
	page, ok := ofType(st.Doc, st.Selection, preset.CustomPage)
	if !ok {
		return nil, failf("selection is not in a custom page")
	}
	tr := st.NewTransaction()
	for _, name := range preset.PageStyleAttrs {
		if page.node.AttrString(name) == "" {
			continue
		}
		if err := tr.SetNodeAttr(page.pos, name, ""); err != nil {
			return nil, err
		}
	}
	if len(tr.Steps) == 0 {
		return nil, failf("page style is already the default")
	}
	return tr, nil
}

// markRange returns the range commands format: the selection, or the
// whole textblock around an empty selection.
func markRange(st engine.State) (int, int, bool) {
	from, to := st.Selection.From(), st.Selection.To()
	if from < to {
		return from, to, true
	}
	b, ok := textblock(st.Doc, st.Selection)
	if !ok || b.node.ContentSize() == 0 {
		return 0, 0, false
	}
	return b.contentStart(), b.end() - 1, true
}

// clearFormatting removes every mark from the selection, or from the
// textblock around an empty selection.
func clearFormatting(st engine.State, _ Params) (*transform.Transaction, error) {
	from, to, ok := markRange(st)
	if !ok {
		return nil, failf("nothing to clear")
	}
	if !anyMarked(st.Doc, from, to) {
		return nil, failf("no formatting in range")
	}
	tr := st.NewTransaction()
	if err := tr.RemoveMark(from, to, nil); err != nil {
		return nil, err
	}
	return tr, nil
}

// toggleMark removes a mark when all text in the selection carries it,
// and adds it otherwise.
//
// Params: mark (required), attrs.
func toggleMark(st engine.State, p Params) (*transform.Transaction, error) {
	name := p.String("mark", "")
	mt, ok := st.Schema.Mark(name)
	if !ok {
		return nil, failf("unknown mark %q", name)
	}
	from, to := st.Selection.From(), st.Selection.To()
	if from == to {
		return nil, failf("selection is empty")
	}
	allowed, all := markCoverage(st.Doc, from, to, mt)
	if !allowed {
		return nil, failf("%s is not allowed here", name)
	}
	tr := st.NewTransaction()
	if all {
		if err := tr.RemoveMark(from, to, mt); err != nil {
			return nil, err
		}
		return tr, nil
	}
	mark, err := model.NewMark(mt, p.Attrs("attrs"))
	if err != nil {
		return nil, err
	}
	if err := tr.AddMark(from, to, mark); err != nil {
		return nil, err
	}
	return tr, nil
}

// eachText calls fn for every text node overlapping [from, to) with its
// parent.
func eachText(doc *model.Node, from, to int, fn func(text, parent *model.Node)) {
	doc.Descendants(func(n *model.Node, pos int, parent *model.Node, _ int) bool {
		if pos >= to || pos+n.NodeSize() <= from {
			return false
		}
		if n.IsText() {
			fn(n, parent)
			return false
		}
		return true
	})
}

// markCoverage reports whether any text in [from, to) may carry mt, and
// whether all such text does.
func markCoverage(doc *model.Node, from, to int, mt *schema.MarkType) (allowed, all bool) {
	seen := false
	all = true
	eachText(doc, from, to, func(text, parent *model.Node) {
		if parent.Type().AllowsMark(mt) {
			seen = true
			all = all && text.Marks().Has(mt)
		}
	})
	return seen, seen && all
}

func anyMarked(doc *model.Node, from, to int) bool {
	found := false
	eachText(doc, from, to, func(text, _ *model.Node) {
		found = found || len(text.Marks()) > 0
	})
	return found
}
