package selection

import "github.com/dshills/folio/internal/engine/model"

// Map maps the selection through m into doc, the document m produces.
// The result always resolves in doc.
func (s Selection) Map(doc *model.Node, m *model.Mapping) Selection {
	size := doc.ContentSize()
	if s.IsNode() {
		from := m.MapResult(s.From(), 1)
		to := m.MapResult(s.To(), -1)
		if !from.Deleted && !to.Deleted && to.Pos-from.Pos == s.To()-s.From() {
			if sel, err := NodeSelectionAt(doc, clamp(from.Pos, size)); err == nil && sel.To() == to.Pos {
				return sel
			}
		}
		return Cursor(clamp(from.Pos, size))
	}
	return Selection{
		Kind:   KindText,
		Anchor: clamp(m.Map(s.Anchor, -1), size),
		Head:   clamp(m.Map(s.Head, -1), size),
	}
}

// MapAll maps a set of selections, e.g. remote collaborator cursors.
func MapAll(sels []Selection, doc *model.Node, m *model.Mapping) []Selection {
	out := make([]Selection, len(sels))
	for i, s := range sels {
		out[i] = s.Map(doc, m)
	}
	return out
}
