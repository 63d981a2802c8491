package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/preset"
)

// FindPlaceholder returns the position and node of the placeholder for
// upload id.
func FindPlaceholder(doc *model.Node, id string) (int, *model.Node, bool) {
	pos := -1
	var found *model.Node
	doc.Descendants(func(n *model.Node, p int, _ *model.Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.Type().Name() == preset.UploadPlaceholder && n.AttrString("uploadId") == id {
			pos, found = p, n
			return false
		}
		return true
	})
	return pos, found, found != nil
}

func build(reg *schema.Registry, name string, attrs map[string]any, children ...*model.Node) (*model.Node, error) {
	nt, ok := reg.Node(name)
	if !ok {
		return nil, fmt.Errorf("upload: schema has no %s node", name)
	}
	return model.NewNode(nt, attrs, children...)
}

// insertionPoint returns the range a new block replaces: the top-level
// block holding the selection when it is an empty paragraph, or the
// empty range after it.
func insertionPoint(st engine.State) (int, int, error) {
	rp, err := model.Resolve(st.Doc, st.Selection.From())
	if err != nil {
		return 0, 0, err
	}
	if rp.Depth() == 0 {
		p := st.Selection.To()
		return p, p, nil
	}
	top := rp.Node(1)
	before := rp.Before(1)
	end := before + top.NodeSize()
	if top.Type().Name() == preset.Paragraph && top.ChildCount() == 0 {
		return before, end, nil
	}
	return end, end, nil
}

func insertPlaceholder(st engine.State, id, kind, label string) (*transform.Transaction, error) {
	ph, err := build(st.Schema, preset.UploadPlaceholder, map[string]any{
		"uploadId": id,
		"kind":     kind,
		"fileName": label,
	})
	if err != nil {
		return nil, err
	}
	from, to, err := insertionPoint(st)
	if err != nil {
		return nil, err
	}
	tr := st.NewTransaction()
	if err := tr.Replace(from, to, ph); err != nil {
		return nil, err
	}
	if sel, err := selection.NodeSelectionAt(tr.Doc(), from); err == nil {
		tr.SetSelection(sel)
	}
	tr.SetMeta(transform.MetaUploadID, id)
	tr.SetMeta(transform.MetaCommand, CommandName)
	return tr, nil
}

// background marks transactions that follow up on an upload. They stay
// out of undo history; undoing the placeholder insertion removes the
// final node instead.
func background(tr *transform.Transaction, id string) {
	tr.SetMeta(transform.MetaAddToHistory, false)
	tr.SetMeta(transform.MetaExternal, true)
	tr.SetMeta(transform.MetaUploadID, id)
}

func setStatus(st engine.State, id, status, msg string) (*transform.Transaction, error) {
	pos, _, ok := FindPlaceholder(st.Doc, id)
	if !ok {
		return nil, ErrPlaceholderGone
	}
	tr := st.NewTransaction()
	if err := tr.SetNodeAttr(pos, "status", status); err != nil {
		return nil, err
	}
	if err := tr.SetNodeAttr(pos, "error", msg); err != nil {
		return nil, err
	}
	background(tr, id)
	return tr, nil
}

func removePlaceholder(st engine.State, id string) (*transform.Transaction, error) {
	pos, _, ok := FindPlaceholder(st.Doc, id)
	if !ok {
		return nil, ErrPlaceholderGone
	}
	tr := st.NewTransaction()
	parent, err := model.Resolve(st.Doc, pos)
	if err != nil {
		return nil, err
	}
	if parent.Parent().ChildCount() == 1 {
		// The parent needs content; leave an empty paragraph behind.
		para, err := build(st.Schema, preset.Paragraph, nil)
		if err != nil {
			return nil, err
		}
		err = tr.Replace(pos, pos+1, para)
		if err == nil {
			tr.SetSelection(selection.Cursor(pos + 1))
		}
	} else {
		err = tr.Delete(pos, pos+1)
	}
	if err != nil {
		return nil, err
	}
	tr.SetMeta(transform.MetaUploadID, id)
	tr.SetMeta(transform.MetaCommand, CommandName)
	return tr, nil
}

func swapPlaceholder(st engine.State, u *Upload, results []Result) (*transform.Transaction, error) {
	pos, _, ok := FindPlaceholder(st.Doc, u.ID)
	if !ok {
		return nil, ErrPlaceholderGone
	}
	n, err := finalNode(st.Schema, u, results)
	if err != nil {
		return nil, err
	}
	tr := st.NewTransaction()
	if err := tr.Replace(pos, pos+1, n); err != nil {
		return nil, err
	}
	if st.Selection.IsNode() && st.Selection.From() == pos {
		if sel, err := selection.NodeSelectionAt(tr.Doc(), pos); err == nil {
			tr.SetSelection(sel)
		}
	}
	background(tr, u.ID)
	return tr, nil
}

// finalNode builds what the placeholder becomes: an image, video or
// gallery, or a paragraph linking to any other file.
func finalNode(reg *schema.Registry, u *Upload, results []Result) (*model.Node, error) {
	f, url := u.files[0], results[0].URL
	switch {
	case u.gallery:
		images := make([]*model.Node, len(results))
		for i, r := range results {
			img, err := build(reg, preset.Image, map[string]any{"src": r.URL, "alt": altText(u.files[i].Name)})
			if err != nil {
				return nil, err
			}
			images[i] = img
		}
		attrs := map[string]any{}
		if u.columns > 0 {
			attrs["columns"] = u.columns
		}
		return build(reg, preset.Gallery, attrs, images...)
	case u.Kind == KindImage:
		return build(reg, preset.Image, map[string]any{"src": url, "alt": altText(f.Name)})
	case u.Kind == KindVideo:
		return build(reg, preset.Video, map[string]any{"src": url, "title": f.Name})
	default:
		lt, ok := reg.Mark(preset.Link)
		if !ok {
			return nil, fmt.Errorf("upload: schema has no %s mark", preset.Link)
		}
		link, err := model.NewMark(lt, map[string]any{"href": url})
		if err != nil {
			return nil, err
		}
		label := f.Name
		if label == "" {
			label = url
		}
		text, err := model.NewText(reg.Text(), label, link)
		if err != nil {
			return nil, err
		}
		return build(reg, preset.Paragraph, nil, text)
	}
}

func altText(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
}
