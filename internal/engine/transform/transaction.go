package transform

import (
	"errors"

	"github.com/google/uuid"

	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/engine/selection"
)

// Well-known metadata keys.
const (
	// MetaAddToHistory set to false keeps the transaction out of undo history.
	MetaAddToHistory = "addToHistory"

	// MetaExternal marks transactions that did not originate from the user,
	// such as upload completions.
	MetaExternal = "external"

	// MetaUploadID carries the upload session a transaction belongs to.
	MetaUploadID = "uploadID"

	// MetaCommand carries the name of the command that built the transaction.
	MetaCommand = "command"
)

// Result is the outcome of applying steps.
type Result struct {
	// Doc is the final document.
	Doc *model.Node

	// Mapping maps positions of the input document into Doc.
	Mapping *model.Mapping

	// Inverse undoes the steps when applied to Doc, in order.
	Inverse []Step
}

// Apply applies steps to doc in order. It is all-or-nothing: on any
// failure it returns a TransactionError and doc is never modified.
func Apply(doc *model.Node, steps []Step) (*Result, error) {
	res := &Result{Doc: doc, Mapping: model.NewMapping()}
	inverse := make([]Step, len(steps))
	for i, st := range steps {
		inv, err := st.Invert(res.Doc)
		if err != nil {
			return nil, &TransactionError{Step: i, Kind: st.Kind(), Err: err}
		}
		out, err := st.Apply(res.Doc)
		if err != nil {
			return nil, &TransactionError{Step: i, Kind: st.Kind(), Err: err}
		}
		inverse[len(steps)-1-i] = inv
		res.Doc = out.Doc
		res.Mapping.AppendMap(out.Map)
	}
	if err := res.Doc.Check(); err != nil {
		return nil, &TransactionError{Step: -1, Err: err}
	}
	res.Inverse = inverse
	return res, nil
}

// Transaction is an ordered list of steps computed against one document
// version, plus metadata and an optional selection to set afterwards.
type Transaction struct {
	// ID identifies the transaction.
	ID string

	// BaseVersion is the document version the steps were computed against.
	BaseVersion uint64

	// Steps are applied in order.
	Steps []Step

	before    *model.Node
	doc       *model.Node
	mapping   *model.Mapping
	inverse   []Step
	meta      map[string]any
	selection *selection.Selection
	err       error
}

// NewTransaction starts a transaction against doc at version.
func NewTransaction(doc *model.Node, version uint64) *Transaction {
	return &Transaction{
		ID:          uuid.NewString(),
		BaseVersion: version,
		before:      doc,
		doc:         doc,
		mapping:     model.NewMapping(),
	}
}

// Before returns the document the transaction started from.
func (t *Transaction) Before() *model.Node { return t.before }

// Doc returns the document after all steps added so far.
func (t *Transaction) Doc() *model.Node { return t.doc }

// Mapping returns the mapping from Before to Doc.
func (t *Transaction) Mapping() *model.Mapping { return t.mapping }

// DocChanged reports whether the transaction has steps.
func (t *Transaction) DocChanged() bool { return len(t.Steps) > 0 }

// Err returns the first step failure, if any.
func (t *Transaction) Err() error { return t.err }

// Step applies st to the current document and records it. After a failure
// the transaction is poisoned and rejects further steps.
func (t *Transaction) Step(st Step) error {
	if t.err != nil {
		return t.err
	}
	inv, err := st.Invert(t.doc)
	if err == nil {
		var res StepResult
		res, err = st.Apply(t.doc)
		if err == nil {
			t.Steps = append(t.Steps, st)
			t.inverse = append(t.inverse, inv)
			t.doc = res.Doc
			t.mapping.AppendMap(res.Map)
			return nil
		}
	}
	t.err = &TransactionError{Step: len(t.Steps), Kind: st.Kind(), Err: err}
	return t.err
}

// Insert inserts nodes at pos.
func (t *Transaction) Insert(pos int, nodes ...*model.Node) error {
	return t.Step(&InsertStep{Pos: pos, Nodes: nodes})
}

// Delete deletes [from, to).
func (t *Transaction) Delete(from, to int) error {
	return t.Step(&DeleteStep{From: from, To: to})
}

// Replace replaces the flat range [from, to) with nodes.
func (t *Transaction) Replace(from, to int, nodes ...*model.Node) error {
	return t.Step(&ReplaceStep{From: from, To: to, Nodes: nodes})
}

// SetNodeAttr sets an attribute on the node starting at pos.
func (t *Transaction) SetNodeAttr(pos int, name string, value any) error {
	return t.Step(&SetAttrStep{Pos: pos, Name: name, Value: value})
}

// Wrap wraps the blocks covering [from, to) in a new node.
func (t *Transaction) Wrap(from, to int, nt *schema.NodeType, attrs map[string]any) error {
	return t.Step(&WrapStep{From: from, To: to, Type: nt, Attrs: attrs})
}

// AddMark adds mark to the text in [from, to), one step per textblock.
func (t *Transaction) AddMark(from, to int, mark *model.Mark) error {
	for _, seg := range model.TextblockSegments(t.doc, from, to) {
		if err := t.Step(&AddMarkStep{From: seg[0], To: seg[1], Mark: mark}); err != nil {
			return err
		}
	}
	return nil
}

// RemoveMark removes marks of mt from the text in [from, to). A nil mt
// removes every mark.
func (t *Transaction) RemoveMark(from, to int, mt *schema.MarkType) error {
	for _, seg := range model.TextblockSegments(t.doc, from, to) {
		if err := t.Step(&RemoveMarkStep{From: seg[0], To: seg[1], Type: mt}); err != nil {
			return err
		}
	}
	return nil
}

// SetSelection sets the selection to use after the transaction.
func (t *Transaction) SetSelection(sel selection.Selection) *Transaction {
	t.selection = &sel
	return t
}

// Selection returns the explicit selection, if one was set.
func (t *Transaction) Selection() (selection.Selection, bool) {
	if t.selection == nil {
		return selection.Selection{}, false
	}
	return *t.selection, true
}

// SetMeta stores a metadata value.
func (t *Transaction) SetMeta(key string, value any) *Transaction {
	if t.meta == nil {
		t.meta = make(map[string]any)
	}
	t.meta[key] = value
	return t
}

// Meta returns a metadata value.
func (t *Transaction) Meta(key string) (any, bool) {
	v, ok := t.meta[key]
	return v, ok
}

// MetaString returns a string metadata value or "".
func (t *Transaction) MetaString(key string) string {
	s, _ := t.meta[key].(string)
	return s
}

// AddToHistory reports whether the transaction should be recorded for undo.
func (t *Transaction) AddToHistory() bool {
	v, ok := t.meta[MetaAddToHistory].(bool)
	return !ok || v
}

// Apply applies the transaction's steps to doc.
func (t *Transaction) Apply(doc *model.Node) (*Result, error) {
	if t.err != nil {
		return nil, t.err
	}
	if doc == t.before && t.doc != nil && len(t.inverse) == len(t.Steps) {
		if err := t.doc.Check(); err != nil {
			return nil, &TransactionError{Step: -1, Err: err}
		}
		inverse := make([]Step, len(t.inverse))
		for i, inv := range t.inverse {
			inverse[len(t.inverse)-1-i] = inv
		}
		return &Result{Doc: t.doc, Mapping: t.mapping, Inverse: inverse}, nil
	}
	return Apply(doc, t.Steps)
}

// Compose concatenates t2 onto t1. t2 must have been computed against the
// document t1 produces, which is version t1.BaseVersion+1.
func Compose(t1, t2 *Transaction) (*Transaction, error) {
	if t1 == nil || t2 == nil {
		return nil, errors.New("transform: compose with nil transaction")
	}
	if want := t1.BaseVersion + 1; t2.BaseVersion != want {
		return nil, &VersionMismatchError{Expected: want, Got: t2.BaseVersion}
	}
	if t1.err != nil {
		return nil, t1.err
	}
	if t2.err != nil {
		return nil, t2.err
	}
	out := &Transaction{
		ID:          uuid.NewString(),
		BaseVersion: t1.BaseVersion,
		Steps:       append(append([]Step(nil), t1.Steps...), t2.Steps...),
		before:      t1.before,
		mapping:     model.NewMapping(),
	}
	out.mapping.AppendMapping(t1.mapping)
	out.mapping.AppendMapping(t2.mapping)
	if t1.doc != nil && t2.before != nil && t2.before.Equal(t1.doc) {
		out.doc = t2.doc
		out.inverse = append(append([]Step(nil), t1.inverse...), t2.inverse...)
	}
	for k, v := range t1.meta {
		out.SetMeta(k, v)
	}
	for k, v := range t2.meta {
		out.SetMeta(k, v)
	}
	switch {
	case t2.selection != nil:
		out.SetSelection(*t2.selection)
	case t1.selection != nil:
		out.SetSelection(*t1.selection)
	}
	return out, nil
}

// FromSteps builds a transaction from precomputed steps without applying
// them. Apply computes the result later.
func FromSteps(version uint64, steps ...Step) *Transaction {
	return &Transaction{ID: uuid.NewString(), BaseVersion: version, Steps: steps}
}
