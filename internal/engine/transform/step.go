package transform

import (
	"fmt"
	"sort"

	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
)

// Step kinds.
const (
	KindInsert     = "insert"
	KindDelete     = "delete"
	KindReplace    = "replace"
	KindSetAttr    = "setAttr"
	KindWrap       = "wrap"
	KindAddMark    = "addMark"
	KindRemoveMark = "removeMark"
	KindBatch      = "batch"
)

// Step is an atomic change to a document.
type Step interface {
	// Kind returns the step kind.
	Kind() string

	// Apply applies the step, returning the new document and its map.
	Apply(doc *model.Node) (StepResult, error)

	// Invert returns the step that undoes this one. doc is the document
	// the step applies to.
	Invert(doc *model.Node) (Step, error)

	// Map returns the step with positions mapped through m, or nil when
	// the mapping deleted the content the step targets.
	Map(m *model.Mapping) Step
}

// StepResult is the outcome of applying one step.
type StepResult struct {
	Doc *model.Node
	Map *model.StepMap
}

func sizeOf(nodes []*model.Node) int {
	n := 0
	for _, node := range nodes {
		n += node.NodeSize()
	}
	return n
}

// ReplaceStep replaces the flat range [From, To) with Nodes.
type ReplaceStep struct {
	From, To int
	Nodes    []*model.Node
}

// Kind implements Step.
func (s *ReplaceStep) Kind() string { return KindReplace }

// Apply implements Step.
func (s *ReplaceStep) Apply(doc *model.Node) (StepResult, error) {
	out, m, err := model.Replace(doc, s.From, s.To, s.Nodes)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Doc: out, Map: m}, nil
}

// Invert implements Step.
func (s *ReplaceStep) Invert(doc *model.Node) (Step, error) {
	old, err := model.Slice(doc, s.From, s.To)
	if err != nil {
		return nil, err
	}
	return &ReplaceStep{From: s.From, To: s.From + sizeOf(s.Nodes), Nodes: old}, nil
}

// Map implements Step.
func (s *ReplaceStep) Map(m *model.Mapping) Step {
	from := m.MapResult(s.From, 1)
	to := m.MapResult(s.To, -1)
	if from.Deleted && to.Deleted && len(s.Nodes) == 0 {
		return nil
	}
	return &ReplaceStep{From: from.Pos, To: max(from.Pos, to.Pos), Nodes: s.Nodes}
}

func (s *ReplaceStep) String() string {
	return fmt.Sprintf("replace(%d, %d, %d nodes)", s.From, s.To, len(s.Nodes))
}

// InsertStep inserts Nodes at Pos.
type InsertStep struct {
	Pos   int
	Nodes []*model.Node
}

// Kind implements Step.
func (s *InsertStep) Kind() string { return KindInsert }

// Apply implements Step.
func (s *InsertStep) Apply(doc *model.Node) (StepResult, error) {
	out, m, err := model.Insert(doc, s.Pos, s.Nodes...)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Doc: out, Map: m}, nil
}

// Invert implements Step.
func (s *InsertStep) Invert(*model.Node) (Step, error) {
	return &ReplaceStep{From: s.Pos, To: s.Pos + sizeOf(s.Nodes)}, nil
}

// Map implements Step.
func (s *InsertStep) Map(m *model.Mapping) Step {
	r := m.MapResult(s.Pos, 1)
	if r.Deleted {
		return nil
	}
	return &InsertStep{Pos: r.Pos, Nodes: s.Nodes}
}

func (s *InsertStep) String() string {
	return fmt.Sprintf("insert(%d, %d nodes)", s.Pos, len(s.Nodes))
}

// DeleteStep deletes [From, To), joining open edges across parents and
// stopping at isolating boundaries.
type DeleteStep struct {
	From, To int
}

// Kind implements Step.
func (s *DeleteStep) Kind() string { return KindDelete }

// Apply implements Step.
func (s *DeleteStep) Apply(doc *model.Node) (StepResult, error) {
	del, err := model.DeleteRange(doc, s.From, s.To)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Doc: del.Doc, Map: del.Map}, nil
}

// Invert implements Step.
func (s *DeleteStep) Invert(doc *model.Node) (Step, error) {
	del, err := model.DeleteRange(doc, s.From, s.To)
	if err != nil {
		return nil, err
	}
	return &ReplaceStep{From: del.RestoreFrom, To: del.RestoreTo, Nodes: del.Removed}, nil
}

// Map implements Step.
func (s *DeleteStep) Map(m *model.Mapping) Step {
	from := m.Map(s.From, 1)
	to := m.Map(s.To, -1)
	if from >= to {
		return nil
	}
	return &DeleteStep{From: from, To: to}
}

func (s *DeleteStep) String() string { return fmt.Sprintf("delete(%d, %d)", s.From, s.To) }

// SetAttrStep sets one attribute on the node starting at Pos.
type SetAttrStep struct {
	Pos   int
	Name  string
	Value any
}

// Kind implements Step.
func (s *SetAttrStep) Kind() string { return KindSetAttr }

// Apply implements Step.
func (s *SetAttrStep) Apply(doc *model.Node) (StepResult, error) {
	out, m, err := model.SetAttr(doc, s.Pos, s.Name, s.Value)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Doc: out, Map: m}, nil
}

// Invert implements Step.
func (s *SetAttrStep) Invert(doc *model.Node) (Step, error) {
	n, err := model.NodeStartingAt(doc, s.Pos)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%w: %d", model.ErrNoNode, s.Pos)
	}
	return &SetAttrStep{Pos: s.Pos, Name: s.Name, Value: n.Attr(s.Name)}, nil
}

// Map implements Step.
func (s *SetAttrStep) Map(m *model.Mapping) Step {
	r := m.MapResult(s.Pos, 1)
	if r.Deleted {
		return nil
	}
	return &SetAttrStep{Pos: r.Pos, Name: s.Name, Value: s.Value}
}

func (s *SetAttrStep) String() string {
	return fmt.Sprintf("setAttr(%d, %s=%v)", s.Pos, s.Name, s.Value)
}

// WrapStep wraps the blocks covering [From, To) in a node of Type.
type WrapStep struct {
	From, To int
	Type     *schema.NodeType
	Attrs    map[string]any
}

// Kind implements Step.
func (s *WrapStep) Kind() string { return KindWrap }

// Apply implements Step.
func (s *WrapStep) Apply(doc *model.Node) (StepResult, error) {
	out, m, err := model.Wrap(doc, s.From, s.To, s.Type, s.Attrs)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Doc: out, Map: m}, nil
}

// Invert implements Step.
func (s *WrapStep) Invert(doc *model.Node) (Step, error) {
	br, err := model.FindBlockRange(doc, s.From, s.To)
	if err != nil {
		return nil, err
	}
	return &ReplaceStep{From: br.Start, To: br.End + 2, Nodes: br.Nodes()}, nil
}

// Map implements Step.
func (s *WrapStep) Map(m *model.Mapping) Step {
	from := m.Map(s.From, 1)
	to := m.Map(s.To, -1)
	if to < from {
		return nil
	}
	return &WrapStep{From: from, To: to, Type: s.Type, Attrs: s.Attrs}
}

func (s *WrapStep) String() string {
	return fmt.Sprintf("wrap(%d, %d, %s)", s.From, s.To, s.Type.Name())
}

// AddMarkStep adds Mark to the text in [From, To).
type AddMarkStep struct {
	From, To int
	Mark     *model.Mark
}

// Kind implements Step.
func (s *AddMarkStep) Kind() string { return KindAddMark }

// Apply implements Step.
func (s *AddMarkStep) Apply(doc *model.Node) (StepResult, error) {
	out, m, err := model.AddMark(doc, s.From, s.To, s.Mark)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Doc: out, Map: m}, nil
}

// Invert implements Step.
func (s *AddMarkStep) Invert(doc *model.Node) (Step, error) {
	return restoreInline(doc, s.From, s.To)
}

// Map implements Step.
func (s *AddMarkStep) Map(m *model.Mapping) Step {
	from, to := m.Map(s.From, 1), m.Map(s.To, -1)
	if from >= to {
		return nil
	}
	return &AddMarkStep{From: from, To: to, Mark: s.Mark}
}

func (s *AddMarkStep) String() string {
	return fmt.Sprintf("addMark(%d, %d, %s)", s.From, s.To, s.Mark)
}

// RemoveMarkStep removes marks of Type from the text in [From, To).
// A nil Type removes every mark.
type RemoveMarkStep struct {
	From, To int
	Type     *schema.MarkType
}

// Kind implements Step.
func (s *RemoveMarkStep) Kind() string { return KindRemoveMark }

// Apply implements Step.
func (s *RemoveMarkStep) Apply(doc *model.Node) (StepResult, error) {
	out, m, err := model.RemoveMark(doc, s.From, s.To, s.Type)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Doc: out, Map: m}, nil
}

// Invert implements Step.
func (s *RemoveMarkStep) Invert(doc *model.Node) (Step, error) {
	return restoreInline(doc, s.From, s.To)
}

// Map implements Step.
func (s *RemoveMarkStep) Map(m *model.Mapping) Step {
	from, to := m.Map(s.From, 1), m.Map(s.To, -1)
	if from >= to {
		return nil
	}
	return &RemoveMarkStep{From: from, To: to, Type: s.Type}
}

func (s *RemoveMarkStep) String() string {
	name := "*"
	if s.Type != nil {
		name = s.Type.Name()
	}
	return fmt.Sprintf("removeMark(%d, %d, %s)", s.From, s.To, name)
}

// restoreInline returns steps that put back the inline content of every
// textblock segment in [from, to). Mark steps never change sizes, so the
// segment positions stay valid after the mark step.
func restoreInline(doc *model.Node, from, to int) (Step, error) {
	segments := model.TextblockSegments(doc, from, to)
	steps := make([]Step, 0, len(segments))
	for _, seg := range segments {
		old, err := model.Slice(doc, seg[0], seg[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotInvertible, err)
		}
		steps = append(steps, &ReplaceStep{From: seg[0], To: seg[1], Nodes: old})
	}
	if len(steps) == 1 {
		return steps[0], nil
	}
	return &BatchStep{Steps: steps}, nil
}

// BatchStep applies several steps as one.
type BatchStep struct {
	Steps []Step
}

// Kind implements Step.
func (s *BatchStep) Kind() string { return KindBatch }

// Apply implements Step. The sub-steps must preserve sizes, so their maps
// merge into one map in the coordinates of doc.
func (s *BatchStep) Apply(doc *model.Node) (StepResult, error) {
	var ranges []int
	for _, st := range s.Steps {
		res, err := st.Apply(doc)
		if err != nil {
			return StepResult{}, err
		}
		r := res.Map.Ranges()
		for i := 0; i < len(r); i += 3 {
			if r[i+1] != r[i+2] {
				return StepResult{}, fmt.Errorf("transform: batch step %s changes sizes", st.Kind())
			}
		}
		ranges = append(ranges, r...)
		doc = res.Doc
	}
	return StepResult{Doc: doc, Map: model.NewStepMap(sortTriples(ranges)...)}, nil
}

func sortTriples(r []int) []int {
	n := len(r) / 3
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return r[idx[a]*3] < r[idx[b]*3] })
	out := make([]int, 0, len(r))
	for _, i := range idx {
		out = append(out, r[i*3], r[i*3+1], r[i*3+2])
	}
	return out
}

// Invert implements Step.
func (s *BatchStep) Invert(doc *model.Node) (Step, error) {
	inv := make([]Step, len(s.Steps))
	for i, st := range s.Steps {
		is, err := st.Invert(doc)
		if err != nil {
			return nil, err
		}
		inv[len(s.Steps)-1-i] = is
		res, err := st.Apply(doc)
		if err != nil {
			return nil, err
		}
		doc = res.Doc
	}
	return &BatchStep{Steps: inv}, nil
}

// Map implements Step.
func (s *BatchStep) Map(m *model.Mapping) Step {
	var out []Step
	for _, st := range s.Steps {
		if mapped := st.Map(m); mapped != nil {
			out = append(out, mapped)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &BatchStep{Steps: out}
}
