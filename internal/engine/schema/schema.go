package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TopNodeName is the name of the document root type.
const TopNodeName = "doc"

// NodeSpec describes a node type to register.
type NodeSpec struct {
	// Name uniquely identifies the type.
	Name string

	// Content is the content expression. Empty means the type is a leaf.
	Content string

	// Group is a space-separated list of groups the type belongs to.
	Group string

	// Attrs declares the attributes of the type.
	Attrs map[string]AttributeSpec

	// Marks lists the mark types allowed on inline content. Nil allows all.
	Marks []string

	// NoMarks disallows marks on inline content entirely.
	NoMarks bool

	// Inline marks the type as inline content.
	Inline bool

	// Text marks the type as the text node type.
	Text bool

	// Atom marks the type as opaque: no directly editable children.
	Atom bool

	// Isolating prevents merges and splits from crossing the node boundary.
	Isolating bool

	// Defining keeps the node when its content is replaced wholesale.
	Defining bool

	// Unselectable prevents the node from being the target of a node selection.
	Unselectable bool
}

// MarkSpec describes a mark type to register.
type MarkSpec struct {
	Name  string
	Attrs map[string]AttributeSpec
}

// NodeType is a registered node type.
type NodeType struct {
	name    string
	spec    NodeSpec
	groups  []string
	content *automaton
	terms   []string
	marks   map[string]bool
	rank    int
	reg     *Registry
}

// Name returns the type name.
func (t *NodeType) Name() string { return t.name }

// Spec returns the spec the type was registered from.
func (t *NodeType) Spec() NodeSpec { return t.spec }

// Groups returns the groups the type belongs to.
func (t *NodeType) Groups() []string {
	out := make([]string, len(t.groups))
	copy(out, t.groups)
	return out
}

// ContentExpr returns the source content expression.
func (t *NodeType) ContentExpr() string { return t.spec.Content }

// InGroup reports whether the type belongs to group g.
func (t *NodeType) InGroup(g string) bool {
	for _, own := range t.groups {
		if own == g {
			return true
		}
	}
	return false
}

func (t *NodeType) matchesTerm(term string) bool {
	return t.name == term || t.InGroup(term)
}

// IsText reports whether this is the text type.
func (t *NodeType) IsText() bool { return t.spec.Text }

// IsInline reports whether the type is inline content.
func (t *NodeType) IsInline() bool { return t.spec.Inline || t.spec.Text }

// IsBlock reports whether the type is block content.
func (t *NodeType) IsBlock() bool { return !t.IsInline() }

// IsLeaf reports whether the type accepts no children.
func (t *NodeType) IsLeaf() bool { return t.content == nil }

// IsAtom reports whether the type is opaque. Non-text leaves are atoms.
func (t *NodeType) IsAtom() bool { return t.spec.Atom || (t.IsLeaf() && !t.IsText()) }

// IsIsolating reports whether edits may not cross the node boundary.
func (t *NodeType) IsIsolating() bool { return t.spec.Isolating }

// IsDefining reports whether the node survives wholesale content replacement.
func (t *NodeType) IsDefining() bool { return t.spec.Defining }

// IsSelectable reports whether the node can be selected as a whole.
func (t *NodeType) IsSelectable() bool { return !t.spec.Unselectable && !t.IsText() }

// IsTextblock reports whether the type is a block holding inline content.
func (t *NodeType) IsTextblock() bool {
	if t.IsInline() || t.content == nil {
		return false
	}
	for _, term := range t.terms {
		for _, cand := range t.reg.resolve(term) {
			if cand.IsInline() {
				return true
			}
		}
	}
	return false
}

// AllowsMark reports whether inline content of this type may carry the mark.
func (t *NodeType) AllowsMark(m *MarkType) bool {
	if t.spec.NoMarks {
		return false
	}
	if t.marks == nil {
		return true
	}
	return t.marks[m.name]
}

// ValidContent reports whether the child types match the content expression.
func (t *NodeType) ValidContent(children []*NodeType) bool {
	if t.content == nil {
		return len(children) == 0
	}
	return t.content.match(children)
}

// AttrSpecs returns the attribute specs of the type.
func (t *NodeType) AttrSpecs() map[string]AttributeSpec { return t.spec.Attrs }

// HasRequiredAttrs reports whether any attribute lacks a default.
func (t *NodeType) HasRequiredAttrs() bool {
	for _, spec := range t.spec.Attrs {
		if spec.Required {
			return true
		}
	}
	return false
}

// ComputeAttrs validates attrs and fills defaults.
func (t *NodeType) ComputeAttrs(given map[string]any) (map[string]any, error) {
	return computeAttrs(t.name, t.spec.Attrs, given)
}

// DefaultContent returns the shortest child sequence the type accepts.
func (t *NodeType) DefaultContent() ([]*NodeType, error) { return t.reg.DefaultContent(t) }

// String returns the type name.
func (t *NodeType) String() string { return t.name }

// MarkType is a registered mark type.
type MarkType struct {
	name string
	spec MarkSpec
	rank int
}

// Name returns the mark name.
func (m *MarkType) Name() string { return m.name }

// Rank orders marks within a mark set.
func (m *MarkType) Rank() int { return m.rank }

// AttrSpecs returns the declared attributes.
func (m *MarkType) AttrSpecs() map[string]AttributeSpec { return m.spec.Attrs }

// ComputeAttrs validates attrs and fills defaults.
func (m *MarkType) ComputeAttrs(given map[string]any) (map[string]any, error) {
	return computeAttrs(m.name, m.spec.Attrs, given)
}

// String returns the mark name.
func (m *MarkType) String() string { return m.name }

// Registry holds the node and mark types of a schema.
//
// Types are registered at startup; after Finalize the registry is read-only
// and safe for concurrent use without locking.
type Registry struct {
	mu     sync.Mutex
	nodes  map[string]*NodeType
	order  []*NodeType
	groups map[string][]*NodeType
	marks  map[string]*MarkType
	morder []*MarkType
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:  make(map[string]*NodeType),
		groups: make(map[string][]*NodeType),
		marks:  make(map[string]*MarkType),
	}
}

// Register adds a node type.
func (r *Registry) Register(spec NodeSpec) (*NodeType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, &SchemaError{Type: spec.Name, Reason: "registry is finalized"}
	}
	if spec.Name == "" {
		return nil, &SchemaError{Type: spec.Name, Reason: "empty name"}
	}
	if _, exists := r.nodes[spec.Name]; exists {
		return nil, &SchemaError{Type: spec.Name, Reason: "name already registered"}
	}
	if spec.Text && spec.Content != "" {
		return nil, &SchemaError{Type: spec.Name, Reason: "text type cannot have content"}
	}
	if spec.Atom && spec.Content != "" {
		return nil, &SchemaError{Type: spec.Name, Reason: "atom type cannot have content"}
	}

	t := &NodeType{
		name:   spec.Name,
		spec:   spec,
		groups: strings.Fields(spec.Group),
		rank:   len(r.order),
		reg:    r,
	}

	parsed, err := parseContent(spec.Content)
	if err != nil {
		return nil, &SchemaError{Type: spec.Name, Reason: err.Error()}
	}
	if parsed != nil {
		t.terms = dedupe(parsed.names(nil))
		for _, term := range t.terms {
			if term == spec.Name || t.InGroup(term) {
				continue
			}
			if _, ok := r.nodes[term]; ok {
				continue
			}
			if len(r.groups[term]) > 0 {
				continue
			}
			return nil, &SchemaError{
				Type:   spec.Name,
				Reason: fmt.Sprintf("content expression references undeclared type or group %q", term),
			}
		}
		t.content = compileContent(parsed)
	}

	if spec.Marks != nil {
		t.marks = make(map[string]bool, len(spec.Marks))
		for _, name := range spec.Marks {
			if _, ok := r.marks[name]; !ok {
				return nil, &SchemaError{Type: spec.Name, Reason: fmt.Sprintf("unknown mark %q", name)}
			}
			t.marks[name] = true
		}
	}

	for name, a := range spec.Attrs {
		if a.Required || a.Default == nil {
			continue
		}
		if _, err := normalizeValue(a.Default); err != nil {
			return nil, &SchemaError{Type: spec.Name, Reason: fmt.Sprintf("attribute %q: %v", name, err)}
		}
	}

	r.nodes[spec.Name] = t
	r.order = append(r.order, t)
	for _, g := range t.groups {
		r.groups[g] = append(r.groups[g], t)
	}
	return t, nil
}

// MustRegister is like Register but panics on error. Intended for presets.
func (r *Registry) MustRegister(spec NodeSpec) *NodeType {
	t, err := r.Register(spec)
	if err != nil {
		panic(err)
	}
	return t
}

// RegisterMark adds a mark type.
func (r *Registry) RegisterMark(spec MarkSpec) (*MarkType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, &SchemaError{Type: spec.Name, Reason: "registry is finalized"}
	}
	if spec.Name == "" {
		return nil, &SchemaError{Type: spec.Name, Reason: "empty name"}
	}
	if _, exists := r.marks[spec.Name]; exists {
		return nil, &SchemaError{Type: spec.Name, Reason: "mark already registered"}
	}
	m := &MarkType{name: spec.Name, spec: spec, rank: len(r.morder)}
	r.marks[spec.Name] = m
	r.morder = append(r.morder, m)
	return m, nil
}

// Finalize freezes the registry. It requires a doc type to exist.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	top, ok := r.nodes[TopNodeName]
	if !ok {
		return &SchemaError{Type: TopNodeName, Reason: "missing top node type"}
	}
	if top.IsLeaf() {
		return &SchemaError{Type: TopNodeName, Reason: "top node type must have content"}
	}
	r.frozen = true
	return nil
}

// Node returns the node type with the given name.
func (r *Registry) Node(name string) (*NodeType, bool) {
	t, ok := r.nodes[name]
	return t, ok
}

// Mark returns the mark type with the given name.
func (r *Registry) Mark(name string) (*MarkType, bool) {
	m, ok := r.marks[name]
	return m, ok
}

// Top returns the doc type, or nil when not registered.
func (r *Registry) Top() *NodeType {
	return r.nodes[TopNodeName]
}

// Text returns the first registered text type, or nil.
func (r *Registry) Text() *NodeType {
	for _, t := range r.order {
		if t.IsText() {
			return t
		}
	}
	return nil
}

// Nodes returns all node types in registration order.
func (r *Registry) Nodes() []*NodeType {
	out := make([]*NodeType, len(r.order))
	copy(out, r.order)
	return out
}

// Marks returns all mark types in registration order.
func (r *Registry) Marks() []*MarkType {
	out := make([]*MarkType, len(r.morder))
	copy(out, r.morder)
	return out
}

// GroupMembers returns the types in group g, in registration order.
func (r *Registry) GroupMembers(g string) []*NodeType {
	members := r.groups[g]
	out := make([]*NodeType, len(members))
	copy(out, members)
	return out
}

// resolve returns the types a content term may stand for.
func (r *Registry) resolve(term string) []*NodeType {
	var out []*NodeType
	if t, ok := r.nodes[term]; ok {
		out = append(out, t)
	}
	out = append(out, r.groups[term]...)
	return out
}

// ContentMatches reports whether children are a valid content sequence for
// the named type.
func (r *Registry) ContentMatches(typeName string, children []string) (bool, error) {
	t, ok := r.nodes[typeName]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	types := make([]*NodeType, len(children))
	for i, name := range children {
		ct, ok := r.nodes[name]
		if !ok {
			return false, fmt.Errorf("%w: %q", ErrUnknownType, name)
		}
		types[i] = ct
	}
	return t.ValidContent(types), nil
}

// DefaultContent returns the shortest child type sequence accepted by t,
// choosing types that can themselves be created without input.
func (r *Registry) DefaultContent(t *NodeType) ([]*NodeType, error) {
	if t.content == nil {
		return nil, nil
	}
	a := t.content

	type item struct {
		set  stateSet
		path []*NodeType
	}
	start := a.start()
	queue := []item{{set: start}}
	seen := map[string]bool{start.key(): true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if a.accepts(cur.set) {
			return cur.path, nil
		}

		states := make([]int, 0, len(cur.set))
		for s := range cur.set {
			states = append(states, s)
		}
		sort.Ints(states)

		for _, s := range states {
			for _, e := range a.edges[s] {
				if e.term == "" {
					continue
				}
				cand := r.fillCandidate(e.term)
				if cand == nil {
					continue
				}
				next := a.step(cur.set, cand)
				k := next.key()
				if len(next) == 0 || seen[k] {
					continue
				}
				seen[k] = true
				path := make([]*NodeType, len(cur.path), len(cur.path)+1)
				copy(path, cur.path)
				queue = append(queue, item{set: next, path: append(path, cand)})
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCannotFill, t.name)
}

func (r *Registry) fillCandidate(term string) *NodeType {
	for _, t := range r.resolve(term) {
		if t.IsText() || t.HasRequiredAttrs() {
			continue
		}
		return t
	}
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
