package serial

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
)

// Types lists the node and mark type names used in a serialized tree.
type Types struct {
	Nodes []string
	Marks []string
}

// ScanTypes collects the type names in raw portable JSON without decoding
// it. It is a cheap pre-flight check before a full load.
func ScanTypes(data []byte) (Types, error) {
	if !gjson.ValidBytes(data) {
		return Types{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	nodes, marks := map[string]bool{}, map[string]bool{}
	var walk func(r gjson.Result)
	walk = func(r gjson.Result) {
		if t := r.Get("type"); t.Exists() {
			nodes[t.String()] = true
		}
		r.Get("marks").ForEach(func(_, m gjson.Result) bool {
			marks[m.Get("type").String()] = true
			return true
		})
		r.Get("content").ForEach(func(_, c gjson.Result) bool {
			walk(c)
			return true
		})
	}
	walk(gjson.ParseBytes(data))
	return Types{Nodes: sortedSet(nodes), Marks: sortedSet(marks)}, nil
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CheckTypes returns an UnknownNodeTypeError for the first type in data
// that reg does not know.
func CheckTypes(reg *schema.Registry, data []byte) error {
	types, err := ScanTypes(data)
	if err != nil {
		return err
	}
	for _, n := range types.Nodes {
		if _, ok := reg.Node(n); !ok {
			return &UnknownNodeTypeError{Kind: "node", Type: n}
		}
	}
	for _, m := range types.Marks {
		if _, ok := reg.Mark(m); !ok {
			return &UnknownNodeTypeError{Kind: "mark", Type: m}
		}
	}
	return nil
}

// MarshalJSON encodes doc as portable JSON.
func MarshalJSON(reg *schema.Registry, doc *model.Node) ([]byte, error) {
	tree, err := ToPortable(reg, doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// UnmarshalJSON decodes portable JSON into a document.
func UnmarshalJSON(reg *schema.Registry, data []byte) (*model.Node, error) {
	tree, err := DecodeTree(reg, data)
	if err != nil {
		return nil, err
	}
	return FromPortable(reg, tree)
}

// DecodeTree decodes portable JSON after checking its types against reg.
// JSON null decodes to a nil tree.
func DecodeTree(reg *schema.Registry, data []byte) (*PortableNode, error) {
	if err := CheckTypes(reg, data); err != nil {
		return nil, err
	}
	if gjson.ParseBytes(data).Type == gjson.Null {
		return nil, nil
	}
	var tree PortableNode
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &tree, nil
}

// Pretty indents portable JSON for humans.
func Pretty(data []byte) []byte {
	return pretty.Pretty(data)
}

// Compact strips insignificant whitespace.
func Compact(data []byte) []byte {
	return pretty.Ugly(data)
}
