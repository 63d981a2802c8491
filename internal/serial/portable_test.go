package serial

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/folio/internal/engine/enginetest"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/preset"
)

// minimalSchema is {doc: block+, paragraph: text*, callout: paragraph+}.
func minimalSchema(t *testing.T) *schema.Registry {
	t.Helper()
	r := schema.NewRegistry()
	for _, spec := range []schema.NodeSpec{
		{Name: "text", Group: "inline", Text: true},
		{Name: "paragraph", Content: "text*", Group: "block"},
		{Name: "callout", Content: "paragraph+", Group: "block"},
		{Name: "doc", Content: "block+"},
	} {
		_, err := r.Register(spec)
		require.NoError(t, err)
	}
	require.NoError(t, r.Finalize())
	return r
}

func mustNode(t *testing.T, r *schema.Registry, name string, children ...*model.Node) *model.Node {
	t.Helper()
	nt, ok := r.Node(name)
	require.True(t, ok, name)
	n, err := model.NewNode(nt, nil, children...)
	require.NoError(t, err)
	return n
}

func TestCalloutHelloRoundTrip(t *testing.T) {
	r := minimalSchema(t)
	hello, err := model.NewText(r.Text(), "Hello")
	require.NoError(t, err)
	doc := mustNode(t, r, "doc", mustNode(t, r, "callout", mustNode(t, r, "paragraph", hello)))

	data, err := MarshalJSON(r, doc)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"doc","content":[{"type":"callout","content":[{"type":"paragraph","content":[{"type":"text","text":"Hello"}]}]}]}`,
		string(data))

	back, err := UnmarshalJSON(r, data)
	require.NoError(t, err)
	assert.True(t, doc.Equal(back), "got %s, want %s", back, doc)
}

func museumDocs(b *enginetest.Builder) map[string]*model.Node {
	link := b.Mark(preset.Link, map[string]any{"href": "https://museum.example/visit", "target": "_blank"})
	color := b.Mark(preset.TextStyle, map[string]any{"color": "#aa3300"})
	return map[string]*model.Node{
		"paragraphs": b.Doc(b.P("One"), b.P(""), b.P("Three")),
		"marks": b.Doc(b.Node(preset.Paragraph, nil,
			b.Text("Plain "),
			b.Text("bold", preset.Bold),
			b.Text(" both", preset.Bold, preset.Italic),
			b.TextWith(" visit", link),
			b.TextWith(" red", color),
		)),
		"blocks": b.Doc(
			b.H(2, "Exhibition"),
			b.Callout("warning", b.P("Closed Mondays")),
			b.Card("Tickets", b.P("Adults 12"), b.BulletList("Students", "Seniors")),
			b.Node(preset.Gallery, map[string]any{"columns": 2}, b.Image("https://cdn.example/a.png"), b.Image("https://cdn.example/b.png")),
		),
		"layout": b.Doc(
			b.Node(preset.Columns, map[string]any{"gap": "24px"},
				b.Node(preset.Column, nil, b.P("Left")),
				b.Node(preset.Column, nil, b.P("Right")),
			),
			b.Node(preset.CustomPage, map[string]any{"height": "100vh", "padding": "2rem", "background": "#fff"}, b.P("Landing")),
			b.Node(preset.HorizontalRule, nil),
			b.Node(preset.UploadPlaceholder, map[string]any{"uploadId": "u-1", "fileName": "mona.jpg"}),
		),
		"unicode": b.Doc(b.P("café 👩‍👩‍👧 naïve")),
	}
}

func TestPortableRoundTripMuseum(t *testing.T) {
	b := enginetest.New(t)
	for name, doc := range museumDocs(b) {
		t.Run(name, func(t *testing.T) {
			tree, err := ToPortable(b.Schema, doc)
			require.NoError(t, err)
			back, err := FromPortable(b.Schema, tree)
			require.NoError(t, err)
			assert.True(t, doc.Equal(back), "got %s, want %s", back, doc)

			data, err := MarshalJSON(b.Schema, doc)
			require.NoError(t, err)
			back, err = UnmarshalJSON(b.Schema, data)
			require.NoError(t, err)
			assert.True(t, doc.Equal(back), "json: got %s, want %s", back, doc)
		})
	}
}

func TestFromPortableNil(t *testing.T) {
	b := enginetest.New(t)
	doc, err := FromPortable(b.Schema, nil)
	require.NoError(t, err)
	assert.Equal(t, "doc", doc.Type().Name())
	require.NoError(t, doc.Check())

	doc, err = UnmarshalJSON(b.Schema, []byte("null"))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.ChildCount())
}

func TestToPortableUnknownType(t *testing.T) {
	b := enginetest.New(t)
	doc := b.Doc(b.Callout("info", b.P("x")))

	// A document built against another schema, e.g. after a schema change.
	_, err := ToPortable(minimalSchema(t), doc)
	var unk *UnknownNodeTypeError
	require.ErrorAs(t, err, &unk)
	assert.Equal(t, "node", unk.Kind)
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestFromPortableUnknownMark(t *testing.T) {
	b := enginetest.New(t)
	tree := &PortableNode{Type: "doc", Content: []*PortableNode{{
		Type: "paragraph",
		Content: []*PortableNode{{
			Type: "text", Text: "x", Marks: []PortableMark{{Type: "sparkle"}},
		}},
	}}}
	_, err := FromPortable(b.Schema, tree)
	var unk *UnknownNodeTypeError
	require.ErrorAs(t, err, &unk)
	assert.Equal(t, "mark", unk.Kind)
	assert.Equal(t, "sparkle", unk.Type)
}

func TestFromPortableInvalidContent(t *testing.T) {
	b := enginetest.New(t)
	tree := &PortableNode{Type: "doc", Content: []*PortableNode{{Type: "callout"}}}
	_, err := FromPortable(b.Schema, tree)
	require.Error(t, err)

	_, err = FromPortable(b.Schema, &PortableNode{Type: "paragraph"})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestScanTypes(t *testing.T) {
	data := []byte(`{"type":"doc","content":[
		{"type":"paragraph","content":[{"type":"text","text":"a","marks":[{"type":"bold"},{"type":"link","attrs":{"href":"x"}}]}]},
		{"type":"callout","content":[{"type":"paragraph"}]}]}`)
	types, err := ScanTypes(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"callout", "doc", "paragraph", "text"}, types.Nodes)
	assert.Equal(t, []string{"bold", "link"}, types.Marks)

	_, err = ScanTypes([]byte(`{"type":`))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestUnmarshalUnknownTypeBeforeDecode(t *testing.T) {
	b := enginetest.New(t)
	_, err := UnmarshalJSON(b.Schema, []byte(`{"type":"doc","content":[{"type":"marquee"}]}`))
	var unk *UnknownNodeTypeError
	require.ErrorAs(t, err, &unk)
	assert.Equal(t, "marquee", unk.Type)
}

func TestPrettyIsStillValid(t *testing.T) {
	b := enginetest.New(t)
	data, err := MarshalJSON(b.Schema, b.Doc(b.P("x")))
	require.NoError(t, err)
	out := Pretty(data)
	assert.Contains(t, string(out), "\n")
	assert.True(t, json.Valid(out))
	assert.JSONEq(t, string(data), string(Compact(out)))
}
