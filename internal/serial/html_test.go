package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/folio/internal/engine/enginetest"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/preset"
)

func TestToHTML(t *testing.T) {
	b := enginetest.New(t)
	link := b.Mark(preset.Link, map[string]any{"href": "https://example.org"})
	tests := []struct {
		name string
		doc  *model.Node
		want string
	}{
		{"paragraph", b.Doc(b.P("Hello")), `<p>Hello</p>`},
		{"heading", b.Doc(b.H(2, "Title")), `<h2>Title</h2>`},
		{"callout", b.Doc(b.Callout("warning", b.P("Careful"))), `<div data-node="callout" data-type="warning"><p>Careful</p></div>`},
		{"default attrs omitted", b.Doc(b.Callout("info", b.P("Hi"))), `<div data-node="callout"><p>Hi</p></div>`},
		{
			"marks",
			b.Doc(b.Node(preset.Paragraph, nil, b.Text("bold", preset.Bold), b.Text(" and "), b.TextWith("link", link))),
			`<p><strong>bold</strong> and <a href="https://example.org">link</a></p>`,
		},
		{
			"code block",
			b.Doc(b.Node(preset.CodeBlock, map[string]any{"language": "go"}, b.Text("x := 1"))),
			`<pre data-language="go"><code>x := 1</code></pre>`,
		},
		{"image", b.Doc(b.Image("https://cdn.example/a.png")), `<img src="https://cdn.example/a.png"/>`},
		{"escaping", b.Doc(b.P("a < b & c")), `<p>a &lt; b &amp; c</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(b.Schema, tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTMLRoundTrip(t *testing.T) {
	b := enginetest.New(t)
	docs := map[string]*model.Node{
		"text":    b.Doc(b.H(1, "Welcome"), b.P("Opening hours")),
		"marks":   b.Doc(b.Node(preset.Paragraph, nil, b.Text("Plain "), b.Text("bold", preset.Bold), b.Text(" tail", preset.Italic))),
		"callout": b.Doc(b.Callout("success", b.P("Saved"))),
		"card":    b.Doc(b.Card("Tickets", b.P("Adults 12"))),
		"list":    b.Doc(b.BulletList("One", "Two")),
		"columns": b.Doc(b.Node(preset.Columns, map[string]any{"gap": "16px"},
			b.Node(preset.Column, nil, b.P("L")),
			b.Node(preset.Column, nil, b.P("R")),
		)),
		"page": b.Doc(b.Node(preset.CustomPage, map[string]any{"height": "50vh", "margin": "0"}, b.P("x"))),
		"gallery": b.Doc(b.Node(preset.Gallery, map[string]any{"columns": 2},
			b.Image("https://cdn.example/a.png"), b.Image("https://cdn.example/b.png"))),
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			src, err := ToHTML(b.Schema, doc)
			require.NoError(t, err)
			back, err := FromHTML(b.Schema, src)
			require.NoError(t, err)
			assert.True(t, doc.Equal(back), "html %s\ngot  %s\nwant %s", src, back, doc)
		})
	}
}

func TestFromHTMLSanitizes(t *testing.T) {
	b := enginetest.New(t)
	doc, err := FromHTML(b.Schema, `<p onclick="steal()">Hi<script>alert(1)</script></p><iframe src="https://evil.example"></iframe>`)
	require.NoError(t, err)
	assert.True(t, b.Doc(b.P("Hi")).Equal(doc), "got %s", doc)
}

func TestFromHTMLLooseContent(t *testing.T) {
	b := enginetest.New(t)
	doc, err := FromHTML(b.Schema, `Loose <b>text</b><section><p>Inside</p></section>`)
	require.NoError(t, err)
	want := b.Doc(
		b.Node(preset.Paragraph, nil, b.Text("Loose "), b.Text("text", preset.Bold)),
		b.P("Inside"),
	)
	assert.True(t, want.Equal(doc), "got %s", doc)
}

func TestFromHTMLEmpty(t *testing.T) {
	b := enginetest.New(t)
	doc, err := FromHTML(b.Schema, "  ")
	require.NoError(t, err)
	require.NoError(t, doc.Check())
	assert.Equal(t, 1, doc.ChildCount())
}

func TestFromHTMLDropsDisallowedMarks(t *testing.T) {
	b := enginetest.New(t)
	doc, err := FromHTML(b.Schema, `<pre><code>if <b>x</b></code></pre>`)
	require.NoError(t, err)
	want := b.Doc(b.Node(preset.CodeBlock, nil, b.Text("if x")))
	assert.True(t, want.Equal(doc), "got %s", doc)
}
