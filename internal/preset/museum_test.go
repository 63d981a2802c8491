package preset

import (
	"testing"

	"github.com/dshills/folio/internal/engine/model"
)

func TestMuseumSchemaBuilds(t *testing.T) {
	r, err := NewMuseumSchema()
	if err != nil {
		t.Fatalf("NewMuseumSchema: %v", err)
	}
	if len(r.Nodes()) != len(NodeSpecs()) {
		t.Errorf("registered %d node types, want %d", len(r.Nodes()), len(NodeSpecs()))
	}
	if len(r.Marks()) != len(MarkSpecs()) {
		t.Errorf("registered %d marks, want %d", len(r.Marks()), len(MarkSpecs()))
	}
}

func TestMuseumSchemaDefaults(t *testing.T) {
	r := MustMuseumSchema()
	tests := []struct {
		name string
		want string
	}{
		{Doc, "doc(paragraph)"},
		{Callout, "callout(paragraph)"},
		{Card, "card(cardHeader, cardContent(paragraph))"},
		{Columns, "columns(column(paragraph), column(paragraph))"},
		{CustomPage, "customPage(paragraph)"},
		{BulletList, "bulletList(listItem(paragraph))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nt, ok := r.Node(tt.name)
			if !ok {
				t.Fatalf("missing type %s", tt.name)
			}
			n, err := model.CreateAndFill(nt, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got := n.String(); got != tt.want {
				t.Errorf("CreateAndFill(%s) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestMuseumSchemaFlags(t *testing.T) {
	r := MustMuseumSchema()
	for _, name := range []string{Card, Gallery, Column, CustomPage} {
		nt, _ := r.Node(name)
		if !nt.IsIsolating() {
			t.Errorf("%s should be isolating", name)
		}
	}
	for _, name := range []string{Image, Video, UploadPlaceholder, HorizontalRule} {
		nt, _ := r.Node(name)
		if !nt.IsAtom() {
			t.Errorf("%s should be atomic", name)
		}
	}
	code, _ := r.Node(CodeBlock)
	bold, _ := r.Mark(Bold)
	if code.AllowsMark(bold) {
		t.Error("codeBlock should not allow marks")
	}
	if _, err := code.ComputeAttrs(map[string]any{"language": "go"}); err != nil {
		t.Error(err)
	}
	gallery, _ := r.Node(Gallery)
	if _, err := model.CreateAndFill(gallery, nil); err == nil {
		t.Error("gallery requires images with a src and cannot be filled")
	}
}
