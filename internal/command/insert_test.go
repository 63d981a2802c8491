package command

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/folio/internal/engine/enginetest"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/preset"
)

func emptyDoc(b *enginetest.Builder) *model.Node { return b.Doc(b.P("")) }

func TestInsertReplacesEmptyParagraph(t *testing.T) {
	tests := []struct {
		name    string
		command string
		params  Params
		want    func(b *enginetest.Builder) *model.Node
		cursor  int
	}{
		{
			name:    "callout",
			command: InsertCallout,
			want:    func(b *enginetest.Builder) *model.Node { return b.Doc(b.Callout("info", b.P(""))) },
			cursor:  2,
		},
		{
			name:    "warning callout with text",
			command: InsertCallout,
			params:  Params{"type": "warning", "text": "Mind the step"},
			want:    func(b *enginetest.Builder) *model.Node { return b.Doc(b.Callout("warning", b.P("Mind the step"))) },
			cursor:  2,
		},
		{
			name:    "card",
			command: InsertCard,
			params:  Params{"header": "Hi"},
			want:    func(b *enginetest.Builder) *model.Node { return b.Doc(b.Card("Hi", b.P(""))) },
			cursor:  2,
		},
		{
			name:    "three columns",
			command: InsertColumns,
			params:  Params{"count": 3},
			want: func(b *enginetest.Builder) *model.Node {
				col := func() *model.Node { return b.Node(preset.Column, nil, b.P("")) }
				return b.Doc(b.Node(preset.Columns, nil, col(), col(), col()))
			},
			cursor: 3,
		},
		{
			name:    "custom page",
			command: InsertCustomPage,
			params:  Params{"height": "300px"},
			want: func(b *enginetest.Builder) *model.Node {
				return b.Doc(b.Node(preset.CustomPage, map[string]any{"height": "300px"}, b.P("")))
			},
			cursor: 2,
		},
		{
			name:    "heading",
			command: InsertHeading,
			params:  Params{"level": 2, "text": "Rooms"},
			want:    func(b *enginetest.Builder) *model.Node { return b.Doc(b.H(2, "Rooms")) },
			cursor:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, emptyDoc, selection.Cursor(1))
			f.exec(t, tt.command, tt.params)
			f.expect(t, tt.want(f.b), selection.Cursor(tt.cursor))
		})
	}
}

func TestInsertSelectsAtoms(t *testing.T) {
	tests := []struct {
		name    string
		command string
		params  Params
		want    func(b *enginetest.Builder) *model.Node
	}{
		{
			name:    "divider",
			command: InsertDivider,
			want:    func(b *enginetest.Builder) *model.Node { return b.Doc(b.Node(preset.HorizontalRule, nil)) },
		},
		{
			name:    "image",
			command: InsertImage,
			params:  Params{"src": "lobby.jpg", "alt": "Lobby"},
			want: func(b *enginetest.Builder) *model.Node {
				return b.Doc(b.Node(preset.Image, map[string]any{"src": "lobby.jpg", "alt": "Lobby"}))
			},
		},
		{
			name:    "video",
			command: InsertVideo,
			params:  Params{"src": "https://youtu.be/x", "provider": "youtube"},
			want: func(b *enginetest.Builder) *model.Node {
				return b.Doc(b.Node(preset.Video, map[string]any{"src": "https://youtu.be/x", "provider": "youtube"}))
			},
		},
		{
			name:    "gallery",
			command: InsertGallery,
			params:  Params{"srcs": []string{"a.jpg", "b.jpg"}, "columns": 2},
			want: func(b *enginetest.Builder) *model.Node {
				return b.Doc(b.Node(preset.Gallery, map[string]any{"columns": 2}, b.Image("a.jpg"), b.Image("b.jpg")))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, emptyDoc, selection.Cursor(1))
			f.exec(t, tt.command, tt.params)
			want := tt.want(f.b)
			f.expect(t, want, nodeSel(t, want, 0))
		})
	}
}

func TestInsertAfterNonEmptyBlock(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("x")) }, selection.Cursor(1))
	b := f.b

	f.exec(t, InsertHeading, Params{"level": 2})
	f.expect(t, b.Doc(b.P("x"), b.H(2, "")), selection.Cursor(4))

	if err := f.ed.Undo(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.expect(t, b.Doc(b.P("x")), selection.Cursor(1))
}

func TestInsertInsideContainer(t *testing.T) {
	// The empty paragraph inside the callout is replaced, but a callout
	// cannot hold a divider.
	f := newFixture(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.Callout("info", b.P("")))
	}, selection.Cursor(2))

	_, err := f.d.Execute(context.Background(), f.ed, InsertDivider, nil)
	if err == nil {
		t.Fatal("divider accepted inside a callout")
	}
	if !f.ed.Doc().Equal(f.b.Doc(f.b.Callout("info", f.b.P("")))) {
		t.Errorf("doc changed: %s", f.ed.Doc())
	}
}

func TestInsertRejectsBadParams(t *testing.T) {
	tests := []struct {
		name    string
		command string
		params  Params
	}{
		{"five columns", InsertColumns, Params{"count": 5}},
		{"image without src", InsertImage, nil},
		{"video without src", InsertVideo, Params{"src": ""}},
		{"empty gallery", InsertGallery, Params{"srcs": []string{}}},
		{"heading level", InsertHeading, Params{"level": 9}},
		{"callout type", InsertCallout, Params{"type": "shout"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, emptyDoc, selection.Cursor(1))
			_, err := f.d.Execute(context.Background(), f.ed, tt.command, tt.params)
			var ce *CommandError
			if !errors.As(err, &ce) || ce.Command != tt.command {
				t.Fatalf("err = %v", err)
			}
			if f.ed.Version() != 0 {
				t.Error("failed insert committed")
			}
		})
	}
}
