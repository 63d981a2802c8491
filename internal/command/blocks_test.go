package command

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/folio/internal/engine/enginetest"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/preset"
)

func TestDuplicateNode(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("Hello")) }, selection.Cursor(3))
	size := f.ed.Doc().ContentSize()

	f.exec(t, DuplicateNode, nil)

	b := f.b
	f.expect(t, b.Doc(b.P("Hello"), b.P("Hello")), selection.Cursor(3+size))
	if got := f.ed.Doc().ContentSize(); got != 2*size {
		t.Errorf("size = %d, want %d", got, 2*size)
	}
	if err := f.ed.Undo(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.expect(t, b.Doc(b.P("Hello")), selection.Cursor(3))
}

func TestDuplicateNestedBlock(t *testing.T) {
	// The cursor sits in the callout's paragraph; that paragraph is copied.
	f := newFixture(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.Callout("info", b.P("Note")))
	}, selection.Text(2, 4))

	f.exec(t, DuplicateNode, nil)

	b := f.b
	f.expect(t, b.Doc(b.Callout("info", b.P("Note"), b.P("Note"))), selection.Text(8, 10))
}

func TestDuplicateSelectedAtom(t *testing.T) {
	b := enginetest.New(t)
	doc := b.Doc(b.P("a"), b.Image("x.png"))
	f := newFixture(t, func(*enginetest.Builder) *model.Node { return doc }, nodeSel(t, doc, 3))

	f.exec(t, DuplicateNode, nil)

	want := b.Doc(b.P("a"), b.Image("x.png"), b.Image("x.png"))
	f.expect(t, want, nodeSel(t, want, 4))
}

func TestInsertBlockAfter(t *testing.T) {
	// Paragraphs span 0-5, 5-10 and 10-17; the cursor is inside "Two".
	f := newFixture(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.P("One"), b.P("Two"), b.P("Three"))
	}, selection.Cursor(7))

	f.exec(t, InsertBlockAfter, nil)

	b := f.b
	doc := f.ed.Doc()
	f.expect(t, b.Doc(b.P("One"), b.P("Two"), b.P(""), b.P("Three")), selection.Cursor(11))
	for i := 0; i < doc.ChildCount(); i++ {
		if doc.Child(i).Type().Name() != preset.Paragraph {
			t.Errorf("child %d is %s", i, doc.Child(i).Type().Name())
		}
	}
}

func TestInsertBlockAfterTyped(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("x")) }, selection.Cursor(1))
	f.exec(t, InsertBlockAfter, Params{"type": preset.Heading, "attrs": map[string]any{"level": 3}, "text": "Sub"})

	b := f.b
	f.expect(t, b.Doc(b.P("x"), b.H(3, "Sub")), selection.Cursor(4))

	_, err := f.d.Execute(context.Background(), f.ed, InsertBlockAfter, Params{"type": "nope"})
	if !errors.Is(err, ErrCommand) {
		t.Errorf("unknown type err = %v", err)
	}
}

func TestWrapAcrossIsolatingRejected(t *testing.T) {
	// "Intro" spans 0-7; the card starts at 7 and its body text at 16.
	f := newFixture(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.P("Intro"), b.Card("Head", b.P("Body")))
	}, selection.Text(2, 17))
	before := f.ed.Doc()

	_, err := f.d.Execute(context.Background(), f.ed, TurnInto, Params{"type": preset.Blockquote})

	var te *transform.TransactionError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransactionError", err)
	}
	if !errors.Is(err, model.ErrIsolating) {
		t.Errorf("err = %v, want ErrIsolating", err)
	}
	if f.ed.Doc() != before || f.ed.Version() != 0 {
		t.Error("rejected wrap changed the document")
	}
	if f.d.CanApply(f.ed.State(), TurnInto, Params{"type": preset.Blockquote}) {
		t.Error("CanApply true for a rejected wrap")
	}
}

func TestTurnIntoWrap(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.P("A"), b.P("B"))
	}, selection.Text(1, 5))

	f.exec(t, TurnInto, Params{"type": preset.Blockquote})

	b := f.b
	want := b.Doc(b.Node(preset.Blockquote, nil, b.P("A"), b.P("B")))
	f.expect(t, want, selection.Text(2, 6))
}

func TestTurnIntoTextblock(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("Title")) }, selection.Cursor(3))

	f.exec(t, TurnInto, Params{"type": preset.Heading, "level": 2})
	b := f.b
	f.expect(t, b.Doc(b.H(2, "Title")), selection.Cursor(3))

	f.exec(t, TurnInto, Params{"type": preset.Paragraph})
	f.expect(t, b.Doc(b.P("Title")), selection.Cursor(3))
}

func TestTurnIntoCodeBlockDropsMarks(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.Node(preset.Paragraph, nil, b.Text("Ti", preset.Bold), b.Text("tle")))
	}, selection.Cursor(2))

	f.exec(t, TurnInto, Params{"type": preset.CodeBlock})

	b := f.b
	f.expect(t, b.Doc(b.Node(preset.CodeBlock, nil, b.Text("Title"))), selection.Cursor(2))
}

func TestTurnIntoAtomRejected(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("x")) }, selection.Cursor(1))
	if f.d.CanApply(f.ed.State(), TurnInto, Params{"type": preset.Image}) {
		t.Error("turned text into an image")
	}
	if f.d.CanApply(f.ed.State(), TurnInto, nil) {
		t.Error("turn-into without a type")
	}
}

func TestDeleteNode(t *testing.T) {
	three := func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("A"), b.P("B"), b.P("C")) }

	t.Run("focuses following sibling", func(t *testing.T) {
		f := newFixture(t, three, selection.Cursor(4))
		f.exec(t, DeleteNode, nil)
		b := f.b
		f.expect(t, b.Doc(b.P("A"), b.P("C")), selection.Cursor(4))
	})

	t.Run("last block focuses backwards", func(t *testing.T) {
		f := newFixture(t, three, selection.Cursor(7))
		f.exec(t, DeleteNode, nil)
		b := f.b
		f.expect(t, b.Doc(b.P("A"), b.P("B")), selection.Cursor(5))
	})

	t.Run("only child is refilled", func(t *testing.T) {
		f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("A")) }, selection.Cursor(1))
		f.exec(t, DeleteNode, nil)
		b := f.b
		f.expect(t, b.Doc(b.P("")), selection.Cursor(1))
	})

	t.Run("last child selects parent", func(t *testing.T) {
		f := newFixture(t, func(b *enginetest.Builder) *model.Node {
			return b.Doc(b.Callout("info", b.P("x"), b.P("y")))
		}, selection.Cursor(5))
		f.exec(t, DeleteNode, nil)
		b := f.b
		want := b.Doc(b.Callout("info", b.P("x")))
		f.expect(t, want, nodeSel(t, want, 0))
	})
}

func TestDeleteAtomRemovesWholeSpan(t *testing.T) {
	b := enginetest.New(t)
	doc := b.Doc(b.P("A"), b.Image("x.png"), b.P("B"))
	f := newFixture(t, func(*enginetest.Builder) *model.Node { return doc }, nodeSel(t, doc, 3))

	f.exec(t, DeleteNode, nil)

	f.expect(t, b.Doc(b.P("A"), b.P("B")), selection.Cursor(4))
	if got := doc.ContentSize() - f.ed.Doc().ContentSize(); got != 1 {
		t.Errorf("removed %d positions, want 1", got)
	}
}

func TestMoveNode(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.P("A"), b.P("B"), b.P("C"))
	}, selection.Cursor(7))
	b := f.b

	f.exec(t, MoveNodeUp, nil)
	f.expect(t, b.Doc(b.P("A"), b.P("C"), b.P("B")), selection.Cursor(4))

	f.exec(t, MoveNodeUp, nil)
	f.expect(t, b.Doc(b.P("C"), b.P("A"), b.P("B")), selection.Cursor(1))

	if f.d.CanApply(f.ed.State(), MoveNodeUp, nil) {
		t.Error("first block moved up")
	}
	_, err := f.d.Execute(context.Background(), f.ed, MoveNodeUp, nil)
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Command != MoveNodeUp {
		t.Errorf("err = %v", err)
	}

	f.exec(t, MoveNodeDown, nil)
	f.expect(t, b.Doc(b.P("A"), b.P("C"), b.P("B")), selection.Cursor(4))
}

func TestToggleList(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("a"), b.P("b")) }, selection.Cursor(1))
	b := f.b

	f.exec(t, ToggleList, nil)
	f.expect(t, b.Doc(b.BulletList("a"), b.P("b")), selection.Cursor(3))

	f.exec(t, ToggleList, Params{"type": preset.OrderedList})
	ordered := b.Node(preset.OrderedList, nil, b.Node(preset.ListItem, nil, b.P("a")))
	f.expect(t, b.Doc(ordered, b.P("b")), selection.Cursor(3))

	f.exec(t, ToggleList, Params{"type": preset.OrderedList})
	f.expect(t, b.Doc(b.P("a"), b.P("b")), selection.Cursor(1))
}

func TestToggleListLiftsMiddleItem(t *testing.T) {
	// Items start at 1, 6 and 11; "y" is at 8.
	f := newFixture(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.BulletList("x", "y", "z"))
	}, selection.Cursor(8))

	f.exec(t, ToggleList, nil)

	b := f.b
	f.expect(t, b.Doc(b.BulletList("x"), b.P("y"), b.BulletList("z")), selection.Cursor(8))
}

func TestToggleListRejectsHeading(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.H(1, "T")) }, selection.Cursor(1))
	if f.d.CanApply(f.ed.State(), ToggleList, nil) {
		t.Error("wrapped a heading in a list")
	}
}

func TestCopyPasteNode(t *testing.T) {
	// "one" spans 0-5 and the empty paragraph 5-7.
	f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("one"), b.P("")) }, selection.Cursor(2))
	b := f.b

	if f.d.CanApply(f.ed.State(), PasteNode, nil) {
		t.Error("paste with an empty clipboard")
	}

	f.exec(t, CopyNode, nil)
	if f.ed.Version() != 0 || f.ed.CanUndo() {
		t.Error("copy changed the document")
	}
	if clip := f.d.Clipboard(); clip == nil || !clip.Equal(b.P("one")) {
		t.Fatalf("clipboard = %v", clip)
	}
	f.expect(t, b.Doc(b.P("one"), b.P("")), nodeSel(t, f.ed.Doc(), 0))

	if err := f.ed.SetSelection(selection.Cursor(6)); err != nil {
		t.Fatal(err)
	}
	f.exec(t, PasteNode, nil)
	f.expect(t, b.Doc(b.P("one"), b.P("one")), selection.Cursor(6))
}

func TestPasteNodeFromOtherSchema(t *testing.T) {
	f := newFixture(t, func(b *enginetest.Builder) *model.Node { return b.Doc(b.P("x")) }, selection.Cursor(1))
	other := enginetest.New(t)
	if f.d.CanApply(f.ed.State(), PasteNode, Params{"node": other.P("y")}) {
		t.Error("pasted a node from another schema")
	}
}
