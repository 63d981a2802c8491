package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dshills/folio/internal/engine/enginetest"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/serial"
)

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) Publish(_ context.Context, ev any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) applied() []event.TransactionApplied {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.TransactionApplied
	for _, ev := range r.events {
		if e, ok := ev.(event.Event[event.TransactionApplied]); ok {
			out = append(out, e.Payload)
		}
	}
	return out
}

func newEditor(t *testing.T, b *enginetest.Builder, doc *model.Node, opts ...Option) *Editor {
	t.Helper()
	ed, err := New(b.Schema, doc, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ed
}

func TestNewEmptyDocument(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, nil)
	if got := ed.Doc().String(); got != "doc(paragraph)" {
		t.Errorf("Doc = %s, want doc(paragraph)", got)
	}
	if ed.Selection() != selection.Cursor(1) {
		t.Errorf("Selection = %s, want Cursor(1)", ed.Selection())
	}
	if ed.Version() != 0 {
		t.Errorf("Version = %d, want 0", ed.Version())
	}
}

func TestNewRejectsInvalidSelection(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, b.Doc(b.P("Hi")), WithSelection(selection.Cursor(99)))
	if ed.Selection() != selection.Cursor(1) {
		t.Errorf("Selection = %s, want Cursor(1)", ed.Selection())
	}
}

func TestApplyCommits(t *testing.T) {
	b := enginetest.New(t)
	rec := &recorder{}
	ed := newEditor(t, b, b.Doc(b.P("Hello")), WithPublisher(rec), WithSelection(selection.Cursor(6)))

	tr := ed.NewTransaction()
	if err := tr.Insert(1, b.Text(">> ")); err != nil {
		t.Fatal(err)
	}
	if err := ed.Apply(context.Background(), tr); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	want := b.Doc(b.P(">> Hello"))
	if !ed.Doc().Equal(want) {
		t.Errorf("Doc = %s, want %s", ed.Doc(), want)
	}
	if ed.Version() != 1 {
		t.Errorf("Version = %d, want 1", ed.Version())
	}
	// Cursor after "Hello" moved with the insertion.
	if ed.Selection() != selection.Cursor(9) {
		t.Errorf("Selection = %s, want Cursor(9)", ed.Selection())
	}

	applied := rec.applied()
	if len(applied) != 1 {
		t.Fatalf("published %d TransactionApplied, want 1", len(applied))
	}
	if applied[0].TransactionID != tr.ID || applied[0].Origin != event.OriginUser {
		t.Errorf("event = %+v", applied[0])
	}
	if got := applied[0].Mapping.Map(6, 1); got != 9 {
		t.Errorf("event mapping 6 -> %d, want 9", got)
	}
}

func TestApplyRejectsStaleVersion(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, b.Doc(b.P("Hello")))

	stale := ed.NewTransaction()
	stale.Insert(1, b.Text("A"))

	fresh := ed.NewTransaction()
	fresh.Insert(1, b.Text("B"))
	if err := ed.Apply(context.Background(), fresh); err != nil {
		t.Fatal(err)
	}

	before := ed.Doc()
	err := ed.Apply(context.Background(), stale)
	var vm *transform.VersionMismatchError
	if !errors.As(err, &vm) {
		t.Fatalf("err = %v, want VersionMismatchError", err)
	}
	if vm.Expected != 1 || vm.Got != 0 {
		t.Errorf("mismatch = %+v, want expected 1 got 0", vm)
	}
	if ed.Doc() != before || ed.Version() != 1 {
		t.Error("rejected transaction changed the editor")
	}
}

func TestApplyAllOrNothing(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, b.Doc(b.P("One"), b.P("Two")))
	before := ed.Doc()

	steps := []transform.Step{
		&transform.InsertStep{Pos: 1, Nodes: []*model.Node{b.Text("ok ")}},
		// A paragraph inside a paragraph is invalid.
		&transform.InsertStep{Pos: 2, Nodes: []*model.Node{b.P("bad")}},
	}
	err := ed.Apply(context.Background(), transform.FromSteps(ed.Version(), steps...))
	if !errors.Is(err, transform.ErrTransaction) {
		t.Fatalf("err = %v, want ErrTransaction", err)
	}
	if !ed.Doc().Equal(before) || ed.Version() != 0 || ed.CanUndo() {
		t.Error("failed transaction left a trace")
	}
}

func TestApplyExplicitSelection(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, b.Doc(b.P("Hello")))

	tr := ed.NewTransaction()
	tr.SetSelection(selection.Text(1, 6))
	if err := ed.Apply(context.Background(), tr); err != nil {
		t.Fatal(err)
	}
	if ed.Selection() != selection.Text(1, 6) {
		t.Errorf("Selection = %s", ed.Selection())
	}
	if ed.Version() != 0 {
		t.Errorf("selection-only transaction bumped version to %d", ed.Version())
	}

	tr = ed.NewTransaction()
	tr.SetSelection(selection.Cursor(50))
	if err := ed.Apply(context.Background(), tr); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("err = %v, want ErrInvalidSelection", err)
	}
}

func TestUndoRestoresDocumentAndSelection(t *testing.T) {
	b := enginetest.New(t)
	rec := &recorder{}
	start := b.Doc(b.P("Hello"), b.Callout("info", b.P("Note")))
	ed := newEditor(t, b, start, WithPublisher(rec), WithSelection(selection.Cursor(6)))

	tr := ed.NewTransaction()
	tr.Insert(6, b.Text(" world"))
	tr.Delete(13, 21)
	tr.SetSelection(selection.Cursor(12))
	if err := ed.Apply(context.Background(), tr); err != nil {
		t.Fatal(err)
	}
	after := ed.Doc()

	if err := ed.Undo(context.Background()); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !ed.Doc().Equal(start) {
		t.Errorf("after undo Doc = %s, want %s", ed.Doc(), start)
	}
	if ed.Selection() != selection.Cursor(6) {
		t.Errorf("after undo Selection = %s, want Cursor(6)", ed.Selection())
	}

	if err := ed.Redo(context.Background()); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if !ed.Doc().Equal(after) || ed.Selection() != selection.Cursor(12) {
		t.Errorf("after redo Doc = %s Selection = %s", ed.Doc(), ed.Selection())
	}
	if ed.Version() != 3 {
		t.Errorf("Version = %d, want 3", ed.Version())
	}

	applied := rec.applied()
	if len(applied) != 3 || applied[1].Origin != event.OriginUndo || applied[2].Origin != event.OriginRedo {
		t.Errorf("origins = %+v", applied)
	}
}

func TestUndoNothing(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, nil)
	if err := ed.Undo(context.Background()); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo = %v", err)
	}
	if err := ed.Redo(context.Background()); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo = %v", err)
	}
}

func TestUnrecordedTransactionRemapsHistory(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, b.Doc(b.P("Hello")), WithSelection(selection.Cursor(6)))

	tr := ed.NewTransaction()
	tr.Insert(6, b.Text("!"))
	if err := ed.Apply(context.Background(), tr); err != nil {
		t.Fatal(err)
	}

	ext := ed.NewTransaction()
	ext.Insert(0, b.P("Upload done"))
	ext.SetMeta(transform.MetaAddToHistory, false).SetMeta(transform.MetaExternal, true)
	if err := ed.Apply(context.Background(), ext); err != nil {
		t.Fatal(err)
	}
	if ed.UndoCount() != 1 {
		t.Fatalf("UndoCount = %d, want 1", ed.UndoCount())
	}

	if err := ed.Undo(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := b.Doc(b.P("Upload done"), b.P("Hello"))
	if !ed.Doc().Equal(want) {
		t.Errorf("Doc = %s, want %s", ed.Doc(), want)
	}
}

func TestUndoGroup(t *testing.T) {
	b := enginetest.New(t)
	start := b.Doc(b.P("a"))
	ed := newEditor(t, b, start)

	ed.BeginUndoGroup("typing")
	for i, s := range []string{"b", "c", "d"} {
		tr := ed.NewTransaction()
		tr.Insert(2+i, b.Text(s))
		if err := ed.Apply(context.Background(), tr); err != nil {
			t.Fatal(err)
		}
	}
	ed.EndUndoGroup()

	if ed.UndoCount() != 1 {
		t.Fatalf("UndoCount = %d, want 1", ed.UndoCount())
	}
	if err := ed.Undo(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !ed.Doc().Equal(start) {
		t.Errorf("Doc = %s, want %s", ed.Doc(), start)
	}
}

func TestMaxUndoEntries(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, b.Doc(b.P("x")), WithMaxUndoEntries(2))
	for i := 0; i < 5; i++ {
		tr := ed.NewTransaction()
		tr.Insert(1, b.Text("y"))
		if err := ed.Apply(context.Background(), tr); err != nil {
			t.Fatal(err)
		}
	}
	if ed.UndoCount() != 2 {
		t.Errorf("UndoCount = %d, want 2", ed.UndoCount())
	}
}

func TestReadOnly(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, nil, WithReadOnly())
	if err := ed.Apply(context.Background(), ed.NewTransaction()); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Apply = %v", err)
	}
	if err := ed.Undo(context.Background()); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Undo = %v", err)
	}
}

func TestLoadSave(t *testing.T) {
	b := enginetest.New(t)
	doc := b.Doc(b.H(1, "Title"), b.Card("Head", b.P("Body")))
	tree, err := serial.ToPortable(b.Schema, doc)
	if err != nil {
		t.Fatal(err)
	}
	ed, err := Load(b.Schema, tree)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	saved, err := ed.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := serial.FromPortable(b.Schema, saved)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(doc) {
		t.Errorf("round trip = %s, want %s", back, doc)
	}

	ed, err = Load(b.Schema, nil)
	if err != nil {
		t.Fatalf("Load(nil): %v", err)
	}
	if ed.Doc().ChildCount() != 1 {
		t.Errorf("Load(nil) doc = %s", ed.Doc())
	}
}

func TestReload(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, b.Doc(b.P("old")))
	tr := ed.NewTransaction()
	tr.Insert(1, b.Text("x"))
	ed.Apply(context.Background(), tr)

	tree, _ := serial.ToPortable(b.Schema, b.Doc(b.P("new")))
	if err := ed.Reload(context.Background(), tree); err != nil {
		t.Fatal(err)
	}
	if ed.CanUndo() || ed.Version() != 2 || ed.Doc().TextContent() != "new" {
		t.Errorf("after reload: undo=%v version=%d text=%q", ed.CanUndo(), ed.Version(), ed.Doc().TextContent())
	}
}

func TestConcurrentApplySerializes(t *testing.T) {
	b := enginetest.New(t)
	ed := newEditor(t, b, b.Doc(b.P("")))

	const writers, each = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				for {
					tr := ed.NewTransaction()
					if err := tr.Insert(1, b.Text("x")); err != nil {
						t.Error(err)
						return
					}
					err := ed.Apply(context.Background(), tr)
					if err == nil {
						break
					}
					if !errors.Is(err, transform.ErrVersionMismatch) {
						t.Error(err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if got := len(ed.Doc().TextContent()); got != writers*each {
		t.Errorf("text length = %d, want %d", got, writers*each)
	}
	if ed.Version() != writers*each {
		t.Errorf("Version = %d, want %d", ed.Version(), writers*each)
	}
}
