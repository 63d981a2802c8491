package model

import (
	"errors"
	"testing"
)

func TestNodeSize(t *testing.T) {
	tests := []struct {
		name string
		node func(t *testing.T) *Node
		size int
	}{
		{"ascii text", func(t *testing.T) *Node { return txt(t, "Hello") }, 5},
		{"grapheme clusters", func(t *testing.T) *Node { return txt(t, "aé👍🏽") }, 3},
		{"empty paragraph", func(t *testing.T) *Node { return para(t, "") }, 2},
		{"paragraph", func(t *testing.T) *Node { return para(t, "Hi") }, 4},
		{"atom", func(t *testing.T) *Node { return mk(t, "image", map[string]any{"src": "a.png"}) }, 1},
		{"card", func(t *testing.T) *Node { return cardDoc(t).Child(0) }, 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node(t).NodeSize(); got != tt.size {
				t.Errorf("NodeSize() = %d, want %d", got, tt.size)
			}
		})
	}
}

func TestNewNodeInvalidContent(t *testing.T) {
	_, err := NewNode(nodeType(t, "callout"), nil, mk(t, "heading", nil))
	var ce *ContentError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ContentError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidContent) {
		t.Error("ContentError should wrap ErrInvalidContent")
	}
	if ce.Type != "callout" {
		t.Errorf("Type = %q, want callout", ce.Type)
	}
}

func TestNewNodeRejectsDisallowedMark(t *testing.T) {
	_, err := NewNode(nodeType(t, "codeBlock"), nil, txt(t, "x", "bold"))
	if !errors.Is(err, ErrInvalidMark) {
		t.Fatalf("expected ErrInvalidMark, got %v", err)
	}
}

func TestNewTextEmpty(t *testing.T) {
	if _, err := NewText(testSchema.Text(), ""); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestNewNodeFillsDefaults(t *testing.T) {
	h := mk(t, "heading", nil)
	if h.Attr("level") != float64(1) {
		t.Errorf("level = %v, want 1", h.Attr("level"))
	}
	if _, err := NewNode(nodeType(t, "heading"), map[string]any{"level": 9}); err == nil {
		t.Error("expected error for level 9")
	}
}

func TestAdjacentTextJoined(t *testing.T) {
	p := mk(t, "paragraph", nil, txt(t, "a"), txt(t, "b"), txt(t, "c", "bold"))
	if p.ChildCount() != 2 {
		t.Fatalf("ChildCount() = %d, want 2: %s", p.ChildCount(), p)
	}
	if p.Child(0).Text() != "ab" {
		t.Errorf("first child = %q, want ab", p.Child(0).Text())
	}
}

func TestEqualAndCopy(t *testing.T) {
	d := cardDoc(t)
	c := d.Copy()
	if c == d {
		t.Fatal("Copy returned the same pointer")
	}
	if !c.Equal(d) {
		t.Fatalf("copy differs: %s vs %s", c, d)
	}
	other := doc(t, para(t, "After"))
	if d.Equal(other) {
		t.Error("different documents compared equal")
	}
}

func TestCopyWithAttrs(t *testing.T) {
	h := mk(t, "heading", map[string]any{"level": 2}, txt(t, "T"))
	c, err := h.CopyWithAttrs(map[string]any{"level": 3})
	if err != nil {
		t.Fatal(err)
	}
	if c.Attr("level") != float64(3) || h.Attr("level") != float64(2) {
		t.Errorf("levels = %v/%v, want 3/2", c.Attr("level"), h.Attr("level"))
	}
}

func TestTextContentAndString(t *testing.T) {
	d := cardDoc(t)
	if got := d.TextContent(); got != "TitleBodyAfter" {
		t.Errorf("TextContent() = %q", got)
	}
	want := `doc(card(cardHeader("Title"), cardContent(paragraph("Body"))), paragraph("After"))`
	if got := d.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestDescendants(t *testing.T) {
	d := cardDoc(t)
	var names []string
	var positions []int
	d.Descendants(func(n *Node, pos int, _ *Node, _ int) bool {
		names = append(names, n.Type().Name())
		positions = append(positions, pos)
		return true
	})
	wantNames := []string{"card", "cardHeader", "text", "cardContent", "paragraph", "text", "paragraph", "text"}
	wantPos := []int{0, 1, 2, 8, 9, 10, 17, 18}
	if len(names) != len(wantNames) {
		t.Fatalf("visited %v, want %v", names, wantNames)
	}
	for i := range names {
		if names[i] != wantNames[i] || positions[i] != wantPos[i] {
			t.Errorf("visit %d = %s@%d, want %s@%d", i, names[i], positions[i], wantNames[i], wantPos[i])
		}
	}
}

func TestFindByAttr(t *testing.T) {
	img := mk(t, "image", map[string]any{"src": "b.png"})
	d := doc(t, para(t, "A"), img)
	n, pos, ok := d.FindByAttr("src", "b.png")
	if !ok || n != img || pos != 3 {
		t.Errorf("FindByAttr = %v, %d, %v", n, pos, ok)
	}
	if _, _, ok := d.FindByAttr("src", "missing"); ok {
		t.Error("found a missing value")
	}
}

func TestCheck(t *testing.T) {
	d := cardDoc(t)
	if err := d.Check(); err != nil {
		t.Fatalf("Check() = %v", err)
	}
	bad := newNode(nodeType(t, "doc"), nil, nil, "", nil)
	if err := bad.Check(); !errors.Is(err, ErrInvalidContent) {
		t.Errorf("empty doc Check() = %v, want ErrInvalidContent", err)
	}
}

func TestCreateAndFill(t *testing.T) {
	card, err := CreateAndFill(nodeType(t, "card"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := card.String(); got != "card(cardHeader, cardContent(paragraph))" {
		t.Errorf("CreateAndFill(card) = %s", got)
	}
	d, err := NewDoc(testSchema)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.String(); got != "doc(paragraph)" {
		t.Errorf("NewDoc = %s", got)
	}
	if _, err := CreateAndFill(testSchema.Text(), nil); err == nil {
		t.Error("expected error filling text")
	}
}
