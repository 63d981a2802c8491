package upload

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/folio/internal/command"
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/enginetest"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/preset"
)

// gated uploads succeed once the gate is closed.
type gated struct {
	gate  chan struct{}
	fail  atomic.Bool
	calls atomic.Int32
}

func newGated() *gated { return &gated{gate: make(chan struct{})} }

func (g *gated) Upload(ctx context.Context, f File) (Result, error) {
	g.calls.Add(1)
	select {
	case <-g.gate:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	if g.fail.Load() {
		return Result{}, errors.New("bucket unavailable")
	}
	return Result{URL: "https://cdn.example/" + f.Name, Key: f.Name}, nil
}

func newEditor(t *testing.T, build func(b *enginetest.Builder) *model.Node, sel selection.Selection) (*enginetest.Builder, *engine.Editor) {
	t.Helper()
	b := enginetest.New(t)
	ed, err := engine.New(b.Schema, build(b), engine.WithSelection(sel))
	require.NoError(t, err)
	return b, ed
}

func emptyDoc(b *enginetest.Builder) *model.Node { return b.Doc(b.P("")) }

func wait(t *testing.T, u *Upload) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := u.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatal("upload did not finish within 5s")
	}
	return err
}

func TestStartSwapsPlaceholder(t *testing.T) {
	b, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	up := newGated()
	s := NewSession(ed, up)

	u, err := s.Start(context.Background(), File{Name: "lobby.png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, KindImage, u.Kind)

	pos, ph, ok := FindPlaceholder(ed.Doc(), u.ID)
	require.True(t, ok, "placeholder inserted synchronously")
	assert.Equal(t, 0, pos)
	assert.Equal(t, preset.UploadUploading, ph.AttrString("status"))
	assert.Equal(t, "lobby.png", ph.AttrString("fileName"))
	assert.Equal(t, 1, ed.Doc().ChildCount(), "empty paragraph replaced")
	assert.True(t, ed.Selection().IsNode())
	assert.Equal(t, StatusUploading, u.Status())

	close(up.gate)
	require.NoError(t, wait(t, u))

	want := b.Doc(b.Node(preset.Image, map[string]any{"src": "https://cdn.example/lobby.png", "alt": "lobby"}))
	assert.True(t, ed.Doc().Equal(want), "doc = %s", ed.Doc())
	assert.Equal(t, StatusDone, u.Status())
	assert.Empty(t, s.Pending())
	assert.Equal(t, 1, ed.UndoCount(), "swap stays out of history")
}

func TestStartAfterNonEmptyBlock(t *testing.T) {
	b, ed := newEditor(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.P("Intro"), b.P("End"))
	}, selection.Cursor(3))
	up := newGated()
	close(up.gate)
	s := NewSession(ed, up)

	u, err := s.Start(context.Background(), File{Name: "tour.mp4"})
	require.NoError(t, err)
	require.NoError(t, wait(t, u))

	want := b.Doc(
		b.P("Intro"),
		b.Node(preset.Video, map[string]any{"src": "https://cdn.example/tour.mp4", "title": "tour.mp4"}),
		b.P("End"),
	)
	assert.True(t, ed.Doc().Equal(want), "doc = %s", ed.Doc())
}

func TestStartOtherFileLinks(t *testing.T) {
	b, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	up := newGated()
	close(up.gate)
	s := NewSession(ed, up)

	u, err := s.Start(context.Background(), File{Name: "floorplan.pdf"})
	require.NoError(t, err)
	assert.Equal(t, KindFile, u.Kind)
	require.NoError(t, wait(t, u))

	link := b.Mark(preset.Link, map[string]any{"href": "https://cdn.example/floorplan.pdf"})
	want := b.Doc(b.Node(preset.Paragraph, nil, b.TextWith("floorplan.pdf", link)))
	assert.True(t, ed.Doc().Equal(want), "doc = %s", ed.Doc())
}

func TestFailureThenRetry(t *testing.T) {
	b, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	up := newGated()
	up.fail.Store(true)
	close(up.gate)
	s := NewSession(ed, up)

	u, err := s.Start(context.Background(), File{Name: "hall.jpg"})
	require.NoError(t, err)

	err = wait(t, u)
	var ce *command.CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CommandName, ce.Command)
	assert.ErrorIs(t, err, ErrUpload)
	assert.Equal(t, StatusFailed, u.Status())

	_, ph, ok := FindPlaceholder(ed.Doc(), u.ID)
	require.True(t, ok, "failed upload keeps its placeholder")
	assert.Equal(t, preset.UploadFailed, ph.AttrString("status"))
	assert.Contains(t, ph.AttrString("error"), "bucket unavailable")

	up.fail.Store(false)
	require.NoError(t, s.Retry(context.Background(), u.ID))
	require.NoError(t, wait(t, u))

	want := b.Doc(b.Node(preset.Image, map[string]any{"src": "https://cdn.example/hall.jpg", "alt": "hall"}))
	assert.True(t, ed.Doc().Equal(want), "doc = %s", ed.Doc())
	assert.EqualValues(t, 2, up.calls.Load())

	assert.ErrorIs(t, s.Retry(context.Background(), u.ID), ErrUnknownUpload)
}

func TestPendingSkipsSettledUploads(t *testing.T) {
	_, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	up := newGated()
	s := NewSession(ed, up)
	defer func() {
		close(up.gate)
		s.Wait()
	}()

	u, err := s.Start(context.Background(), File{Name: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{u.ID}, s.Pending())

	// Settled uploads still tracked between finishing and being forgotten.
	s.mu.Lock()
	s.uploads["done"] = &Upload{ID: "done", status: StatusDone}
	s.uploads["canceled"] = &Upload{ID: "canceled", status: StatusCanceled}
	s.uploads["failed"] = &Upload{ID: "failed", status: StatusFailed}
	s.mu.Unlock()

	want := []string{"failed", u.ID}
	slices.Sort(want)
	assert.Equal(t, want, s.Pending())
}

func TestRetryRequiresFailure(t *testing.T) {
	_, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	up := newGated()
	s := NewSession(ed, up)
	defer func() {
		close(up.gate)
		s.Wait()
	}()

	u, err := s.Start(context.Background(), File{Name: "a.png"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Retry(context.Background(), u.ID), ErrNotFailed)
}

func TestCancelRemovesPlaceholder(t *testing.T) {
	b, ed := newEditor(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.P("Intro"))
	}, selection.Cursor(1))
	up := newGated()
	s := NewSession(ed, up)

	u, err := s.Start(context.Background(), File{Name: "a.png"})
	require.NoError(t, err)
	require.Equal(t, 2, ed.Doc().ChildCount())

	require.NoError(t, s.Cancel(context.Background(), u.ID))
	assert.ErrorIs(t, wait(t, u), context.Canceled)
	s.Wait()

	assert.True(t, ed.Doc().Equal(b.Doc(b.P("Intro"))), "doc = %s", ed.Doc())
	assert.Equal(t, StatusCanceled, u.Status())
	assert.ErrorIs(t, s.Cancel(context.Background(), u.ID), ErrUnknownUpload)

	// Removal is an ordinary edit.
	require.NoError(t, ed.Undo(context.Background()))
	_, _, ok := FindPlaceholder(ed.Doc(), u.ID)
	assert.True(t, ok)
}

func TestCancelOnlyBlockLeavesParagraph(t *testing.T) {
	b, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	up := newGated()
	s := NewSession(ed, up)

	u, err := s.Start(context.Background(), File{Name: "a.png"})
	require.NoError(t, err)
	require.NoError(t, s.Cancel(context.Background(), u.ID))
	s.Wait()

	assert.True(t, ed.Doc().Equal(b.Doc(b.P(""))), "doc = %s", ed.Doc())
	assert.Equal(t, selection.Cursor(1), ed.Selection())
}

func TestPlaceholderDeletedByUser(t *testing.T) {
	b, ed := newEditor(t, func(b *enginetest.Builder) *model.Node {
		return b.Doc(b.P("Intro"))
	}, selection.Cursor(1))
	up := newGated()
	s := NewSession(ed, up)

	u, err := s.Start(context.Background(), File{Name: "a.png"})
	require.NoError(t, err)

	pos, _, ok := FindPlaceholder(ed.Doc(), u.ID)
	require.True(t, ok)
	tr := ed.NewTransaction()
	require.NoError(t, tr.Delete(pos, pos+1))
	require.NoError(t, ed.Apply(context.Background(), tr))

	close(up.gate)
	assert.ErrorIs(t, wait(t, u), ErrPlaceholderGone)
	assert.True(t, ed.Doc().Equal(b.Doc(b.P("Intro"))))
	assert.Empty(t, s.Pending())
}

func TestGalleryUploadsConcurrently(t *testing.T) {
	b, ed := newEditor(t, emptyDoc, selection.Cursor(1))

	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	up := Func(func(ctx context.Context, f File) (Result, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return Result{URL: "https://cdn.example/" + f.Name}, nil
	})
	s := NewSession(ed, up, WithConcurrency(2))

	files := []File{{Name: "a.jpg"}, {Name: "b.jpg"}, {Name: "c.jpg"}, {Name: "d.jpg"}}
	u, err := s.StartGallery(context.Background(), files, 2)
	require.NoError(t, err)
	require.NoError(t, wait(t, u))

	want := b.Doc(b.Node(preset.Gallery, map[string]any{"columns": 2},
		b.Node(preset.Image, map[string]any{"src": "https://cdn.example/a.jpg", "alt": "a"}),
		b.Node(preset.Image, map[string]any{"src": "https://cdn.example/b.jpg", "alt": "b"}),
		b.Node(preset.Image, map[string]any{"src": "https://cdn.example/c.jpg", "alt": "c"}),
		b.Node(preset.Image, map[string]any{"src": "https://cdn.example/d.jpg", "alt": "d"}),
	))
	assert.True(t, ed.Doc().Equal(want), "doc = %s", ed.Doc())
	assert.LessOrEqual(t, peak, 2)
}

func TestGalleryFailsAsOne(t *testing.T) {
	_, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	up := Func(func(_ context.Context, f File) (Result, error) {
		if f.Name == "b.jpg" {
			return Result{}, errors.New("too large")
		}
		return Result{URL: "https://cdn.example/" + f.Name}, nil
	})
	s := NewSession(ed, up)

	u, err := s.StartGallery(context.Background(), []File{{Name: "a.jpg"}, {Name: "b.jpg"}}, 0)
	require.NoError(t, err)
	err = wait(t, u)
	require.ErrorIs(t, err, command.ErrCommand)
	assert.Contains(t, err.Error(), "b.jpg")

	_, ph, ok := FindPlaceholder(ed.Doc(), u.ID)
	require.True(t, ok)
	assert.Equal(t, "2 images", ph.AttrString("fileName"))
	assert.Equal(t, preset.UploadFailed, ph.AttrString("status"))
}

func TestStartGalleryRejects(t *testing.T) {
	_, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	s := NewSession(ed, Func(func(context.Context, File) (Result, error) { return Result{}, nil }))

	_, err := s.StartGallery(context.Background(), []File{{Name: "a.jpg"}, {Name: "notes.txt"}}, 0)
	assert.ErrorIs(t, err, command.ErrCommand)
	_, err = s.StartGallery(context.Background(), nil, 0)
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.EqualValues(t, 0, ed.Version())
}

func TestUploaderWithoutURLFails(t *testing.T) {
	_, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	s := NewSession(ed, Func(func(context.Context, File) (Result, error) { return Result{}, nil }))

	u, err := s.Start(context.Background(), File{Name: "a.png"})
	require.NoError(t, err)
	assert.ErrorIs(t, wait(t, u), ErrUpload)
}

func TestTimeoutFails(t *testing.T) {
	_, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	up := newGated()
	s := NewSession(ed, up, WithTimeout(20*time.Millisecond))

	u, err := s.Start(context.Background(), File{Name: "a.png"})
	require.NoError(t, err)
	err = wait(t, u)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusFailed, u.Status())
}

func TestCommitRetriesVersionMismatch(t *testing.T) {
	_, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	racing := &racingEditor{Editor: ed}
	s := NewSession(racing, newGated())

	err := s.commit(context.Background(), func(st engine.State) (*transform.Transaction, error) {
		return insertPlaceholder(st, "x", KindImage, "a.png")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, racing.attempts)
}

// racingEditor lands a concurrent edit before the first Apply.
type racingEditor struct {
	*engine.Editor
	attempts int
}

func (r *racingEditor) Apply(ctx context.Context, tr *transform.Transaction) error {
	r.attempts++
	if r.attempts == 1 {
		other := r.Editor.NewTransaction()
		if err := other.Insert(0, r.Editor.Doc().Child(0).Copy()); err != nil {
			return err
		}
		if err := r.Editor.Apply(ctx, other); err != nil {
			return err
		}
	}
	return r.Editor.Apply(ctx, tr)
}

func TestFileKind(t *testing.T) {
	tests := []struct {
		file File
		kind string
	}{
		{File{Name: "a.PNG"}, KindImage},
		{File{Name: "clip.webm"}, KindVideo},
		{File{Name: "x", ContentType: "image/svg+xml"}, KindImage},
		{File{Name: "notes.txt"}, KindFile},
		{File{Name: "noext"}, KindFile},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.file.Kind(), tt.file.Name)
	}
	assert.Equal(t, "application/octet-stream", File{Name: "noext"}.Type())
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("media", File{Name: "Lobby.JPG"})
	assert.Regexp(t, `^media/image/[0-9a-f-]{36}\.jpg$`, key)
}

func TestPublishesUploadEvents(t *testing.T) {
	_, ed := newEditor(t, emptyDoc, selection.Cursor(1))
	bus := event.NewBus()
	require.NoError(t, bus.Start())
	defer bus.Stop(context.Background())

	var (
		mu     sync.Mutex
		topics []event.Topic
		last   event.Upload
	)
	_, err := bus.SubscribeFunc("upload.*", func(_ context.Context, ev any) error {
		e := ev.(event.Event[event.Upload])
		mu.Lock()
		topics = append(topics, e.Type)
		last = e.Payload
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	up := newGated()
	close(up.gate)
	s := NewSession(ed, up, WithPublisher(bus))

	u, err := s.Start(context.Background(), File{Name: "a.png"})
	require.NoError(t, err)
	require.NoError(t, wait(t, u))
	s.Wait()

	up.fail.Store(true)
	failed, err := s.Start(context.Background(), File{Name: "b.png"})
	require.NoError(t, err)
	require.Error(t, wait(t, failed))
	s.Wait()

	mu.Lock()
	assert.Equal(t, []event.Topic{
		event.TopicUploadStarted, event.TopicUploadCompleted,
		event.TopicUploadStarted, event.TopicUploadFailed,
	}, topics)
	assert.Equal(t, failed.ID, last.ID)
	assert.Equal(t, "b.png", last.FileName)
	assert.Error(t, last.Err)
	mu.Unlock()

	require.NoError(t, s.Cancel(context.Background(), failed.ID))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, event.TopicUploadCancelled, topics[len(topics)-1])
}
