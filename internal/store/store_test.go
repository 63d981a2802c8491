package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/folio/internal/config"
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/enginetest"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/serial"
)

func openStore(t *testing.T, b *enginetest.Builder) *ContentStore {
	t.Helper()
	s, err := Open(config.StoreConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "folio.db"),
	}, b.Schema)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndOpenEditor(t *testing.T) {
	b := enginetest.New(t)
	s := openStore(t, b)
	ctx := context.Background()

	doc := b.Doc(b.H(1, "Hall of Maps"), b.Callout("info", b.P("Closed Mondays")))
	ed, err := engine.New(b.Schema, doc)
	require.NoError(t, err)

	tr := ed.NewTransaction()
	require.NoError(t, tr.Insert(1, b.Text("The ")))
	require.NoError(t, ed.Apply(ctx, tr))

	require.NoError(t, s.Save(ctx, "hall", "Hall of Maps", ed))

	loaded, err := s.OpenEditor(ctx, "hall")
	require.NoError(t, err)
	assert.True(t, ed.Doc().Equal(loaded.Doc()), "round trip preserves the document")
	assert.Equal(t, "The Hall of Maps", loaded.Doc().Child(0).TextContent())
	assert.Equal(t, selection.AtStart(loaded.Doc()), loaded.Selection())
}

func TestSaveReplacesEarlierCopy(t *testing.T) {
	b := enginetest.New(t)
	s := openStore(t, b)
	ctx := context.Background()

	ed, err := engine.New(b.Schema, b.Doc(b.P("first")))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "doc", "Draft", ed))

	tr := ed.NewTransaction()
	require.NoError(t, tr.Insert(6, b.Text(" edit")))
	require.NoError(t, ed.Apply(ctx, tr))
	require.NoError(t, s.Save(ctx, "doc", "Final", ed))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Final", list[0].Title)
	assert.Equal(t, uint64(1), list[0].Version)

	body, version, err := s.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)
	assert.Equal(t, "first edit", gjson.GetBytes(body, "content.0.content.0.text").String())
}

func TestListAndDelete(t *testing.T) {
	b := enginetest.New(t)
	s := openStore(t, b)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		ed, err := engine.New(b.Schema, b.Doc(b.P(id)))
		require.NoError(t, err)
		require.NoError(t, s.Save(ctx, id, "Doc "+id, ed))
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, d := range list {
		ids[i] = d.ID
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)

	require.NoError(t, s.Delete(ctx, "b"))
	assert.ErrorIs(t, s.Delete(ctx, "b"), ErrNotFound)

	_, err = s.Load(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveStampsMatchingVersion(t *testing.T) {
	b := enginetest.New(t)
	s := openStore(t, b)
	ctx := context.Background()

	ed, err := engine.New(b.Schema, b.Doc(b.P("a")))
	require.NoError(t, err)

	const edits = 50
	done := make(chan error, 1)
	go func() {
		for i := 0; i < edits; i++ {
			tr := ed.NewTransaction()
			if err := tr.Insert(1, b.Text("x")); err != nil {
				done <- err
				return
			}
			if err := ed.Apply(ctx, tr); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	check := func() {
		require.NoError(t, s.Save(ctx, "doc", "Race", ed))
		body, version, err := s.Get(ctx, "doc")
		require.NoError(t, err)
		text := gjson.GetBytes(body, "content.0.content.0.text").String()
		assert.Equal(t, strings.Repeat("x", int(version))+"a", text, "version %d", version)
	}
	for running := true; running; {
		select {
		case err := <-done:
			require.NoError(t, err)
			running = false
		default:
		}
		check()
	}
}

func TestSummary(t *testing.T) {
	b := enginetest.New(t)
	s := openStore(t, b)
	ctx := context.Background()

	ed, err := engine.New(b.Schema, b.Doc(b.P("hours")))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "hours", "Opening hours", ed))

	sum, err := s.Summary(ctx, "hours")
	require.NoError(t, err)
	assert.Equal(t, "hours", sum.ID)
	assert.Equal(t, "Opening hours", sum.Title)
	assert.Equal(t, uint64(0), sum.Version)
	assert.False(t, sum.UpdatedAt.IsZero())

	_, err = s.Summary(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutRejectsUnknownTypes(t *testing.T) {
	b := enginetest.New(t)
	s := openStore(t, b)

	err := s.Put(context.Background(), "x", "", []byte(`{"type":"doc","content":[{"type":"marquee"}]}`), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, serial.ErrUnknownType)

	var unknown *serial.UnknownNodeTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "marquee", unknown.Type)
}

func TestOpenRejectsDriver(t *testing.T) {
	b := enginetest.New(t)
	_, err := Open(config.StoreConfig{Driver: "oracle"}, b.Schema)
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env, err := Encode([]byte(`{"type":"doc"}`), 7, at)
	require.NoError(t, err)

	r := gjson.ParseBytes(env)
	assert.Equal(t, int64(SchemaVersion), r.Get("schemaVersion").Int())
	assert.Equal(t, "2026-03-01T12:00:00Z", r.Get("savedAt").String())

	doc, version, err := Decode(env)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), version)
	assert.JSONEq(t, `{"type":"doc"}`, string(doc))
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"wrong schema version", `{"schemaVersion":9,"doc":{}}`},
		{"missing doc", `{"schemaVersion":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.in))
			assert.ErrorIs(t, err, ErrBadEnvelope)
		})
	}
}
