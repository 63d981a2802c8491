package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/folio/internal/engine/history"
	"github.com/dshills/folio/internal/engine/model"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/engine/selection"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/serial"
)

// State is an immutable view of the editor at one version.
// Commands read it; they never see the Editor itself.
type State struct {
	Schema    *schema.Registry
	Doc       *model.Node
	Selection selection.Selection
	Version   uint64
}

// NewTransaction starts a transaction against this state.
func (s State) NewTransaction() *transform.Transaction {
	return transform.NewTransaction(s.Doc, s.Version)
}

// Editor owns a document and serializes every change to it.
// It is safe for concurrent use.
type Editor struct {
	mu sync.Mutex

	schema  *schema.Registry
	doc     *model.Node
	version uint64
	sel     selection.Selection
	selSet  bool
	history *history.History

	logger         *slog.Logger
	publisher      Publisher
	metrics        Metrics
	maxUndoEntries int
	readOnly       bool
}

// New creates an editor holding doc, which must be valid for reg.
func New(reg *schema.Registry, doc *model.Node, opts ...Option) (*Editor, error) {
	if doc == nil {
		var err error
		if doc, err = model.NewDoc(reg); err != nil {
			return nil, err
		}
	}
	if err := doc.Check(); err != nil {
		return nil, fmt.Errorf("engine: invalid document: %w", err)
	}

	e := &Editor{
		schema:  reg,
		doc:     doc,
		logger:  slog.Default(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	e.history = history.New(e.maxUndoEntries)

	if !e.selSet || e.sel.Validate(doc) != nil {
		e.sel = selection.AtStart(doc)
	}
	e.metrics.DocumentSize(doc.ContentSize())
	return e, nil
}

// Load creates an editor from a portable tree. A nil tree yields a new
// empty document.
func Load(reg *schema.Registry, tree *serial.PortableNode, opts ...Option) (*Editor, error) {
	doc, err := serial.FromPortable(reg, tree)
	if err != nil {
		return nil, fmt.Errorf("engine: load: %w", err)
	}
	return New(reg, doc, opts...)
}

// Save returns the current document as a portable tree.
func (e *Editor) Save() (*serial.PortableNode, error) {
	e.mu.Lock()
	doc := e.doc
	e.mu.Unlock()
	return serial.ToPortable(e.schema, doc)
}

// Reload replaces the document wholesale, clears history and bumps the
// version. Positions held by subscribers are invalid afterwards.
func (e *Editor) Reload(ctx context.Context, tree *serial.PortableNode) error {
	doc, err := serial.FromPortable(e.schema, tree)
	if err != nil {
		return fmt.Errorf("engine: reload: %w", err)
	}

	e.mu.Lock()
	if e.readOnly {
		e.mu.Unlock()
		return ErrReadOnly
	}
	e.doc = doc
	e.version++
	e.sel = selection.AtStart(doc)
	e.history.Clear()
	version := e.version
	e.mu.Unlock()

	e.metrics.DocumentSize(doc.ContentSize())
	e.publish(ctx, event.NewEvent(event.TopicDocumentLoaded, event.DocumentLoaded{Version: version, Doc: doc}, "engine"))
	return nil
}

// ============================================================================
// Read Operations
// ============================================================================

// State returns the current document, selection and version.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{Schema: e.schema, Doc: e.doc, Selection: e.sel, Version: e.version}
}

// Doc returns the current document.
func (e *Editor) Doc() *model.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

// Version returns the current document version.
func (e *Editor) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Selection returns the current selection.
func (e *Editor) Selection() selection.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel
}

// Schema returns the editor's schema.
func (e *Editor) Schema() *schema.Registry { return e.schema }

// IsReadOnly returns true if the editor rejects writes.
func (e *Editor) IsReadOnly() bool { return e.readOnly }

// NewTransaction starts a transaction against the current document.
func (e *Editor) NewTransaction() *transform.Transaction {
	return e.State().NewTransaction()
}

// SetSelection replaces the selection. It must resolve in the current
// document.
func (e *Editor) SetSelection(sel selection.Selection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := sel.Validate(e.doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}
	e.sel = sel
	return nil
}

// ============================================================================
// Write Operations
// ============================================================================

// Apply validates and commits tr. On any failure the document, selection,
// version and history are unchanged.
func (e *Editor) Apply(ctx context.Context, tr *transform.Transaction) error {
	if e.readOnly {
		return ErrReadOnly
	}
	if tr == nil {
		return fmt.Errorf("engine: nil transaction")
	}

	e.mu.Lock()
	start := time.Now()
	applied, err := e.applyLocked(tr)
	e.mu.Unlock()

	if err != nil {
		e.reject(ctx, tr, err)
		return err
	}

	origin := event.OriginUser
	if v, ok := tr.Meta(transform.MetaExternal); ok && v == true {
		origin = event.OriginExternal
	}
	applied.Origin = origin
	e.metrics.TransactionApplied(string(origin), len(tr.Steps), time.Since(start))
	e.metrics.DocumentSize(applied.Doc.ContentSize())
	e.publish(ctx, event.NewEvent(event.TopicTransactionApplied, applied, "engine"))
	return nil
}

func (e *Editor) applyLocked(tr *transform.Transaction) (event.TransactionApplied, error) {
	if tr.BaseVersion != e.version {
		return event.TransactionApplied{}, &transform.VersionMismatchError{Expected: e.version, Got: tr.BaseVersion}
	}
	res, err := tr.Apply(e.doc)
	if err != nil {
		return event.TransactionApplied{}, err
	}

	before := e.sel
	after := e.sel.Map(res.Doc, res.Mapping)
	if sel, ok := tr.Selection(); ok {
		if err := sel.Validate(res.Doc); err != nil {
			return event.TransactionApplied{}, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
		}
		after = sel
	}

	if len(tr.Steps) > 0 {
		if tr.AddToHistory() {
			e.history.Push(history.NewEntry(tr.MetaString(transform.MetaCommand), tr.Steps, res.Inverse, before, after))
		} else {
			e.history.Remap(res.Mapping)
		}
		e.version++
	}
	e.doc = res.Doc
	e.sel = after

	e.logger.Debug("transaction applied",
		"id", tr.ID,
		"version", e.version,
		"steps", len(tr.Steps),
		"command", tr.MetaString(transform.MetaCommand),
	)
	return event.TransactionApplied{
		TransactionID: tr.ID,
		Version:       e.version,
		Doc:           res.Doc,
		Mapping:       res.Mapping,
		Selection:     after,
		Meta:          metaCopy(tr),
	}, nil
}

func (e *Editor) reject(ctx context.Context, tr *transform.Transaction, err error) {
	reason := "invalid"
	var vm *transform.VersionMismatchError
	switch {
	case errors.As(err, &vm):
		reason = "version_mismatch"
	case errors.Is(err, ErrInvalidSelection):
		reason = "selection"
	}
	e.logger.Debug("transaction rejected", "id", tr.ID, "reason", reason, "error", err)
	e.metrics.TransactionRejected(reason)
	e.publish(ctx, event.NewEvent(event.TopicTransactionRejected,
		event.TransactionRejected{TransactionID: tr.ID, Version: tr.BaseVersion, Err: err}, "engine"))
}

func metaCopy(tr *transform.Transaction) map[string]any {
	out := map[string]any{}
	for _, k := range []string{transform.MetaAddToHistory, transform.MetaExternal, transform.MetaUploadID, transform.MetaCommand} {
		if v, ok := tr.Meta(k); ok {
			out[k] = v
		}
	}
	return out
}

// ============================================================================
// Undo/Redo Operations
// ============================================================================

// Undo reverts the newest history entry, restoring the document and the
// selection from before it.
func (e *Editor) Undo(ctx context.Context) error {
	return e.step(ctx, event.OriginUndo)
}

// Redo reapplies the newest undone entry.
func (e *Editor) Redo(ctx context.Context) error {
	return e.step(ctx, event.OriginRedo)
}

func (e *Editor) step(ctx context.Context, origin event.Origin) error {
	if e.readOnly {
		return ErrReadOnly
	}

	var applied event.TransactionApplied
	start := time.Now()

	e.mu.Lock()
	apply := func(entry *history.Entry) (*history.Entry, error) {
		steps, target := entry.Inverse, entry.SelectionBefore
		if origin == event.OriginRedo {
			steps, target = entry.Steps, entry.SelectionAfter
		}
		res, err := transform.Apply(e.doc, steps)
		if err != nil {
			return nil, err
		}
		next := *entry
		if origin == event.OriginUndo {
			next.Steps = res.Inverse
		} else {
			next.Inverse = res.Inverse
		}

		e.doc = res.Doc
		e.sel = restoreSelection(res.Doc, target)
		e.version++
		applied = event.TransactionApplied{
			Version:   e.version,
			Origin:    origin,
			Doc:       res.Doc,
			Mapping:   res.Mapping,
			Selection: e.sel,
		}
		return &next, nil
	}
	var err error
	if origin == event.OriginUndo {
		err = e.history.Undo(apply)
	} else {
		err = e.history.Redo(apply)
	}
	e.mu.Unlock()

	if err != nil {
		if !errors.Is(err, ErrNothingToUndo) && !errors.Is(err, ErrNothingToRedo) {
			e.logger.Warn("history step failed", "origin", origin, "error", err)
		}
		return err
	}
	e.metrics.TransactionApplied(string(origin), 0, time.Since(start))
	e.metrics.DocumentSize(applied.Doc.ContentSize())
	e.publish(ctx, event.NewEvent(event.TopicTransactionApplied, applied, "engine"))
	return nil
}

// restoreSelection returns sel if it resolves in doc, otherwise the
// closest valid cursor.
func restoreSelection(doc *model.Node, sel selection.Selection) selection.Selection {
	if sel.Validate(doc) == nil {
		return sel
	}
	clamped := sel.Clamp(doc)
	if clamped.IsNode() {
		clamped = selection.Cursor(clamped.From())
	}
	if clamped.Validate(doc) == nil {
		return clamped
	}
	return selection.Cursor(selection.NearTextPos(doc, clamped.From(), 1))
}

// CanUndo returns true if undo is available.
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo returns true if redo is available.
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// UndoCount returns the number of undo entries.
func (e *Editor) UndoCount() int { return e.history.UndoCount() }

// RedoCount returns the number of redo entries.
func (e *Editor) RedoCount() int { return e.history.RedoCount() }

// BeginUndoGroup starts grouping transactions into one undo unit.
func (e *Editor) BeginUndoGroup(name string) { e.history.BeginGroup(name) }

// EndUndoGroup ends the current undo group.
func (e *Editor) EndUndoGroup() { e.history.EndGroup() }

// CancelUndoGroup ends the group without recording it.
func (e *Editor) CancelUndoGroup() { e.history.CancelGroup() }

// ClearHistory removes all undo/redo history.
func (e *Editor) ClearHistory() { e.history.Clear() }

// History exposes the undo history for inspection.
func (e *Editor) History() *history.History { return e.history }

func (e *Editor) publish(ctx context.Context, ev any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.Debug("event publish failed", "error", err)
	}
}
