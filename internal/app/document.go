package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/folio/internal/command"
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/serial"
	"github.com/dshills/folio/internal/upload"
)

// Document is an open document.
type Document struct {
	ID     string
	Title  string
	Editor *engine.Editor

	// Uploads is nil when no upload backend is configured.
	Uploads *upload.Session

	saved atomic.Uint64
}

// Modified reports whether the document changed since it was opened or
// last saved.
func (d *Document) Modified() bool {
	return d.Editor.Version() != d.saved.Load()
}

func (d *Document) markSaved(version uint64) { d.saved.Store(version) }

// DocumentManager tracks open documents in the order they were opened.
type DocumentManager struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	order []string
}

// NewDocumentManager creates an empty manager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{docs: make(map[string]*Document)}
}

// Add tracks doc.
func (m *DocumentManager) Add(doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return &DocumentError{Op: "open", ID: doc.ID, Err: ErrDocumentAlreadyOpen}
	}
	m.docs[doc.ID] = doc
	m.order = append(m.order, doc.ID)
	return nil
}

// Get returns the open document with the id.
func (m *DocumentManager) Get(id string) (*Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	return doc, ok
}

// Remove stops tracking a document and reports whether it was open.
func (m *DocumentManager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return false
	}
	delete(m.docs, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the open documents in the order they were opened.
func (m *DocumentManager) List() []*Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Document, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.docs[id])
	}
	return out
}

// Count returns the number of open documents.
func (m *DocumentManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Modified returns the open documents with unsaved changes.
func (m *DocumentManager) Modified() []*Document {
	var out []*Document
	for _, doc := range m.List() {
		if doc.Modified() {
			out = append(out, doc)
		}
	}
	return out
}

func (a *Application) editorOptions() []engine.Option {
	return []engine.Option{
		engine.WithLogger(logging.Component(a.logger, "engine")),
		engine.WithPublisher(a.bus),
		engine.WithMetrics(a.metrics),
		engine.WithMaxUndoEntries(a.Config().History.MaxEntries),
	}
}

// NewDocument opens a new unsaved document. A nil tree starts from the
// schema's empty document.
func (a *Application) NewDocument(title string, tree *serial.PortableNode) (*Document, error) {
	if a.shutdown.Load() {
		return nil, ErrShutdown
	}
	ed, err := engine.Load(a.schema, tree, a.editorOptions()...)
	if err != nil {
		return nil, &DocumentError{Op: "create", ID: title, Err: err}
	}
	return a.track(uuid.NewString(), title, ed)
}

// OpenDocument opens a stored document, or returns it when already open.
func (a *Application) OpenDocument(ctx context.Context, id string) (*Document, error) {
	if a.shutdown.Load() {
		return nil, ErrShutdown
	}
	if doc, ok := a.documents.Get(id); ok {
		return doc, nil
	}
	st, err := a.Store()
	if err != nil {
		return nil, err
	}
	ed, err := st.OpenEditor(ctx, id, a.editorOptions()...)
	if err != nil {
		return nil, &DocumentError{Op: "open", ID: id, Err: err}
	}
	title := id
	if sum, err := st.Summary(ctx, id); err == nil && sum.Title != "" {
		title = sum.Title
	}
	doc, err := a.track(id, title, ed)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, event.NewEvent(event.TopicDocumentLoaded,
		event.DocumentLoaded{Version: ed.Version(), Doc: ed.Doc()}, "app").WithCorrelation(id))
	return doc, nil
}

func (a *Application) track(id, title string, ed *engine.Editor) (*Document, error) {
	doc := &Document{ID: id, Title: title, Editor: ed}
	doc.markSaved(ed.Version())
	if a.uploader != nil {
		cfg := a.Config().Upload
		doc.Uploads = upload.NewSession(ed, a.uploader,
			upload.WithLogger(logging.Component(a.logger, "upload")),
			upload.WithMetrics(a.metrics),
			upload.WithPublisher(a.bus),
			upload.WithTimeout(cfg.Timeout),
			upload.WithConcurrency(cfg.MaxConcurrent),
		)
	}
	if err := a.documents.Add(doc); err != nil {
		return nil, err
	}
	a.logger.Debug("document opened", "doc", id, "title", title)
	return doc, nil
}

func (a *Application) document(op, id string) (*Document, error) {
	doc, ok := a.documents.Get(id)
	if !ok {
		return nil, &DocumentError{Op: op, ID: id, Err: ErrDocumentNotFound}
	}
	return doc, nil
}

// SaveDocument writes an open document to the store.
func (a *Application) SaveDocument(ctx context.Context, id string) error {
	doc, err := a.document("save", id)
	if err != nil {
		return err
	}
	st, err := a.Store()
	if err != nil {
		return err
	}
	version := doc.Editor.Version()
	if err := st.Save(ctx, doc.ID, doc.Title, doc.Editor); err != nil {
		return &DocumentError{Op: "save", ID: id, Err: err}
	}
	doc.markSaved(version)
	a.publish(ctx, event.NewEvent(event.TopicDocumentSaved,
		event.DocumentSaved{ID: doc.ID, Version: version}, "app").WithCorrelation(id))
	a.logger.Info("document saved", "doc", id, "version", version)
	return nil
}

// CloseDocument stops tracking an open document. Unless force is set it
// refuses documents with unsaved changes or running uploads.
func (a *Application) CloseDocument(ctx context.Context, id string, force bool) error {
	doc, err := a.document("close", id)
	if err != nil {
		return err
	}
	if !force {
		if doc.Modified() {
			return &DocumentError{Op: "close", ID: id, Err: ErrUnsavedChanges}
		}
		if doc.Uploads != nil && len(doc.Uploads.Pending()) > 0 {
			return &DocumentError{Op: "close", ID: id, Err: ErrUploadsPending}
		}
	}
	if doc.Uploads != nil {
		for _, uid := range doc.Uploads.Pending() {
			if err := doc.Uploads.Cancel(ctx, uid); err != nil && !errors.Is(err, upload.ErrUnknownUpload) {
				a.logger.Debug("cancel upload on close", "doc", id, "upload", uid, "error", err)
			}
		}
		doc.Uploads.Wait()
	}
	a.documents.Remove(id)
	a.logger.Debug("document closed", "doc", id)
	return nil
}

// Execute runs a command against an open document.
func (a *Application) Execute(ctx context.Context, id, name string, p command.Params) (*transform.Transaction, error) {
	doc, err := a.document("execute", id)
	if err != nil {
		return nil, err
	}
	return a.dispatcher.Execute(ctx, doc.Editor, name, p)
}

// Upload starts uploading files into an open document. More than one file
// inserts a gallery with the given number of columns.
func (a *Application) Upload(ctx context.Context, id string, columns int, files ...upload.File) (*upload.Upload, error) {
	doc, err := a.document("upload", id)
	if err != nil {
		return nil, err
	}
	if doc.Uploads == nil {
		return nil, &DocumentError{Op: "upload", ID: id, Err: ErrNoUploader}
	}
	if len(files) == 1 {
		return doc.Uploads.Start(ctx, files[0])
	}
	return doc.Uploads.StartGallery(ctx, files, columns)
}

func (a *Application) publish(ctx context.Context, ev any) {
	if err := a.bus.Publish(ctx, ev); err != nil {
		a.logger.Debug("event publish failed", "error", err)
	}
}
