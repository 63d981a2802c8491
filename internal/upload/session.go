package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/folio/internal/command"
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/transform"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/preset"
)

// CommandName names upload failures reported as command errors.
const CommandName = "upload"

const applyRetries = 3

// Editor is the part of *engine.Editor a session edits through.
type Editor interface {
	State() engine.State
	Apply(ctx context.Context, tr *transform.Transaction) error
}

// Metrics records finished uploads. The metrics package implements it.
type Metrics interface {
	UploadFinished(kind string, ok bool, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) UploadFinished(string, bool, time.Duration) {}

// Status is the state of a tracked upload.
type Status string

// Upload states.
const (
	StatusUploading Status = "uploading"
	StatusFailed    Status = "failed"
	StatusDone      Status = "done"
	StatusCanceled  Status = "canceled"
)

// Upload tracks one upload from placeholder to final node.
type Upload struct {
	// ID is the placeholder's uploadId attribute.
	ID string

	// Kind is the media kind shown by the placeholder.
	Kind string

	files   []File
	gallery bool
	columns int

	mu     sync.Mutex
	status Status
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// Status returns the current state.
func (u *Upload) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

// Err returns why the last attempt failed, or nil.
func (u *Upload) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Wait blocks until the current attempt finishes and returns its error.
// A failed upload returns a *command.CommandError.
func (u *Upload) Wait(ctx context.Context) error {
	u.mu.Lock()
	done := u.done
	u.mu.Unlock()
	select {
	case <-done:
		return u.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish records the outcome of an attempt unless the upload was
// canceled meanwhile.
func (u *Upload) finish(status Status, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.status == StatusCanceled {
		return
	}
	u.status, u.err = status, err
}

// Session runs uploads against one editor. It is safe for concurrent use.
type Session struct {
	ed        Editor
	up        Uploader
	logger    *slog.Logger
	metrics   Metrics
	publisher engine.Publisher
	timeout   time.Duration
	limit     int

	mu      sync.Mutex
	uploads map[string]*Upload
	wg      sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPublisher sets where upload.* events are published.
func WithPublisher(p engine.Publisher) Option {
	return func(s *Session) {
		s.publisher = p
	}
}

// WithTimeout bounds each upload attempt. The default is two minutes.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithConcurrency caps parallel file uploads within a gallery. The
// default is 4.
func WithConcurrency(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewSession creates a session uploading through up and editing ed.
func NewSession(ed Editor, up Uploader, opts ...Option) *Session {
	s := &Session{
		ed:      ed,
		up:      up,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		timeout: 2 * time.Minute,
		limit:   4,
		uploads: make(map[string]*Upload),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "upload")
	return s
}

// Start inserts a placeholder for f and uploads f in the background. The
// placeholder replaces the top-level block holding the selection when
// that block is an empty paragraph, and follows it otherwise.
func (s *Session) Start(ctx context.Context, f File) (*Upload, error) {
	return s.start(ctx, &Upload{Kind: f.Kind(), files: []File{f}}, f.Name)
}

// StartGallery uploads images concurrently behind one placeholder that
// becomes a gallery once every image is stored. A columns value of 0
// keeps the gallery default.
func (s *Session) StartGallery(ctx context.Context, files []File, columns int) (*Upload, error) {
	for _, f := range files {
		if f.Kind() != KindImage {
			return nil, &command.CommandError{Command: CommandName, Reason: fmt.Sprintf("%s is not an image", f.Name)}
		}
	}
	u := &Upload{Kind: KindImage, files: files, gallery: true, columns: columns}
	return s.start(ctx, u, fmt.Sprintf("%d images", len(files)))
}

func (s *Session) start(ctx context.Context, u *Upload, label string) (*Upload, error) {
	if len(u.files) == 0 {
		return nil, ErrNoFiles
	}
	u.ID = uuid.NewString()
	u.status = StatusUploading
	err := s.commit(ctx, func(st engine.State) (*transform.Transaction, error) {
		return insertPlaceholder(st, u.ID, u.Kind, label)
	})
	if err != nil {
		return nil, &command.CommandError{Command: CommandName, Err: err}
	}

	s.mu.Lock()
	s.uploads[u.ID] = u
	s.mu.Unlock()
	s.logger.Info("upload started", "id", u.ID, "kind", u.Kind, "files", len(u.files))
	s.publish(ctx, event.TopicUploadStarted, u, "", nil)
	s.launch(u)
	return u, nil
}

// Get returns a tracked upload.
func (s *Session) Get(id string) (*Upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[id]
	return u, ok
}

// Pending returns the ids of uploads still uploading or failed.
func (s *Session) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.uploads))
	for id, u := range s.uploads {
		// Finished or canceled uploads linger until forgotten.
		if st := u.Status(); st == StatusUploading || st == StatusFailed {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Retry re-runs a failed upload. The placeholder returns to the
// uploading state.
func (s *Session) Retry(ctx context.Context, id string) error {
	u, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	if u.Status() != StatusFailed {
		return fmt.Errorf("%w: %s is %s", ErrNotFailed, id, u.Status())
	}
	err := s.commit(ctx, func(st engine.State) (*transform.Transaction, error) {
		return setStatus(st, id, preset.UploadUploading, "")
	})
	if err != nil {
		return &command.CommandError{Command: CommandName, Err: err}
	}
	s.logger.Info("upload retried", "id", id)
	s.launch(u)
	return nil
}

// Cancel stops an upload and removes its placeholder with an ordinary,
// undoable transaction.
func (s *Session) Cancel(ctx context.Context, id string) error {
	u, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	u.mu.Lock()
	u.status, u.err = StatusCanceled, context.Canceled
	cancel := u.cancel
	u.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.forget(id)

	err := s.commit(ctx, func(st engine.State) (*transform.Transaction, error) {
		return removePlaceholder(st, id)
	})
	if err != nil {
		return &command.CommandError{Command: CommandName, Err: err}
	}
	s.logger.Info("upload canceled", "id", id)
	s.publish(ctx, event.TopicUploadCancelled, u, "", context.Canceled)
	return nil
}

// Wait blocks until every running attempt has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) forget(id string) {
	s.mu.Lock()
	delete(s.uploads, id)
	s.mu.Unlock()
}

func (s *Session) launch(u *Upload) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	done := make(chan struct{})
	u.mu.Lock()
	u.status, u.err = StatusUploading, nil
	u.cancel, u.done = cancel, done
	u.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		defer cancel()
		s.run(ctx, u)
	}()
}

func (s *Session) run(ctx context.Context, u *Upload) {
	start := time.Now()
	results, err := s.uploadAll(ctx, u)
	if u.Status() == StatusCanceled {
		return
	}
	// The follow-up transaction must land even if the upload used up
	// its deadline.
	applyCtx := context.WithoutCancel(ctx)
	if err != nil {
		s.fail(applyCtx, u, err)
		return
	}

	err = s.commit(applyCtx, func(st engine.State) (*transform.Transaction, error) {
		return swapPlaceholder(st, u, results)
	})
	switch {
	case err == nil:
		u.finish(StatusDone, nil)
		s.forget(u.ID)
		s.logger.Info("upload finished", "id", u.ID, "kind", u.Kind, "elapsed", time.Since(start))
		s.publish(applyCtx, event.TopicUploadCompleted, u, results[0].URL, nil)
	case errors.Is(err, ErrPlaceholderGone):
		u.finish(StatusCanceled, err)
		s.forget(u.ID)
		s.logger.Info("upload discarded", "id", u.ID, "reason", "placeholder removed")
		s.publish(applyCtx, event.TopicUploadCancelled, u, "", err)
	default:
		s.fail(applyCtx, u, err)
	}
}

// uploadAll uploads every file of u, at most s.limit at a time, and
// returns the results in file order.
func (s *Session) uploadAll(ctx context.Context, u *Upload) ([]Result, error) {
	results := make([]Result, len(u.files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, f := range u.files {
		i, f := i, f
		g.Go(func() error {
			start := time.Now()
			res, err := s.up.Upload(gctx, f)
			if err == nil && res.URL == "" {
				err = errors.New("uploader returned no URL")
			}
			s.metrics.UploadFinished(f.Kind(), err == nil, time.Since(start))
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	return results, nil
}

// fail marks the placeholder failed so the user can retry or cancel.
func (s *Session) fail(ctx context.Context, u *Upload, cause error) {
	s.logger.Warn("upload failed", "id", u.ID, "kind", u.Kind, "error", cause)
	err := s.commit(ctx, func(st engine.State) (*transform.Transaction, error) {
		return setStatus(st, u.ID, preset.UploadFailed, cause.Error())
	})
	if errors.Is(err, ErrPlaceholderGone) {
		u.finish(StatusCanceled, err)
		s.forget(u.ID)
		s.publish(ctx, event.TopicUploadCancelled, u, "", err)
		return
	}
	if err != nil {
		s.logger.Warn("marking upload failed", "id", u.ID, "error", err)
	}
	u.finish(StatusFailed, &command.CommandError{Command: CommandName, Reason: "upload failed", Err: cause})
	s.publish(ctx, event.TopicUploadFailed, u, "", cause)
}

func (s *Session) publish(ctx context.Context, topic event.Topic, u *Upload, url string, err error) {
	if s.publisher == nil {
		return
	}
	payload := event.Upload{ID: u.ID, Kind: u.Kind, FileName: u.files[0].Name, URL: url, Err: err}
	if perr := s.publisher.Publish(ctx, event.NewEvent(topic, payload, "upload").WithCorrelation(u.ID)); perr != nil {
		s.logger.Debug("event publish failed", "error", perr)
	}
}

// commit builds and applies a transaction, rebuilding it when a
// concurrent edit bumped the version first.
func (s *Session) commit(ctx context.Context, build func(engine.State) (*transform.Transaction, error)) error {
	for attempt := 0; ; attempt++ {
		tr, err := build(s.ed.State())
		if err != nil {
			return err
		}
		err = s.ed.Apply(ctx, tr)
		if err == nil || !errors.Is(err, transform.ErrVersionMismatch) || attempt >= applyRetries {
			return err
		}
	}
}
