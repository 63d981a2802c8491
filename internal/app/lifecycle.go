package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dshills/folio/internal/config"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/logging"
)

// WatchConfig reloads the configuration file whenever it changes until
// ctx is done. A reload changes the log level at once; undo limits and
// upload settings apply to documents opened afterwards.
func (a *Application) WatchConfig(ctx context.Context) error {
	if a.opts.ConfigPath == "" {
		return ErrNoConfigFile
	}
	err := config.Watch(ctx, a.opts.ConfigPath, config.DefaultDebounce, func(cfg *config.Config, err error) {
		if err != nil {
			a.logger.Warn("config reload failed, keeping previous settings", "path", a.opts.ConfigPath, "error", err)
			return
		}
		a.ApplyConfig(ctx, cfg)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ApplyConfig installs a reloaded configuration and publishes
// config.changed.
func (a *Application) ApplyConfig(ctx context.Context, cfg *config.Config) {
	a.cfgMu.Lock()
	prev := a.config
	a.config = cfg
	a.cfgMu.Unlock()

	a.level.Set(logging.ParseLevel(cfg.Log.Level))
	if prev.Store != cfg.Store {
		a.logger.Warn("store settings changed; restart to apply")
	}
	a.logger.Info("config reloaded", "level", cfg.Log.Level)
	a.publish(ctx, event.NewEvent(event.TopicConfigChanged, cfg, "app"))
}

// ServeMetrics serves Prometheus metrics on the configured address until
// ctx is done. It returns immediately when metrics are disabled.
func (a *Application) ServeMetrics(ctx context.Context) error {
	cfg := a.Config().Metrics
	if !cfg.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.logger.Info("serving metrics", "addr", cfg.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Shutdown waits for running uploads, stops the components and closes the
// store. Later calls return the first result.
func (a *Application) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		a.shutdown.Store(true)
		a.stopErr = a.stop(ctx)
	})
	return a.stopErr
}

func (a *Application) stop(ctx context.Context) error {
	var errs []error

	if modified := a.documents.Modified(); len(modified) > 0 {
		a.logger.Warn("shutting down with unsaved documents", "count", len(modified))
	}
	done := make(chan struct{})
	go func() {
		for _, doc := range a.documents.List() {
			if doc.Uploads != nil {
				doc.Uploads.Wait()
			}
		}
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	for _, sub := range a.subs {
		_ = a.bus.Unsubscribe(sub)
	}
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanup = nil

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.logger.Info("folio stopped")
	return errors.Join(errs...)
}
