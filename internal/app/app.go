// Package app wires folio's components into a running application.
//
// New starts the components in dependency order: configuration, logging,
// the event bus, metrics, the schema, commands, plugins and the upload
// backend. The document store is opened on first use. Shutdown stops
// them in reverse order.
package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dshills/folio/internal/command"
	"github.com/dshills/folio/internal/config"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/metrics"
	"github.com/dshills/folio/internal/plugin"
	"github.com/dshills/folio/internal/store"
	"github.com/dshills/folio/internal/upload"
)

// Options configures New.
type Options struct {
	// ConfigPath is the configuration file. Empty uses defaults and the
	// environment only.
	ConfigPath string

	// Config replaces loading from ConfigPath.
	Config *config.Config

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer

	// Uploader replaces the configured upload backend.
	Uploader upload.Uploader

	// SkipPlugins disables plugin loading regardless of configuration.
	SkipPlugins bool
}

// Application is a running folio instance.
type Application struct {
	opts Options

	cfgMu  sync.RWMutex
	config *config.Config

	level      *slog.LevelVar
	logger     *slog.Logger
	bus        *event.Bus
	metrics    *metrics.Metrics
	schema     *schema.Registry
	dispatcher *command.Dispatcher
	catalog    *command.Catalog
	plugins    *plugin.Host
	uploader   upload.Uploader
	documents  *DocumentManager
	subs       []event.Subscription

	storeOnce sync.Once
	store     *store.ContentStore
	storeErr  error

	cleanup  []func(context.Context) error
	shutdown atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

// New starts an application.
func New(ctx context.Context, opts Options) (*Application, error) {
	a := &Application{opts: opts, documents: NewDocumentManager()}
	b := &bootstrapper{app: a}
	if err := b.run(ctx); err != nil {
		return nil, err
	}
	a.logger.Info("folio started",
		"plugins", len(a.plugins.Plugins()),
		"commands", len(a.dispatcher.Names()),
		"uploads", a.uploader != nil)
	return a, nil
}

// Config returns the current configuration.
func (a *Application) Config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.config
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Bus returns the event bus.
func (a *Application) Bus() *event.Bus { return a.bus }

// Metrics returns the metrics registry.
func (a *Application) Metrics() *metrics.Metrics { return a.metrics }

// Schema returns the document schema.
func (a *Application) Schema() *schema.Registry { return a.schema }

// Dispatcher returns the command dispatcher.
func (a *Application) Dispatcher() *command.Dispatcher { return a.dispatcher }

// Catalog returns the slash menu catalog.
func (a *Application) Catalog() *command.Catalog { return a.catalog }

// Plugins returns the plugin host.
func (a *Application) Plugins() *plugin.Host { return a.plugins }

// Documents returns the open documents.
func (a *Application) Documents() *DocumentManager { return a.documents }

// Store opens the document store on first use.
func (a *Application) Store() (*store.ContentStore, error) {
	a.storeOnce.Do(func() {
		a.store, a.storeErr = store.Open(a.Config().Store, a.schema)
		if a.storeErr != nil {
			a.storeErr = &InitError{Component: "store", Err: a.storeErr}
			return
		}
		a.logger.Debug("store opened", "driver", a.Config().Store.Driver)
	})
	return a.store, a.storeErr
}

// IsShutdown reports whether Shutdown was called.
func (a *Application) IsShutdown() bool { return a.shutdown.Load() }
