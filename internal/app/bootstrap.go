package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dshills/folio/internal/command"
	"github.com/dshills/folio/internal/config"
	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/metrics"
	"github.com/dshills/folio/internal/plugin"
	"github.com/dshills/folio/internal/preset"
	"github.com/dshills/folio/internal/upload"
)

// bootstrapper starts components in order and stops the started ones
// when a later one fails.
type bootstrapper struct {
	app *Application
}

type initStep struct {
	name string
	fn   func(context.Context) error
}

func (b *bootstrapper) run(ctx context.Context) error {
	steps := []initStep{
		{"config", b.initConfig},
		{"logger", b.initLogger},
		{"event bus", b.initEventBus},
		{"metrics", b.initMetrics},
		{"schema", b.initSchema},
		{"commands", b.initCommands},
		{"plugins", b.initPlugins},
		{"uploader", b.initUploader},
		{"subscriptions", b.initSubscriptions},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			b.rollback(ctx)
			var ie *InitError
			if errors.As(err, &ie) {
				return err
			}
			return &InitError{Component: step.name, Err: err}
		}
	}
	return nil
}

func (b *bootstrapper) rollback(ctx context.Context) {
	for i := len(b.app.cleanup) - 1; i >= 0; i-- {
		_ = b.app.cleanup[i](ctx)
	}
	b.app.cleanup = nil
}

func (b *bootstrapper) onStop(fn func(context.Context) error) {
	b.app.cleanup = append(b.app.cleanup, fn)
}

func (b *bootstrapper) initConfig(context.Context) error {
	if cfg := b.app.opts.Config; cfg != nil {
		if err := cfg.Validate(); err != nil {
			return err
		}
		b.app.config = cfg
		return nil
	}
	cfg, err := config.Load(b.app.opts.ConfigPath)
	if err != nil {
		return err
	}
	b.app.config = cfg
	return nil
}

func (b *bootstrapper) initLogger(context.Context) error {
	cfg := b.app.config
	b.app.level = new(slog.LevelVar)
	b.app.level.Set(logging.ParseLevel(cfg.Log.Level))

	lc := logging.FromSettings(cfg.Log, b.app.opts.LogOutput)
	lc.Leveler = b.app.level
	b.app.logger = logging.New(lc)
	return nil
}

func (b *bootstrapper) initEventBus(context.Context) error {
	bus := event.NewBus(event.WithLogger(logging.Component(b.app.logger, "event")))
	if err := bus.Start(); err != nil {
		return err
	}
	b.app.bus = bus
	b.onStop(bus.Stop)
	return nil
}

func (b *bootstrapper) initMetrics(context.Context) error {
	b.app.metrics = metrics.New()
	return nil
}

func (b *bootstrapper) initSchema(context.Context) error {
	reg, err := preset.NewMuseumSchema()
	if err != nil {
		return err
	}
	b.app.schema = reg
	return nil
}

func (b *bootstrapper) initCommands(context.Context) error {
	b.app.dispatcher = command.NewWithDefaults(
		command.WithLogger(logging.Component(b.app.logger, "command")),
		command.WithPublisher(b.app.bus),
		command.WithMetrics(b.app.metrics),
	)
	b.app.catalog = command.DefaultCatalog()
	return nil
}

// initPlugins loads plugins when enabled. A broken plugin is logged and
// skipped; it never stops the application.
func (b *bootstrapper) initPlugins(ctx context.Context) error {
	host := plugin.NewHost(b.app.dispatcher, b.app.catalog,
		plugin.WithLogger(b.app.logger))
	b.app.plugins = host
	b.onStop(func(context.Context) error { return host.Close() })

	cfg := b.app.config.Plugins
	if !cfg.Enabled || b.app.opts.SkipPlugins {
		return nil
	}
	n, err := host.LoadDir(ctx, cfg.Dir)
	if err != nil {
		b.app.logger.Warn("some plugins failed to load", "dir", cfg.Dir, "error", err)
	}
	b.app.logger.Debug("plugins loaded", "dir", cfg.Dir, "count", n)
	return nil
}

func (b *bootstrapper) initUploader(ctx context.Context) error {
	if up := b.app.opts.Uploader; up != nil {
		b.app.uploader = up
		return nil
	}
	cfg := b.app.config.Upload
	if cfg.Backend != "minio" {
		return nil
	}
	up, err := upload.NewMinio(ctx, cfg)
	if err != nil {
		return err
	}
	b.app.uploader = up
	return nil
}

// initSubscriptions logs the failures other components only publish.
func (b *bootstrapper) initSubscriptions(context.Context) error {
	logger := b.app.logger
	rejected, err := event.SubscribePayload(b.app.bus, event.TopicTransactionRejected,
		func(_ context.Context, ev event.TransactionRejected) error {
			logger.Debug("transaction rejected", "tx", ev.TransactionID, "version", ev.Version, "error", ev.Err)
			return nil
		})
	if err != nil {
		return err
	}
	failed, err := event.SubscribePayload(b.app.bus, event.TopicUploadFailed,
		func(_ context.Context, ev event.Upload) error {
			logger.Warn("upload failed", "upload", ev.ID, "file", ev.FileName, "error", ev.Err)
			return nil
		})
	if err != nil {
		_ = b.app.bus.Unsubscribe(rejected)
		return err
	}
	b.app.subs = append(b.app.subs, rejected, failed)
	return nil
}
