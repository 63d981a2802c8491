package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/folio/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run folio in the background",
	Long: `Serve starts folio with its plugins, serves Prometheus metrics when
enabled and reloads the configuration file when it changes. It runs until
interrupted.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			fatal("Error starting folio", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := a.ServeMetrics(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		if configPath != "" {
			g.Go(func() error {
				if err := a.WatchConfig(gctx); err != nil && !errors.Is(err, app.ErrNoConfigFile) {
					return err
				}
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
		runErr := g.Wait()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			a.Logger().Warn("shutdown incomplete", "error", err)
		}
		if runErr != nil {
			fatal("folio stopped", runErr)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
