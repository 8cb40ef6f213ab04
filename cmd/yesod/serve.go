package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/yesod/internal/app"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

func newServeCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logger.L().With(logger.Component("serve"))

			a, err := app.New(ctx, cfg, app.Options{})
			if err != nil {
				log.Error("wiring failed", logger.Err(err))
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           a.Handler,
				ReadTimeout:       cfg.Server.ReadTimeout,
				ReadHeaderTimeout: cfg.Server.ReadTimeout,
				WriteTimeout:      cfg.Server.WriteTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("listening", logger.String("addr", cfg.Server.Addr), logger.String("public_url", cfg.Server.PublicURL))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down", logger.Duration("timeout", cfg.Server.ShutdownTimeout))
				sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})

			if err := g.Wait(); err != nil {
				log.Error("server stopped with error", logger.Err(err))
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
}
