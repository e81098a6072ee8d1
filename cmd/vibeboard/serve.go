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

	"github.com/mattyatplay-coder/vibeboard/pkg/api"
)

func newServeCmd() *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if bind == "" {
				bind = a.cfg.Server.Bind
			}

			server := api.NewServer(api.ServerConfig{
				Address:    bind,
				Config:     a.cfg,
				Dispatcher: a.dispatcher,
				Tracker:    a.tracker,
				Store:      a.store,
				EventBus:   a.events,
				Logger:     a.logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				cmd.Printf("listening on %s (%d providers usable)\n", bind, a.dispatcher.Registry().Len())
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (host:port)")
	return cmd
}
