package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/dashboard"
	"github.com/opscart/subscriptions-utilized/pkg/logging"
	"github.com/opscart/subscriptions-utilized/pkg/server"
	"github.com/opscart/subscriptions-utilized/pkg/storage"
	"github.com/opscart/subscriptions-utilized/pkg/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	listenAddr string
	jsonLogs   bool
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the card over HTTP and refresh it periodically",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from LISTEN_ADDR)")
	serveCmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "Log as JSON")
	return serveCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	if jsonLogs {
		logging.ReplaceLogger(slog.New(logging.NewJSONHandler(os.Stderr)))
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics()
	loader, err := newLoader(ctx, metrics)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithMetrics(metrics), server.WithWindow(window())}
	if cfg.StorageEnabled {
		snapshots, err := openStorage()
		if err != nil {
			return err
		}
		opts = append(opts, server.WithSnapshots(snapshots))
	} else {
		opts = append(opts, server.WithSnapshots(storage.NewMemoryStore()))
	}

	srv := server.New(cfg.ListenAddr, loader, opts...)
	refresher := dashboard.NewRefresher(loader, cfg.RefreshInterval, srv.OnLoad)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		refresher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logTransitions(gctx, loader)
		return nil
	})
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	return g.Wait()
}

func logTransitions(ctx context.Context, loader *dashboard.Loader) {
	updates := loader.Store().Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case product := <-updates:
			rec := loader.Store().Get(product)
			logging.Debug(ctx, "Product state changed", "product", product, "status", rec.Status, "error", rec.Err)
		}
	}
}
