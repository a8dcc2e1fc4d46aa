package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jordanhw/menu-sync-backend/internal/config"
	"github.com/jordanhw/menu-sync-backend/internal/httpapi"
	"github.com/jordanhw/menu-sync-backend/internal/hub"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, logger)

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: httpapi.SetupRoutes(h, cfg, logger),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr()), zap.Bool("key_required", cfg.RoomKey != ""))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(env string) *zap.Logger {
	if env == "prod" {
		l, _ := zap.NewProduction()
		return l
	}
	l, _ := zap.NewDevelopment()
	return l
}
