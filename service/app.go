package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogfeed/app/config"
	"blogfeed/app/media"
	"blogfeed/app/routes"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// RunAppServer serves the site until SIGINT or SIGTERM, then drains in-flight
// requests.
func RunAppServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	return serve(ctx, cfg, listener)
}

// serve runs the site on listener until ctx is done.
func serve(ctx context.Context, cfg *config.Config, listener net.Listener) error {
	defer listener.Close()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	responses, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer responses.Close()

	handler, err := routes.SetupRoutes(routes.Deps{
		Store:         store,
		Cache:         responses,
		Media:         media.NewStore(cfg.MediaRoot, cfg.MaxUploadSize),
		IndexCacheTTL: cfg.IndexCacheTTL,
		PageSize:      cfg.PageSize,
		MaxUploadSize: cfg.MaxUploadSize,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": listener.Addr().String(), "store": cfg.Store, "cache": cfg.Cache}).Info("blogfeed listening")
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
