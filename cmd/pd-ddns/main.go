package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/yuriy-kovalchuk/pd-ddns/internal/config"
	"github.com/yuriy-kovalchuk/pd-ddns/internal/dns"
	_ "github.com/yuriy-kovalchuk/pd-ddns/internal/dns/providers"
	"github.com/yuriy-kovalchuk/pd-ddns/internal/reconcile"
	"github.com/yuriy-kovalchuk/pd-ddns/internal/server"
)

var Version = "dev"

func main() {
	development := flag.Bool("dev", false, "use development logger output")
	flag.Parse()

	log, err := newLogger(*development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(development bool) (logr.Logger, error) {
	var zl *zap.Logger
	var err error
	if development {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return logr.Logger{}, fmt.Errorf("building logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

func run(log logr.Logger) error {
	log.Info("starting pd-ddns", "version", Version)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("unable to load config: %w", err)
	}
	log.Info("loaded config", "provider", cfg.Provider, "domain", cfg.Domain, "records", len(cfg.Records))

	provider, err := dns.NewProvider(cfg.Provider, log.WithName("dns-"+cfg.Provider), cfg.Settings)
	if err != nil {
		return fmt.Errorf("unable to create DNS provider: %w", err)
	}

	reconciler := reconcile.NewReconciler(provider, cfg.Domain, log.WithName("reconciler"))
	orchestrator := reconcile.NewOrchestrator(reconciler, cfg.Records, cfg.TTL, log.WithName("orchestrator"))
	srv := server.New(cfg.APIToken, cfg.Domain, orchestrator, log.WithName("server"))

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server exited with error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
