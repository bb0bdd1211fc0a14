package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jordanhubbard/statshub/internal/app"
	"github.com/jordanhubbard/statshub/internal/tracing"
)

var version = "dev"

const (
	defaultListenAddr = ":8080"
	drainTimeout      = 30 * time.Second
)

var healthClient = &http.Client{Timeout: 5 * time.Second}

// healthcheckAddr is the address the container probe dials.
func healthcheckAddr() string {
	if addr := os.Getenv("STATSHUB_LISTEN_ADDR"); addr != "" {
		return addr
	}
	return defaultListenAddr
}

// runHealthCheck GETs /healthz on the local listener; addr is ":port" or
// "host:port".
func runHealthCheck(addr string) error {
	resp, err := healthClient.Get(fmt.Sprintf("http://localhost%s/healthz", addr))
	if err != nil {
		return fmt.Errorf("healthz unreachable: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz returned %d", resp.StatusCode)
	}
	return nil
}

// loadDotEnv populates the environment from .env files. Variables already
// set win. A missing file is not an error.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// reloadOnHangup re-reads .env and the config on every SIGHUP and swaps the
// upstream credentials in place. A bad config leaves the running one intact.
func reloadOnHangup(srv *app.Server) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	for range hup {
		if err := loadDotEnv(".env"); err != nil {
			log.Printf("reload: %v", err)
		}
		cfg, err := app.LoadConfig()
		if err == nil {
			err = srv.Reload(cfg)
		}
		if err != nil {
			log.Printf("reload rejected, keeping previous credentials: %v", err)
			continue
		}
		log.Printf("reload: credentials refreshed")
	}
}

func main() {
	if err := loadDotEnv(".env"); err != nil {
		log.Printf("env file: %v", err)
	}

	// The runtime image ships without curl.
	if len(os.Args) > 1 && os.Args[1] == "-healthcheck" {
		if err := runHealthCheck(healthcheckAddr()); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	shutdownTracing, err := tracing.Setup(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	srv, err := app.NewServer(cfg)
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// The coding endpoint makes three upstream calls back to back.
		WriteTimeout: 4*cfg.UpstreamTimeout() + 10*time.Second,
	}
	go func() {
		log.Printf("statshub %s serving on %s", version, cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()
	go reloadOnHangup(srv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	<-ctx.Done()
	stop()
	log.Printf("stopping statshub")

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := httpServer.Shutdown(drainCtx); err != nil {
		log.Printf("http drain: %v", err)
	}
	if err := srv.Close(); err != nil {
		log.Printf("server close: %v", err)
	}
	if err := shutdownTracing(drainCtx); err != nil {
		log.Printf("tracing flush: %v", err)
	}
}
