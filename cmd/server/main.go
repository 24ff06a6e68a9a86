// Command server exposes stored collabnet runs over a read-only HTTP API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunobiangulo/collabnet"
	"github.com/brunobiangulo/collabnet/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := collabnet.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = collabnet.LoadConfig(*configPath); err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		slog.Error("reading environment", "error", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("COLLABNET_API_KEY")
	corsOrigins := os.Getenv("COLLABNET_CORS_ORIGINS")

	p, err := collabnet.New(cfg)
	if err != nil {
		slog.Error("opening results store", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = routes(p.Store())
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr, "db", cfg.ResolvedDBPath())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

func routes(s *store.Store) *http.ServeMux {
	h := newHandler(s)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /runs", h.handleListRuns)
	mux.HandleFunc("GET /runs/{id}/manifest", h.handleManifest)
	mux.HandleFunc("GET /runs/{id}/descriptors", h.handleDescriptors)
	mux.HandleFunc("GET /runs/{id}/centralities", h.handleCentralities)
	mux.HandleFunc("GET /runs/{id}/similar", h.handleSimilar)
	mux.HandleFunc("GET /runs/{id}/rankings", h.handleRankings)
	mux.HandleFunc("GET /runs/{id}/correlations", h.handleCorrelations)
	return mux
}
