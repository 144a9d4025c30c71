package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"outpatient_capacity/pkg/api/analysis"
	"outpatient_capacity/pkg/config"
	"outpatient_capacity/pkg/core/pipeline"
)

const (
	sessionMaxAge   = 24 * time.Hour
	sessionSweep    = time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := cfg.LoadDataset(ctx, logger)
	if err != nil {
		logger.Error("load dataset", "error", err)
		os.Exit(1)
	}

	sessions := analysis.NewSessionStore()
	go sessions.Janitor(ctx, sessionSweep, sessionMaxAge)

	handler := analysis.NewHandler(pipeline.NewEngine(data, logger), sessions, cfg.Defaults, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           analysis.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Error("listen", "addr", cfg.Addr, "error", err)
		os.Exit(1)
	}

	logger.Info("API server starting", "addr", ln.Addr().String(), "specialties", len(data.Specialties()))
	if err := analysis.Serve(ctx, srv, ln, shutdownTimeout, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
