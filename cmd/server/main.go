package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"playroom/internal/config"
	"playroom/internal/game"
	"playroom/internal/handlers"
	"playroom/internal/logger"
	"playroom/internal/metrics"
	"playroom/internal/random"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("")
	if err != nil {
		logger.Get().Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger.Init(cfg.Server.LogLevel, cfg.Server.LogFormat)
	log := logger.Get()
	log.Info("configuration loaded",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"metrics", cfg.Server.EnableMetrics,
	)

	src := random.New()
	bingo := game.NewBingo(cfg.Games.Bingo, src, log)
	croc := game.NewCroc(cfg.Games.Croc, src, log)
	memory := game.NewMemory(cfg.Games.Memory, src, log)
	gomoku := game.NewGomoku(cfg.Games.Gomoku, src, log)

	h := handlers.New(bingo, croc, memory, gomoku, cfg, log)
	router := h.SetupRouter(handlers.RouterOptions{EnableRateLimiting: true})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout, // 0 for SSE support
		IdleTimeout:  cfg.Server.IdleTimeout,  // 0 for SSE support
	}

	var metricsServer *http.Server
	if cfg.Server.EnableMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.MetricsPort,
			Handler: mux,
		}
		go func() {
			log.Info("metrics listener starting", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics listener failed", "err", err)
			}
		}()
	}

	// Background sweep of abandoned rooms. Rooms keep themselves alive
	// through subscribers; anything idle past the timeout is collected.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweepInterval := cfg.Server.RoomTimeout / 4
	if sweepInterval < time.Minute {
		sweepInterval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				bingo.SweepStale(cfg.Server.RoomTimeout)
				croc.SweepStale(cfg.Server.RoomTimeout)
				memory.SweepStale(cfg.Server.RoomTimeout)
				gomoku.SweepStale(cfg.Server.RoomTimeout)
			}
		}
	}()

	go func() {
		log.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		_ = metricsServer.Shutdown(ctx)
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "err", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
