package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FirasLatrech/Whispr/internal/captcha"
	"github.com/FirasLatrech/Whispr/internal/config"
	"github.com/FirasLatrech/Whispr/internal/gate"
	"github.com/FirasLatrech/Whispr/internal/handler"
	"github.com/FirasLatrech/Whispr/internal/hub"
	"github.com/FirasLatrech/Whispr/internal/log"
	"github.com/FirasLatrech/Whispr/internal/room"
	"github.com/FirasLatrech/Whispr/internal/service"
	"github.com/FirasLatrech/Whispr/internal/throttle"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "whispr",
	})
	logger := log.L()
	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting whispr relay")

	// Session and abuse-control state, all in-process and ephemeral.
	ledger, err := room.NewLedger()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize room ledger")
	}

	connGate := gate.New()
	rateThrottle := throttle.New()
	captchaStore := captcha.NewStore()

	// Background sweeps with explicit stop handles.
	sweepCtx, cancelSweeps := context.WithCancel(context.Background())
	defer cancelSweeps()
	ledger.StartSweep(sweepCtx)
	defer ledger.StopSweep()
	captchaStore.StartSweep(sweepCtx)
	defer captchaStore.StopSweep()

	// Initialize Hub
	wsHub := hub.NewHub()
	go wsHub.Run()

	// Initialize relay service
	relaySvc := service.NewRelayService(wsHub, ledger, rateThrottle, connGate, captchaStore, cfg.Captcha.Required)

	// Setup HTTP server
	wsHandler := handler.NewWSHandler(wsHub, relaySvc, connGate, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(captchaStore)

	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)
	httpHandler.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      log.HTTPMiddleware(logger)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("whispr relay listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down whispr relay")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("whispr relay stopped")
}
