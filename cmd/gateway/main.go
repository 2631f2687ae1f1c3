// Command gateway runs the API gateway fronting the three services.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/inventory-tracker/internal/config"
	"github.com/fairyhunter13/inventory-tracker/internal/gateway"
	"github.com/fairyhunter13/inventory-tracker/internal/obs"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	obs.InitLogger(cfg.LogLevel)
	log.Info().Str("service", "api-gateway").Msg("Application starting")

	metrics := obs.NewMetrics("gateway")
	gw, err := gateway.New(cfg, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize gateway")
	}

	srv := &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           gateway.NewRouter(gw),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.GatewayAddr).Msg("http_listen")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Application shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	log.Info().Msg("Application stopped")
}
