// Command inventory runs the inventory adjustment HTTP service.
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
	"github.com/fairyhunter13/inventory-tracker/internal/eventbus"
	"github.com/fairyhunter13/inventory-tracker/internal/inventory"
	"github.com/fairyhunter13/inventory-tracker/internal/obs"
	"github.com/fairyhunter13/inventory-tracker/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	obs.InitLogger(cfg.LogLevel)
	log.Info().Str("service", "inventory").Msg("Application starting")

	st, closeStore, err := storage.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer closeStore()

	events, err := eventbus.FromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event publisher")
	}
	defer events.Close()

	metrics := obs.NewMetrics("inventory")
	app := inventory.NewApp(st, events, metrics)

	srv := &http.Server{
		Addr:              cfg.InventoryAddr,
		Handler:           inventory.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.InventoryAddr).Msg("http_listen")
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
