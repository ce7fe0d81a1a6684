package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"vetpos/internal/backend"
	"vetpos/internal/checkout"
	"vetpos/internal/config"
	"vetpos/internal/handlers"
	"vetpos/internal/session"
	"vetpos/internal/store"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	if cfg.Environment == "production" {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open terminal database")
	}

	client, err := backend.New(backend.Config{
		BaseURL:    cfg.BackendURL,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build backend client")
	}

	mgr := session.NewManager(client, st, log)

	var h *handlers.Handlers
	engine := checkout.NewEngine(client, mgr, st, log, func() {
		// Stock just changed on the backend; refetch so the next sale
		// starts from current numbers.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		if _, err := h.RefreshProducts(ctx); err != nil {
			log.Warn().Err(err).Msg("catalog refresh after sale failed")
		}
	})
	h = handlers.New(mgr, engine, client, st, log)

	// Restore a persisted session in the background. Until this
	// finishes the HTTP surface reports "loading" and refuses to guess
	// the auth state.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		mgr.Bootstrap(ctx)
	}()

	r := handlers.NewRouter(h, cfg.AllowedOrigin)

	log.Info().Str("addr", cfg.ListenAddr).Str("backend", cfg.BackendURL).Msg("VetPOS terminal starting")
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
