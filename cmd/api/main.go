package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"betcha_portal/internal/adapters/betcha"
	server "betcha_portal/internal/adapters/http_server"
	"betcha_portal/internal/adapters/observability"
	redisad "betcha_portal/internal/adapters/redis"
	"betcha_portal/internal/app"
	"betcha_portal/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// deps
	client, err := betcha.New(cfg.BetchaBase, cfg.BetchaKey, cfg.BetchaRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Betcha client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	photos := app.NewPhotoResolver(client, cache, cfg.CacheTTL)
	bookings := app.NewBookingService(client, photos, cfg.PhotoWorkers, cfg.PhotoBatchPause)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Bookings:     bookings,
		API:          client,
		PollInterval: cfg.PollInterval,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("portal API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
