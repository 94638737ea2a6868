// Command prefetch warms the property photo cache ahead of portal traffic:
// it pulls each configured guest's bookings, collects the distinct property
// ids, and resolves their photos with a bounded fan-out so the first
// dashboard render is all cache hits.
package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"betcha_portal/internal/adapters/betcha"
	"betcha_portal/internal/adapters/observability"
	redisad "betcha_portal/internal/adapters/redis"
	"betcha_portal/internal/app"
	"betcha_portal/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.BetchaBase).
		Int("workers", cfg.PhotoWorkers).
		Int("guests", len(cfg.PrefetchGuests)).
		Msg("prefetch starting")

	if len(cfg.PrefetchGuests) == 0 {
		log.Warn().Msg("PREFETCH_GUEST_IDS is empty, nothing to warm")
		return
	}

	client, err := betcha.New(cfg.BetchaBase, cfg.BetchaKey, cfg.BetchaRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Betcha client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	photos := app.NewPhotoResolver(client, cache, cfg.CacheTTL)

	// collect distinct property ids across every configured guest
	seen := make(map[string]struct{})
	var propertyIDs []string
	for _, guest := range cfg.PrefetchGuests {
		bookings, err := client.GuestBookings(ctx, guest)
		if err != nil {
			log.Warn().Str("guest", guest).Err(err).Msg("bookings fetch failed, skipping guest")
			continue
		}
		for _, b := range bookings {
			if b.PropertyID == "" {
				continue
			}
			if _, dup := seen[b.PropertyID]; !dup {
				seen[b.PropertyID] = struct{}{}
				propertyIDs = append(propertyIDs, b.PropertyID)
			}
		}
	}
	log.Info().Int("properties", len(propertyIDs)).Msg("collected property ids")

	sem := semaphore.NewWeighted(int64(cfg.PhotoWorkers))
	var wg sync.WaitGroup

	for _, id := range propertyIDs {
		id := id

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(propertyID string) {
			defer wg.Done()
			defer sem.Release(1)

			if url := photos.Photo(ctx, propertyID); url == "" {
				log.Info().Str("property", propertyID).Msg("no photo, cached as absent")
				return
			}
			log.Info().Str("property", propertyID).Msg("photo warmed")
		}(id)
	}

	wg.Wait()
	log.Info().Msg("prefetch completed")
}
