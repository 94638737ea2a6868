package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"betcha_portal/internal/domain"
)

// photoEntry is what the cache stores per property. An entry with an empty
// URL means "known absent": the property was looked up and had no photo (or
// the fetch failed), so it must not be re-fetched for the TTL. A property
// with no entry at all has never been requested and will be fetched once.
type photoEntry struct {
	URL string `json:"url"`
}

// PhotoResolver resolves a property's cover photo through a cache-aside
// layer. It never returns an error: a failed or empty lookup yields "" and
// the caller keeps the placeholder image.
type PhotoResolver struct {
	api   domain.BetchaClient
	cache domain.Cache
	ttl   time.Duration
}

func NewPhotoResolver(api domain.BetchaClient, cache domain.Cache, ttl time.Duration) *PhotoResolver {
	return &PhotoResolver{api: api, cache: cache, ttl: ttl}
}

func photoKey(propertyID string) string { return "photo:" + propertyID }

// Photo returns the first photo URL for the property, or "" when none is
// known. Cached results, including cached absence, are served without a
// network call.
func (p *PhotoResolver) Photo(ctx context.Context, propertyID string) string {
	if propertyID == "" {
		return ""
	}
	key := photoKey(propertyID)

	var e photoEntry
	if ok, err := p.cache.Get(ctx, key, &e); err == nil && ok {
		return e.URL
	}

	prop, err := p.api.Property(ctx, propertyID)
	if err != nil {
		// Failure is indistinguishable from "no photo" downstream; cache it
		// so the miss is not retried on every render this session.
		log.Warn().Str("property", propertyID).Err(err).Msg("property photo fetch failed")
		_ = p.cache.Set(ctx, key, photoEntry{}, int(p.ttl.Seconds()))
		return ""
	}

	if len(prop.PhotoLinks) > 0 {
		e.URL = prop.PhotoLinks[0]
	}
	_ = p.cache.Set(ctx, key, e, int(p.ttl.Seconds()))
	return e.URL
}
