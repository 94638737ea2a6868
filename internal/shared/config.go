package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	RedisAddr string
	RedisDB   int
	RedisPass string

	BetchaBase string
	BetchaKey  string
	BetchaRPS  int

	PhotoWorkers    int
	PhotoBatchPause time.Duration
	PollInterval    time.Duration
	CacheTTL        time.Duration

	// Guest ids the prefetch binary warms the photo cache for.
	PrefetchGuests []string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ":9100"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisDB:         atoi("REDIS_DB", 0),
		RedisPass:       env("REDIS_PASSWORD", ""),
		BetchaBase:      env("BETCHA_BASE_URL", "https://betcha-booking-api-master.onrender.com"),
		BetchaKey:       env("BETCHA_API_KEY", ""),
		BetchaRPS:       atoi("BETCHA_RPS", 5),
		PhotoWorkers:    atoi("PHOTO_WORKERS", 3),
		PhotoBatchPause: time.Duration(atoi("PHOTO_BATCH_PAUSE_MS", 100)) * time.Millisecond,
		PollInterval:    time.Duration(atoi("POLL_INTERVAL_SECONDS", 5)) * time.Second,
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		PrefetchGuests:  splitIDs(env("PREFETCH_GUEST_IDS", "")),
	}
	if c.BetchaKey == "" {
		log.Warn().Msg("BETCHA_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
