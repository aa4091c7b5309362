package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type AppConfig struct {
	Port string

	// Upstream marine-data provider.
	StormglassAPIKey  string
	StormglassBaseURL string
	WeatherSource     string
	SwellSource       string
	TideDatum         string
	ExtraParams       []string

	// Geocoding: Google when GeocoderAPIKey is set, Nominatim otherwise.
	GeocoderAPIKey string
	NominatimURL   string

	DefaultTimezone string

	HTTPTimeout         time.Duration
	UpstreamCallTimeout time.Duration
	UpstreamConcurrency int
	UpstreamRPS         float64
	UpstreamBurst       int

	CacheTTL           time.Duration
	CacheMaxEntries    int // 0 = unlimited
	CachePurgeInterval time.Duration
	RedisURL           string

	// Cache warming for frequently requested places.
	WarmLocations []string
	WarmDays      int
	WarmInterval  time.Duration // 0 disables warming

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Infof("No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.StormglassAPIKey = os.Getenv("STORMGLASS_API_KEY")
	cfg.StormglassBaseURL = getenvDefault("STORMGLASS_BASE_URL", "https://api.stormglass.io/v2")
	cfg.WeatherSource = getenvDefault("WEATHER_SOURCE", "noaa")
	cfg.SwellSource = getenvDefault("SWELL_SOURCE", "sg")
	cfg.TideDatum = getenvDefault("TIDE_DATUM", "MLLW")
	cfg.ExtraParams = splitList(os.Getenv("WEATHER_EXTRA_PARAMS"), ",")

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.NominatimURL = getenvDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search")

	cfg.DefaultTimezone = getenvDefault("DEFAULT_TIMEZONE", "UTC")
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE: %w", err)
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.UpstreamCallTimeout, err = getenvDuration("UPSTREAM_CALL_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	cfg.UpstreamConcurrency = getenvInt("UPSTREAM_CONCURRENCY", 4)
	cfg.UpstreamRPS = getenvFloat("UPSTREAM_RPS", 5)
	cfg.UpstreamBurst = getenvInt("UPSTREAM_BURST", 5)

	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "30m"); err != nil {
		return nil, err
	}
	cfg.CacheMaxEntries = getenvInt("CACHE_MAX_ENTRIES", 512)
	if cfg.CachePurgeInterval, err = getenvDuration("CACHE_PURGE_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.WarmLocations = splitList(os.Getenv("WARM_LOCATIONS"), ";")
	cfg.WarmDays = getenvInt("WARM_DAYS", 3)
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "text")

	return cfg, nil
}

// ConfigureLogging applies the log level and format to the standard logrus logger.
func (c *AppConfig) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("invalid LOG_LEVEL %q; using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
