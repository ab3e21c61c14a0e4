package yards

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/itsloashh/yards-app/internal/yards/location"
)

const (
	defaultGeoTimeout       = 10 * time.Second
	defaultGeoMaxAge        = 5 * time.Minute
	defaultNameTimeout      = 8 * time.Second
	defaultNominatimRPS     = 1
	defaultPlaceCacheRadius = 150
	defaultPlaceCacheTTL    = 24 * time.Hour
	defaultSessionTTL       = 60 * time.Minute
	defaultJanitorInterval  = time.Minute
	defaultTokenTTL         = 24 * time.Hour
	defaultJWTIssuer        = "yards-app"
)

// YardsConfig holds runtime configuration for the yards module.
type YardsConfig struct {
	GeoTimeout         time.Duration
	GeoMaxAge          time.Duration
	NameTimeout        time.Duration
	FallbackLat        float64
	FallbackLng        float64
	FallbackLabel      string
	NominatimURL       string
	NominatimUserAgent string
	NominatimRPS       int
	PlaceCacheRadius   int
	PlaceCacheTTL      time.Duration
	SessionTTL         time.Duration
	JanitorInterval    time.Duration
	TokenTTL           time.Duration
	JWTSecret          string
	JWTIssuer          string
	PreserveCreated    bool
	BcryptCost         int
	TimeZone           string
}

// LoadYardsConfig reads configuration from environment variables and applies defaults.
func LoadYardsConfig() (YardsConfig, error) {
	cfg := YardsConfig{
		GeoTimeout:       defaultGeoTimeout,
		GeoMaxAge:        defaultGeoMaxAge,
		NameTimeout:      defaultNameTimeout,
		FallbackLat:      location.FallbackCoord.Lat,
		FallbackLng:      location.FallbackCoord.Lng,
		FallbackLabel:    location.FallbackLabel,
		NominatimRPS:     defaultNominatimRPS,
		PlaceCacheRadius: defaultPlaceCacheRadius,
		PlaceCacheTTL:    defaultPlaceCacheTTL,
		SessionTTL:       defaultSessionTTL,
		JanitorInterval:  defaultJanitorInterval,
		TokenTTL:         defaultTokenTTL,
		JWTIssuer:        defaultJWTIssuer,
		PreserveCreated:  true,
	}

	if v, err := readIntEnv("YARDS_GEO_TIMEOUT_SECONDS"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_GEO_TIMEOUT_SECONDS: %w", err)
	} else if v != nil {
		cfg.GeoTimeout = time.Duration(*v) * time.Second
	}

	if v, err := readIntEnv("YARDS_GEO_MAX_AGE_SECONDS"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_GEO_MAX_AGE_SECONDS: %w", err)
	} else if v != nil {
		cfg.GeoMaxAge = time.Duration(*v) * time.Second
	}

	if v, err := readIntEnv("YARDS_NAME_TIMEOUT_SECONDS"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_NAME_TIMEOUT_SECONDS: %w", err)
	} else if v != nil {
		cfg.NameTimeout = time.Duration(*v) * time.Second
	}

	if v, err := readFloatEnv("YARDS_FALLBACK_LAT"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_FALLBACK_LAT: %w", err)
	} else if v != nil {
		cfg.FallbackLat = *v
	}

	if v, err := readFloatEnv("YARDS_FALLBACK_LNG"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_FALLBACK_LNG: %w", err)
	} else if v != nil {
		cfg.FallbackLng = *v
	}

	if v := strings.TrimSpace(os.Getenv("YARDS_FALLBACK_LABEL")); v != "" {
		cfg.FallbackLabel = v
	}

	cfg.NominatimURL = strings.TrimSpace(os.Getenv("NOMINATIM_URL"))
	cfg.NominatimUserAgent = strings.TrimSpace(os.Getenv("NOMINATIM_USER_AGENT"))

	if v, err := readIntEnv("NOMINATIM_RPS"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse NOMINATIM_RPS: %w", err)
	} else if v != nil {
		cfg.NominatimRPS = *v
	}

	if v, err := readIntEnv("YARDS_PLACE_CACHE_RADIUS_METERS"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_PLACE_CACHE_RADIUS_METERS: %w", err)
	} else if v != nil {
		cfg.PlaceCacheRadius = *v
	}

	if v, err := readIntEnv("YARDS_PLACE_CACHE_TTL_HOURS"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_PLACE_CACHE_TTL_HOURS: %w", err)
	} else if v != nil {
		cfg.PlaceCacheTTL = time.Duration(*v) * time.Hour
	}

	if v, err := readIntEnv("YARDS_SESSION_TTL_MINUTES"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_SESSION_TTL_MINUTES: %w", err)
	} else if v != nil {
		cfg.SessionTTL = time.Duration(*v) * time.Minute
	}

	if v, err := readIntEnv("YARDS_JANITOR_SECONDS"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_JANITOR_SECONDS: %w", err)
	} else if v != nil {
		cfg.JanitorInterval = time.Duration(*v) * time.Second
	}

	if v, err := readIntEnv("YARDS_TOKEN_TTL_HOURS"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_TOKEN_TTL_HOURS: %w", err)
	} else if v != nil {
		cfg.TokenTTL = time.Duration(*v) * time.Hour
	}

	if v, err := readBoolEnv("YARDS_PRESERVE_CREATED"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_PRESERVE_CREATED: %w", err)
	} else if v != nil {
		cfg.PreserveCreated = *v
	}

	if v, err := readIntEnv("YARDS_BCRYPT_COST"); err != nil {
		return YardsConfig{}, fmt.Errorf("parse YARDS_BCRYPT_COST: %w", err)
	} else if v != nil {
		cfg.BcryptCost = *v
	}

	cfg.TimeZone = strings.TrimSpace(os.Getenv("YARDS_TZ"))

	cfg.JWTSecret = os.Getenv("YARDS_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return YardsConfig{}, fmt.Errorf("YARDS_JWT_SECRET is required")
	}
	if v := strings.TrimSpace(os.Getenv("YARDS_JWT_ISSUER")); v != "" {
		cfg.JWTIssuer = v
	}

	if cfg.GeoTimeout <= 0 || cfg.NameTimeout <= 0 {
		return YardsConfig{}, fmt.Errorf("timeouts must be positive")
	}
	if cfg.GeoMaxAge < 0 {
		return YardsConfig{}, fmt.Errorf("YARDS_GEO_MAX_AGE_SECONDS must not be negative")
	}
	if cfg.FallbackLat < -90 || cfg.FallbackLat > 90 || cfg.FallbackLng < -180 || cfg.FallbackLng > 180 {
		return YardsConfig{}, fmt.Errorf("fallback coordinate out of range")
	}
	if cfg.NominatimRPS <= 0 {
		return YardsConfig{}, fmt.Errorf("NOMINATIM_RPS must be positive")
	}
	if cfg.SessionTTL <= 0 || cfg.JanitorInterval <= 0 || cfg.TokenTTL <= 0 {
		return YardsConfig{}, fmt.Errorf("session, janitor and token durations must be positive")
	}

	return cfg, nil
}

// LocationConfig converts the geolocation settings for the provider.
func (c YardsConfig) LocationConfig() location.Config {
	lc := location.DefaultConfig()
	lc.Options.Timeout = c.GeoTimeout
	lc.Options.MaximumAge = c.GeoMaxAge
	lc.Fallback.Lat = c.FallbackLat
	lc.Fallback.Lng = c.FallbackLng
	lc.FallbackLabel = c.FallbackLabel
	lc.NameTimeout = c.NameTimeout
	return lc
}

func readIntEnv(name string) (*int, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readFloatEnv(name string) (*float64, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readBoolEnv(name string) (*bool, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(val)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
