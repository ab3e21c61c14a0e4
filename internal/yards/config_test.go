package yards

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsloashh/yards-app/internal/yards/location"
)

func TestLoadYardsConfigDefaults(t *testing.T) {
	t.Setenv("YARDS_JWT_SECRET", "secret")

	cfg, err := LoadYardsConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.GeoTimeout)
	assert.Equal(t, 5*time.Minute, cfg.GeoMaxAge)
	assert.Equal(t, location.FallbackCoord.Lat, cfg.FallbackLat)
	assert.Equal(t, "Windsor, ON", cfg.FallbackLabel)
	assert.Equal(t, 1, cfg.NominatimRPS)
	assert.True(t, cfg.PreserveCreated)
	assert.Equal(t, "yards-app", cfg.JWTIssuer)

	lc := cfg.LocationConfig()
	assert.True(t, lc.Options.HighAccuracy)
	assert.Equal(t, location.FallbackCoord, lc.Fallback)
}

func TestLoadYardsConfigOverrides(t *testing.T) {
	t.Setenv("YARDS_JWT_SECRET", "secret")
	t.Setenv("YARDS_GEO_TIMEOUT_SECONDS", "3")
	t.Setenv("YARDS_FALLBACK_LAT", "49.2827")
	t.Setenv("YARDS_FALLBACK_LNG", "-123.1207")
	t.Setenv("YARDS_FALLBACK_LABEL", "Vancouver, BC")
	t.Setenv("YARDS_PRESERVE_CREATED", "false")
	t.Setenv("YARDS_SESSION_TTL_MINUTES", "15")

	cfg, err := LoadYardsConfig()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.GeoTimeout)
	assert.Equal(t, "Vancouver, BC", cfg.FallbackLabel)
	assert.False(t, cfg.PreserveCreated)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 49.2827, cfg.LocationConfig().Fallback.Lat)
}

func TestLoadYardsConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{}},
		{name: "bad int", env: map[string]string{"YARDS_JWT_SECRET": "s", "YARDS_GEO_TIMEOUT_SECONDS": "ten"}},
		{name: "bad bool", env: map[string]string{"YARDS_JWT_SECRET": "s", "YARDS_PRESERVE_CREATED": "maybe"}},
		{name: "lat out of range", env: map[string]string{"YARDS_JWT_SECRET": "s", "YARDS_FALLBACK_LAT": "91"}},
		{name: "zero rps", env: map[string]string{"YARDS_JWT_SECRET": "s", "NOMINATIM_RPS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("YARDS_JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadYardsConfig()
			assert.Error(t, err)
		})
	}
}
