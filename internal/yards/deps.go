package yards

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/itsloashh/yards-app/internal/yards/metrics"
)

// Logger provides minimal logging required by the yards module.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// YardsDeps groups external dependencies needed by the yards module. RDB is
// optional; without it reverse-geocode results are not cached.
type YardsDeps struct {
	RDB        *redis.Client
	Logger     Logger
	Config     YardsConfig
	HTTPClient *http.Client
	Metrics    *metrics.Manager
	module     *moduleState
}

// Validate ensures required dependencies are provided.
func (d *YardsDeps) Validate() error {
	if d.Logger == nil {
		return errors.New("yards deps: Logger is required")
	}
	if d.Config.JWTSecret == "" {
		return errors.New("yards deps: Config.JWTSecret is required")
	}
	if d.HTTPClient == nil {
		d.HTTPClient = http.DefaultClient
	}
	return nil
}
