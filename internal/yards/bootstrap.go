package yards

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards/auth"
	"github.com/itsloashh/yards-app/internal/yards/geo"
	yardshttp "github.com/itsloashh/yards-app/internal/yards/http"
	"github.com/itsloashh/yards-app/internal/yards/location"
	"github.com/itsloashh/yards-app/internal/yards/metrics"
	"github.com/itsloashh/yards-app/internal/yards/repo"
	"github.com/itsloashh/yards-app/internal/yards/session"
	"github.com/itsloashh/yards-app/internal/yards/timeutil"
	"github.com/itsloashh/yards-app/internal/yards/ws"
	"github.com/itsloashh/yards-app/utils"
)

type moduleState struct {
	cfg      YardsConfig
	logger   Logger
	metrics  *metrics.Manager
	geocoder *geo.NominatimClient
	accounts *repo.AccountsRepo
	auth     *auth.Service
	tokens   *utils.Manager
	hub      *ws.Hub
	sessions *session.Registry
	server   *yardshttp.Server
	cancel   context.CancelFunc
}

// countingNamer records the outcome of every naming lookup.
type countingNamer struct {
	next    location.Namer
	metrics *metrics.Manager
}

func (n countingNamer) PlaceName(ctx context.Context, c models.Coordinate) (string, error) {
	name, err := n.next.PlaceName(ctx, c)
	if err != nil {
		n.metrics.ObserveGeocode("error")
		return "", err
	}
	n.metrics.ObserveGeocode("ok")
	return name, nil
}

func ensureModule(deps *YardsDeps) (*moduleState, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.module != nil {
		return deps.module, nil
	}
	cfg := deps.Config

	tokens, err := utils.NewManager(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("yards: token manager: %w", err)
	}

	var cache geo.PlaceCache
	if deps.RDB != nil {
		cache = geo.NewRedisPlaceCache(deps.RDB, float64(cfg.PlaceCacheRadius), cfg.PlaceCacheTTL)
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.NominatimRPS), 1)
	geocoder := geo.NewNominatimClient(deps.HTTPClient, cfg.NominatimURL, cfg.NominatimUserAgent, limiter, cache)

	hub := ws.NewHub(deps.Logger, deps.Metrics)
	sessions := session.NewRegistry(session.Options{
		Location:        cfg.LocationConfig(),
		PreserveCreated: cfg.PreserveCreated,
		Namer:           countingNamer{next: geocoder, metrics: deps.Metrics},
		Notifier:        hub,
		Observer:        deps.Metrics,
		Logger:          deps.Logger,
		Now:             timeutil.Clock(timeutil.LoadLocation(cfg.TimeZone)),
		OnClose:         hub.Drop,
	}, cfg.SessionTTL)

	accounts := repo.NewAccountsRepo()
	authSvc := auth.NewService(accounts, cfg.BcryptCost)

	ctx, cancel := context.WithCancel(context.Background())
	server := yardshttp.NewServer(ctx, deps.Logger, sessions, authSvc, tokens, cfg.TokenTTL, geocoder, hub, deps.Metrics)

	deps.module = &moduleState{
		cfg:      cfg,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		geocoder: geocoder,
		accounts: accounts,
		auth:     authSvc,
		tokens:   tokens,
		hub:      hub,
		sessions: sessions,
		server:   server,
		cancel:   cancel,
	}
	return deps.module, nil
}

// RegisterYardsRoutes wires HTTP and WebSocket routes into the provided mux.
func RegisterYardsRoutes(mux *http.ServeMux, deps *YardsDeps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	module.server.RegisterRoutes(mux)
	return nil
}

// StartYardsWorkers launches the session janitor. When ctx ends every
// session and socket is closed.
func StartYardsWorkers(ctx context.Context, deps *YardsDeps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	go module.startSessionJanitor(ctx)
	return nil
}

func (m *moduleState) startSessionJanitor(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				m.logger.Infof("yards: expired %d idle sessions", n)
			}
		}
	}
}

func (m *moduleState) sweep() int {
	n := m.sessions.Sweep()
	m.metrics.SetActiveSessions(m.sessions.Len())
	return n
}

func (m *moduleState) shutdown() {
	m.cancel()
	m.sessions.Close()
	m.hub.Close()
	m.metrics.SetActiveSessions(0)
}
