// Package location runs the locate-then-name cycle for a session.
package location

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards/geo"
)

type State string

const (
	StateIdle     State = "idle"
	StateLocating State = "locating"
	StateResolved State = "resolved"
)

const (
	reasonUnsupported = "Geolocation not supported. Using default."
	reasonDenied      = "Location denied. Using default."
	reasonTimeout     = "Location request timed out. Using default."
	reasonUnavailable = "Location unavailable. Using default."
)

var (
	// FallbackCoord is used whenever the device cannot produce a fix.
	FallbackCoord = models.Coordinate{Lat: 42.3149, Lng: -83.0364}
	FallbackLabel = "Windsor, ON"
)

// Request tells the client how to query the browser while locating.
type Request struct {
	EnableHighAccuracy bool  `json:"enable_high_accuracy"`
	TimeoutMS          int64 `json:"timeout_ms"`
	MaximumAgeMS       int64 `json:"maximum_age_ms"`
}

// Status is one step of a resolve cycle.
type Status struct {
	State      State              `json:"state"`
	Generation uint64             `json:"generation"`
	Coord      *models.Coordinate `json:"coord,omitempty"`
	Degraded   bool               `json:"degraded"`
	Reason     string             `json:"reason,omitempty"`
	Label      string             `json:"label"`
	Named      bool               `json:"named"`
	Request    *Request           `json:"request,omitempty"`
}

// Sink receives status updates in order, one call at a time. Publish may read
// Current but must not call Resolve or Close.
type Sink interface {
	Publish(Status)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Status)

func (f SinkFunc) Publish(s Status) { f(s) }

// Namer turns a coordinate into a display name.
type Namer interface {
	PlaceName(ctx context.Context, c models.Coordinate) (string, error)
}

// Logger is the logging surface used by the provider.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Config tunes a Provider.
type Config struct {
	Options       Options
	Fallback      models.Coordinate
	FallbackLabel string
	NameTimeout   time.Duration
}

// DefaultConfig returns the stock device options and fallback.
func DefaultConfig() Config {
	return Config{
		Options:       DefaultOptions,
		Fallback:      FallbackCoord,
		FallbackLabel: FallbackLabel,
		NameTimeout:   8 * time.Second,
	}
}

// Provider owns the locating → resolved → named cycle. Each Resolve starts a
// new generation; results of older generations are dropped.
type Provider struct {
	device Device
	namer  Namer
	sink   Sink
	logger Logger
	cfg    Config

	// pubMu orders sink calls; mu guards the fields below it.
	pubMu   sync.Mutex
	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current Status
	wg      sync.WaitGroup
}

// NewProvider constructs a Provider. namer and logger may be nil.
func NewProvider(device Device, namer Namer, sink Sink, logger Logger, cfg Config) *Provider {
	if cfg.Options.Timeout <= 0 {
		cfg.Options.Timeout = DefaultOptions.Timeout
	}
	if cfg.FallbackLabel == "" {
		cfg.FallbackLabel = FallbackLabel
	}
	if cfg.NameTimeout <= 0 {
		cfg.NameTimeout = 8 * time.Second
	}
	if sink == nil {
		sink = SinkFunc(func(Status) {})
	}
	return &Provider{
		device:  device,
		namer:   namer,
		sink:    sink,
		logger:  logger,
		cfg:     cfg,
		current: Status{State: StateIdle},
	}
}

// Current returns the latest published status.
func (p *Provider) Current() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Resolve cancels any in-flight cycle, publishes locating and starts a new
// cycle in the background. ctx bounds the whole cycle, naming included. The
// locating status keeps the last known coordinate so readers never lose it
// while a retry is pending.
func (p *Provider) Resolve(ctx context.Context) uint64 {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	cycleCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	prev := p.current
	opts := p.cfg.Options
	locating := Status{
		State:      StateLocating,
		Generation: gen,
		Degraded:   prev.Degraded,
		Reason:     prev.Reason,
		Label:      prev.Label,
		Named:      prev.Named,
		Request: &Request{
			EnableHighAccuracy: opts.HighAccuracy,
			TimeoutMS:          opts.Timeout.Milliseconds(),
			MaximumAgeMS:       opts.MaximumAge.Milliseconds(),
		},
	}
	if prev.Coord != nil {
		c := *prev.Coord
		locating.Coord = &c
	}
	p.current = locating
	p.wg.Add(1)
	p.mu.Unlock()

	p.publish(locating)
	go p.run(cycleCtx, gen)
	return gen
}

// Wait blocks until every started cycle has finished.
func (p *Provider) Wait() {
	p.wg.Wait()
}

// Close cancels the in-flight cycle.
func (p *Provider) Close() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Provider) run(ctx context.Context, gen uint64) {
	defer p.wg.Done()

	coord, err := p.device.CurrentPosition(ctx, p.cfg.Options)
	if ctx.Err() != nil {
		return
	}

	resolved := Status{State: StateResolved, Generation: gen}
	if err != nil {
		fb := p.cfg.Fallback
		resolved.Coord = &fb
		resolved.Degraded = true
		resolved.Reason = reasonFor(err)
		resolved.Label = p.cfg.FallbackLabel
		p.infof("location: generation %d degraded: %v", gen, err)
	} else {
		c := coord
		resolved.Coord = &c
		resolved.Label = geo.CoordinateLabel(coord)
	}

	if !p.apply(resolved) {
		return
	}
	p.upgradeName(ctx, resolved)
}

func (p *Provider) upgradeName(ctx context.Context, resolved Status) {
	if p.namer == nil {
		return
	}
	nameCtx, cancel := context.WithTimeout(ctx, p.cfg.NameTimeout)
	defer cancel()

	name, err := p.namer.PlaceName(nameCtx, *resolved.Coord)
	if err != nil {
		p.infof("location: naming generation %d skipped: %v", resolved.Generation, err)
		return
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "undefined") {
		return
	}

	named := resolved
	named.Label = name
	named.Named = true
	p.apply(named)
}

// apply makes s current and publishes it if its generation is still the
// latest.
func (p *Provider) apply(s Status) bool {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	p.mu.Lock()
	if s.Generation != p.gen {
		p.mu.Unlock()
		return false
	}
	p.current = s
	p.mu.Unlock()

	p.sink.Publish(s)
	return true
}

// publish hands an already current status to the sink unless a newer
// generation has started meanwhile.
func (p *Provider) publish(s Status) {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	p.mu.Lock()
	stale := s.Generation != p.gen
	p.mu.Unlock()
	if stale {
		return
	}
	p.sink.Publish(s)
}

func (p *Provider) infof(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Infof(format, args...)
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrUnsupported):
		return reasonUnsupported
	case errors.Is(err, ErrPermissionDenied):
		return reasonDenied
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	default:
		return reasonUnavailable
	}
}
