// Package session holds the per-client application state: view state,
// the session's listings, its location cycle and the signed-in account.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards/filter"
	"github.com/itsloashh/yards-app/internal/yards/location"
	"github.com/itsloashh/yards-app/internal/yards/mapview"
	"github.com/itsloashh/yards-app/internal/yards/repo"
	"github.com/itsloashh/yards-app/internal/yards/seed"
)

// Notifier is told about every location status a session publishes.
type Notifier interface {
	Notify(sessionID string, status location.Status)
}

// Observer records session events. metrics.Metrics satisfies it.
type Observer interface {
	ObserveResolution(outcome string)
}

// Options configures sessions created by a Registry.
type Options struct {
	Location        location.Config
	PreserveCreated bool
	Namer           location.Namer
	Notifier        Notifier
	Observer        Observer
	Logger          location.Logger
	Now             func() time.Time
	// OnClose runs after a session is closed, e.g. to drop its socket.
	OnClose         func(sessionID string)
}

type Session struct {
	ID        string
	CreatedAt time.Time

	listings        *repo.ListingsRepo
	device          *location.ReportedDevice
	provider        *location.Provider
	preserveCreated bool
	notifier        Notifier
	observer        Observer
	onClose         func(string)
	now             func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	accountID string
	lastSeen  time.Time
}

func newSession(ctx context.Context, id string, opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Location
	if cfg.Options == (location.Options{}) {
		cfg = location.DefaultConfig()
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:              id,
		CreatedAt:       now(),
		listings:        repo.NewListingsRepo(now),
		device:          location.NewReportedDevice(now),
		preserveCreated: opts.PreserveCreated,
		notifier:        opts.Notifier,
		observer:        opts.Observer,
		onClose:         opts.OnClose,
		now:             now,
		ctx:             sctx,
		cancel:          cancel,
		state:           DefaultState(),
		lastSeen:        now(),
	}
	s.provider = location.NewProvider(s.device, opts.Namer, s, opts.Logger, cfg)
	return s
}

// Publish implements location.Sink. Every fresh resolution (device fix or
// fallback) regenerates the seeded listings around it.
func (s *Session) Publish(st location.Status) {
	if st.State == location.StateResolved && st.Coord != nil && !st.Named {
		generated := seed.Generate(*st.Coord)
		if s.preserveCreated {
			s.listings.ReplaceSeeded(generated)
		} else {
			s.listings.ReplaceAll(generated)
		}
	}
	if s.observer != nil && st.State == location.StateResolved {
		s.observer.ObserveResolution(outcome(st))
	}
	if s.notifier != nil {
		s.notifier.Notify(s.ID, st)
	}
}

func outcome(st location.Status) string {
	switch {
	case st.Named:
		return "named"
	case st.Degraded:
		return "fallback"
	default:
		return "device"
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdateState merges p into the view state.
func (s *Session) UpdateState(p Patch) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.state.Apply(p)
	if err != nil {
		return s.state, err
	}
	if next.Screen == ScreenProfile && s.accountID == "" {
		next.Screen = s.state.Screen
		next.Modal = ModalAuth
	}
	s.state = next
	return next, nil
}

// Resolve starts a new location cycle and returns its generation.
func (s *Session) Resolve() uint64 {
	return s.provider.Resolve(s.ctx)
}

func (s *Session) LocationStatus() location.Status {
	return s.provider.Current()
}

// Location returns the last known coordinate, which survives a pending
// retry, or nil before the first resolution.
func (s *Session) Location() *models.Coordinate {
	st := s.provider.Current()
	if st.Coord == nil {
		return nil
	}
	c := *st.Coord
	return &c
}

func (s *Session) ReportFix(c models.Coordinate) {
	s.device.Report(c)
}

func (s *Session) ReportError(err error) {
	s.device.ReportError(err)
}

// Browse runs the listing pipeline with the current filters.
func (s *Session) Browse() []filter.View {
	return filter.Apply(s.listings.List(), s.Location(), s.State().Criteria())
}

// Saved returns saved listings with distances and no other filtering.
func (s *Session) Saved() []filter.View {
	return filter.AttachDistances(s.listings.Saved(), s.Location(), s.State().Unit)
}

func (s *Session) Listing(id int64) (filter.View, error) {
	l, err := s.listings.Get(id)
	if err != nil {
		return filter.View{}, err
	}
	views := filter.AttachDistances([]models.Listing{l}, s.Location(), s.State().Unit)
	return views[0], nil
}

func (s *Session) ToggleSaved(id int64) (models.Listing, error) {
	return s.listings.ToggleSaved(id)
}

// CreateListing stores d placed at the current location. On success the
// create modal is closed.
func (s *Session) CreateListing(d repo.Draft) (models.Listing, bool) {
	if d.Coords == nil {
		d.Coords = s.Location()
	}
	l, ok := s.listings.Create(d)
	if !ok {
		return l, false
	}
	s.mu.Lock()
	if s.state.Modal == ModalCreate {
		s.state.Modal = ModalNone
	}
	s.mu.Unlock()
	return l, true
}

func (s *Session) AccountID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountID
}

// SignIn binds the account and closes the auth modal.
func (s *Session) SignIn(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountID = accountID
	if s.state.Modal == ModalAuth {
		s.state.Modal = ModalNone
	}
}

// SignOut clears the account and leaves account-only screens.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountID = ""
	if s.state.Screen == ScreenProfile {
		s.state.Screen = ScreenBrowse
	}
	if s.state.Modal == ModalCreate || s.state.Modal == ModalEditProfile {
		s.state.Modal = ModalNone
	}
}

// RenderMap draws the browse results onto p.
func (s *Session) RenderMap(p mapview.Provider) error {
	return mapview.Render(p, s.Location(), float64(s.State().Radius), s.Browse())
}

// Close cancels the location cycle and runs the OnClose hook.
func (s *Session) Close() {
	s.cancel()
	s.provider.Close()
	if s.onClose != nil {
		s.onClose(s.ID)
	}
}

// Wait blocks until the in-flight location cycle has finished.
func (s *Session) Wait() {
	s.provider.Wait()
}
