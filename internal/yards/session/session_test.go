package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards/filter"
	"github.com/itsloashh/yards-app/internal/yards/geo"
	"github.com/itsloashh/yards-app/internal/yards/location"
	"github.com/itsloashh/yards-app/internal/yards/mapview"
	"github.com/itsloashh/yards-app/internal/yards/repo"
	"github.com/itsloashh/yards-app/internal/yards/seed"
)

var detroit = models.Coordinate{Lat: 42.3314, Lng: -83.0458}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []location.Status
}

func (n *recordingNotifier) Notify(_ string, st location.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, st)
}

func (n *recordingNotifier) states() []location.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]location.State, 0, len(n.statuses))
	for _, st := range n.statuses {
		out = append(out, st.State)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func resolveAt(t *testing.T, s *Session, c models.Coordinate) {
	t.Helper()
	s.ReportFix(c)
	s.Resolve()
	s.Wait()
}

func TestStateApply(t *testing.T) {
	str := func(v string) *string { return &v }
	num := func(v int) *int { return &v }
	id := int64(3)

	tests := []struct {
		name    string
		patch   Patch
		want    func(State) bool
		wantErr bool
	}{
		{name: "radius", patch: Patch{Radius: num(25)}, want: func(s State) bool { return s.Radius == 25 }},
		{name: "bad radius", patch: Patch{Radius: num(7)}, wantErr: true},
		{name: "unit", patch: Patch{Unit: str("km")}, want: func(s State) bool { return s.Unit == geo.Kilometers }},
		{name: "bad unit", patch: Patch{Unit: str("ft")}, wantErr: true},
		{name: "bad screen", patch: Patch{Screen: str("settings")}, wantErr: true},
		{name: "detail keeps selection", patch: Patch{Modal: str("detail"), SelectedListing: &id}, want: func(s State) bool {
			return s.Modal == ModalDetail && s.SelectedListing == 3
		}},
		{name: "selection needs detail", patch: Patch{SelectedListing: &id}, want: func(s State) bool { return s.SelectedListing == 0 }},
		{name: "category trimmed", patch: Patch{Category: str(" Toys ")}, want: func(s State) bool { return s.Category == "Toys" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := DefaultState()
			got, err := base.Apply(tt.patch)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, base, got)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want(got), "state: %+v", got)
		})
	}
}

func TestSessionResolveSeedsListings(t *testing.T) {
	notifier := &recordingNotifier{}
	reg := NewRegistry(Options{Notifier: notifier}, time.Hour)
	s := reg.Create(context.Background())
	defer s.Close()

	assert.Nil(t, s.Location())
	assert.Empty(t, s.Browse())

	resolveAt(t, s, detroit)

	st := s.LocationStatus()
	assert.Equal(t, location.StateResolved, st.State)
	assert.False(t, st.Degraded)
	require.NotNil(t, s.Location())
	assert.Equal(t, detroit, *s.Location())
	assert.Len(t, s.Browse(), seed.Count)
	assert.Equal(t, []location.State{location.StateLocating, location.StateResolved}, notifier.states())
}

func TestSessionFallbackWhenUnsupported(t *testing.T) {
	reg := NewRegistry(Options{}, time.Hour)
	s := reg.Create(context.Background())
	defer s.Close()

	s.ReportError(location.ErrUnsupported)
	s.Resolve()
	s.Wait()

	st := s.LocationStatus()
	assert.True(t, st.Degraded)
	assert.Equal(t, "Geolocation not supported. Using default.", st.Reason)
	assert.Equal(t, location.FallbackCoord, *s.Location())
	assert.Len(t, s.Browse(), seed.Count)
}

func TestSessionRegenerationKeepsCreated(t *testing.T) {
	tests := []struct {
		name     string
		preserve bool
	}{
		{name: "preserve", preserve: true},
		{name: "replace all", preserve: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(Options{PreserveCreated: tt.preserve}, time.Hour)
			s := reg.Create(context.Background())
			defer s.Close()

			resolveAt(t, s, detroit)
			created, ok := s.CreateListing(repo.Draft{Title: "Garage", Description: "Tools"})
			require.True(t, ok)
			assert.Equal(t, detroit, created.Coords)

			resolveAt(t, s, location.FallbackCoord)

			_, err := s.Listing(created.ID)
			if tt.preserve {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, models.ErrListingNotFound)
			}
		})
	}
}

func TestSessionSavedAndSignOut(t *testing.T) {
	reg := NewRegistry(Options{}, time.Hour)
	s := reg.Create(context.Background())
	defer s.Close()
	resolveAt(t, s, detroit)

	require.Len(t, s.Saved(), 1)
	first := s.Browse()[0]
	_, err := s.ToggleSaved(first.ID)
	require.NoError(t, err)
	saved := s.Saved()
	require.Len(t, saved, 2)
	assert.Equal(t, first.ID, saved[0].ID)
	assert.Equal(t, "0.6 mi", saved[0].DistanceText)

	profile := string(ScreenProfile)
	st, err := s.UpdateState(Patch{Screen: &profile})
	require.NoError(t, err)
	assert.Equal(t, ScreenBrowse, st.Screen)
	assert.Equal(t, ModalAuth, st.Modal)

	s.SignIn("acct-1")
	assert.Equal(t, ModalNone, s.State().Modal)
	st, err = s.UpdateState(Patch{Screen: &profile})
	require.NoError(t, err)
	assert.Equal(t, ScreenProfile, st.Screen)

	s.SignOut()
	assert.Equal(t, "", s.AccountID())
	assert.Equal(t, ScreenBrowse, s.State().Screen)
}

func TestSessionRenderMap(t *testing.T) {
	reg := NewRegistry(Options{}, time.Hour)
	s := reg.Create(context.Background())
	defer s.Close()
	resolveAt(t, s, detroit)

	scene := mapview.NewLeafletScene()
	require.NoError(t, s.RenderMap(scene))
	got, err := scene.Scene()
	require.NoError(t, err)
	assert.Equal(t, detroit, got.Center)
	assert.Equal(t, mapview.ZoomForRadius(10), got.Zoom)
	assert.Len(t, got.Markers, seed.Count+1)
	assert.Len(t, got.Circles, 1)
}

func TestRegistrySweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 10, 19, 9, 0, 0, 0, time.UTC)}
	reg := NewRegistry(Options{Now: clock.Now}, 30*time.Minute)

	idle := reg.Create(context.Background())
	active := reg.Create(context.Background())
	assert.Equal(t, 2, reg.Len())

	clock.Advance(20 * time.Minute)
	_, err := reg.Get(active.ID)
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())

	_, err = reg.Get(idle.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	_, err = reg.Get(active.ID)
	assert.NoError(t, err)

	assert.True(t, reg.Remove(active.ID))
	assert.False(t, reg.Remove(active.ID))
	assert.Equal(t, 0, reg.Len())
}

func TestSessionRetryKeepsFiltering(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 10, 19, 9, 0, 0, 0, time.UTC)}
	reg := NewRegistry(Options{Now: clock.Now}, time.Hour)
	s := reg.Create(context.Background())
	defer s.Close()

	resolveAt(t, s, detroit)
	far := models.Coordinate{Lat: 10, Lng: 10}
	created, ok := s.CreateListing(repo.Draft{Title: "Far away", Description: "Boxes", Coords: &far})
	require.True(t, ok)

	// the cached fix is now too old, so the retry waits on the client
	clock.Advance(6 * time.Minute)
	s.Resolve()
	require.Eventually(t, s.device.Pending, time.Second, time.Millisecond)

	assert.Equal(t, location.StateLocating, s.LocationStatus().State)
	require.NotNil(t, s.Location())
	assert.Equal(t, detroit, *s.Location())

	views := s.Browse()
	assert.Len(t, views, seed.Count)
	for _, v := range views {
		assert.NotEqual(t, created.ID, v.ID)
		assert.NotEqual(t, filter.PendingText, v.DistanceText)
	}

	s.ReportFix(detroit)
	s.Wait()
	assert.Equal(t, location.StateResolved, s.LocationStatus().State)
}

func TestRegistryClosedSessionsRunHook(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 10, 19, 9, 0, 0, 0, time.UTC)}
	var (
		mu     sync.Mutex
		closed []string
	)
	reg := NewRegistry(Options{
		Now: clock.Now,
		OnClose: func(id string) {
			mu.Lock()
			closed = append(closed, id)
			mu.Unlock()
		},
	}, 30*time.Minute)

	idle := reg.Create(context.Background())
	removed := reg.Create(context.Background())

	require.True(t, reg.Remove(removed.ID))
	clock.Advance(31 * time.Minute)
	require.Equal(t, 1, reg.Sweep())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{removed.ID, idle.ID}, closed)
}
