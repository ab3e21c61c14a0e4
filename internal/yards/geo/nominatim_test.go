package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/itsloashh/yards-app/internal/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestHTTPClient(t *testing.T, server *httptest.Server) *http.Client {
	t.Helper()

	parsedURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}

	proxyClient := server.Client()
	baseTransport := proxyClient.Transport
	t.Cleanup(func() {
		if transport, ok := baseTransport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	})

	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			clone := req.Clone(req.Context())
			clone.URL.Scheme = parsedURL.Scheme
			clone.URL.Host = parsedURL.Host
			clone.Host = parsedURL.Host
			clone.RequestURI = ""
			return proxyClient.Do(clone)
		}),
	}
}

func unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

type memoryPlaceCache struct {
	mu     sync.Mutex
	places map[string]Place
}

func (m *memoryPlaceCache) Lookup(_ context.Context, c models.Coordinate) (Place, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.places[placeMember(c)]
	return p, ok, nil
}

func (m *memoryPlaceCache) Store(_ context.Context, c models.Coordinate, p Place) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.places == nil {
		m.places = make(map[string]Place)
	}
	m.places[placeMember(c)] = p
	return nil
}

func TestNominatimClientReverse(t *testing.T) {
	tests := []struct {
		name        string
		handler     func(t *testing.T, w http.ResponseWriter, r *http.Request)
		want        Place
		wantErr     bool
		errContains string
	}{
		{
			name: "road and city",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/reverse" {
					t.Fatalf("unexpected path %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("lat") != "42.3149" || q.Get("lon") != "-83.0364" {
					t.Fatalf("unexpected coords %v", q)
				}
				if q.Get("format") != "json" || q.Get("addressdetails") != "1" {
					t.Fatalf("unexpected query %v", q)
				}
				if got := r.Header.Get("Accept-Language"); got != "en" {
					t.Fatalf("Accept-Language = %q", got)
				}
				if r.Header.Get("User-Agent") == "" {
					t.Fatal("missing User-Agent")
				}
				_, _ = w.Write([]byte(`{"display_name":"Ouellette Ave, Windsor, Ontario, Canada","address":{"road":"Ouellette Ave","city":"Windsor","state":"Ontario"}}`))
			},
			want: Place{Short: "Ouellette Ave, Windsor", Full: "Ouellette Ave, Windsor, Ontario, Canada", City: "Windsor", State: "Ontario"},
		},
		{
			name: "pedestrian and town",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"display_name":"x","address":{"pedestrian":"Main Walk","town":"Tecumseh"}}`))
			},
			want: Place{Short: "Main Walk, Tecumseh", Full: "x", City: "Tecumseh"},
		},
		{
			name: "city only",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"display_name":"Windsor, Ontario","address":{"village":"Windsor","state":"Ontario"}}`))
			},
			want: Place{Short: "Windsor", Full: "Windsor, Ontario", City: "Windsor", State: "Ontario"},
		},
		{
			name: "display name fallback",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"display_name":"Lake St. Clair, Ontario, Canada","address":{}}`))
			},
			want: Place{Short: "Lake St. Clair, Ontario", Full: "Lake St. Clair, Ontario, Canada"},
		},
		{
			name: "nothing usable",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"address":{}}`))
			},
			wantErr:     true,
			errContains: "no usable place name",
		},
		{
			name: "service error body",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
			},
			wantErr:     true,
			errContains: "Unable to geocode",
		},
		{
			name: "http error",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte("slow down"))
			},
			wantErr:     true,
			errContains: "slow down",
		},
		{
			name: "malformed",
			handler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{`))
			},
			wantErr:     true,
			errContains: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.handler(t, w, r)
			}))
			defer server.Close()

			client := NewNominatimClient(newTestHTTPClient(t, server), "", "", unlimited(), nil)
			got, err := client.Reverse(context.Background(), 42.3149, -83.0364)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("error %q does not contain %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Reverse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNominatimClientUsesCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"display_name":"d","address":{"city":"Windsor"}}`))
	}))
	defer server.Close()

	cache := &memoryPlaceCache{}
	client := NewNominatimClient(nil, server.URL, "test-agent", unlimited(), cache)

	for i := 0; i < 3; i++ {
		name, err := client.PlaceName(context.Background(), models.Coordinate{Lat: 1.5, Lng: 2.5})
		if err != nil {
			t.Fatalf("PlaceName: %v", err)
		}
		if name != "Windsor" {
			t.Fatalf("PlaceName = %q", name)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestNominatimClientRespectsContext(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(1<<62), 1)
	limiter.Allow()

	client := NewNominatimClient(nil, "http://127.0.0.1:1", "", limiter, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Reverse(ctx, 1, 2)
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if !errors.Is(err, context.Canceled) && !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNominatimSharedLookupSurvivesCallerCancel(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write([]byte(`{"display_name":"d","address":{"road":"Ouellette Ave","city":"Windsor"}}`))
	}))
	defer server.Close()

	client := NewNominatimClient(nil, server.URL, "test-agent", unlimited(), nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Reverse(firstCtx, 42.3149, -83.0364)
		firstErr <- err
	}()
	<-started

	type result struct {
		place Place
		err   error
	}
	second := make(chan result, 1)
	go func() {
		p, err := client.Reverse(context.Background(), 42.3149, -83.0364)
		second <- result{p, err}
	}()
	// let the second caller join the in-flight lookup
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("first caller error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared lookup")
	}

	close(release)
	select {
	case res := <-second:
		if res.err != nil {
			t.Fatalf("second caller failed: %v", res.err)
		}
		if res.place.Short != "Ouellette Ave, Windsor" {
			t.Fatalf("Short = %q", res.place.Short)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}
