package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/itsloashh/yards-app/internal/models"
)

const (
	nominatimBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent   = "yards-app/1.0"
	reverseCallTimeout = 7 * time.Second
)

// ErrNoPlaceName is returned when the service answers without a usable name.
var ErrNoPlaceName = errors.New("reverse geocode: no usable place name")

// Place is a reverse-geocoded address.
type Place struct {
	Short string `json:"short"`
	Full  string `json:"full"`
	City  string `json:"city"`
	State string `json:"state"`
}

// PlaceCache stores resolved places near a coordinate.
type PlaceCache interface {
	Lookup(ctx context.Context, c models.Coordinate) (Place, bool, error)
	Store(ctx context.Context, c models.Coordinate, p Place) error
}

// NominatimClient resolves coordinates through the public OpenStreetMap
// Nominatim endpoint. Calls are limited to the service's usage policy and
// concurrent lookups of the same point share one request.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	cache      PlaceCache
	group      singleflight.Group
}

// NewNominatimClient constructs a client. Empty baseURL and userAgent fall
// back to the public endpoint and a default agent; a nil limiter allows one
// request per second.
func NewNominatimClient(httpClient *http.Client, baseURL, userAgent string, limiter *rate.Limiter, cache PlaceCache) *NominatimClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if baseURL == "" {
		baseURL = nominatimBaseURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	return &NominatimClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limiter:    limiter,
		cache:      cache,
	}
}

// PlaceName returns the short display name for c.
func (c *NominatimClient) PlaceName(ctx context.Context, coord models.Coordinate) (string, error) {
	p, err := c.Reverse(ctx, coord.Lat, coord.Lng)
	if err != nil {
		return "", err
	}
	return p.Short, nil
}

// Reverse resolves lat/lng into a Place.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lng float64) (Place, error) {
	coord := models.Coordinate{Lat: lat, Lng: lng}
	if c.cache != nil {
		if p, ok, err := c.cache.Lookup(ctx, coord); err == nil && ok {
			return p, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return Place{}, fmt.Errorf("reverse geocode: %w", err)
	}

	// the shared fetch outlives any single caller; fetch sets its own timeout
	key := fmt.Sprintf("%.5f,%.5f", lat, lng)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), lat, lng)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Place{}, fmt.Errorf("reverse geocode: %w", ctx.Err())
	}
	if res.Err != nil {
		return Place{}, res.Err
	}
	p := res.Val.(Place)

	if c.cache != nil {
		_ = c.cache.Store(ctx, coord, p)
	}
	return p, nil
}

func (c *NominatimClient) fetch(ctx context.Context, lat, lng float64) (Place, error) {
	ctx, cancel := context.WithTimeout(ctx, reverseCallTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return Place{}, fmt.Errorf("reverse geocode: rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	endpoint := fmt.Sprintf("%s/reverse?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Place{}, fmt.Errorf("reverse geocode: build request: %w", err)
	}
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("reverse geocode: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Place{}, fmt.Errorf("reverse geocode: http %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var payload struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
		Address     struct {
			Road          string `json:"road"`
			Pedestrian    string `json:"pedestrian"`
			Neighbourhood string `json:"neighbourhood"`
			City          string `json:"city"`
			Town          string `json:"town"`
			Village       string `json:"village"`
			Hamlet        string `json:"hamlet"`
			State         string `json:"state"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Place{}, fmt.Errorf("reverse geocode: decode: %w", err)
	}
	if payload.Error != "" {
		return Place{}, fmt.Errorf("reverse geocode: %s: %w", payload.Error, ErrNoPlaceName)
	}

	a := payload.Address
	road := firstNonEmpty(a.Road, a.Pedestrian, a.Neighbourhood)
	city := firstNonEmpty(a.City, a.Town, a.Village, a.Hamlet)

	p := Place{Full: payload.DisplayName, City: city, State: a.State}
	switch {
	case road != "":
		p.Short = strings.TrimSuffix(road+", "+city, ", ")
	case city != "":
		p.Short = city
	default:
		parts := strings.Split(payload.DisplayName, ",")
		if len(parts) > 2 {
			parts = parts[:2]
		}
		p.Short = strings.TrimSpace(strings.Join(parts, ","))
	}
	if p.Short == "" {
		return Place{}, ErrNoPlaceName
	}
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
