// Package mapview drives an interchangeable map renderer from filtered
// listings.
package mapview

import (
	"errors"
	"fmt"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards/filter"
	"github.com/itsloashh/yards-app/internal/yards/geo"
)

// ErrMapNotReady is returned by providers used before Initialize or after Destroy.
var ErrMapNotReady = errors.New("mapview: map not initialized")

// DefaultCenter is used when no user location is known.
var DefaultCenter = models.Coordinate{Lat: 42.3149, Lng: -83.0364}

type Icon string

const (
	IconUser Icon = "user"
	IconSale Icon = "sale"
)

type Popup struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Distance string `json:"distance"`
}

type Marker struct {
	ListingID   int64             `json:"listing_id,omitempty"`
	Coord       models.Coordinate `json:"coord"`
	Icon        Icon              `json:"icon"`
	Interactive bool              `json:"interactive"`
	Popup       *Popup            `json:"popup,omitempty"`
}

type Circle struct {
	Center       models.Coordinate `json:"center"`
	RadiusMeters float64           `json:"radius_meters"`
	Color        string            `json:"color"`
	Weight       int               `json:"weight"`
	Opacity      float64           `json:"opacity"`
	FillOpacity  float64           `json:"fill_opacity"`
	DashArray    string            `json:"dash_array"`
}

// Provider is the capability a map renderer exposes.
type Provider interface {
	Initialize(center models.Coordinate, zoom int) error
	AddMarker(m Marker) error
	AddCircle(c Circle) error
	SetZoom(zoom int) error
	Destroy() error
}

// ZoomForRadius picks the initial zoom for a miles radius.
func ZoomForRadius(radius float64) int {
	switch {
	case radius <= 2:
		return 15
	case radius <= 5:
		return 14
	case radius <= 10:
		return 13
	case radius <= 25:
		return 12
	default:
		return 11
	}
}

// Render draws the user marker, the radius circle and one marker per
// listing. On failure the provider is destroyed.
func Render(p Provider, user *models.Coordinate, radius float64, listings []filter.View) (err error) {
	defer func() {
		if err != nil {
			_ = p.Destroy()
		}
	}()

	center := DefaultCenter
	if user != nil {
		center = *user
	}
	if err := p.Initialize(center, ZoomForRadius(radius)); err != nil {
		return fmt.Errorf("initialize map: %w", err)
	}

	if user != nil {
		if err := p.AddMarker(Marker{Coord: *user, Icon: IconUser}); err != nil {
			return fmt.Errorf("add user marker: %w", err)
		}
		if err := p.AddCircle(Circle{
			Center:       *user,
			RadiusMeters: geo.RadiusMeters(radius),
			Color:        "#059669",
			Weight:       2,
			Opacity:      0.3,
			FillOpacity:  0.04,
			DashArray:    "8, 6",
		}); err != nil {
			return fmt.Errorf("add radius circle: %w", err)
		}
	}

	for _, v := range listings {
		m := Marker{
			ListingID:   v.ID,
			Coord:       v.Coords,
			Icon:        IconSale,
			Interactive: true,
			Popup:       &Popup{Title: v.Title, Date: v.Date, Distance: v.DistanceText},
		}
		if err := p.AddMarker(m); err != nil {
			return fmt.Errorf("add marker %d: %w", v.ID, err)
		}
	}
	return nil
}
