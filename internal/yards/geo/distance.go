package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/itsloashh/yards-app/internal/models"
)

// Unit selects the distance unit used for computation and display.
type Unit string

const (
	Miles      Unit = "mi"
	Kilometers Unit = "km"
)

const (
	earthRadiusMi = 3959.0
	earthRadiusKm = 6371.0
	kmPerMile     = 1.60934
	metersPerMile = 1609.34
)

// RadiusOptions are the selectable search radii, denominated in miles.
var RadiusOptions = []int{2, 5, 10, 25, 50}

// ParseUnit accepts "mi" or "km" (case-insensitive); empty means miles.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mi":
		return Miles, nil
	case "km":
		return Kilometers, nil
	default:
		return "", fmt.Errorf("unit %q: %w", s, models.ErrInvalidUnit)
	}
}

// ValidRadius reports whether r is one of RadiusOptions.
func ValidRadius(r int) bool {
	for _, opt := range RadiusOptions {
		if opt == r {
			return true
		}
	}
	return false
}

func (u Unit) earthRadius() float64 {
	if u == Kilometers {
		return earthRadiusKm
	}
	return earthRadiusMi
}

// Label returns the display suffix; anything other than km renders as mi.
func (u Unit) Label() string {
	if u == Kilometers {
		return "km"
	}
	return "mi"
}

// Distance returns the haversine great-circle distance in unit.
func Distance(originLat, originLng, targetLat, targetLng float64, unit Unit) float64 {
	dLat := (targetLat - originLat) * math.Pi / 180
	dLng := (targetLng - originLng) * math.Pi / 180

	lat1Rad := originLat * math.Pi / 180
	lat2Rad := targetLat * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return unit.earthRadius() * c
}

// Between is Distance over two coordinates.
func Between(from, to models.Coordinate, unit Unit) float64 {
	return Distance(from.Lat, from.Lng, to.Lat, to.Lng, unit)
}

// FormatDistance renders d with one decimal, or "< 0.1" below that.
func FormatDistance(d float64, unit Unit) string {
	if d < 0.1 {
		return "< 0.1 " + unit.Label()
	}
	return fmt.Sprintf("%.1f %s", d, unit.Label())
}

// RadiusLabel renders a radius selector entry such as "10 mi".
func RadiusLabel(radius int, unit Unit) string {
	return fmt.Sprintf("%d %s", radius, unit.Label())
}

// ConvertRadius converts a miles-denominated radius into unit.
func ConvertRadius(miles float64, unit Unit) float64 {
	if unit == Kilometers {
		return miles * kmPerMile
	}
	return miles
}

// RadiusMeters converts a miles-denominated radius for map overlays.
func RadiusMeters(miles float64) float64 {
	return miles * metersPerMile
}

// CoordinateLabel is the placeholder shown before a place name is known.
func CoordinateLabel(c models.Coordinate) string {
	return fmt.Sprintf("%.2f, %.2f", c.Lat, c.Lng)
}
