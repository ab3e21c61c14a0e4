// Package filter turns stored listings into the ordered, distance-annotated
// set shown to the user.
package filter

import (
	"cmp"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards/geo"
)

// PendingText is shown in place of a distance while no location is known.
const PendingText = "…"

// Criteria is the active filter configuration. Radius is in miles.
type Criteria struct {
	Radius   float64
	Unit     geo.Unit
	Category string
	Query    string
}

// View is a listing annotated with its distance from the current location.
type View struct {
	models.Listing
	Distance     float64 `json:"distance"`
	DistanceText string  `json:"distance_text"`
}

// AttachDistances annotates every listing, keeping input order.
func AttachDistances(listings []models.Listing, location *models.Coordinate, unit geo.Unit) []View {
	out := make([]View, len(listings))
	for i, l := range listings {
		v := View{Listing: l, DistanceText: PendingText}
		if location != nil {
			v.Distance = geo.Between(*location, l.Coords, unit)
			v.DistanceText = geo.FormatDistance(v.Distance, unit)
		}
		out[i] = v
	}
	return out
}

// Apply runs the radius, category and query filters and sorts the result
// by ascending distance. Equal distances keep their input order.
func Apply(listings []models.Listing, location *models.Coordinate, c Criteria) []View {
	views := AttachDistances(listings, location, c.Unit)
	limit := geo.ConvertRadius(c.Radius, c.Unit)
	query := strings.ToLower(c.Query)

	out := views[:0]
	for _, v := range views {
		if v.Distance > limit {
			continue
		}
		if c.Category != "" && !v.HasTag(c.Category) {
			continue
		}
		if query != "" && !matchesQuery(v.Listing, query) {
			continue
		}
		out = append(out, v)
	}

	slices.SortStableFunc(out, func(a, b View) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return out
}

func matchesQuery(l models.Listing, lowered string) bool {
	if strings.Contains(strings.ToLower(l.Title), lowered) {
		return true
	}
	if strings.Contains(strings.ToLower(l.Description), lowered) {
		return true
	}
	for _, t := range l.Tags {
		if strings.Contains(strings.ToLower(t), lowered) {
			return true
		}
	}
	return false
}
