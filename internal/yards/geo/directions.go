package geo

import (
	"strconv"

	"github.com/itsloashh/yards-app/internal/models"
)

const directionsBaseURL = "https://www.google.com/maps/dir"

// DirectionsURL builds the external directions hand-off link. A nil origin
// leaves the origin segment empty so the directions service asks for it.
func DirectionsURL(origin *models.Coordinate, dest models.Coordinate) string {
	orig := ""
	if origin != nil {
		orig = pair(*origin)
	}
	return directionsBaseURL + "/" + orig + "/" + pair(dest)
}

func pair(c models.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}
