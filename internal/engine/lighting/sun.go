package lighting

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// SunDirection converts longitude/latitude angles in degrees to a unit vector
// pointing towards the sun. Longitude is rotation around the Y axis (0-360),
// latitude is elevation from the horizon (0-90).
func SunDirection(longitude, latitude float32) math.Vec3 {
	lonRad := longitude * math32.Pi / 180
	latRad := latitude * math32.Pi / 180

	// Longitude is around Y axis, latitude is elevation from horizon
	cosLat := math32.Cos(latRad)
	return math.Vec3{
		X: cosLat * math32.Sin(lonRad),
		Y: math32.Sin(latRad),
		Z: cosLat * math32.Cos(lonRad),
	}
}
