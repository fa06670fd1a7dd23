package lighting

// MaxPointLights is the maximum number of point lights supported in shaders.
const MaxPointLights = 32

// PointLight emits light in every direction from its position.
type PointLight struct {
	Light

	Distance float32 // Light radius/falloff distance, 0 = unlimited
	Decay    float32
}

// NewPointLight creates a point light with the given range.
func NewPointLight(distance float32) *PointLight {
	return &PointLight{
		Light:    newLight("PointLight"),
		Distance: distance,
		Decay:    2,
	}
}

// PointLightData is the GPU upload layout of a point light.
type PointLightData struct {
	Position  [3]float32 // World position
	Color     [3]float32 // RGB color (0-1 range)
	Range     float32
	Intensity float32
}

// PackPointLights converts up to MaxPointLights lights for upload. Lights
// parented under other nodes need an up-to-date scene for correct positions.
func PackPointLights(lights []*PointLight) []PointLightData {
	n := min(len(lights), MaxPointLights)
	out := make([]PointLightData, 0, n)
	for _, l := range lights[:n] {
		out = append(out, PointLightData{
			Position:  l.WorldPosition().Array(),
			Color:     l.Color,
			Range:     l.Distance,
			Intensity: l.Intensity,
		})
	}
	return out
}
