// Package lighting provides the light nodes that cast shadows.
package lighting

import (
	"github.com/Faultbox/midgard-shadows/internal/engine/scene"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// Light is the part shared by every light type. A light shines along its
// node's -Z axis.
type Light struct {
	*scene.Node

	Color     [3]float32 // RGB color (0-1 range)
	Intensity float32
}

func newLight(name string) Light {
	return Light{
		Node:      scene.NewNode(name),
		Color:     [3]float32{1, 1, 1},
		Intensity: 1,
	}
}

// Direction returns the world-space direction the light shines along.
func (l *Light) Direction() math.Vec3 {
	return l.WorldDirection()
}

// SetDirection orients the light so it shines along dir, expressed in the
// parent's space. A zero dir is ignored.
func (l *Light) SetDirection(dir math.Vec3) {
	if dir.IsZero() {
		return
	}
	l.LookAt(l.Position().Add(dir), l.Up())
}

// DirectionalLight is a light infinitely far away, such as the sun.
type DirectionalLight struct {
	Light
}

// NewDirectionalLight creates a directional light shining straight down.
func NewDirectionalLight() *DirectionalLight {
	l := &DirectionalLight{Light: newLight("DirectionalLight")}
	l.SetDirection(math.Vec3{Y: -1})
	return l
}

// SetSun points the light away from the sun at the given angles in degrees.
func (l *DirectionalLight) SetSun(longitude, latitude float32) {
	l.SetDirection(SunDirection(longitude, latitude).Negate())
}

// SpotLight emits a cone of light from its position.
type SpotLight struct {
	Light

	Angle    float32 // Cone half-angle in radians
	Penumbra float32 // Soft edge fraction of the cone (0-1)
	Distance float32 // Range, 0 = unlimited
}

// NewSpotLight creates a spot light with the given cone half-angle in radians.
func NewSpotLight(angle float32) *SpotLight {
	l := &SpotLight{
		Light: newLight("SpotLight"),
		Angle: angle,
	}
	l.SetDirection(math.Vec3{Y: -1})
	return l
}
