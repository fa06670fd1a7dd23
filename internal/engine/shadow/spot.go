package shadow

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-shadows/internal/engine/camera"
	"github.com/Faultbox/midgard-shadows/internal/engine/lighting"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// SpotShadow renders a spot light's shadow with one perspective camera that
// covers the light cone.
type SpotShadow struct {
	shadowBase

	light  *lighting.SpotLight
	camera *camera.PerspectiveCamera
}

// NewSpotShadow creates the shadow for light.
func NewSpotShadow(light *lighting.SpotLight, factory rendertarget.Factory, opts Options) (*SpotShadow, error) {
	if light == nil {
		return nil, fmt.Errorf("%w: nil light", ErrInvalidArgument)
	}
	base, err := newShadowBase("spot", factory, opts)
	if err != nil {
		return nil, err
	}
	s := &SpotShadow{
		shadowBase: base,
		light:      light,
		camera:     camera.NewPerspectiveCamera(coneFOV(light.Angle), 1, opts.Near, opts.Far),
	}
	s.camera.Name = "SpotShadowCamera"
	return s, nil
}

// coneFOV converts a cone half-angle in radians to a field of view in degrees.
func coneFOV(angle float32) float32 {
	return 2 * angle * 180 / math32.Pi
}

// Initialize allocates the depth target. It is a no-op once it exists.
func (s *SpotShadow) Initialize() error {
	return s.allocate(1)
}

// Light returns the owning light.
func (s *SpotShadow) Light() *lighting.SpotLight {
	return s.light
}

// Camera returns the shadow camera.
func (s *SpotShadow) Camera() *camera.PerspectiveCamera {
	return s.camera
}

// Cameras returns the single shadow camera.
func (s *SpotShadow) Cameras() []camera.Camera {
	return []camera.Camera{s.camera}
}

// UpdateShadowCamera moves the camera to the light, aims it along the light
// direction and widens it to twice the cone angle.
func (s *SpotShadow) UpdateShadowCamera() {
	pos := s.light.WorldPosition()
	dir := s.light.Direction()

	s.camera.SetPosition(pos)
	s.camera.LookAt(pos.Add(dir), math.Vec3UnitY)

	s.camera.FOV = coneFOV(s.light.Angle)
	s.camera.Aspect = 1
	s.camera.SetClipPlanes(s.opts.Near, s.opts.Far)
	s.camera.UpdateWorldMatrix(false, false)

	s.cameraUpdated()
}

// Matrix returns the shadow matrix of the camera.
func (s *SpotShadow) Matrix() math.Mat4 {
	return ShadowMatrix(s.camera)
}
