package shadow

import (
	"fmt"

	"github.com/Faultbox/midgard-shadows/internal/engine/camera"
	"github.com/Faultbox/midgard-shadows/internal/engine/lighting"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// DirectionalShadow renders a directional light's shadow with one
// orthographic camera.
//
// The frustum is a fixed square of side CameraSize centered on the world
// origin, seen from Distance units back along the light direction. It does
// not follow the scene or the view; use DirectionalLightCSM for that.
type DirectionalShadow struct {
	shadowBase

	light  *lighting.DirectionalLight
	camera *camera.OrthographicCamera

	CameraSize float32
	Distance   float32
}

// NewDirectionalShadow creates the shadow for light. Targets are allocated by
// Initialize.
func NewDirectionalShadow(light *lighting.DirectionalLight, factory rendertarget.Factory, opts Options) (*DirectionalShadow, error) {
	if light == nil {
		return nil, fmt.Errorf("%w: nil light", ErrInvalidArgument)
	}
	base, err := newShadowBase("directional", factory, opts)
	if err != nil {
		return nil, err
	}
	s := &DirectionalShadow{
		shadowBase: base,
		light:      light,
		CameraSize: DefaultCameraSize,
		Distance:   DefaultDistance,
	}
	half := s.CameraSize / 2
	s.camera = camera.NewOrthographicCamera(-half, half, half, -half, opts.Near, opts.Far)
	s.camera.Name = "DirectionalShadowCamera"
	return s, nil
}

// Initialize allocates the depth target. It is a no-op once it exists.
func (s *DirectionalShadow) Initialize() error {
	return s.allocate(1)
}

// Light returns the owning light.
func (s *DirectionalShadow) Light() *lighting.DirectionalLight {
	return s.light
}

// Camera returns the shadow camera.
func (s *DirectionalShadow) Camera() *camera.OrthographicCamera {
	return s.camera
}

// Cameras returns the single shadow camera.
func (s *DirectionalShadow) Cameras() []camera.Camera {
	return []camera.Camera{s.camera}
}

// UpdateShadowCamera places the camera at -direction * Distance looking at the
// origin and resizes the frustum to CameraSize.
func (s *DirectionalShadow) UpdateShadowCamera() {
	dir := s.light.Direction()

	s.camera.SetPosition(dir.Scale(-s.Distance))
	s.camera.LookAt(math.Vec3Zero, math.Vec3UnitY)

	half := s.CameraSize / 2
	s.camera.SetBounds(-half, half, half, -half, s.opts.Near, s.opts.Far)
	s.camera.UpdateWorldMatrix(false, false)

	s.cameraUpdated()
}

// Matrix returns the shadow matrix of the camera.
func (s *DirectionalShadow) Matrix() math.Mat4 {
	return ShadowMatrix(s.camera)
}
