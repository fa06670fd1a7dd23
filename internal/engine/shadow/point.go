package shadow

import (
	"fmt"

	"github.com/Faultbox/midgard-shadows/internal/engine/camera"
	"github.com/Faultbox/midgard-shadows/internal/engine/lighting"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// CubeFace identifies one face of a point light's shadow cube.
type CubeFace int

// Faces in OpenGL cube map order.
const (
	FacePositiveX CubeFace = iota
	FaceNegativeX
	FacePositiveY
	FaceNegativeY
	FacePositiveZ
	FaceNegativeZ
)

// cubeFaces holds each face's view direction and up vector. The ±Y faces use
// a Z up vector since Y would be parallel to the view direction.
var cubeFaces = [6]struct {
	dir, up math.Vec3
}{
	FacePositiveX: {math.Vec3{X: 1}, math.Vec3{Y: -1}},
	FaceNegativeX: {math.Vec3{X: -1}, math.Vec3{Y: -1}},
	FacePositiveY: {math.Vec3{Y: 1}, math.Vec3{Z: 1}},
	FaceNegativeY: {math.Vec3{Y: -1}, math.Vec3{Z: -1}},
	FacePositiveZ: {math.Vec3{Z: 1}, math.Vec3{Y: -1}},
	FaceNegativeZ: {math.Vec3{Z: -1}, math.Vec3{Y: -1}},
}

// PointShadow renders a point light's shadow into six 90 degree perspective
// views, one per cube face.
type PointShadow struct {
	shadowBase

	light   *lighting.PointLight
	cameras [6]*camera.PerspectiveCamera
}

// NewPointShadow creates the shadow for light.
func NewPointShadow(light *lighting.PointLight, factory rendertarget.Factory, opts Options) (*PointShadow, error) {
	if light == nil {
		return nil, fmt.Errorf("%w: nil light", ErrInvalidArgument)
	}
	base, err := newShadowBase("point", factory, opts)
	if err != nil {
		return nil, err
	}
	s := &PointShadow{shadowBase: base, light: light}
	for i := range s.cameras {
		s.cameras[i] = camera.NewPerspectiveCamera(90, 1, opts.Near, opts.Far)
		s.cameras[i].Name = "PointShadowCamera"
	}
	return s, nil
}

// Initialize allocates one depth target per face. It is a no-op once they exist.
func (s *PointShadow) Initialize() error {
	return s.allocate(len(s.cameras))
}

// Light returns the owning light.
func (s *PointShadow) Light() *lighting.PointLight {
	return s.light
}

// FaceCamera returns the camera of one cube face.
func (s *PointShadow) FaceCamera(face CubeFace) *camera.PerspectiveCamera {
	return s.cameras[face]
}

// Cameras returns the six face cameras in cube map order.
func (s *PointShadow) Cameras() []camera.Camera {
	out := make([]camera.Camera, len(s.cameras))
	for i, c := range s.cameras {
		out[i] = c
	}
	return out
}

// UpdateShadowCamera moves every face camera to the light's world position.
func (s *PointShadow) UpdateShadowCamera() {
	pos := s.light.WorldPosition()

	for i, c := range s.cameras {
		face := cubeFaces[i]
		c.SetPosition(pos)
		c.LookAt(pos.Add(face.dir), face.up)
		c.FOV = 90
		c.Aspect = 1
		c.SetClipPlanes(s.opts.Near, s.opts.Far)
		c.UpdateWorldMatrix(false, false)
	}

	s.cameraUpdated()
}
