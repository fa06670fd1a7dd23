// Package camera provides camera implementations for 3D rendering.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-shadows/internal/engine/scene"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// Camera is a scene node with a projection.
//
// Projection parameters are plain fields; call UpdateProjectionMatrix after
// editing them. The view matrix is the inverse of the node's world matrix.
type Camera interface {
	Transform() *scene.Node
	ViewMatrix() math.Mat4
	ProjectionMatrix() math.Mat4
	ViewProjectionMatrix() math.Mat4
	UpdateProjectionMatrix()
	ClipPlanes() (near, far float32)
	SetClipPlanes(near, far float32)
}

// PerspectiveCamera is a pinhole camera.
type PerspectiveCamera struct {
	*scene.Node

	FOV    float32 // Vertical field of view in degrees
	Aspect float32
	Near   float32
	Far    float32

	projection math.Mat4
}

// NewPerspectiveCamera creates a perspective camera. fov is in degrees.
func NewPerspectiveCamera(fov, aspect, near, far float32) *PerspectiveCamera {
	c := &PerspectiveCamera{
		Node:   scene.NewNode("PerspectiveCamera"),
		FOV:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
	}
	c.UpdateProjectionMatrix()
	return c
}

// Transform returns the camera's scene node.
func (c *PerspectiveCamera) Transform() *scene.Node {
	return c.Node
}

// UpdateProjectionMatrix rebuilds the projection from FOV, Aspect, Near and Far.
func (c *PerspectiveCamera) UpdateProjectionMatrix() {
	c.projection = math.Perspective(c.FOV*math32.Pi/180, c.Aspect, c.Near, c.Far)
}

// ProjectionMatrix returns the projection from the last UpdateProjectionMatrix.
func (c *PerspectiveCamera) ProjectionMatrix() math.Mat4 {
	return c.projection
}

// ViewMatrix returns the inverse of the camera's world matrix.
func (c *PerspectiveCamera) ViewMatrix() math.Mat4 {
	return c.WorldMatrix().Inverse()
}

// ViewProjectionMatrix returns projection * view.
func (c *PerspectiveCamera) ViewProjectionMatrix() math.Mat4 {
	return c.projection.Mul(c.ViewMatrix())
}

// ClipPlanes returns the near and far distances.
func (c *PerspectiveCamera) ClipPlanes() (near, far float32) {
	return c.Near, c.Far
}

// SetClipPlanes sets near and far and rebuilds the projection.
func (c *PerspectiveCamera) SetClipPlanes(near, far float32) {
	c.Near, c.Far = near, far
	c.UpdateProjectionMatrix()
}

// OrthographicCamera is a parallel-projection camera. The frustum bounds are
// in view space.
type OrthographicCamera struct {
	*scene.Node

	Left, Right float32
	Top, Bottom float32
	Near, Far   float32

	projection math.Mat4
}

// NewOrthographicCamera creates an orthographic camera.
func NewOrthographicCamera(left, right, top, bottom, near, far float32) *OrthographicCamera {
	c := &OrthographicCamera{
		Node:   scene.NewNode("OrthographicCamera"),
		Left:   left,
		Right:  right,
		Top:    top,
		Bottom: bottom,
		Near:   near,
		Far:    far,
	}
	c.UpdateProjectionMatrix()
	return c
}

// Transform returns the camera's scene node.
func (c *OrthographicCamera) Transform() *scene.Node {
	return c.Node
}

// UpdateProjectionMatrix rebuilds the projection from the frustum bounds.
func (c *OrthographicCamera) UpdateProjectionMatrix() {
	c.projection = math.Ortho(c.Left, c.Right, c.Bottom, c.Top, c.Near, c.Far)
}

// ProjectionMatrix returns the projection from the last UpdateProjectionMatrix.
func (c *OrthographicCamera) ProjectionMatrix() math.Mat4 {
	return c.projection
}

// ViewMatrix returns the inverse of the camera's world matrix.
func (c *OrthographicCamera) ViewMatrix() math.Mat4 {
	return c.WorldMatrix().Inverse()
}

// ViewProjectionMatrix returns projection * view.
func (c *OrthographicCamera) ViewProjectionMatrix() math.Mat4 {
	return c.projection.Mul(c.ViewMatrix())
}

// ClipPlanes returns the near and far distances.
func (c *OrthographicCamera) ClipPlanes() (near, far float32) {
	return c.Near, c.Far
}

// SetClipPlanes sets near and far and rebuilds the projection.
func (c *OrthographicCamera) SetClipPlanes(near, far float32) {
	c.Near, c.Far = near, far
	c.UpdateProjectionMatrix()
}

// SetBounds sets the frustum box and rebuilds the projection.
func (c *OrthographicCamera) SetBounds(left, right, top, bottom, near, far float32) {
	c.Left, c.Right, c.Top, c.Bottom = left, right, top, bottom
	c.Near, c.Far = near, far
	c.UpdateProjectionMatrix()
}

var (
	_ Camera = (*PerspectiveCamera)(nil)
	_ Camera = (*OrthographicCamera)(nil)
)
