// Package picking provides ray casting against planes and boxes.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

// At returns the point at parameter t.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// Segment unprojects normalized device coordinates into the segment from the
// near plane to the far plane. The direction is not normalized: t = 0 is on
// the near plane and t = 1 on the far plane.
func Segment(ndcX, ndcY float32, invViewProj math.Mat4) Ray {
	near := invViewProj.TransformVec3(math.Vec3{X: ndcX, Y: ndcY, Z: -1})
	far := invViewProj.TransformVec3(math.Vec3{X: ndcX, Y: ndcY, Z: 1})
	return Ray{Origin: near, Direction: far.Sub(near)}
}

// ScreenToRay converts pixel coordinates to a world-space ray with a unit
// direction. Pixel rows grow downwards.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH // Flip Y

	r := Segment(ndcX, ndcY, invViewProj)
	r.Direction = r.Direction.Normalize()
	return r
}

// Transform returns the ray in the space mapped to by the affine m. The
// direction is not renormalized, so hit parameters stay comparable.
func (r Ray) Transform(m math.Mat4) Ray {
	return Ray{Origin: m.TransformVec3(r.Origin), Direction: m.TransformDirection(r.Direction)}
}

// IntersectPlaneY intersects a ray with a horizontal plane at the given Y level.
// Returns the intersection point and whether it lies in front of the origin.
func (r Ray) IntersectPlaneY(planeY float32) (math.Vec3, bool) {
	if math32.Abs(r.Direction.Y) < 1e-6 {
		return math.Vec3{}, false // Ray parallel to plane
	}

	t := (planeY - r.Origin.Y) / r.Direction.Y
	if t < 0 {
		return math.Vec3{}, false // Intersection behind ray origin
	}
	return r.At(t), true
}

// IntersectBox tests the ray against the box [lo, hi] for t in [tMin, tMax]
// and returns the entry parameter. A ray starting inside enters at tMin.
func (r Ray) IntersectBox(lo, hi math.Vec3, tMin, tMax float32) (float32, bool) {
	o := r.Origin.Array()
	d := r.Direction.Array()
	l := lo.Array()
	h := hi.Array()

	for axis := 0; axis < 3; axis++ {
		if math32.Abs(d[axis]) < 1e-9 {
			if o[axis] < l[axis] || o[axis] > h[axis] {
				return 0, false
			}
			continue
		}
		t1 := (l[axis] - o[axis]) / d[axis]
		t2 := (h[axis] - o[axis]) / d[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math32.Max(tMin, t1)
		tMax = math32.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}
