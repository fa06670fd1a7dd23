package shadow

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// BoundsOf returns the smallest box containing points. An empty slice gives
// an empty box at the origin.
func BoundsOf(points []math.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	b := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// Center returns the center point of the AABB.
func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent along each axis.
func (b AABB) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Radius returns the distance from center to corner (half-diagonal).
func (b AABB) Radius() float32 {
	return b.Size().Scale(0.5).Length()
}

// Transform returns the bounds of the box's eight corners transformed by m.
func (b AABB) Transform(m math.Mat4) AABB {
	var corners [8]math.Vec3
	for i := range corners {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		corners[i] = m.TransformVec3(c)
	}
	return BoundsOf(corners[:])
}

// lightSpaceBounds transforms world-space points into the light's view space
// and bounds them. The depth range is padded by padFraction of its extent on
// both sides so floating-point jitter never clips the slice.
func lightSpaceBounds(lightView math.Mat4, points []math.Vec3, padFraction float32) AABB {
	local := make([]math.Vec3, len(points))
	for i, p := range points {
		local[i] = lightView.TransformVec3(p)
	}
	b := BoundsOf(local)

	pad := (b.Max.Z - b.Min.Z) * padFraction
	b.Min.Z -= pad
	b.Max.Z += pad
	return b
}

// stableRadius returns the radius of the sphere around center enclosing
// points, rounded up to 1/16 so small float changes do not resize the
// cascade.
func stableRadius(center math.Vec3, points []math.Vec3) float32 {
	var r float32
	for _, p := range points {
		r = math32.Max(r, p.Distance(center))
	}
	return math32.Ceil(r*16) / 16
}

// snapToTexels moves a world-space point down to a texel corner of a
// grid aligned with the light rotation. Shadow cameras centered on snapped
// points move in whole texels, which stops shadow edges from shimmering.
func snapToTexels(lightRotation math.Quat, p math.Vec3, texel float32) math.Vec3 {
	if texel <= 0 {
		return p
	}
	local := lightRotation.Conjugate().RotateVec3(p)
	local.X = math32.Floor(local.X/texel) * texel
	local.Y = math32.Floor(local.Y/texel) * texel
	return lightRotation.RotateVec3(local)
}
