package world

import (
	"github.com/Faultbox/midgard-shadows/internal/engine/picking"
	"github.com/Faultbox/midgard-shadows/internal/engine/shadow"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// unitCube is the model-space box every caster draws.
var unitCube = shadow.AABB{
	Min: math.Vec3{X: -0.5, Y: -0.5, Z: -0.5},
	Max: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5},
}

// Caster is a unit cube placed by a model matrix.
type Caster struct {
	Name   string
	Model  math.Mat4
	Bounds shadow.AABB // World-space bounds
}

func newCaster(name string, model math.Mat4) Caster {
	return Caster{Name: name, Model: model, Bounds: unitCube.Transform(model)}
}

// Models returns the model matrices of casters in order.
func Models(casters []Caster) []math.Mat4 {
	out := make([]math.Mat4, len(casters))
	for i, c := range casters {
		out[i] = c.Model
	}
	return out
}

// SceneBounds returns the bounds of every caster.
func SceneBounds(casters []Caster) shadow.AABB {
	pts := make([]math.Vec3, 0, 2*len(casters))
	for _, c := range casters {
		pts = append(pts, c.Bounds.Min, c.Bounds.Max)
	}
	return shadow.BoundsOf(pts)
}

// DepthImage renders the casters seen through viewProj into a width*height
// depth buffer by casting one ray per texel. Depth is in [0, 1] like a depth
// texture, 1 where nothing was hit. Row 0 is the bottom of the image, so a
// shadow matrix UV of (u, v) reads texel (u*width, v*height).
func DepthImage(viewProj math.Mat4, width, height int, casters []Caster) []float32 {
	inv := viewProj.Inverse()

	locals := make([]math.Mat4, len(casters))
	for i, c := range casters {
		locals[i] = c.Model.Inverse()
	}

	out := make([]float32, width*height)
	for y := 0; y < height; y++ {
		ny := (float32(y)+0.5)/float32(height)*2 - 1
		for x := 0; x < width; x++ {
			nx := (float32(x)+0.5)/float32(width)*2 - 1
			ray := picking.Segment(nx, ny, inv)

			nearest := float32(1)
			hit := false
			for _, l := range locals {
				if t, ok := ray.Transform(l).IntersectBox(unitCube.Min, unitCube.Max, 0, nearest); ok {
					nearest, hit = t, true
				}
			}

			depth := float32(1)
			if hit {
				p := ray.At(nearest)
				clip := viewProj.MulVec4(math.Vec4{p.X, p.Y, p.Z, 1})
				depth = math.Clamp(clip[2]/clip[3]*0.5+0.5, 0, 1)
			}
			out[y*width+x] = depth
		}
	}
	return out
}
