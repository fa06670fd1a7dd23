// Package world builds the demo scene: a ground slab, a few pillars, a
// three-bone arm bound to a skeleton, the lights and the view camera. It holds
// no GL state, so the same scene drives both the windowed and the headless
// demo.
package world

import (
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/config"
	"github.com/Faultbox/midgard-shadows/internal/engine/camera"
	"github.com/Faultbox/midgard-shadows/internal/engine/lighting"
	"github.com/Faultbox/midgard-shadows/internal/engine/picking"
	"github.com/Faultbox/midgard-shadows/internal/engine/scene"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// Arm layout in the mesh frame.
const (
	armBase    = 2   // Height of the shoulder above the ground
	segmentLen = 2   // Distance between joints
	segmentW   = 0.4 // Segment thickness
)

// World is the demo scene graph.
type World struct {
	Root   *scene.Node
	Ground *scene.Node
	Mesh   *scene.Node // Parent of the arm bones

	Pillars  []*scene.Node
	Bones    []*scene.Bone
	Skeleton *scene.Skeleton

	Sun  *lighting.DirectionalLight
	Lamp *lighting.PointLight
	Spot *lighting.SpotLight

	View  *camera.PerspectiveCamera
	Orbit *camera.OrbitCamera

	// segments place one box per bone in the bind pose, in world space.
	segments []math.Mat4
	elapsed  float32
}

// New builds the scene and binds the skeleton in its rest pose.
func New(cfg *config.Config) (*World, error) {
	w := &World{
		Root:   scene.NewNode("Root"),
		Ground: scene.NewNode("Ground"),
		Mesh:   scene.NewNode("Arm"),
	}

	w.Ground.SetPosition(math.Vec3{Y: -0.25})
	w.Ground.SetScale(math.Vec3{X: 60, Y: 0.5, Z: 60})
	w.Root.Add(w.Ground, w.Mesh)

	for i, p := range []math.Vec3{{X: 4, Z: 4}, {X: -6, Z: 2}, {X: 1, Z: -8}} {
		pillar := scene.NewNode(fmt.Sprintf("Pillar%d", i))
		pillar.SetPosition(math.Vec3{X: p.X, Y: 1.5, Z: p.Z})
		pillar.SetScale(math.Vec3{X: 2, Y: 3, Z: 2})
		w.Root.Add(pillar)
		w.Pillars = append(w.Pillars, pillar)
	}

	if err := w.buildArm(); err != nil {
		return nil, err
	}

	w.Sun = lighting.NewDirectionalLight()
	w.Sun.SetSun(cfg.Sun.Longitude, cfg.Sun.Latitude)

	w.Lamp = lighting.NewPointLight(25)
	w.Lamp.SetPosition(math.Vec3{X: 3, Y: 4, Z: 0})

	w.Spot = lighting.NewSpotLight(math32.Pi / 6)
	w.Spot.Penumbra = 0.2
	w.Spot.SetPosition(math.Vec3{X: -4, Y: 8, Z: 4})
	w.Spot.SetDirection(math.Vec3{X: 4, Y: -8, Z: -4})

	w.Root.Add(w.Sun.Node, w.Lamp.Node, w.Spot.Node)

	aspect := float32(cfg.Window.Width) / float32(cfg.Window.Height)
	w.View = camera.NewPerspectiveCamera(60, aspect, 0.1, 1000)
	w.View.Name = "View"
	w.Orbit = camera.NewOrbitCamera()
	w.Orbit.FitToBounds(math.Vec3{X: -10, Z: -10}, math.Vec3{X: 10, Y: 8, Z: 10})

	w.Update()

	logger.Named("world").Info("scene built",
		zap.Int("pillars", len(w.Pillars)),
		zap.Int("bones", len(w.Bones)),
	)
	return w, nil
}

func (w *World) buildArm() error {
	names := []string{"Shoulder", "Elbow", "Wrist"}
	var parent *scene.Bone
	for i, name := range names {
		b := scene.NewBone(name)
		if i == 0 {
			b.SetPosition(math.Vec3{Y: armBase})
			w.Mesh.Add(b.Node)
		} else {
			b.SetPosition(math.Vec3{Y: segmentLen})
			parent.AddBone(b)
		}
		w.Bones = append(w.Bones, b)
		parent = b
	}

	w.Root.UpdateWorldMatrix(false, true)

	// Each segment hangs above its bone in the rest pose.
	for _, b := range w.Bones {
		pos := b.WorldPosition()
		w.segments = append(w.segments, math.Compose(
			math.Vec3{X: pos.X, Y: pos.Y + segmentLen/2, Z: pos.Z},
			math.QuatIdentity(),
			math.Vec3{X: segmentW, Y: segmentLen, Z: segmentW},
		))
	}

	skel, err := scene.NewSkeleton(w.Bones, nil)
	if err != nil {
		return fmt.Errorf("binding arm: %w", err)
	}
	w.Skeleton = skel
	return nil
}

// SetSun points the sun at the given angles in degrees.
func (w *World) SetSun(longitude, latitude float32) {
	w.Sun.SetSun(longitude, latitude)
}

// SetAspect updates the view camera after a resize.
func (w *World) SetAspect(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.View.Aspect = float32(width) / float32(height)
	w.View.UpdateProjectionMatrix()
}

// PickGround returns the point on the y = 0 plane under a window position.
func (w *World) PickGround(x, y, width, height int) (math.Vec3, bool) {
	if width <= 0 || height <= 0 {
		return math.Vec3{}, false
	}
	inv := w.View.ViewProjectionMatrix().Inverse()
	ray := picking.ScreenToRay(float32(x), float32(y), float32(width), float32(height), inv)
	return ray.IntersectPlaneY(0)
}

// Wrist swing limits around the bone's X axis.
var (
	wristDown = math.QuatFromAxisAngle(math.Vec3UnitX, -0.5)
	wristUp   = math.QuatFromAxisAngle(math.Vec3UnitX, 0.5)
)

// Animate advances the arm swing and the lamp orbit by dt seconds.
func (w *World) Animate(dt float32) {
	w.elapsed += dt
	t := w.elapsed

	w.Bones[0].SetRotationEuler(math.Euler{Z: 0.6 * math32.Sin(t)})
	w.Bones[1].SetRotationEuler(math.Euler{Z: 0.8 * math32.Sin(1.3*t)})
	w.Bones[2].SetRotation(wristDown.Slerp(wristUp, 0.5+0.5*math32.Sin(0.7*t)))

	w.Lamp.SetPosition(math.Vec3{X: 3 * math32.Cos(0.5*t), Y: 4, Z: 3 * math32.Sin(0.5*t)})
}

// Update refreshes every world matrix and the skin matrices. Call it once per
// frame after Animate and before any shadow update.
func (w *World) Update() {
	w.Orbit.Apply(w.View)
	w.View.UpdateWorldMatrix(false, false)

	w.Root.UpdateWorldMatrix(false, true)
	w.Skeleton.Update()
}

// Casters returns every shadow-casting box with its current model matrix.
// The world matrices must be current.
func (w *World) Casters() []Caster {
	out := make([]Caster, 0, 1+len(w.Pillars)+len(w.Bones))
	out = append(out, newCaster(w.Ground.Name, w.Ground.WorldMatrix()))
	for _, p := range w.Pillars {
		out = append(out, newCaster(p.Name, p.WorldMatrix()))
	}

	skin := w.Skeleton.BoneMatrices()
	for i, b := range w.Bones {
		out = append(out, newCaster(b.Name, skin[i].Mul(w.segments[i])))
	}
	return out
}
