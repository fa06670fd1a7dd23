package shadow

import (
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/engine/camera"
	"github.com/Faultbox/midgard-shadows/internal/engine/lighting"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// depthPadding widens each cascade's light-space depth range on both sides.
const depthPadding = 0.1

// minExtent keeps degenerate cascades from producing singular projections.
const minExtent = 1e-4

// CSMOptions configures cascaded shadow maps.
type CSMOptions struct {
	Cascades    int     // Number of cascades, at least 1
	MaxDistance float32 // View distance covered by the last cascade
	Lambda      float32 // 0 = uniform splits, 1 = logarithmic splits
	Resolution  int     // Width and height of each cascade target
	LightMargin float32 // Distance the shadow cameras back off from the slice

	BlendCascades bool
	BlendRange    float32 // Fraction of a cascade's depth range cross-faded into the next

	Stabilize bool // Keep cascade size constant and move in whole texels

	Bias       float32
	NormalBias float32
}

// DefaultCSMOptions returns three cascades over 300 units.
func DefaultCSMOptions() CSMOptions {
	return CSMOptions{
		Cascades:      3,
		MaxDistance:   300,
		Lambda:        0.5,
		Resolution:    DefaultResolution,
		LightMargin:   200,
		BlendCascades: true,
		BlendRange:    0.1,
		Bias:          DefaultBias,
	}
}

// Validate checks the ranges that do not depend on the view camera.
func (o CSMOptions) Validate() error {
	switch {
	case o.Cascades < 1:
		return fmt.Errorf("%w: cascade count %d", ErrInvalidArgument, o.Cascades)
	case o.Lambda < 0 || o.Lambda > 1:
		return fmt.Errorf("%w: lambda %v outside [0, 1]", ErrInvalidArgument, o.Lambda)
	case o.BlendRange < 0 || o.BlendRange > 1:
		return fmt.Errorf("%w: blend range %v outside [0, 1]", ErrInvalidArgument, o.BlendRange)
	case o.Resolution <= 0:
		return fmt.Errorf("%w: resolution %d", ErrInvalidArgument, o.Resolution)
	case o.LightMargin < 0:
		return fmt.Errorf("%w: light margin %v", ErrInvalidArgument, o.LightMargin)
	}
	return nil
}

// Cascade is one slice of the view frustum with its own shadow camera.
type Cascade struct {
	Target rendertarget.RenderTarget
	Camera *camera.OrthographicCamera

	SplitNear float32 // View distance where the slice starts
	SplitFar  float32 // View distance where the slice ends

	ViewProjection math.Mat4
	Bounds         AABB // Light-space bounds of the slice, depth padded
}

// CascadeBinding pairs a cascade's render target with the matrix to render it.
type CascadeBinding struct {
	Target         rendertarget.RenderTarget
	ViewProjection math.Mat4
}

// DirectionalLightCSM splits the view frustum into depth ranges and fits an
// orthographic shadow camera around each one.
type DirectionalLightCSM struct {
	light   *lighting.DirectionalLight
	view    camera.Camera
	factory rendertarget.Factory
	opts    CSMOptions

	cascades   []*Cascade
	splits     []float32
	resolution int // Resolution the current cascades were allocated with
}

// NewDirectionalLightCSM creates cascaded shadows for light as seen from
// view. Cascades are allocated by the first UpdateCascades.
func NewDirectionalLightCSM(light *lighting.DirectionalLight, view camera.Camera, factory rendertarget.Factory, opts CSMOptions) (*DirectionalLightCSM, error) {
	if light == nil || factory == nil {
		return nil, fmt.Errorf("%w: nil light or render target factory", ErrInvalidArgument)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := checkViewCamera(view); err != nil {
		return nil, err
	}
	return &DirectionalLightCSM{
		light:   light,
		view:    view,
		factory: factory,
		opts:    opts,
	}, nil
}

func checkViewCamera(view camera.Camera) error {
	switch view.(type) {
	case *camera.PerspectiveCamera, *camera.OrthographicCamera:
		return nil
	case nil:
		return fmt.Errorf("%w: nil view camera", ErrInvalidArgument)
	default:
		return fmt.Errorf("%w: unsupported view camera %T", ErrInvalidArgument, view)
	}
}

// Light returns the owning light.
func (c *DirectionalLightCSM) Light() *lighting.DirectionalLight {
	return c.light
}

// Options returns the current settings.
func (c *DirectionalLightCSM) Options() CSMOptions {
	return c.opts
}

// SetOptions replaces the settings. A new cascade count or resolution takes
// effect at the next UpdateCascades.
func (c *DirectionalLightCSM) SetOptions(opts CSMOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	c.opts = opts
	return nil
}

// Cascades returns the cascades from the last UpdateCascades.
func (c *DirectionalLightCSM) Cascades() []*Cascade {
	return c.cascades
}

// SplitDistances returns the Cascades+1 split distances from the last update.
func (c *DirectionalLightCSM) SplitDistances() []float32 {
	return c.splits
}

// CascadeSplits computes count+1 split distances between near and far with
// the practical split scheme: each inner split blends the logarithmic split
// n*(f/n)^t and the uniform split n+(f-n)*t by lambda.
func CascadeSplits(near, far float32, count int, lambda float32) ([]float32, error) {
	switch {
	case count < 1:
		return nil, fmt.Errorf("%w: cascade count %d", ErrInvalidArgument, count)
	case near <= 0:
		return nil, fmt.Errorf("%w: near %v must be positive", ErrInvalidArgument, near)
	case far <= near:
		return nil, fmt.Errorf("%w: max distance %v not beyond near %v", ErrInvalidArgument, far, near)
	case lambda < 0 || lambda > 1:
		return nil, fmt.Errorf("%w: lambda %v outside [0, 1]", ErrInvalidArgument, lambda)
	}

	splits := make([]float32, count+1)
	splits[0] = near
	for i := 1; i < count; i++ {
		t := float32(i) / float32(count)
		logSplit := near * math32.Pow(far/near, t)
		uniform := near + (far-near)*t
		splits[i] = lambda*logSplit + (1-lambda)*uniform
	}
	splits[count] = far
	return splits, nil
}

// CalculateCascadeSplits recomputes the split distances from the view
// camera's near plane to MaxDistance.
func (c *DirectionalLightCSM) CalculateCascadeSplits() error {
	near, _ := c.view.ClipPlanes()
	splits, err := CascadeSplits(near, c.opts.MaxDistance, c.opts.Cascades, c.opts.Lambda)
	if err != nil {
		return err
	}
	c.splits = splits
	return nil
}

// UpdateCascades refits every cascade to view. A nil view keeps the current
// camera. The view camera's world matrix must be current. Cascades are
// (re)allocated when the count or resolution changed or after Dispose.
func (c *DirectionalLightCSM) UpdateCascades(view camera.Camera) error {
	if view != nil {
		if err := checkViewCamera(view); err != nil {
			return err
		}
		c.view = view
	}

	if err := c.CalculateCascadeSplits(); err != nil {
		return err
	}
	if len(c.cascades) != c.opts.Cascades || c.resolution != c.opts.Resolution {
		if err := c.initCascades(); err != nil {
			return err
		}
	}

	viewWorld := c.view.Transform().WorldMatrix()
	lightDir := c.light.Direction()

	for i, cascade := range c.cascades {
		cascade.SplitNear = c.splits[i]
		cascade.SplitFar = c.splits[i+1]
		corners := c.sliceCorners(viewWorld, cascade.SplitNear, cascade.SplitFar)
		c.fitCascade(i, cascade, corners, lightDir)
	}
	return nil
}

func (c *DirectionalLightCSM) initCascades() error {
	c.Dispose()

	cascades := make([]*Cascade, 0, c.opts.Cascades)
	for i := 0; i < c.opts.Cascades; i++ {
		target, err := c.factory.NewRenderTarget(rendertarget.Options{
			Width:  c.opts.Resolution,
			Height: c.opts.Resolution,
			Format: rendertarget.FormatDepth,
			Label:  fmt.Sprintf("cascade %d", i),
		})
		if err != nil {
			for _, cc := range cascades {
				cc.Target.Dispose()
			}
			return fmt.Errorf("allocating cascade %d: %w", i, err)
		}
		cam := camera.NewOrthographicCamera(-1, 1, 1, -1, DefaultNear, DefaultFar)
		cam.Name = fmt.Sprintf("CascadeCamera%d", i)
		cascades = append(cascades, &Cascade{Target: target, Camera: cam})
	}

	c.cascades = cascades
	c.resolution = c.opts.Resolution
	logger.Named("shadow").Debug("cascades initialized",
		zap.Int("cascades", len(cascades)),
		zap.Int("resolution", c.resolution),
	)
	return nil
}

// sliceCorners returns the eight world-space corners of the view frustum
// between the near and far distances, near plane first.
func (c *DirectionalLightCSM) sliceCorners(viewWorld math.Mat4, near, far float32) [8]math.Vec3 {
	var corners [8]math.Vec3

	switch v := c.view.(type) {
	case *camera.PerspectiveCamera:
		tanHalf := math32.Tan(v.FOV * math32.Pi / 360)
		for i, d := range [2]float32{near, far} {
			h := tanHalf * d
			w := h * v.Aspect
			corners[i*4+0] = math.Vec3{X: -w, Y: -h, Z: -d}
			corners[i*4+1] = math.Vec3{X: w, Y: -h, Z: -d}
			corners[i*4+2] = math.Vec3{X: w, Y: h, Z: -d}
			corners[i*4+3] = math.Vec3{X: -w, Y: h, Z: -d}
		}
	case *camera.OrthographicCamera:
		for i, d := range [2]float32{near, far} {
			corners[i*4+0] = math.Vec3{X: v.Left, Y: v.Bottom, Z: -d}
			corners[i*4+1] = math.Vec3{X: v.Right, Y: v.Bottom, Z: -d}
			corners[i*4+2] = math.Vec3{X: v.Right, Y: v.Top, Z: -d}
			corners[i*4+3] = math.Vec3{X: v.Left, Y: v.Top, Z: -d}
		}
	}

	for i := range corners {
		corners[i] = viewWorld.TransformVec3(corners[i])
	}
	return corners
}

// fitCascade aims the cascade camera at the slice centroid from LightMargin
// back along the light direction and sizes its box to the slice in light space.
func (c *DirectionalLightCSM) fitCascade(index int, cascade *Cascade, corners [8]math.Vec3, lightDir math.Vec3) {
	var centroid math.Vec3
	for _, p := range corners {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1.0 / float32(len(corners)))

	cam := cascade.Camera
	cam.SetPosition(centroid.Sub(lightDir.Scale(c.opts.LightMargin)))
	cam.LookAt(centroid, math.Vec3UnitY)

	var radius float32
	if c.opts.Stabilize {
		radius = stableRadius(centroid, corners[:])
		texel := 2 * radius / float32(c.opts.Resolution)
		centroid = snapToTexels(cam.Rotation(), centroid, texel)
		// The direction is unchanged, so the rotation from LookAt still holds.
		cam.SetPosition(centroid.Sub(lightDir.Scale(c.opts.LightMargin)))
	}
	cam.UpdateWorldMatrix(false, false)

	b := lightSpaceBounds(cam.ViewMatrix(), corners[:], depthPadding)
	if c.opts.Stabilize {
		b.Min.X, b.Max.X = -radius, radius
		b.Min.Y, b.Max.Y = -radius, radius
	}

	if b.Max.X-b.Min.X < minExtent || b.Max.Y-b.Min.Y < minExtent || b.Max.Z-b.Min.Z < minExtent {
		logger.Named("shadow").Warn("degenerate cascade slice",
			zap.Int("cascade", index),
			zap.Float32("near", cascade.SplitNear),
			zap.Float32("far", cascade.SplitFar),
		)
		b.Max.X = math32.Max(b.Max.X, b.Min.X+minExtent)
		b.Max.Y = math32.Max(b.Max.Y, b.Min.Y+minExtent)
		b.Max.Z = math32.Max(b.Max.Z, b.Min.Z+minExtent)
	}

	// The camera looks down -Z, so the nearest points have the largest Z.
	cam.SetBounds(b.Min.X, b.Max.X, b.Max.Y, b.Min.Y, -b.Max.Z, -b.Min.Z)

	cascade.Bounds = b
	cascade.ViewProjection = cam.ViewProjectionMatrix()
}

// GetCascadeIndex returns the cascade covering a view-space depth. Depths past
// the last split use the last cascade.
func (c *DirectionalLightCSM) GetCascadeIndex(viewZ float32) int {
	d := math32.Abs(viewZ)
	n := len(c.splits) - 1
	for i := 0; i < n; i++ {
		if d < c.splits[i+1] {
			return i
		}
	}
	return max(n-1, 0)
}

// GetCascadeBlendFactor returns how far a view-space depth has moved into the
// blend band at the end of its cascade: 0 before the band, rising to 1 at the
// split. The last cascade and disabled blending always give 0.
func (c *DirectionalLightCSM) GetCascadeBlendFactor(viewZ float32) float32 {
	if !c.opts.BlendCascades || len(c.splits) < 2 {
		return 0
	}
	i := c.GetCascadeIndex(viewZ)
	if i >= len(c.splits)-2 {
		return 0
	}

	near, far := c.splits[i], c.splits[i+1]
	band := (far - near) * c.opts.BlendRange
	if band <= 0 {
		return 0
	}
	start := far - band
	d := math32.Abs(viewZ)
	if d <= start {
		return 0
	}
	return math.Clamp((d-start)/band, 0, 1)
}

// Bindings returns each cascade's render target and view-projection matrix
// for the depth pass.
func (c *DirectionalLightCSM) Bindings() []CascadeBinding {
	out := make([]CascadeBinding, len(c.cascades))
	for i, cascade := range c.cascades {
		out[i] = CascadeBinding{Target: cascade.Target, ViewProjection: cascade.ViewProjection}
	}
	return out
}

// SplitUniforms returns the far split of every cascade for shader upload.
func (c *DirectionalLightCSM) SplitUniforms() []float32 {
	if len(c.splits) == 0 {
		return nil
	}
	return append([]float32(nil), c.splits[1:]...)
}

// MatrixUniforms returns every cascade's shadow matrix, mapping world space to
// texture space, flattened to 16 floats each.
func (c *DirectionalLightCSM) MatrixUniforms() []float32 {
	out := make([]float32, 0, 16*len(c.cascades))
	for _, cascade := range c.cascades {
		m := textureMatrix.Mul(cascade.ViewProjection)
		out = append(out, m[:]...)
	}
	return out
}

// Dispose releases every cascade's render target. Calling it again is a no-op.
func (c *DirectionalLightCSM) Dispose() {
	if c.cascades == nil {
		return
	}
	for _, cascade := range c.cascades {
		cascade.Target.Dispose()
	}
	c.cascades = nil
	c.resolution = 0
	logger.Named("shadow").Debug("cascades disposed")
}
