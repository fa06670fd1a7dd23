package shadow

import (
	gomath "math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-shadows/internal/engine/camera"
	"github.com/Faultbox/midgard-shadows/internal/engine/lighting"
	"github.com/Faultbox/midgard-shadows/internal/engine/rendertarget"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

func newViewCamera() *camera.PerspectiveCamera {
	view := camera.NewPerspectiveCamera(60, 16.0/9.0, 0.1, 1000)
	view.SetPosition(math.Vec3{X: 3, Y: 8, Z: 20})
	view.LookAt(math.Vec3{X: 0, Y: 0, Z: -40}, math.Vec3UnitY)
	view.UpdateWorldMatrix(false, false)
	return view
}

func newSunLight() *lighting.DirectionalLight {
	light := lighting.NewDirectionalLight()
	light.SetSun(30, 50)
	return light
}

func newCSM(t *testing.T, view camera.Camera, opts CSMOptions) (*DirectionalLightCSM, *rendertarget.MemoryFactory) {
	t.Helper()
	f := rendertarget.NewMemoryFactory()
	csm, err := NewDirectionalLightCSM(newSunLight(), view, f, opts)
	require.NoError(t, err)
	return csm, f
}

// assertSlicesInside checks that every frustum slice corner projects inside
// its cascade's clip volume.
func assertSlicesInside(t *testing.T, csm *DirectionalLightCSM, viewWorld math.Mat4, tol float32) {
	t.Helper()
	for i, c := range csm.Cascades() {
		corners := csm.sliceCorners(viewWorld, c.SplitNear, c.SplitFar)
		for _, p := range corners {
			ndc := c.ViewProjection.TransformVec3(p)
			assert.LessOrEqual(t, math32.Abs(ndc.X), 1+tol, "cascade %d corner %+v x", i, p)
			assert.LessOrEqual(t, math32.Abs(ndc.Y), 1+tol, "cascade %d corner %+v y", i, p)
			assert.Less(t, math32.Abs(ndc.Z), float32(1), "cascade %d corner %+v z", i, p)
		}
	}
}

func TestCascadeSplitsMonotonic(t *testing.T) {
	for count := 2; count <= 6; count++ {
		for _, lambda := range []float32{0, 0.25, 0.5, 0.75, 1} {
			for _, planes := range [][2]float32{{0.1, 300}, {1, 50}, {0.5, 2000}} {
				near, far := planes[0], planes[1]
				splits, err := CascadeSplits(near, far, count, lambda)
				require.NoError(t, err)

				require.Len(t, splits, count+1)
				assert.Equal(t, near, splits[0])
				assert.Equal(t, far, splits[count])
				for i := 1; i < len(splits); i++ {
					assert.Greater(t, splits[i], splits[i-1], "count %d lambda %v split %d", count, lambda, i)
				}
			}
		}
	}
}

func TestCascadeSplitsLambdaBounds(t *testing.T) {
	const near, far, count = 0.1, 300.0, 4

	uniform, err := CascadeSplits(near, far, count, 0)
	require.NoError(t, err)
	logarithmic, err := CascadeSplits(near, far, count, 1)
	require.NoError(t, err)

	for i := 1; i < count; i++ {
		t64 := float64(i) / count
		assert.InEpsilon(t, near+(far-near)*t64, float64(uniform[i]), 1e-5, "uniform split %d", i)
		assert.InEpsilon(t, near*gomath.Pow(far/near, t64), float64(logarithmic[i]), 1e-5, "log split %d", i)
	}
}

func TestCascadeSplitsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name      string
		near, far float32
		count     int
		lambda    float32
	}{
		{"no cascades", 0.1, 300, 0, 0.5},
		{"zero near", 0, 300, 3, 0.5},
		{"far before near", 10, 5, 3, 0.5},
		{"lambda below range", 0.1, 300, 3, -0.1},
		{"lambda above range", 0.1, 300, 3, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CascadeSplits(tt.near, tt.far, tt.count, tt.lambda)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestCSMThreeCascades(t *testing.T) {
	view := newViewCamera()
	csm, f := newCSM(t, view, DefaultCSMOptions())

	require.NoError(t, csm.UpdateCascades(nil))

	cascades := csm.Cascades()
	require.Len(t, cascades, 3)
	for i, c := range cascades {
		assert.IsType(t, &camera.OrthographicCamera{}, c.Camera)
		assert.NotNil(t, c.Camera, "cascade %d", i)
		assert.NotNil(t, c.Target, "cascade %d", i)
	}
	assert.Equal(t, 3, f.Live())

	splits := csm.SplitDistances()
	require.Len(t, splits, 4)
	assert.InDelta(t, 0.1, splits[0], 1e-6)
	assert.InDelta(t, 300, splits[3], 1e-6)
	assert.Less(t, splits[0], splits[1])
	assert.Less(t, splits[1], splits[2])
	assert.Less(t, splits[2], splits[3])

	for i, c := range cascades {
		assert.Equal(t, splits[i], c.SplitNear)
		assert.Equal(t, splits[i+1], c.SplitFar)
		// Shadow cameras look along the light.
		assert.True(t, c.Camera.WorldDirection().ApproxEqual(csm.Light().Direction(), 1e-4))
	}

	assertSlicesInside(t, csm, view.WorldMatrix(), 1e-3)
}

func TestCSMDepthPadding(t *testing.T) {
	view := newViewCamera()
	csm, _ := newCSM(t, view, DefaultCSMOptions())
	require.NoError(t, csm.UpdateCascades(nil))

	for _, c := range csm.Cascades() {
		corners := csm.sliceCorners(view.WorldMatrix(), c.SplitNear, c.SplitFar)
		var local []math.Vec3
		for _, p := range corners {
			local = append(local, c.Camera.ViewMatrix().TransformVec3(p))
		}
		raw := BoundsOf(local)
		pad := (raw.Max.Z - raw.Min.Z) * depthPadding

		assert.InDelta(t, -(raw.Max.Z + pad), c.Camera.Near, 1e-2)
		assert.InDelta(t, -(raw.Min.Z - pad), c.Camera.Far, 1e-2)
	}
}

func TestCSMOrthographicView(t *testing.T) {
	view := camera.NewOrthographicCamera(-20, 20, 15, -15, 0.5, 200)
	view.SetPosition(math.Vec3{Y: 30, Z: 30})
	view.LookAt(math.Vec3Zero, math.Vec3UnitY)
	view.UpdateWorldMatrix(false, false)

	opts := DefaultCSMOptions()
	opts.MaxDistance = 200
	csm, _ := newCSM(t, view, opts)
	require.NoError(t, csm.UpdateCascades(nil))

	require.Len(t, csm.Cascades(), 3)
	assert.InDelta(t, 0.5, csm.SplitDistances()[0], 1e-6)

	// Slices of an orthographic view keep the view's width and height.
	c := csm.Cascades()[0]
	corners := csm.sliceCorners(view.WorldMatrix(), c.SplitNear, c.SplitFar)
	assert.InDelta(t, 40, corners[0].Distance(corners[1]), 1e-3)
	assert.InDelta(t, 30, corners[1].Distance(corners[2]), 1e-3)

	assertSlicesInside(t, csm, view.WorldMatrix(), 1e-3)
}

func TestCSMStabilized(t *testing.T) {
	view := newViewCamera()
	opts := DefaultCSMOptions()
	opts.Stabilize = true
	csm, _ := newCSM(t, view, opts)
	require.NoError(t, csm.UpdateCascades(nil))

	sizes := make([]float32, len(csm.Cascades()))
	for i, c := range csm.Cascades() {
		sizes[i] = c.Camera.Right - c.Camera.Left
		assert.InDelta(t, c.Camera.Top-c.Camera.Bottom, sizes[i], 1e-6, "cascade %d is not square", i)
	}
	assertSlicesInside(t, csm, view.WorldMatrix(), 1e-2)

	view.SetPosition(view.Position().Add(math.Vec3{X: 1, Z: -2}))
	view.UpdateWorldMatrix(false, false)
	require.NoError(t, csm.UpdateCascades(nil))

	for i, c := range csm.Cascades() {
		assert.Equal(t, sizes[i], c.Camera.Right-c.Camera.Left, "cascade %d changed size", i)

		// The camera sits on a texel corner of the light-aligned grid.
		texel := (c.Camera.Right - c.Camera.Left) / float32(opts.Resolution)
		local := c.Camera.Rotation().Conjugate().RotateVec3(c.Camera.Position())
		for _, v := range []float32{local.X, local.Y} {
			steps := v / texel
			assert.InDelta(t, math32.Round(steps), steps, 0.05, "cascade %d off grid", i)
		}
	}
	assertSlicesInside(t, csm, view.WorldMatrix(), 1e-2)
}

func TestGetCascadeIndex(t *testing.T) {
	csm, _ := newCSM(t, newViewCamera(), DefaultCSMOptions())
	csm.splits = []float32{1, 10, 100, 300}

	tests := []struct {
		viewZ float32
		want  int
	}{
		{-0.5, 0},
		{-5, 0},
		{-10, 1},
		{-50, 1},
		{-150, 2},
		{-299, 2},
		{-1000, 2},
		{5, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, csm.GetCascadeIndex(tt.viewZ), "viewZ %v", tt.viewZ)
	}
}

func TestGetCascadeBlendFactor(t *testing.T) {
	csm, _ := newCSM(t, newViewCamera(), DefaultCSMOptions())
	csm.splits = []float32{1, 10, 100, 300}

	tests := []struct {
		name  string
		viewZ float32
		want  float32
	}{
		{"before band", -5, 0},
		{"band start", -9.1, 0},
		{"middle of band", -9.55, 0.5},
		{"second cascade band", -95.5, 0.5},
		{"just before split", -99.99, 0.9988},
		{"last cascade", -299, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, csm.GetCascadeBlendFactor(tt.viewZ), 1e-3)
		})
	}

	opts := csm.Options()
	opts.BlendCascades = false
	require.NoError(t, csm.SetOptions(opts))
	assert.Zero(t, csm.GetCascadeBlendFactor(-9.55))
}

func TestCSMReinitializesOnChange(t *testing.T) {
	csm, f := newCSM(t, newViewCamera(), DefaultCSMOptions())
	require.NoError(t, csm.UpdateCascades(nil))
	require.NoError(t, csm.UpdateCascades(nil))
	assert.Equal(t, 3, f.Created(), "unchanged settings reallocated")

	opts := csm.Options()
	opts.Cascades = 5
	require.NoError(t, csm.SetOptions(opts))
	require.NoError(t, csm.UpdateCascades(nil))

	assert.Len(t, csm.Cascades(), 5)
	assert.Len(t, csm.SplitDistances(), 6)
	assert.Equal(t, 5, f.Live())
	assert.Equal(t, 8, f.Created())

	opts.Resolution = 512
	require.NoError(t, csm.SetOptions(opts))
	require.NoError(t, csm.UpdateCascades(nil))

	w, _ := csm.Cascades()[0].Target.Size()
	assert.Equal(t, 512, w)
	assert.Equal(t, 5, f.Live())
}

func TestCSMDispose(t *testing.T) {
	csm, f := newCSM(t, newViewCamera(), DefaultCSMOptions())
	require.NoError(t, csm.UpdateCascades(nil))

	csm.Dispose()
	assert.Nil(t, csm.Cascades())
	assert.Zero(t, f.Live())

	assert.NotPanics(t, csm.Dispose)
	assert.Zero(t, f.Live())

	require.NoError(t, csm.UpdateCascades(nil))
	assert.Len(t, csm.Cascades(), 3)
	assert.Equal(t, 3, f.Live())
}

func TestCSMUniforms(t *testing.T) {
	csm, _ := newCSM(t, newViewCamera(), DefaultCSMOptions())
	assert.Nil(t, csm.SplitUniforms())
	assert.Empty(t, csm.MatrixUniforms())

	require.NoError(t, csm.UpdateCascades(nil))

	assert.Equal(t, csm.SplitDistances()[1:], csm.SplitUniforms())
	assert.Len(t, csm.MatrixUniforms(), 48)

	bindings := csm.Bindings()
	require.Len(t, bindings, 3)
	for i, b := range bindings {
		assert.Same(t, csm.Cascades()[i].Target, b.Target)
		assert.Equal(t, csm.Cascades()[i].ViewProjection, b.ViewProjection)
	}

	// The shadow matrix maps the slice centroid into the unit texture cube.
	c := csm.Cascades()[0]
	m := math.Mat4(csm.MatrixUniforms()[:16])
	centroid := c.Camera.Position().Add(c.Camera.WorldDirection().Scale(csm.Options().LightMargin))
	uv := m.TransformVec3(centroid)
	for _, v := range []float32{uv.X, uv.Y, uv.Z} {
		assert.Greater(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestCSMViewCameraSwap(t *testing.T) {
	csm, _ := newCSM(t, newViewCamera(), DefaultCSMOptions())

	other := camera.NewPerspectiveCamera(45, 1, 2, 500)
	other.UpdateWorldMatrix(false, false)
	require.NoError(t, csm.UpdateCascades(other))
	assert.InDelta(t, 2, csm.SplitDistances()[0], 1e-6)
}

// wrappedCamera is a camera type the cascades cannot slice.
type wrappedCamera struct {
	camera.Camera
}

func TestCSMRejectsInvalid(t *testing.T) {
	light := newSunLight()
	f := rendertarget.NewMemoryFactory()

	_, err := NewDirectionalLightCSM(light, nil, f, DefaultCSMOptions())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewDirectionalLightCSM(light, wrappedCamera{newViewCamera()}, f, DefaultCSMOptions())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewDirectionalLightCSM(light, newViewCamera(), nil, DefaultCSMOptions())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	tests := []struct {
		name   string
		modify func(*CSMOptions)
	}{
		{"no cascades", func(o *CSMOptions) { o.Cascades = 0 }},
		{"lambda", func(o *CSMOptions) { o.Lambda = 2 }},
		{"blend range", func(o *CSMOptions) { o.BlendRange = -1 }},
		{"resolution", func(o *CSMOptions) { o.Resolution = 0 }},
		{"light margin", func(o *CSMOptions) { o.LightMargin = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultCSMOptions()
			tt.modify(&opts)
			_, err := NewDirectionalLightCSM(light, newViewCamera(), f, opts)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	// Max distance inside the near plane fails at update time.
	opts := DefaultCSMOptions()
	opts.MaxDistance = 0.05
	csm, err := NewDirectionalLightCSM(light, newViewCamera(), f, opts)
	require.NoError(t, err)
	assert.ErrorIs(t, csm.UpdateCascades(nil), ErrInvalidArgument)
}
