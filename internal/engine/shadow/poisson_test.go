package shadow

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-shadows/pkg/math"
)

func minDistance(points []math.Vec2) float32 {
	best := float32(10)
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			best = min(best, points[i].Distance(points[j]))
		}
	}
	return best
}

func TestPoissonDisk(t *testing.T) {
	tests := []struct {
		taps    int
		minDist float32
	}{
		{16, 0.45},
		{25, 0.29},
		{64, 0.18},
	}
	for _, tt := range tests {
		disk, err := PoissonDisk(tt.taps)
		require.NoError(t, err)
		require.Len(t, disk, tt.taps)

		for _, p := range disk {
			assert.LessOrEqual(t, math32.Abs(p.X), float32(1), "%d taps: %+v", tt.taps, p)
			assert.LessOrEqual(t, math32.Abs(p.Y), float32(1), "%d taps: %+v", tt.taps, p)
		}
		assert.Greater(t, minDistance(disk), tt.minDist, "%d taps too clustered", tt.taps)
	}

	assert.Equal(t, PoissonDisk25[:], PoissonDisk64[:25])

	_, err := PoissonDisk(7)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPCFOffsets(t *testing.T) {
	offsets, err := PCFOffsets(16, 2, 1024)
	require.NoError(t, err)
	require.Len(t, offsets, 16)
	for i, o := range offsets {
		assert.InDelta(t, PoissonDisk16[i].X*2/1024, o.X, 1e-9)
		assert.InDelta(t, PoissonDisk16[i].Y*2/1024, o.Y, 1e-9)
	}

	_, err = PCFOffsets(16, 2, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = PCFOffsets(9, 2, 1024)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAABB(t *testing.T) {
	b := BoundsOf([]math.Vec3{{X: 1, Y: -2, Z: 3}, {X: -1, Y: 4, Z: 0}, {X: 0, Y: 0, Z: 5}})
	assert.Equal(t, math.Vec3{X: -1, Y: -2, Z: 0}, b.Min)
	assert.Equal(t, math.Vec3{X: 1, Y: 4, Z: 5}, b.Max)
	assert.Equal(t, math.Vec3{X: 0, Y: 1, Z: 2.5}, b.Center())
	assert.Equal(t, math.Vec3{X: 2, Y: 6, Z: 5}, b.Size())
	assert.InDelta(t, math.Vec3{X: 1, Y: 3, Z: 2.5}.Length(), b.Radius(), 1e-6)

	assert.Equal(t, AABB{}, BoundsOf(nil))

	moved := b.Transform(math.Translate(10, 0, -1))
	assert.True(t, moved.Min.ApproxEqual(math.Vec3{X: 9, Y: -2, Z: -1}, 1e-6))
	assert.True(t, moved.Max.ApproxEqual(math.Vec3{X: 11, Y: 4, Z: 4}, 1e-6))
}

func TestLightSpaceBoundsPadsDepth(t *testing.T) {
	points := []math.Vec3{{X: -1, Y: -1, Z: -10}, {X: 2, Y: 1, Z: -20}}
	b := lightSpaceBounds(math.Identity(), points, 0.1)

	assert.InDelta(t, -21, b.Min.Z, 1e-5)
	assert.InDelta(t, -9, b.Max.Z, 1e-5)
	assert.InDelta(t, -1, b.Min.X, 1e-6)
	assert.InDelta(t, 2, b.Max.X, 1e-6)
}

func TestStableRadiusQuantized(t *testing.T) {
	assert.Equal(t, float32(5.0/16), stableRadius(math.Vec3Zero, []math.Vec3{{X: 0.3}}))
	assert.Equal(t, float32(0.5), stableRadius(math.Vec3Zero, []math.Vec3{{Y: 0.5}, {Z: -0.25}}))
}

func TestSnapToTexels(t *testing.T) {
	got := snapToTexels(math.QuatIdentity(), math.Vec3{X: 0.37, Y: -0.37, Z: 5}, 0.25)
	assert.True(t, got.ApproxEqual(math.Vec3{X: 0.25, Y: -0.5, Z: 5}, 1e-6), "got %+v", got)

	p := math.Vec3{X: 1.3, Y: 2.7}
	assert.Equal(t, p, snapToTexels(math.QuatIdentity(), p, 0))

	// Snapping happens in the rotated frame.
	rot := math.QuatFromAxisAngle(math.Vec3UnitZ, 0.7)
	snapped := snapToTexels(rot, p, 0.5)
	local := rot.Conjugate().RotateVec3(snapped)
	assert.InDelta(t, math32.Round(local.X/0.5), local.X/0.5, 1e-4)
	assert.InDelta(t, math32.Round(local.Y/0.5), local.Y/0.5, 1e-4)
}
