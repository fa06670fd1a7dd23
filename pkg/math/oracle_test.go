package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

// These tests check the hand-written matrices against mathgl, which shares the
// column-major OpenGL layout.

const oracleTol = float32(1e-5)

func assertMatEqual(t *testing.T, want mgl32.Mat4, got Mat4) {
	t.Helper()
	assert.Truef(t, got.ApproxEqual(Mat4(want), oracleTol), "got %v\nwant %v", got, want)
}

func TestPerspectiveMatchesMathGL(t *testing.T) {
	fov := mgl32.DegToRad(60)
	assertMatEqual(t, mgl32.Perspective(fov, 16.0/9.0, 0.1, 300), Perspective(fov, 16.0/9.0, 0.1, 300))
}

func TestOrthoMatchesMathGL(t *testing.T) {
	assertMatEqual(t, mgl32.Ortho(-10, 12, -3, 7, 0.5, 80), Ortho(-10, 12, -3, 7, 0.5, 80))
}

func TestLookAtMatchesMathGL(t *testing.T) {
	want := mgl32.LookAtV(mgl32.Vec3{3, 4, 5}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0})
	assertMatEqual(t, want, LookAt(Vec3{3, 4, 5}, Vec3{0, 1, 0}, Vec3{0, 1, 0}))
}

func TestInverseMatchesMathGL(t *testing.T) {
	m := Compose(Vec3{1, 2, 3}, QuatFromYawPitchRoll(0.2, 0.4, 0.6), Vec3{2, 2, 2})
	assertMatEqual(t, mgl32.Mat4(m).Inv(), m.Inverse())
}

func TestQuatToMat4MatchesMathGL(t *testing.T) {
	axis := Vec3{1, 2, -1}.Normalize()
	q := QuatFromAxisAngle(axis, 0.9)
	want := mgl32.QuatRotate(0.9, mgl32.Vec3{axis.X, axis.Y, axis.Z}).Mat4()
	assertMatEqual(t, want, q.ToMat4())
}

func TestMulMatchesMathGL(t *testing.T) {
	a := Compose(Vec3{1, 0, 0}, QuatFromYawPitchRoll(0.5, 0, 0), Vec3One)
	b := Compose(Vec3{0, 2, 0}, QuatFromYawPitchRoll(0, 0.5, 0), Vec3{1, 3, 1})
	assertMatEqual(t, mgl32.Mat4(a).Mul4(mgl32.Mat4(b)), a.Mul(b))
}
