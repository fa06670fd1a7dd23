package scene

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// newArm builds a three-bone chain along +Y and refreshes its world matrices.
func newArm() (*Node, []*Bone) {
	root := NewNode("mesh")
	shoulder, elbow, wrist := NewBone("shoulder"), NewBone("elbow"), NewBone("wrist")
	root.Add(shoulder.Node)
	shoulder.AddBone(elbow)
	elbow.AddBone(wrist)

	shoulder.SetPosition(math.Vec3{Y: 1})
	elbow.SetPosition(math.Vec3{Y: 1})
	wrist.SetPosition(math.Vec3{Y: 1})
	root.UpdateWorldMatrix(false, true)

	return root, []*Bone{shoulder, elbow, wrist}
}

func TestNewBoneIsTagged(t *testing.T) {
	assert.True(t, NewBone("b").IsBone())
	assert.False(t, NewNode("n").IsBone())
}

func TestSkeletonMatrixCounts(t *testing.T) {
	for _, n := range []int{0, 1, 3, 8} {
		bones := make([]*Bone, n)
		for i := range bones {
			bones[i] = NewBone("b")
		}

		s, err := NewSkeleton(bones, nil)
		require.NoError(t, err)
		assert.Len(t, s.BoneMatrices(), n)
		assert.Len(t, s.BoneInverses(), n)

		s.Update()
		assert.Len(t, s.BoneTexture(), n*16)
	}
}

func TestSkeletonRejectsMismatchedInverses(t *testing.T) {
	bones := []*Bone{NewBone("a"), NewBone("b")}

	_, err := NewSkeleton(bones, []math.Mat4{math.Identity()})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = NewSkeleton([]*Bone{NewBone("a"), nil}, nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestSkeletonRestPoseGivesIdentity(t *testing.T) {
	_, bones := newArm()
	s, err := NewSkeleton(bones, nil)
	require.NoError(t, err)

	s.Update()

	for i, m := range s.BoneMatrices() {
		assert.Truef(t, m.ApproxEqual(math.Identity(), tol), "bone %d: %v", i, m)
	}
}

func TestSkeletonUsesProvidedInverses(t *testing.T) {
	_, bones := newArm()
	inverses := []math.Mat4{
		math.Translate(0, -1, 0),
		math.Translate(0, -2, 0),
		math.Translate(0, -3, 0),
	}

	s, err := NewSkeleton(bones, inverses)
	require.NoError(t, err)

	inv, err := s.InverseAt(2)
	require.NoError(t, err)
	assert.Equal(t, inverses[2], inv)
}

func TestSkeletonSkinMatrixOrder(t *testing.T) {
	root, bones := newArm()
	s, err := NewSkeleton(bones, nil)
	require.NoError(t, err)

	// A vertex one unit above the shoulder in the bind pose.
	vertex := math.Vec3{Y: 2}

	bones[0].SetRotation(math.QuatFromAxisAngle(math.Vec3UnitZ, math32.Pi/2))
	root.UpdateWorldMatrix(false, true)
	s.Update()

	got := s.BoneMatrices()[0].TransformVec3(vertex)
	assertVec3(t, math.Vec3{X: -1, Y: 1}, got)
}

func TestSkeletonChildFollowsParentBone(t *testing.T) {
	root, bones := newArm()
	s, err := NewSkeleton(bones, nil)
	require.NoError(t, err)

	bones[0].SetPosition(math.Vec3{X: 5, Y: 1})
	root.UpdateWorldMatrix(false, true)
	s.Update()

	// The wrist rest position (0,3,0) moves with the shoulder.
	got := s.BoneMatrices()[2].TransformVec3(math.Vec3{Y: 3})
	assertVec3(t, math.Vec3{X: 5, Y: 3}, got)
}

func TestSkeletonUpdateWithoutPropagationIsStale(t *testing.T) {
	_, bones := newArm()
	s, err := NewSkeleton(bones, nil)
	require.NoError(t, err)

	bones[1].SetPosition(math.Vec3{X: 9})
	s.Update()

	for _, m := range s.BoneMatrices() {
		assert.True(t, m.ApproxEqual(math.Identity(), tol))
		for _, v := range m {
			assert.False(t, math32.IsNaN(v))
		}
	}
}

func TestBoneTextureLayout(t *testing.T) {
	root, bones := newArm()
	s, err := NewSkeleton(bones, nil)
	require.NoError(t, err)

	bones[2].SetRotationEuler(math.Euler{X: 0.4, Y: 0.1})
	bones[1].SetScale(math.Vec3{X: 1, Y: 2, Z: 1})
	root.UpdateWorldMatrix(false, true)
	s.Update()

	tex := s.BoneTexture()
	for i, m := range s.BoneMatrices() {
		assert.Equal(t, m[:], tex[i*16:(i+1)*16])
	}
}

func TestSkeletonPoseRestoresBind(t *testing.T) {
	root, bones := newArm()
	s, err := NewSkeleton(bones, nil)
	require.NoError(t, err)

	bones[0].SetRotationEuler(math.Euler{Z: 0.7})
	bones[1].SetPosition(math.Vec3{X: 2, Y: 3})
	bones[2].SetScale(math.Vec3{X: 2, Y: 2, Z: 2})
	root.UpdateWorldMatrix(false, true)

	s.Pose()
	root.UpdateWorldMatrix(false, true)
	s.Update()

	for i, m := range s.BoneMatrices() {
		assert.Truef(t, m.ApproxEqual(math.Identity(), 1e-4), "bone %d: %v", i, m)
	}
	assertVec3(t, math.Vec3{Y: 1}, bones[1].Position())
}

func TestSkeletonIndexAccessors(t *testing.T) {
	_, bones := newArm()
	s, err := NewSkeleton(bones, nil)
	require.NoError(t, err)

	b, err := s.BoneAt(1)
	require.NoError(t, err)
	assert.Same(t, bones[1], b)

	_, err = s.BoneAt(3)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = s.BoneAt(-1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = s.InverseAt(3)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestSkeletonLookupByName(t *testing.T) {
	_, bones := newArm()
	s, err := NewSkeleton(bones, nil)
	require.NoError(t, err)

	assert.Same(t, bones[2], s.GetBoneByName("wrist"))
	assert.Equal(t, 1, s.GetBoneIndexByName("elbow"))
	assert.Nil(t, s.GetBoneByName("tail"))
	assert.Equal(t, -1, s.GetBoneIndexByName("tail"))
}
