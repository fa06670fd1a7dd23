package scene

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-shadows/pkg/math"
)

const tol = float32(1e-5)

func assertVec3(t *testing.T, want, got math.Vec3) {
	t.Helper()
	assert.Truef(t, want.ApproxEqual(got, tol), "want %+v, got %+v", want, got)
}

func TestNewNodeDefaults(t *testing.T) {
	n := NewNode("root")

	assert.Equal(t, "root", n.Name)
	assert.True(t, n.Visible)
	assert.True(t, n.Dirty())
	assert.Nil(t, n.Parent())
	assert.Empty(t, n.Children())
	assert.Equal(t, math.Vec3One, n.Scale())
	assert.Equal(t, math.Vec3UnitY, n.Up())
	assert.NotEqual(t, NewNode("root").ID(), n.ID())
	assert.True(t, n.WorldMatrix().ApproxEqual(math.Identity(), 0))
}

func TestWorldMatrixTranslatesOrigin(t *testing.T) {
	n := NewNode("n")
	n.SetPosition(math.Vec3{X: 3, Y: -2, Z: 7})

	origin := n.WorldMatrix().TransformVec3(math.Vec3Zero)
	assertVec3(t, math.Vec3{X: 3, Y: -2, Z: 7}, origin)
}

func TestPropagationChain(t *testing.T) {
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	a.Add(b)
	b.Add(c)
	a.SetPosition(math.Vec3{X: 1})
	b.SetPosition(math.Vec3{Y: 1})
	c.SetPosition(math.Vec3{Z: 1})

	a.UpdateWorldMatrix(false, true)

	assertVec3(t, math.Vec3{X: 1, Y: 1, Z: 1}, c.world.TransformVec3(math.Vec3Zero))
}

func TestLocalCompositionScaleRotateTranslate(t *testing.T) {
	n := NewNode("n")
	n.SetPosition(math.Vec3{X: 1})
	n.SetScale(math.Vec3{X: 2, Y: 2, Z: 2})
	n.SetRotation(math.QuatFromAxisAngle(math.Vec3UnitY, math32.Pi/2))

	p := n.LocalMatrix().TransformVec3(math.Vec3{X: 1})
	assertVec3(t, math.Vec3{X: 1, Z: -2}, p)
}

func TestParentRotationAppliesToChildPosition(t *testing.T) {
	parent, child := NewNode("parent"), NewNode("child")
	parent.Add(child)
	parent.SetPosition(math.Vec3{Y: 5})
	parent.SetRotation(math.QuatFromAxisAngle(math.Vec3UnitY, math32.Pi/2))
	child.SetPosition(math.Vec3{X: 1})

	parent.UpdateWorldMatrix(false, true)

	assertVec3(t, math.Vec3{Y: 5, Z: -1}, child.WorldPosition())
}

func TestUpdateWorldMatrixIdempotent(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	a.Add(b)
	a.SetRotationEuler(math.Euler{X: 0.3, Y: 1.1, Z: -0.4})
	a.SetScale(math.Vec3{X: 1.5, Y: 0.5, Z: 2})
	b.SetPosition(math.Vec3{X: 0.1, Y: 2.3, Z: -4})

	a.UpdateWorldMatrix(false, true)
	first := b.world
	a.UpdateWorldMatrix(false, true)

	assert.Equal(t, first, b.world)
}

func TestDirtyAncestorForcesDescendants(t *testing.T) {
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	a.Add(b)
	b.Add(c)
	a.UpdateWorldMatrix(false, true)
	require.False(t, c.Dirty())

	a.SetPosition(math.Vec3{X: 10})
	a.UpdateWorldMatrix(false, true)

	assertVec3(t, math.Vec3{X: 10}, c.world.Translation())
}

func TestWorldMatrixGetterDoesNotRecurse(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	a.Add(b)
	a.UpdateWorldMatrix(false, true)

	a.SetPosition(math.Vec3{X: 4})
	assertVec3(t, math.Vec3{X: 4}, a.WorldPosition())

	// b keeps its cached matrix until the subtree is updated
	assertVec3(t, math.Vec3Zero, b.world.Translation())

	a.UpdateWorldMatrix(false, true)
	assertVec3(t, math.Vec3{X: 4}, b.world.Translation())
}

func TestStaleAncestorsGiveStaleButFiniteWorld(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	a.Add(b)
	a.UpdateWorldMatrix(false, true)

	a.SetPosition(math.Vec3{X: 4})
	b.SetPosition(math.Vec3{Y: 1})

	// Only b is refreshed; a's cached world is still at the origin.
	got := b.WorldPosition()
	assertVec3(t, math.Vec3{Y: 1}, got)
	for _, v := range b.world {
		assert.False(t, math32.IsNaN(v) || math32.IsInf(v, 0))
	}
}

func TestReparent(t *testing.T) {
	oldParent, newParent, child := NewNode("old"), NewNode("new"), NewNode("child")
	oldParent.Add(NewNode("sibling"), child)
	require.Len(t, oldParent.Children(), 2)

	newParent.Add(child)

	assert.Len(t, oldParent.Children(), 1)
	assert.NotContains(t, oldParent.Children(), child)
	assert.Equal(t, []*Node{child}, newParent.Children())
	assert.Same(t, newParent, child.Parent())
}

func TestAddSameChildTwice(t *testing.T) {
	p, c := NewNode("p"), NewNode("c")
	p.Add(c)
	p.Add(c)

	assert.Len(t, p.Children(), 1)
	assert.Same(t, p, c.Parent())
}

func TestAddIgnoresSelfAndNil(t *testing.T) {
	p := NewNode("p")
	p.Add(p, nil)

	assert.Empty(t, p.Children())
	assert.Nil(t, p.Parent())
}

func TestRemoveNonChildIsNoop(t *testing.T) {
	p, c, stranger := NewNode("p"), NewNode("c"), NewNode("stranger")
	p.Add(c)

	p.Remove(stranger)

	assert.Equal(t, []*Node{c}, p.Children())
	assert.Nil(t, stranger.Parent())
}

func TestRemoveKeepsOrder(t *testing.T) {
	p := NewNode("p")
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	p.Add(a, b, c)

	b.RemoveFromParent()

	assert.Equal(t, []*Node{a, c}, p.Children())
	assert.Nil(t, b.Parent())
	b.RemoveFromParent()
}

func TestClear(t *testing.T) {
	p, a, b := NewNode("p"), NewNode("a"), NewNode("b")
	p.Add(a, b)

	p.Clear()

	assert.Empty(t, p.Children())
	assert.Nil(t, a.Parent())
	assert.Nil(t, b.Parent())
}

func TestTraversePreOrder(t *testing.T) {
	root := NewNode("root")
	a, b := NewNode("a"), NewNode("b")
	a1, a2 := NewNode("a1"), NewNode("a2")
	root.Add(a, b)
	a.Add(a1, a2)

	var names []string
	root.Traverse(func(n *Node) { names = append(names, n.Name) })

	assert.Equal(t, []string{"root", "a", "a1", "a2", "b"}, names)
}

func TestGetObjectByName(t *testing.T) {
	root, a, deep := NewNode("root"), NewNode("a"), NewNode("deep")
	root.Add(a)
	a.Add(deep)

	assert.Same(t, deep, root.GetObjectByName("deep"))
	assert.Same(t, root, root.GetObjectByName("root"))
	assert.Nil(t, root.GetObjectByName("missing"))
}

func TestSetUp(t *testing.T) {
	n := NewNode("n")

	err := n.SetUp(math.Vec3Zero)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, math.Vec3UnitY, n.Up())

	require.NoError(t, n.SetUp(math.Vec3{Z: 5}))
	assertVec3(t, math.Vec3UnitZ, n.Up())
}

func TestEulerMirrorStaysInSync(t *testing.T) {
	n := NewNode("n")

	e := math.Euler{X: 0.2, Y: -0.7, Z: 0.5}
	n.SetRotationEuler(e)
	assert.Equal(t, e, n.RotationEuler())
	assert.True(t, n.Rotation().ApproxEqual(math.QuatFromEuler(e), tol))

	q := math.QuatFromAxisAngle(math.Vec3{X: 1, Y: 1}.Normalize(), 0.8)
	n.SetRotation(q)
	assert.True(t, math.QuatFromEuler(n.RotationEuler()).ApproxEqual(q, 1e-4))

	n.RotateOnAxis(math.Vec3UnitZ, 0.3)
	assert.True(t, math.QuatFromEuler(n.RotationEuler()).ApproxEqual(n.Rotation(), 1e-4))
}

func TestLookAt(t *testing.T) {
	tests := []struct {
		name    string
		target  math.Vec3
		up      math.Vec3
		forward math.Vec3
	}{
		{"already facing", math.Vec3{Z: -5}, math.Vec3UnitY, math.Vec3{Z: -1}},
		{"exactly opposite", math.Vec3{Z: 5}, math.Vec3UnitY, math.Vec3{Z: 1}},
		{"down parallel to up", math.Vec3{Y: -3}, math.Vec3UnitY, math.Vec3{Y: -1}},
		{"up parallel to up", math.Vec3{Y: 3}, math.Vec3UnitY, math.Vec3{Y: 1}},
		{"oblique", math.Vec3{X: 1, Y: 2, Z: 3}, math.Vec3UnitY, math.Vec3{X: 1, Y: 2, Z: 3}.Normalize()},
		{"zero up uses node up", math.Vec3{X: -4}, math.Vec3Zero, math.Vec3{X: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNode("n")
			n.LookAt(tt.target, tt.up)

			assertVec3(t, tt.forward, n.WorldDirection())
			q := n.Rotation()
			assert.InDelta(t, 1, q.Length(), 1e-5)
		})
	}
}

func TestLookAtAlreadyFacingIsIdentity(t *testing.T) {
	n := NewNode("n")
	n.LookAt(math.Vec3{Z: -1}, math.Vec3UnitY)

	assert.True(t, n.Rotation().ApproxEqual(math.QuatIdentity(), tol))
}

func TestLookAtOppositeIsHalfTurnAroundUp(t *testing.T) {
	n := NewNode("n")
	n.LookAt(math.Vec3{Z: 1}, math.Vec3UnitY)

	want := math.QuatFromAxisAngle(math.Vec3UnitY, math32.Pi)
	assert.True(t, n.Rotation().ApproxEqual(want, tol))
}

func TestLookAtOwnPositionKeepsRotation(t *testing.T) {
	n := NewNode("n")
	n.SetPosition(math.Vec3{X: 1, Y: 1, Z: 1})
	n.SetRotationEuler(math.Euler{Y: 0.5})
	before := n.Rotation()

	n.LookAt(n.Position(), math.Vec3UnitY)

	assert.Equal(t, before, n.Rotation())
}

func TestLookAtFromOffsetPosition(t *testing.T) {
	n := NewNode("n")
	n.SetPosition(math.Vec3{X: 10, Y: 10})
	n.LookAt(math.Vec3Zero, math.Vec3UnitY)

	assertVec3(t, math.Vec3{X: -1, Y: -1}.Normalize(), n.WorldDirection())
}

func TestRotateAndTranslateOnAxis(t *testing.T) {
	n := NewNode("n")
	n.RotateOnAxis(math.Vec3UnitY, math32.Pi/2)
	assertVec3(t, math.Vec3{X: -1}, n.WorldDirection())

	n.TranslateOnAxis(math.Vec3UnitZ, 2)
	assertVec3(t, math.Vec3{X: 2}, n.Position())

	before := n.Position()
	n.TranslateOnAxis(math.Vec3Zero, 5)
	assert.Equal(t, before, n.Position())
}
