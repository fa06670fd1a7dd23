// Package scene provides the transform hierarchy shared by meshes, bones,
// cameras and lights.
//
// Matrices use the column-vector convention of pkg/math: a node's local matrix
// is T * R * S and its world matrix is parent.World * local.
package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/google/uuid"

	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// Node is a transformable object in the scene graph.
//
// The parent link is a plain back-pointer used for removal and world matrix
// composition. A node must never become its own ancestor; no cycle check is
// performed.
type Node struct {
	id      uuid.UUID
	Name    string
	Visible bool

	position math.Vec3
	rotation math.Quat
	euler    math.Euler
	scale    math.Vec3
	up       math.Vec3

	local math.Mat4
	world math.Mat4
	dirty bool

	isBone bool

	parent   *Node
	children []*Node
}

// NewNode creates a node at the origin with identity rotation and unit scale.
func NewNode(name string) *Node {
	return &Node{
		id:       uuid.New(),
		Name:     name,
		Visible:  true,
		rotation: math.QuatIdentity(),
		scale:    math.Vec3One,
		up:       math.Vec3UnitY,
		local:    math.Identity(),
		world:    math.Identity(),
		dirty:    true,
	}
}

// ID returns the node's unique identifier.
func (n *Node) ID() uuid.UUID {
	return n.id
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("Node(%s %s)", n.Name, n.id)
}

// IsBone reports whether the node belongs to a skeleton.
func (n *Node) IsBone() bool {
	return n.isBone
}

// Position returns the local position.
func (n *Node) Position() math.Vec3 {
	return n.position
}

// SetPosition sets the local position.
func (n *Node) SetPosition(p math.Vec3) {
	n.position = p
	n.dirty = true
}

// Rotation returns the local rotation quaternion.
func (n *Node) Rotation() math.Quat {
	return n.rotation
}

// SetRotation sets the local rotation and refreshes the Euler mirror.
func (n *Node) SetRotation(q math.Quat) {
	n.rotation = q.Normalize()
	n.euler = n.rotation.Euler()
	n.dirty = true
}

// RotationEuler returns the Euler mirror of the rotation (X pitch, Y yaw, Z roll).
func (n *Node) RotationEuler() math.Euler {
	return n.euler
}

// SetRotationEuler sets the rotation from Euler angles in radians.
func (n *Node) SetRotationEuler(e math.Euler) {
	n.euler = e
	n.rotation = math.QuatFromEuler(e)
	n.dirty = true
}

// Scale returns the local scale.
func (n *Node) Scale() math.Vec3 {
	return n.scale
}

// SetScale sets the local scale.
func (n *Node) SetScale(s math.Vec3) {
	n.scale = s
	n.dirty = true
}

// Up returns the normalized up vector used by LookAt.
func (n *Node) Up() math.Vec3 {
	return n.up
}

// SetUp sets the up vector used by LookAt. A zero vector is rejected.
func (n *Node) SetUp(up math.Vec3) error {
	if up.IsZero() {
		return fmt.Errorf("%w: zero up vector", ErrInvalidArgument)
	}
	n.up = up.Normalize()
	return nil
}

// Dirty reports whether the local transform changed since the last matrix update.
func (n *Node) Dirty() bool {
	return n.dirty
}

// LocalMatrix returns the local matrix, recomputing it if the node is dirty.
func (n *Node) LocalMatrix() math.Mat4 {
	n.UpdateWorldMatrix(n.dirty, false)
	return n.local
}

// WorldMatrix returns the world matrix after refreshing this node only.
// It reads the parent's cached world matrix; call UpdateWorldMatrix on the
// root first when the ancestors may be stale.
func (n *Node) WorldMatrix() math.Mat4 {
	n.UpdateWorldMatrix(n.dirty, false)
	return n.world
}

// UpdateWorldMatrix recomputes the world matrix from the parent's cached world
// matrix. When the node is dirty or force is set, the local matrix is rebuilt
// and force is passed on to the children, so a dirty ancestor refreshes every
// descendant.
func (n *Node) UpdateWorldMatrix(force, updateChildren bool) {
	if n.dirty || force {
		n.local = math.Compose(n.position, n.rotation, n.scale)
		n.dirty = false
		force = true
	}

	if n.parent == nil {
		n.world = n.local
	} else {
		n.world = n.parent.world.Mul(n.local)
	}

	if updateChildren {
		for _, c := range n.children {
			c.UpdateWorldMatrix(force, true)
		}
	}
}

// Parent returns the parent node or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the child list. Callers must not modify it.
func (n *Node) Children() []*Node {
	return n.children
}

// Add attaches children to n. A child that already has a parent is detached
// from it first. Nil children and n itself are ignored.
func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
}

// Remove detaches children from n. Nodes that are not children of n are ignored.
func (n *Node) Remove(children ...*Node) {
	for _, c := range children {
		for i, existing := range n.children {
			if existing != c {
				continue
			}
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			c.parent = nil
			break
		}
	}
}

// RemoveFromParent detaches n from its parent, if any.
func (n *Node) RemoveFromParent() {
	if n.parent != nil {
		n.parent.Remove(n)
	}
}

// Clear detaches every child.
func (n *Node) Clear() {
	for _, c := range n.children {
		c.parent = nil
	}
	clear(n.children)
	n.children = n.children[:0]
}

// Traverse visits n and then every descendant in depth-first pre-order.
func (n *Node) Traverse(visit func(*Node)) {
	visit(n)
	for _, c := range n.children {
		c.Traverse(visit)
	}
}

// GetObjectByName returns the first node named name in pre-order, or nil.
func (n *Node) GetObjectByName(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.GetObjectByName(name); found != nil {
			return found
		}
	}
	return nil
}

// LookAt rotates the node so its -Z axis points at target. Target is given in
// the parent's space, like the node's position. A zero up falls back to the
// node's own up vector; an up parallel to the view direction is replaced by
// another axis. Looking at the node's own position leaves the rotation as is.
func (n *Node) LookAt(target, up math.Vec3) {
	z := n.position.Sub(target)
	if z.LengthSq() < 1e-12 {
		return
	}
	z = z.Normalize()

	if up.IsZero() {
		up = n.up
	}
	x := up.Cross(z)
	if x.LengthSq() < 1e-12 {
		x = fallbackUp(z).Cross(z)
	}
	x = x.Normalize()
	y := z.Cross(x)

	basis := math.Identity()
	basis[0], basis[1], basis[2] = x.X, x.Y, x.Z
	basis[4], basis[5], basis[6] = y.X, y.Y, y.Z
	basis[8], basis[9], basis[10] = z.X, z.Y, z.Z

	n.SetRotation(math.QuatFromRotationMatrix(basis))
}

// fallbackUp picks the world axis least aligned with dir.
func fallbackUp(dir math.Vec3) math.Vec3 {
	ax, ay, az := math32.Abs(dir.X), math32.Abs(dir.Y), math32.Abs(dir.Z)
	switch {
	case ax <= ay && ax <= az:
		return math.Vec3UnitX
	case ay <= az:
		return math.Vec3UnitY
	default:
		return math.Vec3UnitZ
	}
}

// RotateOnAxis rotates the node by angle radians around a local-space axis.
func (n *Node) RotateOnAxis(axis math.Vec3, angle float32) {
	if axis.IsZero() {
		return
	}
	n.SetRotation(n.rotation.Mul(math.QuatFromAxisAngle(axis.Normalize(), angle)))
}

// TranslateOnAxis moves the node by distance along a local-space axis.
func (n *Node) TranslateOnAxis(axis math.Vec3, distance float32) {
	if axis.IsZero() {
		return
	}
	d := n.rotation.RotateVec3(axis.Normalize()).Scale(distance)
	n.SetPosition(n.position.Add(d))
}

// WorldPosition returns the translation of the world matrix.
func (n *Node) WorldPosition() math.Vec3 {
	return n.WorldMatrix().Translation()
}

// WorldDirection returns the world-space -Z axis, the direction the node faces.
func (n *Node) WorldDirection() math.Vec3 {
	return n.WorldMatrix().Forward()
}
