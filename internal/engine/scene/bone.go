package scene

// Bone is a node that belongs to a skeleton. Bones are linked into the scene
// graph through their embedded Node, typically under the skinned mesh.
type Bone struct {
	*Node
}

// NewBone creates a bone at the origin.
func NewBone(name string) *Bone {
	n := NewNode(name)
	n.isBone = true
	return &Bone{Node: n}
}

// AddBone attaches child under b.
func (b *Bone) AddBone(child *Bone) {
	b.Add(child.Node)
}
