package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/pkg/math"
)

// Skeleton turns bone world matrices into skinning matrices.
//
// Bone order defines the index used by the skinning shader. Update reads the
// bones' cached world matrices; the caller must refresh the bone hierarchy with
// UpdateWorldMatrix first or the output will be stale.
type Skeleton struct {
	bones    []*Bone
	inverses []math.Mat4
	matrices []math.Mat4
	texture  []float32
}

// NewSkeleton binds bones to inverse-bind matrices. When inverses is empty they
// are captured from the bones' current world matrices (the rest pose).
func NewSkeleton(bones []*Bone, inverses []math.Mat4) (*Skeleton, error) {
	if len(inverses) != 0 && len(inverses) != len(bones) {
		return nil, fmt.Errorf("%w: %d bones but %d inverse bind matrices",
			ErrInvalidArgument, len(bones), len(inverses))
	}
	for i, b := range bones {
		if b == nil || b.Node == nil {
			return nil, fmt.Errorf("%w: bone %d is nil", ErrInvalidArgument, i)
		}
	}

	s := &Skeleton{
		bones:    append([]*Bone(nil), bones...),
		inverses: make([]math.Mat4, len(bones)),
		matrices: make([]math.Mat4, len(bones)),
		texture:  make([]float32, len(bones)*16),
	}
	if len(inverses) == 0 {
		s.CalculateInverses()
	} else {
		copy(s.inverses, inverses)
	}
	for i := range s.matrices {
		s.matrices[i] = math.Identity()
	}

	logger.Named("scene").Debug("skeleton bound", zap.Int("bones", len(bones)))
	return s, nil
}

// CalculateInverses captures the inverse of every bone's cached world matrix
// as its inverse-bind matrix.
func (s *Skeleton) CalculateInverses() {
	for i, b := range s.bones {
		s.inverses[i] = b.world.Inverse()
	}
}

// Pose moves the bones back to the bind pose described by the inverse-bind
// matrices. Bones whose parent is not a bone take the bind matrix as their
// local transform.
func (s *Skeleton) Pose() {
	for i, b := range s.bones {
		b.world = s.inverses[i].Inverse()
	}

	for _, b := range s.bones {
		local := b.world
		if b.parent != nil && b.parent.isBone {
			local = b.parent.world.Inverse().Mul(b.world)
		}
		pos, rot, scale := local.Decompose()
		b.SetPosition(pos)
		b.SetRotation(rot)
		b.SetScale(scale)
	}
}

// Update recomputes every skinning matrix as bone.World * inverseBind and
// flattens them into the bone texture.
func (s *Skeleton) Update() {
	for i, b := range s.bones {
		s.matrices[i] = b.world.Mul(s.inverses[i])
		copy(s.texture[i*16:(i+1)*16], s.matrices[i][:])
	}
}

// Bones returns the bones in skinning order. Callers must not modify it.
func (s *Skeleton) Bones() []*Bone {
	return s.bones
}

// BoneInverses returns the inverse-bind matrices. Callers must not modify it.
func (s *Skeleton) BoneInverses() []math.Mat4 {
	return s.inverses
}

// BoneMatrices returns the skinning matrices from the last Update.
func (s *Skeleton) BoneMatrices() []math.Mat4 {
	return s.matrices
}

// BoneTexture returns the skinning matrices flattened to 16 floats each, in
// column-major order ready for upload.
func (s *Skeleton) BoneTexture() []float32 {
	return s.texture
}

// BoneAt returns the bone at index i.
func (s *Skeleton) BoneAt(i int) (*Bone, error) {
	if i < 0 || i >= len(s.bones) {
		return nil, fmt.Errorf("%w: bone %d of %d", ErrIndexOutOfRange, i, len(s.bones))
	}
	return s.bones[i], nil
}

// InverseAt returns the inverse-bind matrix at index i.
func (s *Skeleton) InverseAt(i int) (math.Mat4, error) {
	if i < 0 || i >= len(s.inverses) {
		return math.Mat4{}, fmt.Errorf("%w: inverse %d of %d", ErrIndexOutOfRange, i, len(s.inverses))
	}
	return s.inverses[i], nil
}

// GetBoneByName returns the first bone with the given name, or nil.
func (s *Skeleton) GetBoneByName(name string) *Bone {
	if i := s.GetBoneIndexByName(name); i >= 0 {
		return s.bones[i]
	}
	return nil
}

// GetBoneIndexByName returns the index of the first bone with the given name, or -1.
func (s *Skeleton) GetBoneIndexByName(name string) int {
	for i, b := range s.bones {
		if b.Name == name {
			return i
		}
	}
	return -1
}
