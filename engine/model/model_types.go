package model

import "github.com/Carmen-Shannon/oxy-render/common"

// Bone represents a single bone in a skeleton hierarchy.
type Bone struct {
	// Name is the bone's identifier (for debugging and animation targeting).
	Name string

	// ParentIndex is the index of the parent bone (-1 for root bones).
	ParentIndex int32

	// InverseBindMatrix transforms from model space to bone space at bind pose.
	InverseBindMatrix common.Mat4

	// BindMatrix is the bone's model-space transform at bind pose.
	BindMatrix common.Mat4
}

// Skeleton represents a bone hierarchy for skeletal animation.
// Bones are ordered so that parents precede their children.
type Skeleton struct {
	Bones []Bone
}

// NumBones returns the number of bones.
func (s *Skeleton) NumBones() int {
	if s == nil {
		return 0
	}
	return len(s.Bones)
}

// SkinMatrices converts model-space bone poses into skinning matrices (pose * inverse bind).
//
// Parameters:
//   - poses: one model-space transform per bone
//   - out: destination, resized to NumBones
//
// Returns:
//   - []common.Mat4: the skinning matrices
func (s *Skeleton) SkinMatrices(poses []common.Mat4, out []common.Mat4) []common.Mat4 {
	out = out[:0]
	for i, b := range s.Bones {
		pose := b.BindMatrix
		if i < len(poses) {
			pose = poses[i]
		}
		out = append(out, pose.Mul(b.InverseBindMatrix))
	}
	return out
}
