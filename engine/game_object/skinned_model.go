package game_object

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

// PoseFunc writes model-space bone transforms for time t (seconds) into poses.
type PoseFunc func(t float32, skeleton *model.Skeleton, poses []common.Mat4)

// SkinnedModel is a StaticModel deformed by a skeleton. It produces complex batches:
// the renderer calls OnRender before each draw so the skin matrices can be uploaded.
type SkinnedModel struct {
	StaticModel

	mu           sync.Mutex
	skeleton     *model.Skeleton
	poses        []common.Mat4
	skinMatrices []common.Mat4
	posesDirty   bool
	animate      PoseFunc
	time         float32
}

var _ drawable.GeometryDrawable = &SkinnedModel{}

// NewSkinnedModel creates a skinned geometry drawable. The model must carry a skeleton.
//
// Parameters:
//   - m: the skinned model
//   - materials: one material per sub-mesh
//
// Returns:
//   - *SkinnedModel: the drawable
func NewSkinnedModel(m model.Model, materials ...material.Material) *SkinnedModel {
	if m.Skeleton() == nil {
		panic("game_object: skinned model requires a skeleton")
	}
	s := &SkinnedModel{skeleton: m.Skeleton()}
	s.StaticModel.init(s, m, drawable.FlagGeometry|drawable.FlagCastShadows|drawable.FlagSkinned, materials)

	s.poses = make([]common.Mat4, s.skeleton.NumBones())
	for i, b := range s.skeleton.Bones {
		s.poses[i] = b.BindMatrix
	}
	s.skinMatrices = s.skeleton.SkinMatrices(s.poses, nil)
	return s
}

// Skeleton returns the model's skeleton.
func (s *SkinnedModel) Skeleton() *model.Skeleton {
	return s.skeleton
}

// SetAnimation installs the function producing bone poses on every Advance.
func (s *SkinnedModel) SetAnimation(fn PoseFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animate = fn
}

// SetBonePose sets one bone's model-space transform.
func (s *SkinnedModel) SetBonePose(index int, pose common.Mat4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.poses) {
		return
	}
	s.poses[index] = pose
	s.posesDirty = true
}

// Advance moves the animation clock forward by dt seconds.
//
// Returns:
//   - bool: true if an animation is installed and the poses changed
func (s *SkinnedModel) Advance(dt float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.animate == nil {
		return false
	}
	s.time += dt
	s.animate(s.time, s.skeleton, s.poses)
	s.posesDirty = true
	return true
}

// SkinMatrices returns the skin matrices computed for the last rendered frame.
func (s *SkinnedModel) SkinMatrices() []common.Mat4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skinMatrices
}

func (s *SkinnedModel) OnPrepareRender(frameNumber uint32, cam camera.Camera) bool {
	if !s.StaticModel.OnPrepareRender(frameNumber, cam) {
		return false
	}
	s.mu.Lock()
	if s.posesDirty {
		s.skinMatrices = s.skeleton.SkinMatrices(s.poses, s.skinMatrices)
		s.posesDirty = false
	}
	s.mu.Unlock()
	return true
}

func (s *SkinnedModel) OnRender(params drawable.ShaderParams, geometryIndex int) {
	params.SetSkinMatrices(s.SkinMatrices())
}
