package game_object

import (
	"sync"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

type countingUpdater struct {
	mu     sync.Mutex
	queued []drawable.Drawable
}

func (u *countingUpdater) QueueUpdate(d drawable.Drawable) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.queued = append(u.queued, d)
}

type recordingParams struct {
	matrices []common.Mat4
}

func (p *recordingParams) SetSkinMatrices(m []common.Mat4) {
	p.matrices = m
}

func TestGameObjectMovesDrawableBounds(t *testing.T) {
	sm := NewStaticModel(model.NewBoxModel("box", common.Vec3{0.5, 0.5, 0.5}))
	obj := NewGameObject(WithPosition(common.Vec3{10, 0, 0}), WithDrawables(sm))

	box := sm.WorldBoundingBox()
	assert.InDelta(t, 9.5, box.Min[0], 1e-5)
	assert.InDelta(t, 10.5, box.Max[0], 1e-5)

	u := &countingUpdater{}
	sm.SetUpdater(u)
	obj.SetPosition(common.Vec3{0, 5, 0})
	require.Len(t, u.queued, 1)
	assert.Same(t, sm, u.queued[0].(*StaticModel))

	box = sm.WorldBoundingBox()
	assert.InDelta(t, 4.5, box.Min[1], 1e-5)
	assert.InDelta(t, 0, box.Center()[0], 1e-5)
}

func TestGameObjectUpdateAppliesSpeeds(t *testing.T) {
	obj := NewGameObject(WithRotationSpeed(common.Vec3{0, 1, 0}), WithVelocity(common.Vec3{2, 0, 0}))
	assert.True(t, obj.Update(0.5))
	assert.InDelta(t, 0.5, obj.Rotation()[1], 1e-6)
	assert.InDelta(t, 1, obj.Position()[0], 1e-6)

	still := NewGameObject()
	assert.False(t, still.Update(1))
}

func TestGameObjectStaticPropagatesToDrawables(t *testing.T) {
	sm := NewStaticModel(model.NewBoxModel("box", common.Vec3One))
	obj := NewGameObject(WithStatic(true), WithDrawables(sm))
	assert.True(t, sm.Flags().Has(drawable.FlagStatic))
	obj.SetStatic(false)
	assert.False(t, sm.Flags().Has(drawable.FlagStatic))
}

func TestGameObjectSetDirection(t *testing.T) {
	obj := NewGameObject()
	obj.SetDirection(common.Vec3{1, 0, 0})
	dir := obj.WorldDirection()
	assert.InDelta(t, 1, dir[0], 1e-5)
	assert.InDelta(t, 0, dir[2], 1e-5)
}

func TestStaticModelSelectsLod(t *testing.T) {
	m := model.NewBoxModel("box", common.Vec3{0.5, 0.5, 0.5}, 20, 50)
	sm := NewStaticModel(m)
	require.True(t, sm.Flags().Has(drawable.FlagHasLOD))
	obj := NewGameObject(WithDrawables(sm))

	cam := camera.NewCamera(camera.WithPosition(common.Vec3{0, 0, 10}), camera.WithDirection(common.Vec3{0, 0, -1}))
	require.True(t, sm.OnPrepareRender(1, cam))
	assert.Same(t, m.Geometry(0, 0), sm.Batches()[0].Geometry)

	obj.SetPosition(common.Vec3{0, 0, -20})
	require.True(t, sm.OnPrepareRender(2, cam))
	assert.Same(t, m.Geometry(0, 1), sm.Batches()[0].Geometry)

	obj.SetPosition(common.Vec3{0, 0, -100})
	require.True(t, sm.OnPrepareRender(3, cam))
	assert.Same(t, m.Geometry(0, 2), sm.Batches()[0].Geometry)

	sm.SetLodBias(10)
	require.True(t, sm.OnPrepareRender(4, cam))
	assert.Same(t, m.Geometry(0, 0), sm.Batches()[0].Geometry)
}

func TestStaticModelMaxDistance(t *testing.T) {
	sm := NewStaticModel(model.NewBoxModel("box", common.Vec3One))
	NewGameObject(WithPosition(common.Vec3{0, 0, -50}), WithDrawables(sm))
	sm.SetMaxDistance(10)

	cam := camera.NewCamera()
	assert.False(t, sm.OnPrepareRender(7, cam))
	assert.False(t, sm.InView(7))

	sm.SetMaxDistance(0)
	assert.True(t, sm.OnPrepareRender(8, cam))
	assert.True(t, sm.InView(8))
}

func TestStaticModelRaycastUsesLocalBox(t *testing.T) {
	sm := NewStaticModel(model.NewBoxModel("box", common.Vec3{1, 1, 1}))
	NewGameObject(WithPosition(common.Vec3{0, 0, -10}), WithRotation(common.Vec3{0, math32.Pi / 4, 0}), WithDrawables(sm))

	d, ok := sm.OnRaycast(common.NewRay(common.Vec3Zero, common.Vec3Forward))
	require.True(t, ok)
	assert.InDelta(t, 10-math32.Sqrt2, d, 1e-4)

	_, ok = sm.OnRaycast(common.NewRay(common.Vec3{1.3, 1.3, 0}, common.Vec3Forward))
	assert.False(t, ok)
}

func TestSkinnedModelUploadsSkinMatrices(t *testing.T) {
	skel := model.NewTwoBoneSkeleton(1)
	m := model.NewModel(
		model.WithName("arm"),
		model.WithGeometry(model.NewSkinnedBoxGeometry("arm", common.Vec3{0.2, 1, 0.2}, [4]float32{1, 1, 1, 1})),
		model.WithSkeleton(skel),
	)
	sk := NewSkinnedModel(m)
	NewGameObject(WithDrawables(sk))
	assert.True(t, sk.Flags().Has(drawable.FlagSkinned))

	params := &recordingParams{}
	sk.OnRender(params, 0)
	require.Len(t, params.matrices, 2)
	assert.Equal(t, common.Identity4(), params.matrices[1])

	sk.SetAnimation(func(tm float32, s *model.Skeleton, poses []common.Mat4) {
		common.BuildModelMatrix(poses[1][:], tm, 1, 0, 0, 0, 0, 1, 1, 1)
	})
	require.True(t, sk.Advance(2))

	cam := camera.NewCamera(camera.WithPosition(common.Vec3{0, 0, 10}))
	require.True(t, sk.OnPrepareRender(1, cam))
	sk.OnRender(params, 0)
	assert.InDelta(t, 2, params.matrices[1].Translation()[0], 1e-5)
	assert.InDelta(t, 0, params.matrices[1].Translation()[1], 1e-5)
}

func TestSkinnedModelRequiresSkeleton(t *testing.T) {
	assert.Panics(t, func() { NewSkinnedModel(model.NewBoxModel("box", common.Vec3One)) })
}
