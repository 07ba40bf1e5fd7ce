package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/octree"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

func newTestScene(t *testing.T, options ...SceneBuilderOption) Scene {
	t.Helper()
	wq := work_queue.NewWorkQueue(work_queue.WithWorkers(2))
	s := NewScene("test", wq, append([]SceneBuilderOption{WithComputeWorkers(2)}, options...)...)
	t.Cleanup(func() {
		s.Close()
		wq.Close()
	})
	return s
}

func cube(pos common.Vec3, options ...game_object.GameObjectBuilderOption) game_object.GameObject {
	m := model.NewBoxModel("cube", common.Vec3{0.5, 0.5, 0.5})
	options = append([]game_object.GameObjectBuilderOption{
		game_object.WithPosition(pos),
		game_object.WithDrawables(game_object.NewStaticModel(m)),
	}, options...)
	return game_object.NewGameObject(options...)
}

func findAll(s Scene) []drawable.Drawable {
	box := common.NewBox(common.Vec3{-500, -500, -500}, common.Vec3{500, 500, 500})
	return s.Octree().FindDrawables(nil, box, 0)
}

func TestNewSceneRequiresWorkQueue(t *testing.T) {
	assert.Panics(t, func() { NewScene("nil", nil) })
}

func TestAddAssignsIDsAndInsertsOnUpdate(t *testing.T) {
	s := newTestScene(t)
	a := s.Add(cube(common.Vec3{}))
	b := s.Add(cube(common.Vec3{3, 0, 0}))
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Count())
	assert.NotNil(t, s.Get(a))
	assert.Zero(t, s.FrameNumber())

	s.Update(0.016)
	assert.Equal(t, uint32(1), s.FrameNumber())
	assert.Zero(t, s.Octree().NumPendingUpdates())

	found := findAll(s)
	require.Len(t, found, 2)
	for _, d := range found {
		assert.NotEqual(t, octree.NoOctant, d.DrawableBase().Octant())
		assert.Equal(t, uint32(1), d.DrawableBase().LastMoveFrame())
	}
}

func TestAddIsIdempotent(t *testing.T) {
	s := newTestScene(t)
	obj := cube(common.Vec3{})
	id := s.Add(obj)
	assert.Equal(t, id, s.Add(obj))
	assert.Equal(t, 1, s.Count())
}

func TestInitialObjects(t *testing.T) {
	s := newTestScene(t, WithObjects(cube(common.Vec3{}), cube(common.Vec3{1, 1, 1})))
	assert.Equal(t, 2, s.Count())
	s.Update(0.016)
	assert.Len(t, findAll(s), 2)
}

func TestUpdateMovesDynamicObjects(t *testing.T) {
	s := newTestScene(t)
	moving := cube(common.Vec3{}, game_object.WithVelocity(common.Vec3{10, 0, 0}))
	still := cube(common.Vec3{0, 5, 0}, game_object.WithStatic(true), game_object.WithVelocity(common.Vec3{10, 0, 0}))
	s.Add(moving)
	s.Add(still)
	s.Update(0)

	s.Update(1)
	assert.InDelta(t, 10, moving.Position()[0], 1e-4)
	assert.Equal(t, common.Vec3{0, 5, 0}, still.Position(), "static objects are not ticked")

	d := moving.Drawables()[0].DrawableBase()
	assert.Equal(t, uint32(2), d.LastMoveFrame())
	assert.Equal(t, uint32(1), still.Drawables()[0].DrawableBase().LastMoveFrame())
	assert.True(t, s.Octree().Octant(d.Octant()).CullingBox().ContainsPoint(common.Vec3{10, 0, 0}))
}

func TestManyObjectsTickInParallel(t *testing.T) {
	s := newTestScene(t)
	var objs []game_object.GameObject
	for i := range 300 {
		obj := cube(common.Vec3{float32(i % 20), 0, float32(i / 20)}, game_object.WithVelocity(common.Vec3{0, 1, 0}))
		objs = append(objs, obj)
		s.Add(obj)
	}
	s.Update(0.5)
	for _, obj := range objs {
		assert.InDelta(t, 0.5, obj.Position()[1], 1e-4)
	}
	assert.Len(t, findAll(s), 300)
}

func TestLightsAndRemove(t *testing.T) {
	s := newTestScene(t)
	l := light.NewLight(light.LightTypePoint, light.WithRange(4))
	id := s.Add(game_object.NewGameObject(game_object.WithDrawables(l)))
	s.Add(cube(common.Vec3{}))
	require.Len(t, s.Lights(), 1)
	assert.Same(t, l, s.Lights()[0])

	s.Update(0.016)
	s.Remove(id)
	assert.Empty(t, s.Lights())
	assert.Nil(t, s.Get(id))
	s.Update(0.016)
	assert.Len(t, findAll(s), 1)

	s.Clear()
	assert.Zero(t, s.Count())
	s.Update(0.016)
	assert.Empty(t, findAll(s))
}

func TestResizeReinsertsOnUpdate(t *testing.T) {
	s := newTestScene(t)
	s.Add(cube(common.Vec3{40, 0, 0}))
	s.Update(0.016)

	s.Resize(common.NewBox(common.Vec3{-100, -100, -100}, common.Vec3{100, 100, 100}), 5)
	s.Update(0.016)
	found := s.Octree().FindDrawables(nil, common.NewBox(common.Vec3{30, -10, -10}, common.Vec3{50, 10, 10}), 0)
	assert.Len(t, found, 1)
}

func TestAmbientColorAndName(t *testing.T) {
	s := newTestScene(t, WithAmbientColor([3]float32{0.2, 0.3, 0.4}))
	assert.Equal(t, [3]float32{0.2, 0.3, 0.4}, s.AmbientColor())
	s.SetAmbientColor([3]float32{1, 1, 1})
	assert.Equal(t, [3]float32{1, 1, 1}, s.AmbientColor())
	s.SetName("level")
	assert.Equal(t, "level", s.Name())
}
