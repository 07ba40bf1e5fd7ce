package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

type fixture struct {
	passA, passB *material.Pass
	alpha        *material.Pass
	geomA, geomB *model.Geometry
	transforms   []common.Mat4
}

func newFixture() *fixture {
	f := &fixture{
		passA: material.NewMaterial(material.WithName("a")).Pass(material.PassOpaque),
		passB: material.NewMaterial(material.WithName("b")).Pass(material.PassOpaque),
		alpha: material.NewMaterial(material.WithName("glass"), material.WithAlpha()).Pass(material.PassAlpha),
		geomA: model.NewBoxGeometry("a", common.Vec3{1, 1, 1}, [4]float32{1, 1, 1, 1}),
		geomB: model.NewBoxGeometry("b", common.Vec3{1, 1, 1}, [4]float32{1, 1, 1, 1}),
	}
	f.transforms = make([]common.Mat4, 16)
	for i := range f.transforms {
		f.transforms[i] = common.Identity4()
		f.transforms[i][12] = float32(i)
	}
	return f
}

func (f *fixture) static(pass *material.Pass, geom *model.Geometry, transform int, distance float32) Batch {
	return Batch{
		Pass:     pass,
		Geometry: geom,
		Distance: distance,
		Payload:  Static{Transform: &f.transforms[transform]},
	}
}

func TestSortStateGroupsAndInstances(t *testing.T) {
	f := newFixture()
	var q Queue
	q.Add(f.static(f.passB, f.geomA, 0, 1))
	q.Add(f.static(f.passA, f.geomA, 1, 2))
	q.Add(f.static(f.passB, f.geomA, 2, 3))
	q.Add(f.static(f.passA, f.geomB, 3, 4))
	q.Add(f.static(f.passA, f.geomA, 4, 5))

	instances := NewInstanceBuffer(0)
	q.Sort(SortState, instances)

	require.Equal(t, 5, q.Len())
	assert.Equal(t, 3, q.NumDraws())

	var draws []Batch
	q.Each(func(_ int, b *Batch) { draws = append(draws, *b) })
	require.Len(t, draws, 3)

	// passA ids are smaller than passB ids since they were created first
	assert.Same(t, f.passA, draws[0].Pass)
	assert.Same(t, f.geomA, draws[0].Geometry)
	assert.Equal(t, Instanced{Start: 0, Count: 2}, draws[0].Payload)
	assert.Same(t, f.geomB, draws[1].Geometry)
	assert.True(t, draws[1].IsStatic())
	assert.Same(t, f.passB, draws[2].Pass)
	assert.Equal(t, Instanced{Start: 2, Count: 2}, draws[2].Payload)

	require.Equal(t, 4, instances.Len())
	assert.Equal(t, []float32{1, 4, 0, 2}, []float32{
		instances.Transforms()[0][12], instances.Transforms()[1][12],
		instances.Transforms()[2][12], instances.Transforms()[3][12],
	})
}

func TestInstancingRequiresEqualStateAndStaticKind(t *testing.T) {
	f := newFixture()
	var q Queue
	q.Add(f.static(f.passA, f.geomA, 0, 1))
	lit := f.static(f.passA, f.geomA, 1, 1)
	lit.LightMask = LightMaskDirectional
	q.Add(lit)
	q.Add(Batch{Pass: f.passA, Geometry: f.geomA, Payload: Complex{}})
	q.Add(f.static(f.passA, f.geomA, 2, 1))

	instances := NewInstanceBuffer(0)
	q.Sort(SortState, instances)

	// the complex batch sits between the two unlit statics after a stable sort
	assert.Equal(t, 4, q.NumDraws())
	assert.Zero(t, instances.Len())
	for _, b := range q.Batches {
		_, instanced := b.Payload.(Instanced)
		assert.False(t, instanced)
	}
}

func TestSortWithoutInstanceBufferKeepsStatics(t *testing.T) {
	f := newFixture()
	var q Queue
	for i := range 4 {
		q.Add(f.static(f.passA, f.geomA, i, float32(i)))
	}
	q.Sort(SortState, nil)
	assert.Equal(t, 4, q.NumDraws())
}

func TestInstanceBufferOverflowLeavesStatics(t *testing.T) {
	f := newFixture()
	var q Queue
	for i := range 3 {
		q.Add(f.static(f.passA, f.geomA, i, 0))
	}
	for i := 3; i < 5; i++ {
		q.Add(f.static(f.passB, f.geomA, i, 0))
	}
	instances := NewInstanceBuffer(2)
	q.Sort(SortState, instances)

	assert.Equal(t, 4, q.NumDraws())
	assert.Equal(t, 3, instances.Dropped())
	assert.Equal(t, 2, instances.Len())

	instances.Reset()
	assert.Zero(t, instances.Dropped())
	assert.Zero(t, instances.Len())
}

func TestSortStateDistanceUsesSortKeys(t *testing.T) {
	f := newFixture()
	const frame = 7
	f.passA.SortKey.Record(frame, 50)
	f.passB.SortKey.Record(frame, 5)
	f.geomA.SortKey.Record(frame, 50)
	f.geomB.SortKey.Record(frame, 5)

	var q Queue
	q.Add(f.static(f.passA, f.geomA, 0, 50))
	q.Add(f.static(f.passB, f.geomA, 1, 60))
	q.Add(f.static(f.passB, f.geomB, 2, 5))
	q.Add(f.static(f.passB, f.geomA, 3, 55))
	q.Sort(SortStateDistance, nil)

	// passB was seen closest, and within it geomB
	assert.Same(t, f.passB, q.Batches[0].Pass)
	assert.Same(t, f.geomB, q.Batches[0].Geometry)
	assert.Equal(t, float32(55), q.Batches[1].Distance)
	assert.Equal(t, float32(60), q.Batches[2].Distance)
	assert.Same(t, f.passA, q.Batches[3].Pass)
}

func TestSortDistanceIsBackToFrontAndNeverInstanced(t *testing.T) {
	f := newFixture()
	var q Queue
	for i, d := range []float32{3, 9, 1, 5} {
		q.Add(f.static(f.alpha, f.geomA, i, d))
	}
	instances := NewInstanceBuffer(0)
	q.Sort(SortDistance, instances)

	var got []float32
	q.Each(func(_ int, b *Batch) { got = append(got, b.Distance) })
	assert.Equal(t, []float32{9, 5, 3, 1}, got)
	assert.Zero(t, instances.Len())
}

func TestClear(t *testing.T) {
	f := newFixture()
	var q Queue
	q.Append([]Batch{f.static(f.passA, f.geomA, 0, 0), f.static(f.passA, f.geomA, 1, 0)})
	q.Clear()
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.NumDraws())
}
