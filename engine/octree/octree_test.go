package octree

import (
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

type boxDrawable struct {
	drawable.Base
	updates atomic.Int32
}

func newBoxDrawable(box common.Box, flags drawable.Flags) *boxDrawable {
	d := &boxDrawable{}
	d.Init(d, flags)
	d.SetLocalBoundingBox(box)
	return d
}

func (d *boxDrawable) OnOctreeUpdate(frameNumber uint32) {
	d.updates.Add(1)
}

func unitBoxAt(p common.Vec3) common.Box {
	return common.BoxFromCenter(p, common.Vec3{0.5, 0.5, 0.5})
}

func newTestOctree(t *testing.T, workers int) (Octree, work_queue.WorkQueue) {
	q := work_queue.NewWorkQueue(work_queue.WithWorkers(workers))
	t.Cleanup(q.Close)
	size := common.Vec3{100, 100, 100}
	return NewOctree(q, WithBounds(common.NewBox(size.Negate(), size)), WithLevels(6)), q
}

func settle(o Octree, frame uint32) {
	o.Update(frame)
	o.FinishUpdate()
}

// checkFitInvariant verifies every drawable sits in an octant whose fitting box holds it
// and that no deeper child would have accepted it.
func checkFitInvariant(t *testing.T, o Octree, ds []*boxDrawable) {
	t.Helper()
	for _, d := range ds {
		oct := o.Octant(d.Octant())
		require.NotNil(t, oct, "drawable must be resident")
		box := d.WorldBoundingBox()
		if oct.ID() != o.Root().ID() {
			assert.Equal(t, common.Inside, oct.FittingBox().IsInside(box))
		}
		assert.True(t, oct.fitBoundingBox(box, box.Size()), "a child octant could hold the drawable")
		assert.Contains(t, oct.Drawables(), drawable.Drawable(d))
	}
}

func TestInsertPlacesDrawableDeep(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	small := newBoxDrawable(unitBoxAt(common.Vec3{10, 10, 10}), drawable.FlagGeometry)
	huge := newBoxDrawable(common.NewBox(common.Vec3{-150, -1, -1}, common.Vec3{150, 1, 1}), drawable.FlagGeometry)
	o.AddDrawable(small)
	o.AddDrawable(huge)
	assert.Equal(t, NoOctant, small.Octant())
	assert.Equal(t, 2, o.NumPendingUpdates())

	settle(o, 1)
	checkFitInvariant(t, o, []*boxDrawable{small, huge})
	assert.Equal(t, o.Root().ID(), huge.Octant(), "boxes larger than the root stay in the root")
	assert.Greater(t, o.Octant(small.Octant()).Level(), 0)
	assert.Less(t, o.Octant(small.Octant()).Level(), 6)
	assert.False(t, small.Flags().Has(drawable.FlagReinsertQueued))
	assert.Equal(t, 0, o.NumPendingUpdates())

	root := o.Root().CullingBox()
	assert.Equal(t, common.Inside, root.IsInside(small.WorldBoundingBox()))
}

func TestChildIndex(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	root := o.Root()
	assert.Equal(t, 0, root.childIndexOf(common.Vec3{-1, -1, -1}))
	assert.Equal(t, 1, root.childIndexOf(common.Vec3{1, -1, -1}))
	assert.Equal(t, 2, root.childIndexOf(common.Vec3{-1, 1, -1}))
	assert.Equal(t, 4, root.childIndexOf(common.Vec3{-1, -1, 1}))
	assert.Equal(t, 7, root.childIndexOf(common.Vec3{1, 1, 1}))
}

func TestReinsertionIsIdempotent(t *testing.T) {
	o, _ := newTestOctree(t, 2)
	var ds []*boxDrawable
	r := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		p := common.Vec3{r.Float32()*180 - 90, r.Float32()*180 - 90, r.Float32()*180 - 90}
		d := newBoxDrawable(unitBoxAt(p), drawable.FlagGeometry)
		o.AddDrawable(d)
		ds = append(ds, d)
	}
	settle(o, 1)
	checkFitInvariant(t, o, ds)

	before := make([]int32, len(ds))
	for i, d := range ds {
		before[i] = d.Octant()
	}
	numOctants := o.NumOctants()

	settle(o, 2)
	for i, d := range ds {
		assert.Equal(t, before[i], d.Octant())
	}
	assert.Equal(t, numOctants, o.NumOctants())
	for _, q := range o.(*octreeImpl).reinsertQueues {
		assert.Empty(t, q)
	}
}

func TestThreadedUpdateMatchesSynchronous(t *testing.T) {
	syncTree, _ := newTestOctree(t, 0)
	threaded, _ := newTestOctree(t, 4)

	r := rand.New(rand.NewPCG(7, 9))
	var a, b []*boxDrawable
	for range 500 {
		p := common.Vec3{r.Float32()*190 - 95, r.Float32()*190 - 95, r.Float32()*190 - 95}
		half := common.Vec3{r.Float32() * 3, r.Float32() * 3, r.Float32() * 3}
		da := newBoxDrawable(common.BoxFromCenter(p, half), drawable.FlagGeometry)
		db := newBoxDrawable(common.BoxFromCenter(p, half), drawable.FlagGeometry)
		syncTree.AddDrawable(da)
		threaded.AddDrawable(db)
		a = append(a, da)
		b = append(b, db)
	}
	settle(syncTree, 1)
	settle(threaded, 1)
	checkFitInvariant(t, threaded, b)

	for i := range a {
		sa := syncTree.Octant(a[i].Octant())
		sb := threaded.Octant(b[i].Octant())
		assert.Equal(t, sa.Center(), sb.Center())
		assert.Equal(t, sa.Level(), sb.Level())
	}
	assert.Equal(t, syncTree.NumOctants(), threaded.NumOctants())
}

func TestMovedDrawableLeavesEmptyBranch(t *testing.T) {
	o, _ := newTestOctree(t, 2)
	d := newBoxDrawable(unitBoxAt(common.Vec3{50, 50, 50}), drawable.FlagGeometry|drawable.FlagOctreeUpdateCall)
	o.AddDrawable(d)
	settle(o, 1)
	deep := o.NumOctants()
	require.Greater(t, deep, 1)
	first := d.Octant()

	d.SetLocalBoundingBox(unitBoxAt(common.Vec3{-50, -50, -50}))
	assert.True(t, d.Flags().Has(drawable.FlagReinsertQueued))
	settle(o, 2)

	assert.NotEqual(t, first, d.Octant())
	assert.Equal(t, deep, o.NumOctants(), "the old branch is deleted when the new one is created")
	assert.Equal(t, int32(2), d.updates.Load())
	assert.Equal(t, uint32(2), d.LastMoveFrame())
	checkFitInvariant(t, o, []*boxDrawable{d})

	// a small move inside the fitting box keeps the octant but refreshes the culling box
	d.SetLocalBoundingBox(unitBoxAt(common.Vec3{-50.2, -50, -50}))
	settle(o, 3)
	oct := o.Octant(d.Octant())
	assert.InDelta(t, -50.7, oct.CullingBox().Min[0], 1e-4)
}

func occurrences(o Octree, d drawable.Drawable) int {
	n := 0
	for _, found := range o.FindDrawables(nil, common.LargeBox(), 0) {
		if found == d {
			n++
		}
	}
	return n
}

func TestMoveAcrossOctantsThenRemove(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	d := newBoxDrawable(unitBoxAt(common.Vec3{50, 50, 50}), drawable.FlagGeometry)
	o.AddDrawable(d)
	settle(o, 1)

	d.SetLocalBoundingBox(unitBoxAt(common.Vec3{-50, -50, -50}))
	settle(o, 2)
	moved := d.Octant()
	require.NotEqual(t, NoOctant, moved)
	assert.Contains(t, o.Octant(moved).Drawables(), drawable.Drawable(d))
	assert.Equal(t, 1, occurrences(o, d))

	d.SetLocalBoundingBox(unitBoxAt(common.Vec3{-50.2, -50, -50}))
	settle(o, 3)
	assert.Equal(t, moved, d.Octant())
	assert.Equal(t, 1, occurrences(o, d))

	o.RemoveDrawable(d)
	assert.Equal(t, NoOctant, d.Octant())
	assert.Equal(t, 0, occurrences(o, d))
	assert.Equal(t, 1, o.NumOctants())
}

func TestRemoveDrawable(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	kept := newBoxDrawable(unitBoxAt(common.Vec3{-20, 0, 0}), drawable.FlagGeometry)
	removed := newBoxDrawable(unitBoxAt(common.Vec3{20, 20, 20}), drawable.FlagGeometry)
	o.AddDrawable(kept)
	o.AddDrawable(removed)
	settle(o, 1)

	o.RemoveDrawable(removed)
	assert.Equal(t, NoOctant, removed.Octant())
	settle(o, 2)
	assert.Len(t, o.FindDrawables(nil, common.LargeBox(), 0), 1)

	// removing a drawable that is still queued drops the queue entry
	pending := newBoxDrawable(unitBoxAt(common.Vec3{5, 5, 5}), drawable.FlagGeometry)
	o.AddDrawable(pending)
	o.RemoveDrawable(pending)
	settle(o, 3)
	assert.Equal(t, NoOctant, pending.Octant())

	// moving after removal does not queue anything
	removed.SetLocalBoundingBox(unitBoxAt(common.Vec3{1, 1, 1}))
	assert.Equal(t, 0, o.NumPendingUpdates())
}

func TestInsertDrawableImmediately(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	d := newBoxDrawable(unitBoxAt(common.Vec3{3, 3, 3}), drawable.FlagGeometry)
	o.InsertDrawable(d)
	require.NotEqual(t, NoOctant, d.Octant())
	checkFitInvariant(t, o, []*boxDrawable{d})
}

func TestResizeRequiresUpdate(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	d := newBoxDrawable(unitBoxAt(common.Vec3{10, 10, 10}), drawable.FlagGeometry)
	o.AddDrawable(d)
	settle(o, 1)

	size := common.Vec3{500, 500, 500}
	o.Resize(common.NewBox(size.Negate(), size), 3)
	assert.Equal(t, NoOctant, d.Octant())
	assert.Equal(t, 1, o.NumOctants())
	assert.Equal(t, 3, o.Root().Level())

	settle(o, 2)
	require.NotEqual(t, NoOctant, d.Octant())
	checkFitInvariant(t, o, []*boxDrawable{d})
}

func TestLightsSortedFirst(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	big := common.NewBox(common.Vec3{-200, -200, -200}, common.Vec3{200, 200, 200})
	geo := newBoxDrawable(big, drawable.FlagGeometry)
	light := newBoxDrawable(big, drawable.FlagLight)
	o.AddDrawable(geo)
	o.AddDrawable(light)
	settle(o, 1)

	root := o.Root()
	require.Len(t, root.Drawables(), 2)
	assert.Equal(t, []drawable.Drawable{light}, root.Lights())
	assert.Equal(t, []drawable.Drawable{geo}, root.Geometries())
}

func TestQueriesMatchBruteForce(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	r := rand.New(rand.NewPCG(3, 4))
	var ds []*boxDrawable
	for i := range 300 {
		p := common.Vec3{r.Float32()*180 - 90, r.Float32()*180 - 90, r.Float32()*180 - 90}
		flags := drawable.FlagGeometry
		if i%3 == 0 {
			flags |= drawable.FlagCastShadows
		}
		d := newBoxDrawable(unitBoxAt(p), flags)
		o.AddDrawable(d)
		ds = append(ds, d)
	}
	settle(o, 1)

	query := common.NewBox(common.Vec3{-30, -30, -30}, common.Vec3{40, 20, 10})
	sphere := common.Sphere{Center: common.Vec3{10, -10, 5}, Radius: 35}
	cam := camera.NewCamera(camera.WithPosition(common.Vec3{0, 0, 80}), camera.WithFar(120))
	frustum := cam.WorldFrustum()

	var wantBox, wantSphere, wantFrustum []drawable.Drawable
	for _, d := range ds {
		if !d.Flags().Has(drawable.FlagCastShadows) {
			continue
		}
		box := d.WorldBoundingBox()
		if query.IsInside(box) != common.Outside {
			wantBox = append(wantBox, d)
		}
		if box.IsInsideSphere(sphere) != common.Outside {
			wantSphere = append(wantSphere, d)
		}
		if frustum.IsInsideBox(box) != common.Outside {
			wantFrustum = append(wantFrustum, d)
		}
	}
	require.NotEmpty(t, wantBox)
	require.NotEmpty(t, wantFrustum)

	mask := drawable.FlagGeometry | drawable.FlagCastShadows
	assert.ElementsMatch(t, wantBox, o.FindDrawables(nil, query, mask))
	assert.ElementsMatch(t, wantSphere, o.FindDrawablesInSphere(nil, sphere, mask))
	assert.ElementsMatch(t, wantFrustum, o.FindDrawablesInFrustum(nil, frustum, mask))
}

func TestRaycast(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	near := newBoxDrawable(unitBoxAt(common.Vec3{0, 0, -10}), drawable.FlagGeometry)
	far := newBoxDrawable(unitBoxAt(common.Vec3{0, 0, -30}), drawable.FlagGeometry)
	off := newBoxDrawable(unitBoxAt(common.Vec3{10, 0, -20}), drawable.FlagGeometry)
	for _, d := range []*boxDrawable{far, off, near} {
		o.AddDrawable(d)
	}
	settle(o, 1)

	ray := common.NewRay(common.Vec3Zero, common.Vec3Forward)
	hits := o.Raycast(ray, 100, drawable.FlagGeometry)
	require.Len(t, hits, 2)
	assert.Same(t, near, hits[0].Drawable.(*boxDrawable))
	assert.InDelta(t, 9.5, hits[0].Distance, 1e-4)
	assert.Same(t, far, hits[1].Drawable.(*boxDrawable))

	assert.Len(t, o.Raycast(ray, 20, drawable.FlagGeometry), 1)

	single, ok := o.RaycastSingle(ray, 100, drawable.FlagGeometry)
	require.True(t, ok)
	assert.Same(t, near, single.Drawable.(*boxDrawable))
	assert.InDelta(t, -9.5, single.Position[2], 1e-4)

	_, ok = o.RaycastSingle(common.NewRay(common.Vec3Zero, common.Vec3Up), 100, drawable.FlagGeometry)
	assert.False(t, ok)
}

func TestOcclusionQueryRoundTrip(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	d := newBoxDrawable(unitBoxAt(common.Vec3{30, 30, 30}), drawable.FlagGeometry)
	o.AddDrawable(d)
	settle(o, 1)

	leaf := o.Octant(d.Octant())
	require.NotEqual(t, NoOctant, leaf.Parent())
	parent := o.Octant(leaf.Parent())

	assert.Equal(t, VisibilityVisibleUnknown, leaf.Visibility())
	o.SetVisibility(parent.ID(), VisibilityVisible, false)
	leaf.SetOcclusionQueryID(42)
	o.OnOcclusionQueryResult(leaf.ID(), false)

	assert.Equal(t, VisibilityOccluded, leaf.Visibility())
	assert.Equal(t, VisibilityVisibleUnknown, parent.Visibility())
	assert.Zero(t, leaf.OcclusionQueryID())

	// becoming visible again pushes visibility up the ancestor chain
	o.SetVisibility(o.Root().ID(), VisibilityOccluded, false)
	o.OnOcclusionQueryResult(leaf.ID(), true)
	assert.Equal(t, VisibilityVisible, leaf.Visibility())
	for p := o.Octant(leaf.Parent()); p != nil; p = o.Octant(p.Parent()) {
		assert.Equal(t, VisibilityVisible, p.Visibility())
	}

	// results for octants outside the frustum are ignored
	o.SetVisibility(leaf.ID(), VisibilityOutsideFrustum, false)
	o.OnOcclusionQueryResult(leaf.ID(), true)
	assert.Equal(t, VisibilityOutsideFrustum, leaf.Visibility())
}

func TestVisibleAfterOccludedMarksChildren(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	d := newBoxDrawable(unitBoxAt(common.Vec3{30, 30, 30}), drawable.FlagGeometry)
	o.AddDrawable(d)
	settle(o, 1)
	leaf := o.Octant(d.Octant())
	root := o.Root()

	o.SetVisibility(root.ID(), VisibilityOccluded, true)
	assert.Equal(t, VisibilityOccluded, leaf.Visibility())

	o.OnOcclusionQueryResult(root.ID(), true)
	assert.Equal(t, VisibilityVisible, root.Visibility())
	assert.Equal(t, VisibilityOccludedUnknown, leaf.Visibility())
}

func TestCheckNewOcclusionQuery(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	root := o.Root()

	assert.True(t, root.CheckNewOcclusionQuery(0.016), "unknown visibility queries immediately")
	root.SetOcclusionQueryID(5)
	assert.False(t, root.CheckNewOcclusionQuery(0.016), "a query is pending")
	root.SetOcclusionQueryID(0)

	o.SetVisibility(root.ID(), VisibilityVisible, false)
	root.queryTimer = 0
	assert.False(t, root.CheckNewOcclusionQuery(0.1))
	assert.True(t, root.CheckNewOcclusionQuery(0.1))
	assert.InDelta(t, 0.2-OcclusionQueryInterval, root.queryTimer, 1e-5)
}

func TestFreedOctantHandleResolvesToNil(t *testing.T) {
	o, _ := newTestOctree(t, 0)
	d := newBoxDrawable(unitBoxAt(common.Vec3{30, 30, 30}), drawable.FlagGeometry)
	o.AddDrawable(d)
	settle(o, 1)
	leafID := d.Octant()

	o.RemoveDrawable(d)
	assert.Nil(t, o.Octant(leafID))
	assert.Equal(t, 1, o.NumOctants())
}
