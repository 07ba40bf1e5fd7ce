package cluster

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
)

const (
	// NumClustersX is the number of clusters across the screen.
	NumClustersX = 16
	// NumClustersY is the number of clusters down the screen.
	NumClustersY = 8
	// NumClustersZ is the number of depth slices.
	NumClustersZ = 8
	// NumClusters is the total number of clusters.
	NumClusters = NumClustersX * NumClustersY * NumClustersZ
	// MaxLightsPerCluster is the capacity of one cluster. Further lights are dropped.
	MaxLightsPerCluster = 16
)

// lightVolume is a local light prepared for culling in view space.
type lightVolume struct {
	index   uint8
	spot    bool
	sphere  common.Sphere
	frustum common.Frustum
	box     common.Box
	minZ    float32
	maxZ    float32
}

// Grid assigns local lights to a fixed grid of view-space clusters. Depth slices grow
// quadratically with distance. Each cluster stores up to MaxLightsPerCluster light
// buffer indices as bytes, zero terminated when not full.
//
// Cluster frusta are recomputed only when the camera projection changes. CullSlice writes
// only the storage of its own depth slice, so the slices can be culled concurrently.
type Grid struct {
	log *logger.Logger

	cam               camera.Camera
	projectionVersion uint64
	far               float32

	frusta [NumClusters]common.Frustum
	boxes  [NumClusters]common.Box

	volumes  []lightVolume
	data     [NumClusters * MaxLightsPerCluster]uint8
	overflow atomic.Int32
}

// NewGrid creates an empty grid.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Grid: the grid
func NewGrid(options ...GridBuilderOption) *Grid {
	g := &Grid{}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Index returns the flat index of cluster (x, y, z).
func Index(x, y, z int) int {
	return (z*NumClustersY+y)*NumClustersX + x
}

// SliceDepth returns the view-space depth range of slice z: (z/8)²·far to ((z+1)/8)²·far.
// The first slice starts at the camera near distance.
//
// Parameters:
//   - z: the slice
//   - near: camera near distance
//   - far: camera far distance
//
// Returns:
//   - float32: slice near depth
//   - float32: slice far depth
func SliceDepth(z int, near, far float32) (float32, float32) {
	zn := float32(z) / NumClustersZ
	zf := float32(z+1) / NumClustersZ
	sliceNear := zn * zn * far
	if z == 0 {
		sliceNear = near
	}
	return sliceNear, zf * zf * far
}

// DefineFrusta rebuilds the cluster frusta and boxes when cam is a different camera or
// its projection changed since the last call.
//
// Parameters:
//   - cam: the view camera
//
// Returns:
//   - bool: true if the frusta were rebuilt
func (g *Grid) DefineFrusta(cam camera.Camera) bool {
	version := cam.ProjectionVersion()
	if g.cam == cam && g.projectionVersion == version {
		return false
	}
	g.cam = cam
	g.projectionVersion = version
	g.far = cam.Far()

	invProj := cam.InverseProjectionMatrix()
	near := cam.Near()
	cellW := float32(2) / NumClustersX
	cellH := float32(2) / NumClustersY

	for z := range NumClustersZ {
		sliceNear, sliceFar := SliceDepth(z, near, g.far)
		for y := range NumClustersY {
			top := 1 - float32(y)*cellH
			bottom := top - cellH
			for x := range NumClustersX {
				left := -1 + float32(x)*cellW
				right := left + cellW
				ndc := [4][2]float32{{left, bottom}, {right, bottom}, {right, top}, {left, top}}
				var verts [8]common.Vec3
				for i, p := range ndc {
					verts[i] = pointAtDepth(invProj, p[0], p[1], sliceNear)
					verts[i+4] = pointAtDepth(invProj, p[0], p[1], sliceFar)
				}
				idx := Index(x, y, z)
				g.frusta[idx] = common.NewFrustumFromVertices(verts)
				g.boxes[idx] = common.BoxFromPoints(verts[:]...)
			}
		}
	}
	g.log.Debug("cluster frusta defined", "far", g.far, "version", version)
	return true
}

// pointAtDepth returns the view-space point on the ray through NDC (x, y) at view depth d.
// The ray is found from the near and far plane points, so it works for both projections.
func pointAtDepth(invProj common.Mat4, x, y, depth float32) common.Vec3 {
	n := invProj.ProjectPoint(common.Vec3{x, y, 0})
	f := invProj.ProjectPoint(common.Vec3{x, y, 1})
	dn, df := -n[2], -f[2]
	if df == dn {
		return n
	}
	return n.Lerp(f, (depth-dn)/(df-dn))
}

// Prepare resets the grid for a frame and converts the lights to view space. Light i is
// written as light buffer index i+1; lights past light.MaxLights are ignored.
//
// Parameters:
//   - lights: local lights in light buffer order
//   - view: the camera view matrix
func (g *Grid) Prepare(lights []light.Light, view common.Mat4) {
	clear(g.data[:])
	g.overflow.Store(0)
	g.volumes = g.volumes[:0]

	for i, l := range lights {
		if i >= light.MaxLights {
			break
		}
		v := lightVolume{index: uint8(i + 1)}
		switch l.Type() {
		case light.LightTypePoint:
			center := view.TransformPoint(l.Position())
			v.sphere = common.Sphere{Center: center, Radius: l.Range()}
			v.box = v.sphere.Box()
		case light.LightTypeSpot:
			v.spot = true
			v.frustum = l.WorldFrustum().Transformed(view)
			v.box = v.frustum.Box()
		default:
			continue
		}
		v.minZ = -v.box.Max[2]
		v.maxZ = -v.box.Min[2]
		g.volumes = append(g.volumes, v)
	}
}

// CullSlice assigns the prepared lights to the clusters of depth slice z.
//
// Parameters:
//   - z: the depth slice
func (g *Grid) CullSlice(z int) {
	sliceNear, sliceFar := SliceDepth(z, g.nearOf(), g.far)
	dropped := 0
	var counts [NumClustersX * NumClustersY]uint8

	for i := range g.volumes {
		v := &g.volumes[i]
		if v.maxZ < sliceNear || v.minZ > sliceFar {
			continue
		}
		for y := range NumClustersY {
			for x := range NumClustersX {
				idx := Index(x, y, z)
				if !g.boxes[idx].Intersects(v.box) {
					continue
				}
				if v.spot {
					if g.frusta[idx].IsInsideBoxFast(v.box) == common.Outside || v.frustum.IsInsideBoxFast(g.boxes[idx]) == common.Outside {
						continue
					}
				} else if g.frusta[idx].IsInsideSphere(v.sphere) == common.Outside {
					continue
				}

				c := &counts[y*NumClustersX+x]
				if *c >= MaxLightsPerCluster {
					dropped++
					continue
				}
				g.data[idx*MaxLightsPerCluster+int(*c)] = v.index
				*c++
			}
		}
	}
	if dropped > 0 {
		g.overflow.Add(int32(dropped))
	}
}

func (g *Grid) nearOf() float32 {
	if g.cam == nil {
		return 0
	}
	return g.cam.Near()
}

// Lights returns the light buffer indices assigned to cluster (x, y, z).
func (g *Grid) Lights(x, y, z int) []uint8 {
	start := Index(x, y, z) * MaxLightsPerCluster
	cell := g.data[start : start+MaxLightsPerCluster]
	for i, v := range cell {
		if v == 0 {
			return cell[:i]
		}
	}
	return cell
}

// Frustum returns the view-space frustum of cluster (x, y, z).
func (g *Grid) Frustum(x, y, z int) common.Frustum {
	return g.frusta[Index(x, y, z)]
}

// Box returns the view-space bounding box of cluster (x, y, z).
func (g *Grid) Box(x, y, z int) common.Box {
	return g.boxes[Index(x, y, z)]
}

// Overflow returns the number of light assignments dropped this frame because a
// cluster was full.
func (g *Grid) Overflow() int {
	return int(g.overflow.Load())
}

// Bytes returns the cluster light index array for GPU upload.
func (g *Grid) Bytes() []byte {
	return g.data[:]
}
