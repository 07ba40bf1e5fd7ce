package drawable

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

// Drawable is the capability set the octree and the view renderer rely on.
// Concrete drawables embed Base, which implements everything except OnPrepareRender overrides.
type Drawable interface {
	// DrawableBase returns the shared drawable state.
	//
	// Returns:
	//   - *Base: the embedded base
	DrawableBase() *Base

	// Flags returns the current flag set.
	//
	// Returns:
	//   - Flags: the flags
	Flags() Flags

	// WorldBoundingBox returns the cached world-space bounding box, recomputing it if dirty.
	//
	// Returns:
	//   - common.Box: the world bounding box
	WorldBoundingBox() common.Box

	// OnPrepareRender is called once per frame for every visible drawable, from a worker task.
	// It may update the drawable's own LOD state but must not touch shared structures.
	//
	// Parameters:
	//   - frameNumber: the current frame
	//   - cam: the view camera
	//
	// Returns:
	//   - bool: false to exclude the drawable from rendering this frame
	OnPrepareRender(frameNumber uint32, cam camera.Camera) bool

	// OnOctreeUpdate is called from a worker task during the octree update when
	// FlagOctreeUpdateCall is set.
	//
	// Parameters:
	//   - frameNumber: the current frame
	OnOctreeUpdate(frameNumber uint32)
}

// SourceBatch pairs a geometry with the material it is drawn with.
type SourceBatch struct {
	Geometry *model.Geometry
	Material material.Material
}

// ShaderParams receives per-draw state from complex batches immediately before their draw call.
type ShaderParams interface {
	// SetSkinMatrices uploads bone matrices for the next draw.
	//
	// Parameters:
	//   - matrices: one skinning matrix per bone
	SetSkinMatrices(matrices []common.Mat4)
}

// GeometryDrawable is a drawable producing batches.
type GeometryDrawable interface {
	Drawable

	// Batches returns the source batches for the current LOD selection.
	//
	// Returns:
	//   - []SourceBatch: one entry per sub-mesh
	Batches() []SourceBatch

	// OnRender pushes per-draw GPU state for complex batches.
	//
	// Parameters:
	//   - params: the sink for per-draw state
	//   - geometryIndex: index into Batches()
	OnRender(params ShaderParams, geometryIndex int)
}

// Raycaster refines a bounding-box hit into an exact hit distance.
type Raycaster interface {
	// OnRaycast tests the ray against the drawable's real shape.
	//
	// Parameters:
	//   - ray: the world-space ray
	//
	// Returns:
	//   - float32: hit distance
	//   - bool: false if the ray misses
	OnRaycast(ray common.Ray) (float32, bool)
}

// Updater is notified when a drawable's bounds change. Implemented by the octree.
type Updater interface {
	QueueUpdate(d Drawable)
}

// Transformer supplies a drawable's world transform. Implemented by scene objects.
type Transformer interface {
	// WorldMatrix returns a pointer to the owner's world transform. The pointer stays
	// valid for the owner's lifetime so static batches can reference it.
	WorldMatrix() *common.Mat4
}
