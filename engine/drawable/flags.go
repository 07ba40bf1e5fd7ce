package drawable

// Flags describe a drawable's capabilities and octree state.
type Flags uint32

const (
	// FlagLight marks light drawables.
	FlagLight Flags = 1 << iota
	// FlagGeometry marks drawables that produce batches.
	FlagGeometry
	// FlagStatic marks drawables that never move. Static shadow casters are cached.
	FlagStatic
	// FlagCastShadows marks geometry rendered into shadow maps, or lights that render shadows.
	FlagCastShadows
	// FlagHasLOD marks geometry whose batches change with camera distance.
	FlagHasLOD
	// FlagSkinned marks geometry drawn with complex batches that upload per-draw state.
	FlagSkinned
	// FlagOctreeUpdateCall requests OnOctreeUpdate during threaded octree updates.
	FlagOctreeUpdateCall
	// FlagReinsertQueued is set by the octree while the drawable waits for reinsertion.
	FlagReinsertQueued
)

// Has reports whether every bit of mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Any reports whether at least one bit of mask is set.
func (f Flags) Any(mask Flags) bool {
	return f&mask != 0
}
