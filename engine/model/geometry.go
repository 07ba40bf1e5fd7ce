package model

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
)

var geometryIDs atomic.Uint32

// Geometry is one drawable mesh: vertex and index data plus its local bounding box.
// Batches reference geometries by pointer; ID is the sort key derived from that identity.
type Geometry struct {
	ID              uint32
	Name            string
	Vertices        []GPUVertex
	SkinnedVertices []GPUSkinnedVertex
	Indices         []uint32
	BoundingBox     common.Box

	// LodDistance is the camera distance at which this geometry becomes the active LOD level.
	LodDistance float32

	SortKey material.SortKeyTracker
}

// NewGeometry creates a Geometry from static vertices and computes its bounding box.
//
// Parameters:
//   - name: identifier for debugging
//   - vertices: the vertex data
//   - indices: triangle list indices
//
// Returns:
//   - *Geometry: the new geometry
func NewGeometry(name string, vertices []GPUVertex, indices []uint32) *Geometry {
	g := &Geometry{
		ID:          geometryIDs.Add(1),
		Name:        name,
		Vertices:    vertices,
		Indices:     indices,
		BoundingBox: common.EmptyBox(),
	}
	for _, v := range vertices {
		g.BoundingBox = g.BoundingBox.MergePoint(v.Position)
	}
	return g
}

// NewSkinnedGeometry creates a Geometry from skinned vertices and computes its bind-pose bounding box.
//
// Parameters:
//   - name: identifier for debugging
//   - vertices: the skinned vertex data
//   - indices: triangle list indices
//
// Returns:
//   - *Geometry: the new geometry
func NewSkinnedGeometry(name string, vertices []GPUSkinnedVertex, indices []uint32) *Geometry {
	g := &Geometry{
		ID:              geometryIDs.Add(1),
		Name:            name,
		SkinnedVertices: vertices,
		Indices:         indices,
		BoundingBox:     common.EmptyBox(),
	}
	for _, v := range vertices {
		g.BoundingBox = g.BoundingBox.MergePoint(v.Position)
	}
	return g
}

// Skinned reports whether the geometry carries bone weights.
func (g *Geometry) Skinned() bool {
	return len(g.SkinnedVertices) > 0
}

// VertexData returns the raw vertex bytes for GPU upload.
func (g *Geometry) VertexData() []byte {
	if g.Skinned() {
		return common.SliceToBytes(g.SkinnedVertices)
	}
	return common.SliceToBytes(g.Vertices)
}

// VertexStride returns the size of one vertex in bytes.
func (g *Geometry) VertexStride() int {
	if g.Skinned() {
		var v GPUSkinnedVertex
		return v.Size()
	}
	var v GPUVertex
	return v.Size()
}

// IndexData returns the raw index bytes for GPU upload.
func (g *Geometry) IndexData() []byte {
	return common.SliceToBytes(g.Indices)
}

// IndexCount returns the number of indices.
func (g *Geometry) IndexCount() int {
	return len(g.Indices)
}
