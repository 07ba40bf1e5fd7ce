package model

import (
	"github.com/Carmen-Shannon/oxy-render/common"
)

// model is the implementation of the Model interface.
type model struct {
	name        string
	geometries  [][]*Geometry
	skeleton    *Skeleton
	boundingBox common.Box
}

// Model is a shared mesh resource: a list of sub-meshes, each with one or more LOD levels
// ordered by increasing LodDistance. Drawables reference a Model and pair each sub-mesh with a material.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// NumGeometries returns the number of sub-meshes.
	//
	// Returns:
	//   - int: the sub-mesh count
	NumGeometries() int

	// LodGeometries returns every LOD level of a sub-mesh, nearest first.
	//
	// Parameters:
	//   - index: the sub-mesh index
	//
	// Returns:
	//   - []*Geometry: the LOD levels
	LodGeometries(index int) []*Geometry

	// Geometry returns one LOD level of a sub-mesh.
	//
	// Parameters:
	//   - index: the sub-mesh index
	//   - lod: the LOD level, clamped to the available levels
	//
	// Returns:
	//   - *Geometry: the geometry
	Geometry(index, lod int) *Geometry

	// BoundingBox returns the local-space box enclosing every sub-mesh's first LOD level.
	//
	// Returns:
	//   - common.Box: the local bounding box
	BoundingBox() common.Box

	// Skinned reports whether the model has a skeleton.
	//
	// Returns:
	//   - bool: true if the model is bone animated
	Skinned() bool

	// Skeleton retrieves the bone hierarchy, or nil for static models.
	//
	// Returns:
	//   - *Skeleton: the skeleton or nil
	Skeleton() *Skeleton
}

var _ Model = &model{}

// NewModel creates a new Model configured with the provided options.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new Model instance
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{boundingBox: common.EmptyBox()}
	for _, opt := range options {
		opt(m)
	}
	for _, lods := range m.geometries {
		if len(lods) > 0 {
			m.boundingBox = m.boundingBox.Merge(lods[0].BoundingBox)
		}
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) NumGeometries() int {
	return len(m.geometries)
}

func (m *model) LodGeometries(index int) []*Geometry {
	if index < 0 || index >= len(m.geometries) {
		return nil
	}
	return m.geometries[index]
}

func (m *model) Geometry(index, lod int) *Geometry {
	lods := m.LodGeometries(index)
	if len(lods) == 0 {
		return nil
	}
	return lods[min(max(lod, 0), len(lods)-1)]
}

func (m *model) BoundingBox() common.Box {
	return m.boundingBox
}

func (m *model) Skinned() bool {
	return m.skeleton != nil
}

func (m *model) Skeleton() *Skeleton {
	return m.skeleton
}
