package model

// ModelBuilderOption is a function that configures a model during construction.
type ModelBuilderOption func(*model)

// WithName sets the model identifier.
//
// Parameters:
//   - name: the model name
//
// Returns:
//   - ModelBuilderOption: option to apply
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithGeometry appends a sub-mesh with its LOD levels, nearest first.
//
// Parameters:
//   - lods: the geometries of each LOD level
//
// Returns:
//   - ModelBuilderOption: option to apply
func WithGeometry(lods ...*Geometry) ModelBuilderOption {
	return func(m *model) {
		m.geometries = append(m.geometries, lods)
	}
}

// WithSkeleton attaches a bone hierarchy, marking the model as skinned.
//
// Parameters:
//   - skeleton: the skeleton
//
// Returns:
//   - ModelBuilderOption: option to apply
func WithSkeleton(skeleton *Skeleton) ModelBuilderOption {
	return func(m *model) {
		m.skeleton = skeleton
	}
}
