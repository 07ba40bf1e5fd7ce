package material

// MaterialBuilderOption is a function that configures a material during construction.
type MaterialBuilderOption func(*material)

// WithName sets the material identifier.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - MaterialBuilderOption: option to apply
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor sets the albedo RGBA color.
//
// Parameters:
//   - color: RGBA values
//
// Returns:
//   - MaterialBuilderOption: option to apply
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetallic sets the metallic factor.
//
// Parameters:
//   - metallic: value in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: option to apply
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness sets the roughness factor.
//
// Parameters:
//   - roughness: value in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: option to apply
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithAlpha makes the material render in the alpha pass instead of the opaque and shadow passes.
//
// Returns:
//   - MaterialBuilderOption: option to apply
func WithAlpha() MaterialBuilderOption {
	return func(m *material) {
		m.alpha = true
	}
}
