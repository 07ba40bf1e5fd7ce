package material

// material is the implementation of the Material interface.
type material struct {
	name      string
	baseColor [4]float32
	metallic  float32
	roughness float32
	alpha     bool
	passes    [NumPassTypes]*Pass
}

// Material defines the interface for a render material: surface properties plus the
// per-pass render state that batches are grouped by.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo/diffuse RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Pass retrieves the render state for a pass type.
	//
	// Parameters:
	//   - passType: the pass to look up
	//
	// Returns:
	//   - *Pass: the pass, or nil if the material does not render in it
	Pass(passType PassType) *Pass

	// SetPass replaces or removes the render state for a pass type.
	//
	// Parameters:
	//   - passType: the pass to set
	//   - enabled: false removes the pass
	//
	// Returns:
	//   - *Pass: the new pass, or nil when removed
	SetPass(passType PassType, enabled bool) *Pass
}

var _ Material = &material{}

// NewMaterial creates a Material with an opaque (or alpha) pass and a shadow pass.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.alpha {
		m.passes[PassAlpha] = newPass(m, PassAlpha)
	} else {
		m.passes[PassOpaque] = newPass(m, PassOpaque)
		m.passes[PassShadow] = newPass(m, PassShadow)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Pass(passType PassType) *Pass {
	if passType < 0 || passType >= NumPassTypes {
		return nil
	}
	return m.passes[passType]
}

func (m *material) SetPass(passType PassType, enabled bool) *Pass {
	if !enabled {
		m.passes[passType] = nil
		return nil
	}
	m.passes[passType] = newPass(m, passType)
	return m.passes[passType]
}

var defaultMaterial = NewMaterial(WithName("default"))

// Default returns the shared material used by drawables without an explicit material.
func Default() Material {
	return defaultMaterial
}
