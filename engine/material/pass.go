package material

import "sync/atomic"

// PassType selects which queue a pass renders in.
type PassType int

const (
	PassOpaque PassType = iota
	PassAlpha
	PassShadow
	NumPassTypes
)

func (p PassType) String() string {
	switch p {
	case PassOpaque:
		return "opaque"
	case PassAlpha:
		return "alpha"
	case PassShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// BlendMode is the color blend state of a pass.
type BlendMode int

const (
	BlendReplace BlendMode = iota
	BlendAlpha
	BlendAdd
)

// CullMode is the face culling state of a pass.
type CullMode int

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

var passIDs atomic.Uint32

// Pass is the render state of a material in one pass type. Batches reference passes by
// pointer; the ID is the sort key derived from that identity.
type Pass struct {
	ID         uint32
	Type       PassType
	ShaderKey  string
	Blend      BlendMode
	Cull       CullMode
	DepthWrite bool

	SortKey SortKeyTracker

	parent Material
}

func newPass(parent Material, passType PassType) *Pass {
	p := &Pass{
		ID:         passIDs.Add(1),
		Type:       passType,
		ShaderKey:  passType.String(),
		DepthWrite: true,
		parent:     parent,
	}
	if passType == PassAlpha {
		p.Blend = BlendAlpha
		p.DepthWrite = false
	}
	return p
}

// Material returns the material owning the pass.
func (p *Pass) Material() Material {
	return p.parent
}
