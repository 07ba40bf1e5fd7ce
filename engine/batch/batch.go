package batch

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

// LightMask selects the lighting variant a batch is drawn with.
type LightMask uint8

const (
	// LightMaskDirectional marks batches lit by the directional light.
	LightMaskDirectional LightMask = 1 << iota
	// LightMaskDirectionalShadow marks batches receiving directional light shadows.
	LightMaskDirectionalShadow
	// LightMaskClustered marks batches sampling the light cluster grid.
	LightMaskClustered
)

// Payload is the kind-specific part of a Batch: exactly one of Static, Complex or Instanced.
type Payload interface {
	isPayload()
}

// Static draws one geometry with a world transform owned by the scene.
type Static struct {
	Transform *common.Mat4
}

// Complex draws one geometry after the drawable pushed its per-draw state through OnRender.
type Complex struct {
	Drawable drawable.GeometryDrawable
}

// Instanced draws Count copies of a geometry with transforms read from an instance buffer
// starting at Start.
type Instanced struct {
	Start int
	Count int
}

func (Static) isPayload()    {}
func (Complex) isPayload()   {}
func (Instanced) isPayload() {}

// Batch is one draw call worth of state, produced fresh every frame.
type Batch struct {
	Pass      *material.Pass
	Geometry  *model.Geometry
	GeomIndex int
	Flags     drawable.Flags
	LightMask LightMask
	Distance  float32
	Payload   Payload
}

// IsStatic reports whether the batch carries a Static payload.
func (b *Batch) IsStatic() bool {
	_, ok := b.Payload.(Static)
	return ok
}

// InstanceCount returns the number of instances drawn by the batch, 1 for non-instanced batches.
func (b *Batch) InstanceCount() int {
	if inst, ok := b.Payload.(Instanced); ok {
		return inst.Count
	}
	return 1
}

// sameState reports whether two batches can share one instanced draw.
func (b *Batch) sameState(o *Batch) bool {
	return b.Pass == o.Pass && b.Geometry == o.Geometry && b.LightMask == o.LightMask
}
