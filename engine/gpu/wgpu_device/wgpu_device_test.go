package wgpu_device

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

func alphaBatch(g *model.Geometry) *batch.Batch {
	return &batch.Batch{
		Pass:      &material.Pass{Blend: material.BlendAlpha, Cull: material.CullNone},
		Geometry:  g,
		LightMask: batch.LightMask(5),
	}
}

func TestKeyForForwardPass(t *testing.T) {
	g := model.NewBoxGeometry("box", common.Vec3{1, 1, 1}, [4]float32{1, 1, 1, 1})
	key := keyFor(alphaBatch(g), false, 0.5, 2)
	assert.False(t, key.shadow)
	assert.False(t, key.skinned)
	assert.Equal(t, material.BlendAlpha, key.blend)
	assert.Equal(t, material.CullNone, key.cull)
	assert.False(t, key.depthWrite)
	assert.Equal(t, batch.LightMask(5), key.lightMask)
	assert.Zero(t, key.depthBias, "bias only applies to shadow passes")
	assert.Zero(t, key.slopeBias)
}

func TestKeyForShadowPassForcesOpaqueDepthWrite(t *testing.T) {
	g := model.NewSkinnedBoxGeometry("skinned", common.Vec3{1, 1, 1}, [4]float32{1, 1, 1, 1})
	key := keyFor(alphaBatch(g), true, 0.0001, 2)
	assert.True(t, key.shadow)
	assert.True(t, key.skinned)
	assert.Equal(t, material.BlendReplace, key.blend)
	assert.True(t, key.depthWrite)
	assert.Zero(t, key.lightMask)
	assert.Equal(t, int32(1677), key.depthBias)
	assert.Equal(t, float32(2), key.slopeBias)
	assert.Contains(t, key.String(), "shadow")
}

func TestKeysDistinguishVariants(t *testing.T) {
	g := model.NewBoxGeometry("box", common.Vec3{1, 1, 1}, [4]float32{1, 1, 1, 1})
	a := keyFor(alphaBatch(g), false, 0, 0)
	b := alphaBatch(g)
	b.LightMask = 1
	assert.NotEqual(t, a, keyFor(b, false, 0, 0))
	assert.Equal(t, a, keyFor(alphaBatch(g), false, 0, 0))
}

func TestShaderSource(t *testing.T) {
	forward := shaderSource(pipelineKey{lightMask: 7})
	assert.True(t, strings.HasPrefix(forward, "const LIGHT_MASK: u32 = 7u;"))
	assert.Contains(t, forward, "fn fs_main")
	assert.Contains(t, forward, "var<storage, read> clusters")
	assert.NotContains(t, forward, "bone_indices")

	shadow := shaderSource(pipelineKey{shadow: true, skinned: true})
	assert.Contains(t, shadow, "bone_indices")
	assert.Contains(t, shadow, "fn vs_main")
	assert.NotContains(t, shadow, "fn fs_main")
}

func TestVertexLayout(t *testing.T) {
	static := vertexLayout(false)
	assert.Equal(t, uint64(48), static.ArrayStride)
	assert.Len(t, static.Attributes, 4)

	skinned := vertexLayout(true)
	assert.Equal(t, uint64(80), skinned.ArrayStride)
	require.Len(t, skinned.Attributes, 6)
	assert.Equal(t, wgpu.VertexFormatUint32x4, skinned.Attributes[4].Format)
	assert.Equal(t, uint64(64), skinned.Attributes[5].Offset)
}

func TestBlendAndCullStates(t *testing.T) {
	assert.Nil(t, blendState(material.BlendReplace))
	require.NotNil(t, blendState(material.BlendAlpha))
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, blendState(material.BlendAlpha).Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOne, blendState(material.BlendAdd).Color.DstFactor)

	assert.Equal(t, wgpu.CullModeBack, cullMode(material.CullBack))
	assert.Equal(t, wgpu.CullModeFront, cullMode(material.CullFront))
	assert.Equal(t, wgpu.CullModeNone, cullMode(material.CullNone))
}

func TestPackDrawParams(t *testing.T) {
	assert.Equal(t, uintptr(112), unsafe.Sizeof(drawParams{}))

	draws := []drawParams{
		{BoneBase: 3},
		{ViewProjection: common.Identity4(), BoneBase: 9},
	}
	out := packDrawParams(draws)
	require.Len(t, out, 2*drawSlotSize)
	assert.Equal(t, byte(3), out[96])
	assert.Equal(t, byte(9), out[drawSlotSize+96])
	assert.Equal(t, byte(0x3f), out[drawSlotSize+3], "identity starts with 1.0f")
}

func TestBuilderOptions(t *testing.T) {
	d := &wgpuDeviceImpl{presentMode: wgpu.PresentModeImmediate, instanceCapacity: DefaultInstanceCapacity}
	for _, option := range []DeviceBuilderOption{
		WithVSync(true),
		WithInstanceCapacity(1024),
		WithInstanceCapacity(-1),
		WithPipelineCacheSize(8),
		WithFallbackAdapter(),
	} {
		option(d)
	}
	assert.Equal(t, wgpu.PresentModeFifo, d.presentMode)
	assert.Equal(t, 1024, d.instanceCapacity)
	assert.Equal(t, 8, d.pipelineCacheSize)
	assert.True(t, d.forceFallback)
}
