package wgpu_device

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

// pipelineKey identifies one render pipeline variant.
type pipelineKey struct {
	shadow     bool
	skinned    bool
	lightMask  batch.LightMask
	blend      material.BlendMode
	cull       material.CullMode
	depthWrite bool
	depthBias  int32
	slopeBias  float32
}

func (k pipelineKey) String() string {
	kind := "forward"
	if k.shadow {
		kind = "shadow"
	}
	return fmt.Sprintf("%s skinned=%t mask=%d blend=%d cull=%d", kind, k.skinned, k.lightMask, k.blend, k.cull)
}

// keyFor derives the pipeline variant of a batch drawn in the current pass.
//
// Parameters:
//   - b: the batch
//   - shadow: whether the current pass is a shadow pass
//   - depthBias: constant depth bias of the current shadow pass
//   - slopeBias: slope-scaled depth bias of the current shadow pass
//
// Returns:
//   - pipelineKey: the variant
func keyFor(b *batch.Batch, shadow bool, depthBias, slopeBias float32) pipelineKey {
	key := pipelineKey{
		shadow:     shadow,
		skinned:    b.Geometry != nil && b.Geometry.Skinned(),
		blend:      b.Pass.Blend,
		cull:       b.Pass.Cull,
		depthWrite: b.Pass.DepthWrite,
	}
	if shadow {
		key.depthBias = int32(depthBias * depthBiasScale)
		key.slopeBias = slopeBias
		key.blend = material.BlendReplace
		key.depthWrite = true
	} else {
		key.lightMask = b.LightMask
	}
	return key
}

// depthBiasScale converts a normalized constant bias into Depth32Float units.
const depthBiasScale = 1 << 24

func cullMode(c material.CullMode) wgpu.CullMode {
	switch c {
	case material.CullFront:
		return wgpu.CullModeFront
	case material.CullNone:
		return wgpu.CullModeNone
	default:
		return wgpu.CullModeBack
	}
}

func blendState(mode material.BlendMode) *wgpu.BlendState {
	switch mode {
	case material.BlendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		}
	case material.BlendAdd:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
			},
		}
	default:
		return nil
	}
}

// vertexLayout returns the vertex buffer layout of static or skinned geometry.
func vertexLayout(skinned bool) wgpu.VertexBufferLayout {
	attributes := []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
	}
	var v model.GPUVertex
	stride := v.Size()
	if skinned {
		attributes = append(attributes,
			wgpu.VertexAttribute{Format: wgpu.VertexFormatUint32x4, Offset: 48, ShaderLocation: 4},
			wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x4, Offset: 64, ShaderLocation: 5},
		)
		var sv model.GPUSkinnedVertex
		stride = sv.Size()
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(stride),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attributes,
	}
}

// pipeline returns the cached pipeline of a variant, creating it on a miss. The cache is
// bounded; evicted pipelines are released by the cache's eviction callback.
func (d *wgpuDeviceImpl) pipeline(key pipelineKey) (*wgpu.RenderPipeline, error) {
	if p, ok := d.pipelines.Get(key); ok {
		return p, nil
	}
	p, err := d.createPipeline(key)
	if err != nil {
		return nil, fmt.Errorf("wgpu_device: create pipeline %s: %w", key, err)
	}
	d.pipelines.Add(key, p)
	d.log.Debug("pipeline created", "key", key.String(), "cached", d.pipelines.Len())
	return p, nil
}

func (d *wgpuDeviceImpl) createPipeline(key pipelineKey) (*wgpu.RenderPipeline, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: key.String(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaderSource(key),
		},
	})
	if err != nil {
		return nil, err
	}
	defer module.Release()

	desc := &wgpu.RenderPipelineDescriptor{
		Label: key.String(),
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout(key.skinned)},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(key.cull),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              depthFormat,
			DepthWriteEnabled:   key.depthWrite,
			DepthCompare:        wgpu.CompareFunctionLessEqual,
			DepthBias:           key.depthBias,
			DepthBiasSlopeScale: key.slopeBias,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	}

	if key.shadow {
		desc.Layout = d.shadowLayout
		desc.DepthStencil.Format = wgpu.TextureFormatDepth32Float
	} else {
		desc.Layout = d.forwardLayout
		desc.Fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    d.surfaceFormat,
				Blend:     blendState(key.blend),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		}
	}
	return d.device.CreateRenderPipeline(desc)
}

// createCopyPipeline builds the pipeline rendering one depth texture into another.
func (d *wgpuDeviceImpl) createCopyPipeline() error {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "copy depth",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: copyDepthShader,
		},
	})
	if err != nil {
		return err
	}
	defer module.Release()

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "copy depth",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.copyGroupLayout},
	})
	if err != nil {
		return err
	}
	d.copyPipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "copy depth",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	return err
}
