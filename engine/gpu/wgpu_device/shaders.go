package wgpu_device

import (
	"fmt"
	"strings"
)

// frameBindings is bind group 0 of every pipeline: per-view uniforms, lights, clusters and
// the transform array indexed by instance.
const frameBindings = `
struct PerView {
	view: mat4x4<f32>,
	projection: mat4x4<f32>,
	view_projection: mat4x4<f32>,
	camera_position: vec4<f32>,
	depth_parameters: vec4<f32>,
	ambient_color: vec4<f32>,
	dir_light_direction: vec4<f32>,
	dir_light_color: vec4<f32>,
	dir_light_shadow_parameters: vec4<f32>,
	dir_light_shadow_matrices: array<mat4x4<f32>, 2>,
	cluster_parameters: vec4<f32>,
};

struct Light {
	position: vec4<f32>,
	direction: vec4<f32>,
	attenuation: vec4<f32>,
	color: vec4<f32>,
	shadow_parameters: vec4<f32>,
	shadow_rect: vec4<f32>,
	shadow_matrix: mat4x4<f32>,
};

struct DrawParams {
	view_projection: mat4x4<f32>,
	base_color: vec4<f32>,
	material: vec4<f32>,
	indices: vec4<u32>,
};

@group(0) @binding(0) var<uniform> per_view: PerView;
@group(0) @binding(1) var<storage, read> lights: array<Light>;
@group(0) @binding(2) var<storage, read> clusters: array<vec4<u32>>;
@group(0) @binding(3) var<storage, read> transforms: array<mat4x4<f32>>;

@group(2) @binding(0) var<uniform> draw: DrawParams;
@group(2) @binding(1) var<storage, read> bones: array<mat4x4<f32>>;
`

const vertexInputStatic = `
struct VertexIn {
	@builtin(instance_index) instance: u32,
	@location(0) position: vec3<f32>,
	@location(1) normal: vec3<f32>,
	@location(2) uv: vec2<f32>,
	@location(3) color: vec4<f32>,
};

fn skin_matrix(in: VertexIn) -> mat4x4<f32> {
	return mat4x4<f32>(
		vec4<f32>(1.0, 0.0, 0.0, 0.0),
		vec4<f32>(0.0, 1.0, 0.0, 0.0),
		vec4<f32>(0.0, 0.0, 1.0, 0.0),
		vec4<f32>(0.0, 0.0, 0.0, 1.0),
	);
}
`

const vertexInputSkinned = `
struct VertexIn {
	@builtin(instance_index) instance: u32,
	@location(0) position: vec3<f32>,
	@location(1) normal: vec3<f32>,
	@location(2) uv: vec2<f32>,
	@location(3) color: vec4<f32>,
	@location(4) bone_indices: vec4<u32>,
	@location(5) bone_weights: vec4<f32>,
};

fn skin_matrix(in: VertexIn) -> mat4x4<f32> {
	let base = draw.indices.x;
	return bones[base + in.bone_indices.x] * in.bone_weights.x +
		bones[base + in.bone_indices.y] * in.bone_weights.y +
		bones[base + in.bone_indices.z] * in.bone_weights.z +
		bones[base + in.bone_indices.w] * in.bone_weights.w;
}
`

const forwardShader = `
@group(1) @binding(0) var dir_shadow_map: texture_depth_2d;
@group(1) @binding(1) var light_shadow_map: texture_depth_2d;
@group(1) @binding(2) var shadow_sampler: sampler_comparison;

struct VertexOut {
	@builtin(position) clip_position: vec4<f32>,
	@location(0) world_position: vec3<f32>,
	@location(1) normal: vec3<f32>,
	@location(2) color: vec4<f32>,
	@location(3) view_depth: f32,
};

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
	let model = transforms[in.instance] * skin_matrix(in);
	let world = model * vec4<f32>(in.position, 1.0);
	var out: VertexOut;
	out.clip_position = per_view.view_projection * world;
	out.world_position = world.xyz;
	out.normal = (model * vec4<f32>(in.normal, 0.0)).xyz;
	out.color = in.color;
	out.view_depth = -(per_view.view * world).z;
	return out;
}

fn sample_shadow(map_index: f32, uv: vec3<f32>) -> f32 {
	if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0 || uv.z > 1.0) {
		return 1.0;
	}
	if (map_index < 0.5) {
		return textureSampleCompareLevel(dir_shadow_map, shadow_sampler, uv.xy, uv.z);
	}
	return textureSampleCompareLevel(light_shadow_map, shadow_sampler, uv.xy, uv.z);
}

fn project(m: mat4x4<f32>, world: vec3<f32>) -> vec3<f32> {
	let p = m * vec4<f32>(world, 1.0);
	return p.xyz / p.w;
}

fn dir_shadow(world: vec3<f32>, depth: f32) -> f32 {
	let params = per_view.dir_light_shadow_parameters;
	if (params.z < 0.5) {
		return 1.0;
	}
	var cascade = 0u;
	if (depth > params.x) {
		cascade = 1u;
	}
	if (depth > params.y) {
		return 1.0;
	}
	return sample_shadow(0.0, project(per_view.dir_light_shadow_matrices[cascade], world));
}

fn local_light(index: u32, world: vec3<f32>, n: vec3<f32>) -> vec3<f32> {
	let l = lights[index];
	let to_light = l.position.xyz - world;
	let dist = length(to_light);
	let dir = to_light / max(dist, 0.0001);
	var att = max(1.0 - dist * l.position.w, 0.0);
	if (l.direction.w > 1.5) {
		let cos_angle = dot(-dir, l.direction.xyz);
		att *= clamp((cos_angle - l.attenuation.x) * l.attenuation.y, 0.0, 1.0);
		if (l.color.w > 0.5) {
			att *= sample_shadow(l.shadow_parameters.w, project(l.shadow_matrix, world));
		}
	}
	return l.color.rgb * max(dot(n, dir), 0.0) * att;
}

fn clustered(world: vec3<f32>, n: vec3<f32>, depth: f32) -> vec3<f32> {
	let cells = per_view.cluster_parameters;
	let ndc = project(per_view.view_projection, world);
	let x = u32(clamp((ndc.x * 0.5 + 0.5) * cells.x, 0.0, cells.x - 1.0));
	let y = u32(clamp((0.5 - ndc.y * 0.5) * cells.y, 0.0, cells.y - 1.0));
	let z = u32(clamp(sqrt(max(depth, 0.0) * per_view.depth_parameters.z) * cells.z, 0.0, cells.z - 1.0));
	let cluster = (z * u32(cells.y) + y) * u32(cells.x) + x;

	var color = vec3<f32>(0.0);
	for (var word = 0u; word < 4u; word++) {
		let packed = clusters[cluster][word];
		for (var b = 0u; b < 4u; b++) {
			let index = (packed >> (b * 8u)) & 0xffu;
			if (index == 0u) {
				return color;
			}
			color += local_light(index, world, n);
		}
	}
	return color;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
	let n = normalize(in.normal);
	var light = per_view.ambient_color.rgb;
	if ((LIGHT_MASK & 1u) != 0u) {
		var shadow = 1.0;
		if ((LIGHT_MASK & 2u) != 0u) {
			shadow = dir_shadow(in.world_position, in.view_depth);
		}
		light += per_view.dir_light_color.rgb * max(dot(n, per_view.dir_light_direction.xyz), 0.0) * shadow;
	}
	if ((LIGHT_MASK & 4u) != 0u) {
		light += clustered(in.world_position, n, in.view_depth);
	}
	let base = draw.base_color * in.color;
	return vec4<f32>(base.rgb * light, base.a);
}
`

const shadowShader = `
@vertex
fn vs_main(in: VertexIn) -> @builtin(position) vec4<f32> {
	let model = transforms[in.instance] * skin_matrix(in);
	return draw.view_projection * model * vec4<f32>(in.position, 1.0);
}
`

// copyDepthShader draws a fullscreen triangle that writes the depth of the source texture.
// Depth textures can only be copied whole, so rectangles are copied by rendering.
const copyDepthShader = `
@group(0) @binding(0) var source: texture_depth_2d;

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
	let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
	return vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
}

@fragment
fn fs_main(@builtin(position) position: vec4<f32>) -> @builtin(frag_depth) f32 {
	return textureLoad(source, vec2<i32>(position.xy), 0);
}
`

// shaderSource assembles the WGSL module of a pipeline variant.
//
// Parameters:
//   - key: the pipeline variant
//
// Returns:
//   - string: the WGSL source
func shaderSource(key pipelineKey) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "const LIGHT_MASK: u32 = %du;\n", key.lightMask)
	sb.WriteString(frameBindings)
	if key.skinned {
		sb.WriteString(vertexInputSkinned)
	} else {
		sb.WriteString(vertexInputStatic)
	}
	if key.shadow {
		sb.WriteString(shadowShader)
	} else {
		sb.WriteString(forwardShader)
	}
	return sb.String()
}
