package renderer

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/cluster"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
)

// PerViewUniforms is the GPU-aligned per-view uniform block shared by every draw of a view.
// All members are 16-byte aligned so the Go layout matches WGSL's uniform layout.
//
// Layout:
//
//	mat4x4<f32>    view                        (offset   0)
//	mat4x4<f32>    projection                  (offset  64)
//	mat4x4<f32>    view_projection             (offset 128)
//	vec4<f32>      camera_position             (offset 192)
//	vec4<f32>      depth_parameters            (offset 208) near, far, 1 / far, orthographic
//	vec4<f32>      ambient_color               (offset 224)
//	vec4<f32>      dir_light_direction         (offset 240) xyz towards the light
//	vec4<f32>      dir_light_color             (offset 256) rgb * intensity
//	vec4<f32>      dir_light_shadow_parameters (offset 272) split 0, split 1, shadowed, unused
//	mat4x4<f32> x2 dir_light_shadow_matrices   (offset 288)
//	vec4<f32>      cluster_parameters          (offset 416) cells x, y, z, max lights per cell
type PerViewUniforms struct {
	View                     common.Mat4
	Projection               common.Mat4
	ViewProjection           common.Mat4
	CameraPosition           common.Vec4
	DepthParameters          common.Vec4
	AmbientColor             common.Vec4
	DirLightDirection        common.Vec4
	DirLightColor            common.Vec4
	DirLightShadowParameters common.Vec4
	DirLightShadowMatrices   [2]common.Mat4
	ClusterParameters        common.Vec4
}

// Size returns the size of the uniform block in bytes.
//
// Returns:
//   - int: the block size (432)
func (u *PerViewUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal copies the uniform block into a new byte slice suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized block
func (u *PerViewUniforms) Marshal() []byte {
	return append([]byte(nil), common.StructToBytes(u)...)
}

func (r *viewRenderer) perViewUniforms() PerViewUniforms {
	cam := r.camera
	u := PerViewUniforms{
		ClusterParameters: common.Vec4{
			cluster.NumClustersX, cluster.NumClustersY, cluster.NumClustersZ, cluster.MaxLightsPerCluster,
		},
		AmbientColor: common.Vec4{r.ambientColor[0], r.ambientColor[1], r.ambientColor[2], 1},
	}
	if cam == nil {
		return u
	}

	u.View = cam.ViewMatrix()
	u.Projection = cam.ProjectionMatrix()
	u.ViewProjection = cam.ViewProjectionMatrix()
	pos := cam.Position()
	u.CameraPosition = common.Vec4{pos[0], pos[1], pos[2], 1}
	var ortho float32
	if cam.Orthographic() {
		ortho = 1
	}
	u.DepthParameters = common.Vec4{cam.Near(), cam.Far(), 1 / cam.Far(), ortho}

	if dir := r.dirLight; dir != nil {
		d := dir.Direction().Negate()
		c := dir.Color().Scale(dir.Intensity())
		u.DirLightDirection = common.Vec4{d[0], d[1], d[2], 0}
		u.DirLightColor = common.Vec4{c[0], c[1], c[2], 1}

		splits := dir.ShadowSplits()
		u.DirLightShadowParameters = common.Vec4{splits[0], splits[1], 0, 0}
		if r.drawShadows && dir.ShadowMapIndex() != light.NoShadowMap {
			views := dir.ShadowViews()
			shadowed := false
			for i := range min(len(views), len(u.DirLightShadowMatrices)) {
				if !views[i].Skipped() {
					u.DirLightShadowMatrices[i] = views[i].ShadowMatrix
					shadowed = true
				}
			}
			if shadowed {
				u.DirLightShadowParameters[2] = 1
			}
		}
	}
	return u
}
