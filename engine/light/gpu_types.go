package light

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// MaxLights is the maximum number of local lights rendered per view. Light indices
// are stored as bytes in the cluster grid and index 0 is reserved for "no light"
// (it holds the directional light), so at most 255 local lights are addressable.
const MaxLights = 255

// GPULightData is the GPU-aligned representation of a single light source.
// Size: 160 bytes (std430 / WGSL aligned).
//
// Layout:
//
//	vec4<f32>   position          (16 bytes, offset   0) xyz world position, w = 1 / range
//	vec4<f32>   direction         (16 bytes, offset  16) xyz normalized direction, w = light type
//	vec4<f32>   attenuation       (16 bytes, offset  32) x = cos(outer), y = 1 / (cos(inner) - cos(outer))
//	vec4<f32>   color             (16 bytes, offset  48) rgb * intensity, w = casts shadows
//	vec4<f32>   shadow_parameters (16 bytes, offset  64) xy = atlas texel size, z = depth bias, w = shadow map index
//	vec4<f32>   shadow_rect       (16 bytes, offset  80) atlas UV rectangle (x, y, width, height)
//	mat4x4<f32> shadow_matrix     (64 bytes, offset  96) world to atlas UV for spot lights and the first cascade
type GPULightData struct {
	Position         common.Vec4
	Direction        common.Vec4
	Attenuation      common.Vec4
	Color            common.Vec4
	ShadowParameters common.Vec4
	ShadowRect       common.Vec4
	ShadowMatrix     common.Mat4
}

// Size returns the size of the GPULightData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (160)
func (g *GPULightData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULightData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 160-byte buffer ready for GPU upload
func (g *GPULightData) Marshal() []byte {
	buf := make([]byte, 160)
	g.marshalInto(buf)
	return buf
}

func (g *GPULightData) marshalInto(buf []byte) {
	off := 0
	for _, v := range [...]common.Vec4{g.Position, g.Direction, g.Attenuation, g.Color, g.ShadowParameters, g.ShadowRect} {
		off = putFloats(buf, off, v[:])
	}
	putFloats(buf, off, g.ShadowMatrix[:])
}

// ToGPULightData converts a Light into the GPU-aligned GPULightData struct suitable
// for writing into the light storage buffer.
//
// Parameters:
//   - l: the Light to convert
//
// Returns:
//   - GPULightData: the GPU-aligned representation
func ToGPULightData(l Light) GPULightData {
	var d GPULightData
	pos := l.Position()
	dir := l.Direction()
	color := l.Color().Scale(l.Intensity())

	invRange := float32(0)
	if l.Range() > 0 {
		invRange = 1 / l.Range()
	}
	d.Position = common.Vec4{pos[0], pos[1], pos[2], invRange}
	d.Direction = common.Vec4{dir[0], dir[1], dir[2], float32(l.Type())}

	spread := l.InnerCone() - l.OuterCone()
	if spread < 1e-4 {
		spread = 1e-4
	}
	d.Attenuation = common.Vec4{l.OuterCone(), 1 / spread, 0, 0}

	shadowed := l.ShadowMapIndex() != NoShadowMap
	d.Color = common.Vec4{color[0], color[1], color[2], boolToFloat(shadowed)}
	d.ShadowMatrix = common.Identity4()
	d.ShadowParameters = common.Vec4{0, 0, 0, float32(NoShadowMap)}
	if !shadowed {
		return d
	}

	impl, _ := l.(*lightImpl)
	bias, _ := l.DepthBias()
	rect := l.ShadowRect()
	if impl != nil && impl.atlasWidth > 0 && impl.atlasHeight > 0 {
		aw, ah := float32(impl.atlasWidth), float32(impl.atlasHeight)
		d.ShadowParameters = common.Vec4{1 / aw, 1 / ah, bias, float32(l.ShadowMapIndex())}
		d.ShadowRect = common.Vec4{
			float32(rect.Left) / aw, float32(rect.Top) / ah,
			float32(rect.Width()) / aw, float32(rect.Height()) / ah,
		}
	}
	if views := l.ShadowViews(); len(views) > 0 && !views[0].Skipped() {
		d.ShadowMatrix = views[0].ShadowMatrix
	}
	return d
}

// MarshalLightBuffer marshals the directional light (or an empty entry) followed by
// up to MaxLights local lights into a byte buffer suitable for GPU upload. Lights
// beyond the cap are dropped; callers sort by priority first.
//
// Parameters:
//   - dirLight: the main directional light, may be nil
//   - lights: local lights in priority order
//
// Returns:
//   - []byte: the marshaled buffer ready for GPU upload
func MarshalLightBuffer(dirLight Light, lights []Light) []byte {
	if len(lights) > MaxLights {
		lights = lights[:MaxLights]
	}
	size := (&GPULightData{}).Size()
	buf := make([]byte, size*(len(lights)+1))

	if dirLight != nil {
		d := ToGPULightData(dirLight)
		d.marshalInto(buf[:size])
	}
	for i, l := range lights {
		d := ToGPULightData(l)
		off := (i + 1) * size
		d.marshalInto(buf[off : off+size])
	}
	return buf
}

func putFloats(buf []byte, off int, values []float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return off
}

func boolToFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
