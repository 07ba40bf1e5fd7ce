package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// GPUVertex is the GPU-aligned representation of a single mesh vertex for static (non-skinned) models.
// Size: 48 bytes (std430 aligned, no padding required).
type GPUVertex struct {
	Position common.Vec3 // offset  0: vertex position in model space (12 bytes)
	Normal   common.Vec3 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32  // offset 24: UV texture coordinate (8 bytes)
	Color    [4]float32  // offset 32: per-vertex RGBA color (16 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 48)
	g.marshalInto(buf)
	return buf
}

func (g *GPUVertex) marshalInto(buf []byte) {
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Position[i]))
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(g.Normal[i]))
	}
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.TexCoord[0]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.TexCoord[1]))
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[32+i*4:], math.Float32bits(g.Color[i]))
	}
}

// GPUSkinnedVertex is the GPU-aligned representation of a single mesh vertex for skinned (bone-animated) models.
// It extends GPUVertex with per-vertex bone skinning data.
// Size: 80 bytes (48 base vertex + 32 skinning data, std430 aligned, no padding required).
type GPUSkinnedVertex struct {
	GPUVertex              // offset  0: base vertex data (position, normal, uv, color) - 48 bytes
	BoneIndices [4]uint32  // offset 48: indices of up to 4 influencing bones (16 bytes)
	BoneWeights [4]float32 // offset 64: blend weights for each bone (must sum to 1.0) (16 bytes)
}

// Size returns the size of the GPUSkinnedVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUSkinnedVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSkinnedVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUSkinnedVertex) Marshal() []byte {
	buf := make([]byte, 80)
	g.GPUVertex.marshalInto(buf)
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[48+i*4:], g.BoneIndices[i])
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.BoneWeights[i]))
	}
	return buf
}

// GPUModelData is the GPU-aligned representation of a single per-instance model matrix.
// Size: 64 bytes (mat4x4<f32> = 16 × float32, std430 aligned, no padding required).
type GPUModelData struct {
	Model common.Mat4 // offset 0: 4×4 model-to-world transform matrix (64 bytes)
}

// Size returns the size of the GPUModelData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUModelData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUModelData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUModelData) Marshal() []byte {
	buf := make([]byte, 64)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.Model[i]))
	}
	return buf
}
