package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParams is the GPU-aligned per-material uniform bound by the forward pipelines.
// Size: 32 bytes (std430 aligned).
type GPUMaterialParams struct {
	BaseColor [4]float32 // offset  0: albedo RGBA (16 bytes)
	Metallic  float32    // offset 16
	Roughness float32    // offset 20
	_pad      [2]float32 // offset 24: padding to 32 bytes
}

// NewGPUMaterialParams builds the uniform from a material.
//
// Parameters:
//   - m: the source material
//
// Returns:
//   - GPUMaterialParams: the uniform data
func NewGPUMaterialParams(m Material) GPUMaterialParams {
	return GPUMaterialParams{BaseColor: m.BaseColor(), Metallic: m.Metallic(), Roughness: m.Roughness()}
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.BaseColor[i]))
	}
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Roughness))
	return buf
}
