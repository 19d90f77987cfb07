package material

import (
	_ "embed"
	"unsafe"

	"github.com/riwanou/wgpu-lua-fun/common"
)

// GPUSimpleMaterialSource is the canonical WGSL definition of the SimpleMaterial struct.
// Matches GPUSimpleMaterial layout exactly (16 bytes, uniform aligned).
//
//go:embed assets/simple_material.wgsl
var GPUSimpleMaterialSource string

// DefaultColor is the color a SimpleMaterial gets when none is supplied.
var DefaultColor = [3]float32{1.0, 0.2, 0.3}

// GPUSimpleMaterial is the GPU-aligned uniform for the material shaders that take a flat color.
// Matches the WGSL SimpleMaterial struct layout exactly (see GPUSimpleMaterialSource).
// Size: 16 bytes (vec3<f32> rounded up to its 16-byte alignment).
type GPUSimpleMaterial struct {
	Color [3]float32 // offset 0: RGB color (12 bytes)
	_pad  float32    // offset 12: struct size rounds up to 16
}

// NewSimpleMaterial creates a GPUSimpleMaterial with the given color.
//
// Parameters:
//   - color: the RGB color
//
// Returns:
//   - *GPUSimpleMaterial: the uniform payload
func NewSimpleMaterial(color [3]float32) *GPUSimpleMaterial {
	return &GPUSimpleMaterial{Color: color}
}

// Size returns the size of the GPUSimpleMaterial struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUSimpleMaterial) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSimpleMaterial struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (g *GPUSimpleMaterial) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloat32s(buf, 0, g.Color[:]...)
	return buf
}

// RawUniform is a pre-packed uniform payload for shaders whose material struct has no Go type.
// The caller is responsible for matching the WGSL layout.
type RawUniform []byte

// Size returns the payload length in bytes.
//
// Returns:
//   - int: the payload length
func (r RawUniform) Size() int {
	return len(r)
}

// Marshal returns a copy of the payload.
//
// Returns:
//   - []byte: the payload bytes
func (r RawUniform) Marshal() []byte {
	return append([]byte(nil), r...)
}
