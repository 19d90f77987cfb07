package light

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/riwanou/wgpu-lua-fun/common"
)

// GPUPointLightSource is the canonical WGSL definition of the PointLight struct.
// Matches GPUPointLight layout exactly (16 bytes, storage aligned).
//
//go:embed assets/point_light.wgsl
var GPUPointLightSource string

// GPUPointLightsSource is the canonical WGSL definition of the PointLights storage struct:
// a u32 length followed by a runtime-sized PointLight array starting at offset 16.
//
//go:embed assets/point_lights.wgsl
var GPUPointLightsSource string

// AttenuationSource is the WGSL twin of Attenuate, included by lit fragment shaders.
//
//go:embed assets/attenuation.wgsl
var AttenuationSource string

// GPUPointLight is the GPU-aligned representation of a single point light.
// Matches the WGSL PointLight struct layout exactly (see GPUPointLightSource).
// Size: 16 bytes.
type GPUPointLight struct {
	Position [3]float32 // offset  0: world-space position
	Radius   float32    // offset 12: radius of influence
}

// Size returns the size of the GPUPointLight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUPointLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUPointLight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (g *GPUPointLight) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloat32s(buf, 0, g.Position[0], g.Position[1], g.Position[2], g.Radius)
	return buf
}

// GPULightHeader is the header at the start of the PointLights storage buffer.
// The WGSL array that follows is 16-byte aligned, so the u32 length is padded to 16 bytes.
type GPULightHeader struct {
	Len  uint32    // offset 0: number of valid PointLight records that follow
	_pad [3]uint32 // offset 4: padding to the array's alignment
}

// Size returns the size of the GPULightHeader struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (h *GPULightHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// Marshal serializes the GPULightHeader struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (h *GPULightHeader) Marshal() []byte {
	buf := make([]byte, h.Size())
	binary.LittleEndian.PutUint32(buf[0:4], h.Len)
	return buf
}

// LightBufferCapacity returns the number of light records to allocate for count lights.
// At least one record is always allocated so the binding meets the shader's minimum size
// even on frames with no lights.
//
// Parameters:
//   - count: the number of lights registered this frame
//
// Returns:
//   - int: the record capacity, max(1, count)
func LightBufferCapacity(count int) int {
	return max(1, count)
}

// LightBufferSize returns the byte size of a light storage buffer holding capacity records.
//
// Parameters:
//   - capacity: the number of PointLight records
//
// Returns:
//   - uint64: header size plus capacity records
func LightBufferSize(capacity int) uint64 {
	return uint64((&GPULightHeader{}).Size() + capacity*(&GPUPointLight{}).Size())
}

// MarshalLightBuffer packs the header and light records into a byte slice matching the
// PointLights WGSL struct. The header length always equals len(lights); unused trailing
// records up to capacity are zeroed.
//
// Parameters:
//   - lights: the lights registered this frame
//   - capacity: the record capacity of the destination buffer (raised to fit lights if smaller)
//
// Returns:
//   - []byte: the serialized buffer, LightBufferSize(capacity) bytes long
func MarshalLightBuffer(lights []PointLight, capacity int) []byte {
	capacity = max(capacity, LightBufferCapacity(len(lights)))
	headerSize := (&GPULightHeader{}).Size()
	lightSize := (&GPUPointLight{}).Size()

	buf := make([]byte, LightBufferSize(capacity))
	header := GPULightHeader{Len: uint32(len(lights))}
	copy(buf[0:headerSize], header.Marshal())

	offset := headerSize
	for _, l := range lights {
		gpu := GPUPointLight{Position: l.Position, Radius: l.Radius}
		copy(buf[offset:offset+lightSize], gpu.Marshal())
		offset += lightSize
	}

	return buf
}
