package camera

import (
	_ "embed"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/riwanou/wgpu-lua-fun/common"
)

// GPUGlobalsSource is the canonical WGSL definition of the Globals struct.
// Matches GPUGlobals layout exactly (144 bytes, uniform aligned).
//
//go:embed assets/globals.wgsl
var GPUGlobalsSource string

// GPUGlobals is the GPU-aligned representation of the per-frame globals uniform bound at group 0.
// Matches the WGSL Globals struct layout exactly (see GPUGlobalsSource).
// Size: 144 bytes (two mat4x4 + f32, rounded up to the 16-byte struct alignment).
type GPUGlobals struct {
	ClipView  mgl32.Mat4 // offset   0: clip-from-view projection matrix
	ViewWorld mgl32.Mat4 // offset  64: view-from-world matrix
	Elapsed   float32    // offset 128: seconds since start
	_pad      [3]float32 // offset 132: padding to 144 bytes
}

// Size returns the size of the GPUGlobals struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPUGlobals) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUGlobals struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 144-byte buffer ready for GPU upload
func (g *GPUGlobals) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := common.PutFloat32s(buf, 0, g.ClipView[:]...)
	off = common.PutFloat32s(buf, off, g.ViewWorld[:]...)
	common.PutFloat32s(buf, off, g.Elapsed, 0, 0, 0)
	return buf
}
