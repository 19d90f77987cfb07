package model

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct.
// Matches GPUVertex layout exactly (32 bytes, vertex buffer slot 0, locations 0-2).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUInstanceSource is the canonical WGSL definition of the InstanceInput struct.
// Matches GPUInstance layout exactly (100 bytes, vertex buffer slot 1, locations 3-9).
//
//go:embed assets/instance.wgsl
var GPUInstanceSource string

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Matches the WGSL VertexInput struct layout exactly (see GPUVertexSource).
// Size: 32 bytes (vertex attributes are tightly packed).
type GPUVertex struct {
	Position [3]float32 // offset  0: model-space position (location 0)
	TexCoord [2]float32 // offset 12: UV coordinate (location 1)
	Normal   [3]float32 // offset 20: model-space normal (location 2)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.marshalInto(buf)
	return buf
}

func (g *GPUVertex) marshalInto(buf []byte) {
	off := common.PutFloat32s(buf, 0, g.Position[:]...)
	off = common.PutFloat32s(buf, off, g.TexCoord[:]...)
	common.PutFloat32s(buf, off, g.Normal[:]...)
}

// GPUInstance is the per-instance payload read from the instance vertex buffer.
// Matches the WGSL InstanceInput struct layout exactly (see GPUInstanceSource).
// Size: 100 bytes (vertex attributes are tightly packed).
type GPUInstance struct {
	Model      [16]float32 // offset  0: world matrix columns (locations 3-6)
	NormalRows [9]float32  // offset 64: normal matrix rows (locations 7-9)
}

// Size returns the size of the GPUInstance struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (100)
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 100-byte buffer ready for GPU upload
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.marshalInto(buf)
	return buf
}

func (g *GPUInstance) marshalInto(buf []byte) {
	off := common.PutFloat32s(buf, 0, g.Model[:]...)
	common.PutFloat32s(buf, off, g.NormalRows[:]...)
}

// InstanceFromTransform snapshots the world and normal matrices of t at call time.
//
// Parameters:
//   - t: the transform to snapshot
//
// Returns:
//   - GPUInstance: the instance payload for t's current state
func InstanceFromTransform(t *transform.Transform) GPUInstance {
	inst := GPUInstance{Model: t.Matrix()}
	n := t.NormalMatrix()
	for r := 0; r < 3; r++ {
		row := n.Row(r)
		copy(inst.NormalRows[r*3:r*3+3], row[:])
	}
	return inst
}

// MarshalInstances packs instances back to back for an instance buffer upload.
//
// Parameters:
//   - instances: the instances to pack, in draw order
//
// Returns:
//   - []byte: len(instances) * 100 bytes
func MarshalInstances(instances []GPUInstance) []byte {
	stride := (&GPUInstance{}).Size()
	buf := make([]byte, len(instances)*stride)
	for i := range instances {
		instances[i].marshalInto(buf[i*stride : (i+1)*stride])
	}
	return buf
}

// MarshalVertices packs vertices back to back for a vertex buffer upload.
//
// Parameters:
//   - vertices: the mesh vertices
//
// Returns:
//   - []byte: len(vertices) * 32 bytes
func MarshalVertices(vertices []GPUVertex) []byte {
	stride := (&GPUVertex{}).Size()
	buf := make([]byte, len(vertices)*stride)
	for i := range vertices {
		vertices[i].marshalInto(buf[i*stride : (i+1)*stride])
	}
	return buf
}

// MarshalIndices packs uint32 indices little-endian for an index buffer upload.
//
// Parameters:
//   - indices: the triangle list indices
//
// Returns:
//   - []byte: len(indices) * 4 bytes
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}
