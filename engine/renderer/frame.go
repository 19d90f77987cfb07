package renderer

import (
	"errors"
	"fmt"

	"github.com/riwanou/wgpu-lua-fun/engine/camera"
	"github.com/riwanou/wgpu-lua-fun/engine/light"
	"github.com/riwanou/wgpu-lua-fun/engine/model"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/bind_group_provider"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/material"
)

// ErrResourceNotFound is returned when a mesh, texture, material or pipeline id is not known.
var ErrResourceNotFound = errors.New("resource not found")

// BatchKey identifies the instances that can be drawn with one instanced draw call.
type BatchKey struct {
	Mesh     string
	Shader   string
	Material string
}

func (k BatchKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Mesh, k.Shader, k.Material)
}

// DrawBatch is the list of instances accumulated for a BatchKey during one frame.
type DrawBatch struct {
	Key       BatchKey
	Instances []model.GPUInstance
}

// Frame is everything Flush needs to render one frame.
type Frame struct {
	Globals camera.GPUGlobals
	Lights  []light.PointLight
	Batches []DrawBatch
}

// Resolver maps the ids used in batch keys to uploaded resources.
type Resolver interface {
	// Mesh retrieves the provider holding the vertex and index buffers of a mesh.
	//
	// Parameters:
	//   - id: the mesh id
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider
	//   - error: ErrResourceNotFound when the mesh was never loaded
	Mesh(id string) (bind_group_provider.BindGroupProvider, error)

	// Texture retrieves the provider holding the texture view and sampler of a texture.
	//
	// Parameters:
	//   - id: the texture id
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the texture provider
	//   - error: ErrResourceNotFound when the texture was never loaded
	Texture(id string) (bind_group_provider.BindGroupProvider, error)

	// Material retrieves a material by key.
	//
	// Parameters:
	//   - id: the material key
	//
	// Returns:
	//   - material.Material: the material
	//   - error: ErrResourceNotFound when the material was never added
	Material(id string) (material.Material, error)
}

// Stats holds counters describing the work the renderer did. Per-frame fields describe the last
// flushed frame; the totals accumulate for the renderer's lifetime.
type Stats struct {
	Frames    uint64
	DrawCalls int
	Instances int

	// DroppedBatches counts the batches of the last frame skipped because a resource was missing.
	DroppedBatches int

	LightCount            int
	LightReallocations    uint64
	InstanceReallocations uint64
	MaterialUploads       uint64

	// EvictedProviders counts the per-slot instance and material providers released after
	// their batch key went unused.
	EvictedProviders uint64
}
