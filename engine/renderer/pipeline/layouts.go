package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/riwanou/wgpu-lua-fun/engine/camera"
	"github.com/riwanou/wgpu-lua-fun/engine/light"
)

const bothStages = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

// GlobalsLayout returns the group 0 layout every variant shares. Bind groups created from it are
// compatible with any validated pipeline since Validate merges entries to the same shape.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: one uniform binding sized for camera.GPUGlobals
func GlobalsLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "globals",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: bothStages,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(new(camera.GPUGlobals).Size()),
				},
			},
		},
	}
}

// LightsLayout returns the group 1 layout of the lit variants.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: one read-only storage binding holding the light header and one record
func LightsLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "lights",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: bothStages,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: light.LightBufferSize(light.LightBufferCapacity(0)),
				},
			},
		},
	}
}

// EmptyLayout returns a layout with no entries, bound at the groups a variant skips.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the empty layout
func EmptyLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{Label: "empty"}
}
