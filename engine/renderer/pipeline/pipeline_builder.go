package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/shader"
)

// RenderState is the fixed-function state a pipeline is created with.
type RenderState struct {
	DepthTest           bool
	DepthWrite          bool
	DepthBias           int32
	DepthBiasSlopeScale float32

	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	CullMode  wgpu.CullMode

	// Blend is nil for opaque pipelines.
	Blend     *wgpu.BlendState
	WriteMask wgpu.ColorWriteMask
}

// AlphaBlending is straight alpha blending for the color target.
var AlphaBlending = &wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// defaultRenderState draws opaque, depth tested, back-face culled triangle lists with
// counter-clockwise front faces.
func defaultRenderState() RenderState {
	return RenderState{
		DepthTest:  true,
		DepthWrite: true,
		Topology:   wgpu.PrimitiveTopologyTriangleList,
		FrontFace:  wgpu.FrontFaceCCW,
		CullMode:   wgpu.CullModeBack,
		WriteMask:  wgpu.ColorWriteMaskAll,
	}
}

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithShaders sets the vertex and fragment stages of the pipeline. Both are parsed shaders,
// usually from the same WGSL program.
//
// Parameters:
//   - vertex: the shader parsed for shader.ShaderTypeVertex
//   - fragment: the shader parsed for shader.ShaderTypeFragment
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithShaders(vertex, fragment shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader, p.fragmentShader = vertex, fragment
	}
}

// WithVariant sets the binding shape the pipeline's shaders must declare.
//
// Parameters:
//   - v: the pipeline variant
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithVariant(v Variant) PipelineBuilderOption {
	return func(p *pipeline) {
		p.variant = v
	}
}

// WithDepth sets whether fragments are depth tested and whether they write depth.
//
// Parameters:
//   - test: enable the less-than depth comparison
//   - write: write passing fragments to the depth buffer
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDepth(test, write bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthTest, p.state.DepthWrite = test, write
	}
}

// WithDepthBias offsets the depth of every fragment, e.g. for decals.
//
// Parameters:
//   - bias: the constant depth bias
//   - slopeScale: the slope scaled depth bias
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthBias, p.state.DepthBiasSlopeScale = bias, slopeScale
	}
}

// WithBlend sets the blend state of the color target. Nil disables blending.
//
// Parameters:
//   - blend: the blend state, e.g. AlphaBlending
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithBlend(blend *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Blend = blend
	}
}

// WithRaster sets primitive assembly and face culling.
//
// Parameters:
//   - topology: the primitive topology
//   - frontFace: the winding order of front faces
//   - cull: the faces to discard
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithRaster(topology wgpu.PrimitiveTopology, frontFace wgpu.FrontFace, cull wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Topology, p.state.FrontFace, p.state.CullMode = topology, frontFace, cull
	}
}

// WithWriteMask sets which color channels the pipeline writes.
//
// Parameters:
//   - mask: the color write mask
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithWriteMask(mask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.WriteMask = mask
	}
}
