package renderer

import (
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/pipeline"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPipeline registers a Pipeline once the backend exists. NewRenderer panics if it fails validation.
//
// Parameters:
//   - p: the Pipeline to register
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipeline(p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPipelines = append(r.pendingPipelines, p)
	}
}

// WithPipelines registers several Pipelines once the backend exists, in order.
//
// Parameters:
//   - pipelines: the Pipelines to register
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipelines option to a renderer
func WithPipelines(pipelines ...pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPipelines = append(r.pendingPipelines, pipelines...)
	}
}

// WithBackend replaces the backend selected by the backend type, e.g. with a HeadlessBackend
// whose records a test wants to inspect.
//
// Parameters:
//   - backend: the backend to drive
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}

// WithFrameSlots sets how many frame slots the renderer rotates through. Each slot owns its own
// globals, lights, instance and material buffers. Defaults to 2.
//
// Parameters:
//   - n: the slot count, at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the frame slots option to a renderer
func WithFrameSlots(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.frameSlots = n
	}
}

// WithIdleFrames sets how many flushes of a frame slot a batch key may go unused before the
// slot releases its instance buffer and material group. Defaults to 120; n <= 0 never evicts.
//
// Parameters:
//   - n: the idle flush count
//
// Returns:
//   - RendererBuilderOption: a function that applies the idle frames option to a renderer
func WithIdleFrames(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.idleFrames = n
	}
}

// WithWorkers sets the number of workers marshalling instance data during Flush.
// Defaults to runtime.NumCPU().
//
// Parameters:
//   - n: the worker count, at least 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the workers option to a renderer
func WithWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = n
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not be supported
// by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
