package engine

import (
	"time"

	"github.com/riwanou/wgpu-lua-fun/engine/input"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer"
	"github.com/riwanou/wgpu-lua-fun/engine/resource"
	"github.com/riwanou/wgpu-lua-fun/engine/scene"
	"github.com/riwanou/wgpu-lua-fun/engine/script"
	"github.com/riwanou/wgpu-lua-fun/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets the window the engine presents to and reads input from.
// Without a window the engine renders headless.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer instead of letting the engine create one. The renderer must
// already hold every pipeline the entities use.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithRegistry sets the resource registry, e.g. one created with custom mesh or texture sources.
// It must upload through the engine's renderer.
//
// Parameters:
//   - reg: the registry
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRegistry(reg resource.Registry) EngineBuilderOption {
	return func(e *engine) {
		e.registry = reg
	}
}

// WithScene sets the scene entities render into.
//
// Parameters:
//   - s: the Scene
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithInputs sets the input state. It is wired to the window when one is set.
//
// Parameters:
//   - in: the input state
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithInputs(in input.Inputs) EngineBuilderOption {
	return func(e *engine) {
		e.inputs = in
	}
}

// WithBridge sets the script bridge.
//
// Parameters:
//   - b: the bridge
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBridge(b script.Bridge) EngineBuilderOption {
	return func(e *engine) {
		e.bridge = b
	}
}

// WithEntity registers an entity with the bridge during engine construction. An empty id
// generates a uuid. A duplicate id fails Run.
//
// Parameters:
//   - id: the entity id, may be empty
//   - ent: the entity
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithEntity(id string, ent script.Entity) EngineBuilderOption {
	return func(e *engine) {
		e.pending = append(e.pending, pendingEntity{id: id, entity: ent})
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithFixedDelta makes Run pass a constant frame delta instead of the measured one.
// Pass 0 to measure (default).
//
// Parameters:
//   - dt: the delta in seconds
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFixedDelta(dt float32) EngineBuilderOption {
	return func(e *engine) {
		if dt < 0 {
			dt = 0
		}
		e.fixedDelta = dt
	}
}
