package engine

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/riwanou/wgpu-lua-fun/engine/input"
	"github.com/riwanou/wgpu-lua-fun/engine/profiler"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/pipeline"
	"github.com/riwanou/wgpu-lua-fun/engine/resource"
	"github.com/riwanou/wgpu-lua-fun/engine/scene"
	"github.com/riwanou/wgpu-lua-fun/engine/script"
	"github.com/riwanou/wgpu-lua-fun/engine/window"
)

// defaultAspect is used for the projection when there is no window to measure.
const defaultAspect = 16.0 / 9.0

// pendingEntity is an entity passed to WithEntity, registered once the bridge exists.
type pendingEntity struct {
	id     string
	entity script.Entity
}

// engine implements the Engine interface.
// Drives one frame at a time: scripts, scene, globals, flush.
type engine struct {
	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window       window.Window
	windowClosed bool

	renderer renderer.Renderer
	registry resource.Registry
	scene    scene.Scene
	bridge   script.Bridge
	inputs   input.Inputs

	// cursor is the script window capability; the window itself or a headless stand-in.
	cursor script.WindowControl

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	fixedDelta       float32       // seconds per frame; 0 = measured

	pending []pendingEntity

	// setupErr holds the first construction failure; Run and Frame return it.
	setupErr error

	elapsed   float32
	lastFrame time.Time
	frames    uint64
}

// Engine is the main entry point for the engine.
// It owns the window, renderer, registry, scene, inputs and script bridge and runs the frame
// loop that ties them together.
type Engine interface {
	// Window returns the underlying window, nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer frames are flushed to.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Registry returns the resource registry exposed to entities as ctx.Graphics.
	//
	// Returns:
	//   - resource.Registry: the registry
	Registry() resource.Registry

	// Scene returns the scene entities render into.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// Bridge returns the script bridge driving the entities.
	//
	// Returns:
	//   - script.Bridge: the bridge
	Bridge() script.Bridge

	// Inputs returns the input state fed by the window.
	//
	// Returns:
	//   - input.Inputs: the input state
	Inputs() input.Inputs

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the frame loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frame runs one frame: the scene and lights are reset, the bridge runs the Init, Update and
	// Render passes, the globals are computed from the scene camera, and the renderer flushes.
	// Script errors are logged by the bridge and do not fail the frame.
	//
	// Parameters:
	//   - dt: seconds since the previous frame
	//
	// Returns:
	//   - error: the setup error, or the renderer's flush error
	Frame(dt float32) error

	// Run starts the frame loop and blocks until the window closes or Quit is called.
	// Without a window the loop runs until Quit.
	//
	// Returns:
	//   - error: the setup error, or the first flush error
	Run() error

	// Quit stops the frame loop. Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Release frees the registry, the renderer and the window.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Every component not supplied through an option is created with its defaults: a wgpu
// renderer when a window is set and a headless renderer otherwise, both with the built-in
// "unlit", "animated", "lit" and "textured" pipelines.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel: make(chan struct{}),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.renderer == nil {
		if e.window != nil {
			e.renderer = renderer.NewRenderer(renderer.BackendTypeWGPU, e.window, renderer.WithPipelines(DefaultPipelines()...))
		} else {
			e.renderer = renderer.NewRenderer(renderer.BackendTypeHeadless, nil, renderer.WithPipelines(DefaultPipelines()...))
		}
	}
	if e.registry == nil {
		e.registry = resource.NewRegistry(e.renderer)
	}
	if e.scene == nil {
		e.scene = scene.NewScene("main")
	}
	if e.inputs == nil {
		e.inputs = input.NewInputs()
	}
	if e.bridge == nil {
		e.bridge = script.NewBridge()
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	if e.window != nil {
		e.cursor = e.window
		input.Attach(e.inputs, e.window)
		e.window.SetResizeCallback(func(width, height int) {
			e.renderer.Resize(width, height)
		})
	} else {
		e.cursor = &headlessCursor{}
	}

	for _, p := range e.pending {
		if _, err := e.bridge.Register(p.id, p.entity); err != nil && e.setupErr == nil {
			e.setupErr = fmt.Errorf("engine setup: %w", err)
		}
	}
	e.pending = nil

	return e
}

// DefaultPipelines returns the built-in pipelines registered by NewEngine: "unlit", "animated",
// "lit" and "textured", one per variant.
//
// Returns:
//   - []pipeline.Pipeline: the built-in pipelines
func DefaultPipelines() []pipeline.Pipeline {
	return []pipeline.Pipeline{
		pipeline.NewBuiltinPipeline("unlit", pipeline.VariantUnlit),
		pipeline.NewBuiltinPipeline("animated", pipeline.VariantAnimated),
		pipeline.NewBuiltinPipeline("lit", pipeline.VariantLitNormal),
		pipeline.NewBuiltinPipeline("textured", pipeline.VariantTexturedLit),
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Registry() resource.Registry {
	return e.registry
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Bridge() script.Bridge {
	return e.bridge
}

func (e *engine) Inputs() input.Inputs {
	return e.inputs
}

func (e *engine) Frame(dt float32) error {
	if e.setupErr != nil {
		return e.setupErr
	}
	e.elapsed += dt
	e.frames++

	e.scene.Reset()
	ctx := &script.Context{
		Scene:    e.scene,
		Graphics: e.registry,
		Inputs:   e.inputs,
		Window:   e.cursor,
	}
	// script errors are logged once per entity by the bridge
	_ = e.bridge.Frame(ctx, dt, e.elapsed)

	globals := e.scene.Camera().Globals(e.aspect(), e.elapsed)
	err := e.renderer.Flush(e.scene.Frame(globals), e.registry)
	e.inputs.EndFrame()

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick(e.renderer.Stats())
	}
	if err != nil {
		return fmt.Errorf("frame %d: %w", e.frames, err)
	}
	return nil
}

// aspect returns the projection aspect ratio from the window's framebuffer size.
func (e *engine) aspect() float32 {
	if e.window != nil && e.window.Width() > 0 && e.window.Height() > 0 {
		return float32(e.window.Width()) / float32(e.window.Height())
	}
	return defaultAspect
}

// delta returns the seconds since the previous frame, or the fixed delta when configured.
func (e *engine) delta() float32 {
	now := time.Now()
	defer func() { e.lastFrame = now }()
	if e.fixedDelta > 0 {
		return e.fixedDelta
	}
	if e.lastFrame.IsZero() {
		return 0
	}
	return float32(now.Sub(e.lastFrame).Seconds())
}

func (e *engine) Run() error {
	if e.setupErr != nil {
		return e.setupErr
	}
	var runErr error
	step := func() bool {
		select {
		case <-e.quitChannel:
			return false
		default:
		}
		start := time.Now()
		if err := e.Frame(e.delta()); err != nil {
			log.Printf("[Engine] %v", err)
			runErr = err
			e.signalQuit()
			return false
		}
		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
		return true
	}

	if e.window == nil {
		for step() {
		}
		return runErr
	}

	e.window.SetUpdateCallback(func() {
		if !step() && !e.windowClosed {
			e.windowClosed = true
			e.window.Close()
		}
	})
	e.window.ProcessMessages()
	return runErr
}

// Quit signals the frame loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal the frame loop to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Release() {
	e.signalQuit()
	e.registry.Release()
	e.renderer.Release()
	if e.window != nil && !e.windowClosed {
		e.windowClosed = true
		e.window.Close()
	}
}

// headlessCursor stands in for the window's cursor controls when there is no window.
type headlessCursor struct {
	grabbed bool
}

func (c *headlessCursor) GrabCursor() { c.grabbed = true }
func (c *headlessCursor) ReleaseCursor() { c.grabbed = false }
func (c *headlessCursor) CursorGrabbed() bool { return c.grabbed }
