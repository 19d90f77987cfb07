package renderer

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/light"
	"github.com/riwanou/wgpu-lua-fun/engine/model"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/bind_group_provider"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/material"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/pipeline"
)

const (
	defaultFrameSlots = 2

	// defaultIdleFrames is how many flushes of a slot a batch key may go unused before its
	// instance and material providers in that slot are released.
	defaultIdleFrames = 120

	// minInstanceCapacity is the smallest instance buffer allocated for a batch.
	minInstanceCapacity = 16
)

// Surface is what the WebGPU backend needs from a window.
type Surface interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	slots      []*frameSlot
	frameIndex uint64
	empty      bind_group_provider.BindGroupProvider

	pool    worker.DynamicWorkerPool
	workers int

	stats Stats

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	pendingPipelines     []pipeline.Pipeline
	frameSlots           int
	idleFrames           int
}

// Renderer defines the interface for the rendering system.
//
// The Renderer caches validated pipelines, uploads meshes and textures on behalf of the resource
// registry, and turns a Frame into instanced draw calls. Everything GPU-specific goes through a
// RendererBackend so the same frame logic runs on WebGPU or headless.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines validates each pipeline against its Variant, creates the GPU pipeline via
	// the backend, then caches it by PipelineKey. Pipelines whose keys are already registered are
	// skipped. Registration stops at the first failure; a pipeline that fails is never cached.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: a wrapped pipeline.ErrBindingLayoutMismatch when validation fails, or the backend error
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// InitMeshBuffers creates GPU vertex and index buffers from raw byte data and stores them
	// on the given BindGroupProvider for later use in draw calls.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitTextureView creates a GPU texture from staging data and stores the resulting texture view
	// on the given BindGroupProvider at the specified binding index.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture view on
	//   - bindingKey: the binding index for this texture
	//   - stagingData: the pixel data and dimensions for the texture
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a GPU sampler from staging data and stores it on the given BindGroupProvider
	// at the specified binding index.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index for this sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// Flush renders one frame. It writes the globals and the light buffer of the current frame
	// slot, marshals every batch's instances in parallel, uploads all buffers, then issues one
	// instanced draw per batch in batch order before presenting. Batches whose pipeline, mesh,
	// material or texture cannot be resolved are dropped and logged once per id.
	//
	// Parameters:
	//   - frame: the globals, lights and batches of the frame
	//   - resolver: maps batch key ids to uploaded resources
	//
	// Returns:
	//   - error: an error if the frame's shared buffers could not be created or the frame could not begin
	Flush(frame Frame, resolver Resolver) error

	// Stats returns the counters of the last flushed frame and the lifetime totals.
	//
	// Returns:
	//   - Stats: a copy of the renderer stats
	Stats() Stats

	// FrameSlots returns the number of frame slots the renderer rotates through.
	//
	// Returns:
	//   - int: the slot count
	FrameSlots() int

	// Release frees every per-slot buffer, stops the worker pool and releases the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type and surface.
// The surface is only used by BackendTypeWGPU and may be nil for BackendTypeHeadless.
// Pipelines passed through WithPipeline are registered before returning; NewRenderer panics if
// one of them fails validation.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - surface: the window the WebGPU backend presents to
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		frameSlots:    defaultFrameSlots,
		idleFrames:    defaultIdleFrames,
		workers:       runtime.NumCPU(),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x // default
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeHeadless:
			r.backend = NewHeadlessBackend()
		case BackendTypeWGPU:
			fallthrough
		default:
			if surface == nil {
				panic("renderer: the WebGPU backend requires a surface")
			}
			r.backend = newWGPUBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
		}
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	if surface != nil {
		r.backend.ConfigureSurface(surface.Width(), surface.Height())
	}

	r.slots = make([]*frameSlot, max(r.frameSlots, 1))
	for i := range r.slots {
		r.slots[i] = newFrameSlot(i)
	}

	r.pool = worker.NewDynamicWorkerPool(max(r.workers, 1), 256, 1*time.Second)

	if err := r.RegisterPipelines(r.pendingPipelines...); err != nil {
		panic(err)
	}
	r.pendingPipelines = nil

	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("register pipeline %s: %w", key, err)
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("register pipeline %s: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) FrameSlots() int {
	return len(r.slots)
}

// resolvedDraw is a batch whose resources were all found, ready to be uploaded and drawn.
type resolvedDraw struct {
	batch      DrawBatch
	pipeline   pipeline.Pipeline
	mesh       bind_group_provider.BindGroupProvider
	instances  bind_group_provider.BindGroupProvider
	bindGroups []bind_group_provider.BindGroupProvider
	data       []byte
}

func (r *renderer) Flush(frame Frame, resolver Resolver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.slots[r.frameIndex%uint64(len(r.slots))]
	r.frameIndex++
	slot.flushes++

	var writes []bind_group_provider.BufferWrite

	// group 0
	if err := r.ensureGlobals(slot); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	writes = append(writes, bind_group_provider.BufferWrite{
		Provider: slot.globals,
		Binding:  0,
		Data:     frame.Globals.Marshal(),
	})

	// group 1
	if err := r.ensureLights(slot, len(frame.Lights)); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	writes = append(writes, bind_group_provider.BufferWrite{
		Provider: slot.lights,
		Binding:  0,
		Data:     light.MarshalLightBuffer(frame.Lights, slot.lightCapacity),
	})

	if err := r.ensureEmpty(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	logged := make(map[string]bool)
	dropped := 0
	draws := make([]*resolvedDraw, 0, len(frame.Batches))
	for _, batch := range frame.Batches {
		if len(batch.Instances) == 0 {
			continue
		}
		d, materialWrite, err := r.resolveBatch(slot, batch, resolver)
		if err != nil {
			dropped++
			if !logged[err.Error()] {
				logged[err.Error()] = true
				log.Printf("[Renderer] dropping batch %s: %v", batch.Key, err)
			}
			continue
		}
		if materialWrite != nil {
			writes = append(writes, *materialWrite)
		}
		draws = append(draws, d)
	}

	if r.idleFrames > 0 {
		r.stats.EvictedProviders += uint64(slot.evictIdle(uint64(r.idleFrames)))
	}

	r.marshalInstances(draws)

	instanceCount := 0
	for _, d := range draws {
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: d.instances,
			Binding:  bind_group_provider.InstanceBinding,
			Data:     d.data,
		})
		instanceCount += len(d.batch.Instances)
	}

	r.backend.WriteBuffers(writes)

	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("flush: begin frame: %w", err)
	}
	for _, d := range draws {
		r.backend.DrawCall(d.pipeline, d.mesh, d.instances, uint32(len(d.batch.Instances)), d.bindGroups)
	}
	r.backend.EndFrame()
	r.backend.Present()

	r.stats.Frames++
	r.stats.DrawCalls = len(draws)
	r.stats.Instances = instanceCount
	r.stats.DroppedBatches = dropped
	r.stats.LightCount = len(frame.Lights)

	return nil
}

// resolveBatch looks up every resource a batch needs and prepares its per-slot instance buffer and
// material group. The returned error names the id that could not be resolved.
func (r *renderer) resolveBatch(slot *frameSlot, batch DrawBatch, resolver Resolver) (*resolvedDraw, *bind_group_provider.BufferWrite, error) {
	p, ok := r.pipelineCache[batch.Key.Shader]
	if !ok {
		return nil, nil, fmt.Errorf("pipeline %q: %w", batch.Key.Shader, ErrResourceNotFound)
	}

	mesh, err := resolver.Mesh(batch.Key.Mesh)
	if err != nil {
		return nil, nil, fmt.Errorf("mesh %q: %w", batch.Key.Mesh, err)
	}
	if !mesh.Ready() {
		return nil, nil, fmt.Errorf("mesh %q is not uploaded: %w", batch.Key.Mesh, ErrResourceNotFound)
	}

	var (
		materialProvider bind_group_provider.BindGroupProvider
		materialWrite    *bind_group_provider.BufferWrite
	)
	if p.Variant().UsesMaterial() {
		materialProvider, materialWrite, err = r.ensureMaterial(slot, p, batch.Key.Material, resolver)
		if err != nil {
			return nil, nil, err
		}
	}

	instances, err := r.ensureInstances(slot, batch.Key, len(batch.Instances))
	if err != nil {
		return nil, nil, fmt.Errorf("instances %s: %w", batch.Key, err)
	}

	layouts := p.BindGroupLayouts()
	bindGroups := make([]bind_group_provider.BindGroupProvider, len(layouts))
	for g := range layouts {
		_, declared := p.BindGroupLayout(g)
		switch {
		case !declared:
			bindGroups[g] = r.empty
		case g == pipeline.GroupGlobals:
			bindGroups[g] = slot.globals
		case g == pipeline.GroupLights:
			bindGroups[g] = slot.lights
		case g == pipeline.GroupMaterial:
			bindGroups[g] = materialProvider
		default:
			bindGroups[g] = r.empty
		}
	}

	return &resolvedDraw{
		batch:      batch,
		pipeline:   p,
		mesh:       mesh,
		instances:  instances,
		bindGroups: bindGroups,
	}, materialWrite, nil
}

// marshalInstances packs every draw's instances on the worker pool and waits for all of them.
func (r *renderer) marshalInstances(draws []*resolvedDraw) {
	// A WaitGroup provides the per-frame barrier; pool.Wait() would block until workers idle-exit.
	var wg sync.WaitGroup
	for i, d := range draws {
		wg.Add(1)
		dCap := d
		r.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				dCap.data = model.MarshalInstances(dCap.batch.Instances)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (r *renderer) ensureGlobals(slot *frameSlot) error {
	if slot.globals == nil {
		slot.globals = bind_group_provider.NewBindGroupProvider(slot.label("globals"))
	}
	if slot.globals.Ready() {
		return nil
	}
	if err := r.backend.InitBindGroup(slot.globals, pipeline.GlobalsLayout()); err != nil {
		return fmt.Errorf("globals bind group: %w", err)
	}
	return nil
}

// ensureLights sizes the slot's light buffer for count lights. The buffer is only reallocated when
// the record capacity changes.
func (r *renderer) ensureLights(slot *frameSlot, count int) error {
	capacity := light.LightBufferCapacity(count)
	if slot.lights == nil {
		slot.lights = bind_group_provider.NewBindGroupProvider(slot.label("lights"))
	}
	if slot.lights.Ready() && slot.lightCapacity == capacity {
		return nil
	}

	if slot.lightCapacity != 0 && slot.lightCapacity != capacity {
		slot.lights.ReleaseBuffer(0)
		slot.lights.ReleaseBindGroup()
		r.stats.LightReallocations++
	}
	slot.lights.SetBufferSize(0, light.LightBufferSize(capacity))
	if err := r.backend.InitBindGroup(slot.lights, pipeline.LightsLayout()); err != nil {
		slot.lightCapacity = 0
		return fmt.Errorf("lights bind group: %w", err)
	}
	slot.lightCapacity = capacity
	return nil
}

func (r *renderer) ensureEmpty() error {
	if r.empty == nil {
		r.empty = bind_group_provider.NewBindGroupProvider("empty")
	}
	if r.empty.Ready() {
		return nil
	}
	if err := r.backend.InitBindGroup(r.empty, pipeline.EmptyLayout()); err != nil {
		return fmt.Errorf("empty bind group: %w", err)
	}
	return nil
}

// ensureInstances returns the slot's instance provider for key with room for count instances,
// growing it to the next power of two when it is too small.
func (r *renderer) ensureInstances(slot *frameSlot, key BatchKey, count int) (bind_group_provider.BindGroupProvider, error) {
	binding, ok := slot.instances[key]
	if !ok {
		binding = &instanceBinding{
			provider: bind_group_provider.NewBindGroupProvider(slot.label("instances", key.Mesh, key.Shader, key.Material)),
		}
		slot.instances[key] = binding
	}
	binding.lastUsed = slot.flushes
	provider := binding.provider
	if provider.InstanceCapacity() >= count {
		return provider, nil
	}

	if provider.InstanceCapacity() > 0 {
		r.stats.InstanceReallocations++
	}
	capacity := common.GrowCapacity(count, minInstanceCapacity)
	if err := r.backend.InitInstanceBuffer(provider, capacity, uint64(new(model.GPUInstance).Size())); err != nil {
		return nil, err
	}
	return provider, nil
}

// ensureMaterial returns the slot's group 2 provider for a material drawn with p, creating it on
// first use and returning a write when the material's uniform changed since this slot last uploaded it.
func (r *renderer) ensureMaterial(slot *frameSlot, p pipeline.Pipeline, key string, resolver Resolver) (bind_group_provider.BindGroupProvider, *bind_group_provider.BufferWrite, error) {
	m, err := resolver.Material(key)
	if err != nil {
		return nil, nil, fmt.Errorf("material %q: %w", key, err)
	}
	if m.ShaderKey() != p.PipelineKey() {
		return nil, nil, fmt.Errorf("material %q was added for pipeline %s, not %s: %w",
			key, m.ShaderKey(), p.PipelineKey(), pipeline.ErrBindingLayoutMismatch)
	}
	u := m.Uniform()
	if u == nil {
		return nil, nil, fmt.Errorf("material %q has no uniform: %w", key, ErrResourceNotFound)
	}
	if size := uint64(u.Size()); size != p.MaterialUniformSize() {
		return nil, nil, fmt.Errorf("material %q uniform is %d bytes, pipeline %s expects %d: %w",
			key, size, p.PipelineKey(), p.MaterialUniformSize(), pipeline.ErrBindingLayoutMismatch)
	}

	sk := materialSlotKey{material: key, shader: p.PipelineKey()}
	binding, ok := slot.materials[sk]
	if !ok || !binding.provider.Ready() {
		provider, err := r.initMaterialProvider(slot, p, m, resolver)
		if err != nil {
			return nil, nil, err
		}
		binding = &materialBinding{provider: provider}
		slot.materials[sk] = binding
	}
	binding.lastUsed = slot.flushes

	if binding.uploaded && binding.revision == m.Revision() {
		return binding.provider, nil, nil
	}
	binding.uploaded = true
	binding.revision = m.Revision()
	r.stats.MaterialUploads++
	return binding.provider, &bind_group_provider.BufferWrite{
		Provider: binding.provider,
		Binding:  pipeline.BindingMaterialUniform,
		Data:     u.Marshal(),
	}, nil
}

func (r *renderer) initMaterialProvider(slot *frameSlot, p pipeline.Pipeline, m material.Material, resolver Resolver) (bind_group_provider.BindGroupProvider, error) {
	desc, ok := p.BindGroupLayout(pipeline.GroupMaterial)
	if !ok {
		return nil, fmt.Errorf("pipeline %s has no material group: %w", p.PipelineKey(), pipeline.ErrBindingLayoutMismatch)
	}

	options := []bind_group_provider.BindGroupProviderOption{
		bind_group_provider.WithBufferSize(pipeline.BindingMaterialUniform, p.MaterialUniformSize()),
	}
	if p.Variant().UsesTexture() {
		if m.TextureKey() == "" {
			return nil, fmt.Errorf("material %q has no texture for pipeline %s: %w", m.Key(), p.PipelineKey(), ErrResourceNotFound)
		}
		tex, err := resolver.Texture(m.TextureKey())
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", m.TextureKey(), err)
		}
		options = append(options, bind_group_provider.WithSharedTexture(pipeline.BindingDiffuseTexture, pipeline.BindingDiffuseSampler, tex))
	}

	provider := bind_group_provider.NewBindGroupProvider(slot.label("material", m.Key(), p.PipelineKey()), options...)
	if err := r.backend.InitBindGroup(provider, desc); err != nil {
		provider.Release()
		return nil, fmt.Errorf("material %q bind group: %w", m.Key(), err)
	}
	return provider, nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		s.release()
	}
	if r.empty != nil {
		r.empty.Release()
		r.empty = nil
	}
	if r.pool != nil {
		r.pool.Stop()
		r.pool = nil
	}
	r.backend.Release()
}
