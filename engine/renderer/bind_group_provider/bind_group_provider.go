package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// meshBuffers are the vertex and index buffers of an uploaded mesh.
type meshBuffers struct {
	vertex     *wgpu.Buffer
	index      *wgpu.Buffer
	indexCount int
}

// instanceBuffer is the per-instance vertex buffer of a draw batch, bound at vertex slot 1.
type instanceBuffer struct {
	buffer   *wgpu.Buffer
	capacity int
}

// bindGroupProvider is the implementation of BindGroupProvider.
type bindGroupProvider struct {
	label string

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout

	// buffers and bufferSizes are keyed by binding. A size can be set before the buffer exists.
	buffers     map[int]*wgpu.Buffer
	bufferSizes map[int]uint64

	// views and samplers in the shared sets belong to another provider and are never released here
	textureViews   map[int]*wgpu.TextureView
	samplers       map[int]*wgpu.Sampler
	sharedViews    map[int]bool
	sharedSamplers map[int]bool

	mesh      meshBuffers
	instances instanceBuffer

	ready bool
}

// BindGroupProvider owns the GPU resources behind one binding site: a frame slot's globals,
// lights or material group, a mesh's vertex and index buffers, a texture's view and sampler,
// or a batch's instance buffer. The backend creates the resources and stores them through the
// setters; draw calls read them back.
//
// Texture views and samplers are either owned, created by the backend for this provider, or
// shared from another provider, typically a loaded texture referenced by many materials.
// Release frees owned resources only.
type BindGroupProvider interface {
	// Label returns the debug label, also used as the GPU object label.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Ready reports whether the backend has initialized this provider.
	//
	// Returns:
	//   - bool: true once initialized, false after ReleaseBindGroup or Release
	Ready() bool

	// SetReady marks the provider as initialized or not. Headless backends use it in place of
	// real GPU handles.
	//
	// Parameters:
	//   - ready: the new state
	SetReady(ready bool)

	BindGroup() *wgpu.BindGroup
	SetBindGroup(bg *wgpu.BindGroup)
	BindGroupLayout() *wgpu.BindGroupLayout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// Buffer returns the buffer at a binding, nil until created.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// SetBuffer stores the buffer created for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// BufferSize returns the allocated or requested size of the buffer at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size in bytes, 0 if unknown
	BufferSize(binding int) uint64

	// SetBufferSize records the size of the buffer at a binding. Set before InitBindGroup to
	// override the layout's MinBindingSize, e.g. for a storage buffer with a runtime array.
	//
	// Parameters:
	//   - binding: the binding index
	//   - size: the size in bytes
	SetBufferSize(binding int, size uint64)

	// ReleaseBuffer releases the buffer at one binding and forgets its size, so the next
	// InitBindGroup reallocates it.
	//
	// Parameters:
	//   - binding: the binding index
	ReleaseBuffer(binding int)

	TextureView(binding int) *wgpu.TextureView
	Sampler(binding int) *wgpu.Sampler

	// SetTextureView stores a texture view this provider owns.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler stores a sampler this provider owns.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler
	SetSampler(binding int, s *wgpu.Sampler)

	// ShareTextureView binds a texture view owned by another provider.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the borrowed texture view
	ShareTextureView(binding int, tv *wgpu.TextureView)

	// ShareSampler binds a sampler owned by another provider.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the borrowed sampler
	ShareSampler(binding int, s *wgpu.Sampler)

	VertexBuffer() *wgpu.Buffer
	SetVertexBuffer(buf *wgpu.Buffer)
	IndexBuffer() *wgpu.Buffer
	SetIndexBuffer(buf *wgpu.Buffer)

	// IndexCount returns the number of indices drawn for the mesh.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int
	SetIndexCount(count int)

	InstanceBuffer() *wgpu.Buffer

	// InstanceCapacity returns how many instances the instance buffer holds.
	//
	// Returns:
	//   - int: the capacity in instances, 0 without an instance buffer
	InstanceCapacity() int

	// SetInstanceBuffer stores the instance buffer and its capacity in instances.
	//
	// Parameters:
	//   - buf: the created instance buffer
	//   - capacity: the number of instances it can hold
	SetInstanceBuffer(buf *wgpu.Buffer, capacity int)

	// ReleaseBindGroup releases the bind group so the next InitBindGroup recreates it. Buffers,
	// views and samplers are kept.
	ReleaseBindGroup()

	// Release frees every owned GPU resource and resets the provider to its uninitialized state.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an uninitialized provider.
//
// Parameters:
//   - label: the debug label, also used as the GPU object label
//   - options: variadic list of BindGroupProviderOption functions to configure the provider
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:          label,
		buffers:        make(map[int]*wgpu.Buffer),
		bufferSizes:    make(map[int]uint64),
		textureViews:   make(map[int]*wgpu.TextureView),
		samplers:       make(map[int]*wgpu.Sampler),
		sharedViews:    make(map[int]bool),
		sharedSamplers: make(map[int]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string { return p.label }

func (p *bindGroupProvider) Ready() bool { return p.ready }

func (p *bindGroupProvider) SetReady(ready bool) { p.ready = ready }

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup { return p.bindGroup }

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) { p.bindGroup = bg }

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout { return p.bindGroupLayout }

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) { p.bindGroupLayout = bgl }

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer { return p.buffers[binding] }

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) { p.buffers[binding] = buf }

func (p *bindGroupProvider) BufferSize(binding int) uint64 { return p.bufferSizes[binding] }

func (p *bindGroupProvider) SetBufferSize(binding int, size uint64) { p.bufferSizes[binding] = size }

func (p *bindGroupProvider) ReleaseBuffer(binding int) {
	if buf := p.buffers[binding]; buf != nil {
		buf.Release()
	}
	delete(p.buffers, binding)
	delete(p.bufferSizes, binding)
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
	delete(p.sharedViews, binding)
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
	delete(p.sharedSamplers, binding)
}

func (p *bindGroupProvider) ShareTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
	p.sharedViews[binding] = true
}

func (p *bindGroupProvider) ShareSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
	p.sharedSamplers[binding] = true
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer { return p.mesh.vertex }

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer) { p.mesh.vertex = buf }

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer { return p.mesh.index }

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) { p.mesh.index = buf }

func (p *bindGroupProvider) IndexCount() int { return p.mesh.indexCount }

func (p *bindGroupProvider) SetIndexCount(count int) { p.mesh.indexCount = count }

func (p *bindGroupProvider) InstanceBuffer() *wgpu.Buffer { return p.instances.buffer }

func (p *bindGroupProvider) InstanceCapacity() int { return p.instances.capacity }

func (p *bindGroupProvider) SetInstanceBuffer(buf *wgpu.Buffer, capacity int) {
	p.instances = instanceBuffer{buffer: buf, capacity: capacity}
}

func (p *bindGroupProvider) ReleaseBindGroup() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	p.ready = false
}

func (p *bindGroupProvider) Release() {
	p.ReleaseBindGroup()
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}

	for binding := range p.buffers {
		p.ReleaseBuffer(binding)
	}
	for binding, tv := range p.textureViews {
		if tv != nil && !p.sharedViews[binding] {
			tv.Release()
		}
	}
	for binding, s := range p.samplers {
		if s != nil && !p.sharedSamplers[binding] {
			s.Release()
		}
	}
	clear(p.textureViews)
	clear(p.samplers)
	clear(p.sharedViews)
	clear(p.sharedSamplers)

	for _, buf := range []*wgpu.Buffer{p.mesh.vertex, p.mesh.index, p.instances.buffer} {
		if buf != nil {
			buf.Release()
		}
	}
	p.mesh = meshBuffers{}
	p.instances = instanceBuffer{}
}
