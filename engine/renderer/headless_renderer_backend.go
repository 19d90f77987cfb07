package renderer

import (
	"errors"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/bind_group_provider"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/pipeline"
)

// AllocationRecord describes a buffer the headless backend pretended to allocate.
// Binding is bind_group_provider.InstanceBinding for instance buffers.
type AllocationRecord struct {
	Label   string
	Binding int
	Size    uint64
}

// WriteRecord describes one buffer write submitted through WriteBuffers.
type WriteRecord struct {
	Label   string
	Binding int
	Offset  uint64
	Data    []byte
}

// DrawRecord describes one DrawCall encoded between BeginFrame and EndFrame.
type DrawRecord struct {
	Frame         int
	Pipeline      string
	Mesh          string
	Instances     string
	InstanceCount uint32
	BindGroups    []string
}

type headlessBackendImpl struct {
	mu *sync.Mutex

	width, height int
	presentMode   PresentMode

	pipelines   []string
	uploads     map[string]int
	allocations []AllocationRecord
	writes      []WriteRecord
	draws       []DrawRecord

	frames     int
	inFrame    bool
	presented  int
	released   bool
	failFrames int
}

// HeadlessBackend is a RendererBackend that creates no GPU objects. Providers are marked ready and
// sized as the WebGPU backend would, and every allocation, write and draw is recorded so the
// renderer's frame logic can be inspected without a device.
type HeadlessBackend interface {
	RendererBackend

	// Pipelines returns the keys of the registered pipelines in registration order.
	//
	// Returns:
	//   - []string: the pipeline keys
	Pipelines() []string

	// Uploads returns how many times mesh or texture data was uploaded for a provider label.
	//
	// Parameters:
	//   - label: the provider label
	//
	// Returns:
	//   - int: the upload count
	Uploads(label string) int

	// Allocations returns every buffer allocation in order.
	//
	// Returns:
	//   - []AllocationRecord: the recorded allocations
	Allocations() []AllocationRecord

	// Writes returns every buffer write in order.
	//
	// Returns:
	//   - []WriteRecord: the recorded writes
	Writes() []WriteRecord

	// Draws returns every draw call in order.
	//
	// Returns:
	//   - []DrawRecord: the recorded draws
	Draws() []DrawRecord

	// Frames returns the number of frames begun.
	//
	// Returns:
	//   - int: the frame count
	Frames() int

	// Presented returns the number of frames presented.
	//
	// Returns:
	//   - int: the present count
	Presented() int

	// Released reports whether Release was called.
	//
	// Returns:
	//   - bool: true after Release
	Released() bool

	// FailNextFrames makes the next n BeginFrame calls fail, as an outdated surface would.
	//
	// Parameters:
	//   - n: the number of frames to fail
	FailNextFrames(n int)

	// ClearRecords forgets recorded allocations, writes and draws.
	ClearRecords()
}

var _ HeadlessBackend = &headlessBackendImpl{}

// NewHeadlessBackend creates a backend that records instead of rendering.
//
// Returns:
//   - HeadlessBackend: a new headless backend
func NewHeadlessBackend() HeadlessBackend {
	return &headlessBackendImpl{
		mu:      &sync.Mutex{},
		uploads: make(map[string]int),
	}
}

func (h *headlessBackendImpl) ConfigureSurface(width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.width, h.height = width, height
}

func (h *headlessBackendImpl) SetPresentMode(mode PresentMode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presentMode = mode
}

func (h *headlessBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p.BindGroupLayouts() == nil {
		return errors.New("pipeline must be validated before registration")
	}
	h.pipelines = append(h.pipelines, p.PipelineKey())
	return nil
}

func (h *headlessBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.uploads[provider.Label()]++
	provider.SetIndexCount(indexCount)
	provider.SetReady(true)
	return nil
}

func (h *headlessBackendImpl) InitInstanceBuffer(provider bind_group_provider.BindGroupProvider, capacity int, stride uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.allocations = append(h.allocations, AllocationRecord{
		Label:   provider.Label(),
		Binding: bind_group_provider.InstanceBinding,
		Size:    uint64(capacity) * stride,
	})
	provider.SetInstanceBuffer(nil, capacity)
	return nil
}

func (h *headlessBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, entry := range descriptor.Entries {
		if entry.Buffer.Type == wgpu.BufferBindingTypeUndefined {
			continue
		}
		binding := int(entry.Binding)
		size := provider.BufferSize(binding)
		if size == 0 {
			size = entry.Buffer.MinBindingSize
			provider.SetBufferSize(binding, size)
		}
		h.allocations = append(h.allocations, AllocationRecord{
			Label:   provider.Label(),
			Binding: binding,
			Size:    size,
		})
	}
	provider.SetReady(true)
	return nil
}

func (h *headlessBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if want := int(stagingData.Width) * int(stagingData.Height) * 4; len(stagingData.Pixels) != want {
		return errors.New("texture staging data does not match its dimensions")
	}
	h.uploads[provider.Label()]++
	provider.SetReady(true)
	return nil
}

func (h *headlessBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return nil
}

func (h *headlessBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, w := range writes {
		data := make([]byte, len(w.Data))
		copy(data, w.Data)
		h.writes = append(h.writes, WriteRecord{
			Label:   w.Provider.Label(),
			Binding: w.Binding,
			Offset:  w.Offset,
			Data:    data,
		})
	}
}

func (h *headlessBackendImpl) BeginFrame() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inFrame {
		return errors.New("previous frame not yet ended")
	}
	if h.failFrames > 0 {
		h.failFrames--
		return errors.New("surface texture unavailable")
	}
	h.inFrame = true
	h.frames++
	return nil
}

func (h *headlessBackendImpl) DrawCall(
	p pipeline.Pipeline,
	meshProvider, instanceProvider bind_group_provider.BindGroupProvider,
	instanceCount uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.inFrame {
		return
	}
	labels := make([]string, len(bindGroups))
	for i, bg := range bindGroups {
		labels[i] = bg.Label()
	}
	h.draws = append(h.draws, DrawRecord{
		Frame:         h.frames,
		Pipeline:      p.PipelineKey(),
		Mesh:          meshProvider.Label(),
		Instances:     instanceProvider.Label(),
		InstanceCount: instanceCount,
		BindGroups:    labels,
	})
}

func (h *headlessBackendImpl) EndFrame() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFrame = false
}

func (h *headlessBackendImpl) Present() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presented++
}

func (h *headlessBackendImpl) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
}

func (h *headlessBackendImpl) Pipelines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.pipelines...)
}

func (h *headlessBackendImpl) Uploads(label string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.uploads[label]
}

func (h *headlessBackendImpl) Allocations() []AllocationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]AllocationRecord(nil), h.allocations...)
}

func (h *headlessBackendImpl) Writes() []WriteRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]WriteRecord(nil), h.writes...)
}

func (h *headlessBackendImpl) Draws() []DrawRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]DrawRecord(nil), h.draws...)
}

func (h *headlessBackendImpl) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

func (h *headlessBackendImpl) Presented() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presented
}

func (h *headlessBackendImpl) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *headlessBackendImpl) FailNextFrames(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failFrames = n
}

func (h *headlessBackendImpl) ClearRecords() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.allocations = nil
	h.writes = nil
	h.draws = nil
}
