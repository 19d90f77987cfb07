package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/bind_group_provider"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/pipeline"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

var (
	clearColor = wgpu.Color{R: 0.03, G: 0.03, B: 0.03, A: 1}

	errFrameInFlight = errors.New("previous frame surface not yet presented")
)

// attachment is a render target texture owned by the backend, recreated on every resize.
type attachment struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (a *attachment) release() {
	if a.view != nil {
		a.view.Release()
	}
	if a.texture != nil {
		a.texture.Release()
	}
	*a = attachment{}
}

// frameTarget is the state of the frame between BeginFrame and Present.
type frameTarget struct {
	surface *wgpu.Texture
	view    *wgpu.TextureView
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
}

func (f *frameTarget) release() {
	if f.pass != nil {
		f.pass.Release()
	}
	if f.encoder != nil {
		f.encoder.Release()
	}
	if f.view != nil {
		f.view.Release()
	}
	if f.surface != nil {
		f.surface.Release()
	}
	*f = frameTarget{}
}

// wgpuBackend renders to a window surface through WebGPU. Every method runs on the thread that
// created it.
type wgpuBackend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	sampleCount   MSAASampleCount

	// msaa is unused when sampleCount is 1
	msaa  attachment
	depth attachment

	frame frameTarget
}

var _ RendererBackend = &wgpuBackend{}

// newWGPUBackend requests an adapter compatible with the surface and a device with the default
// limits. It panics when no adapter or device is available.
func newWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) *wgpuBackend {
	runtime.LockOSThread()

	b := &wgpuBackend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(fmt.Errorf("renderer: request adapter: %w", err))
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: wgpu.DefaultLimits()},
	})
	if err != nil {
		panic(fmt.Errorf("renderer: request device: %w", err))
	}
	b.device = device
	b.queue = device.GetQueue()
	return b
}

func (b *wgpuBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if mode == PresentModeVSync {
		b.presentMode = wgpu.PresentModeFifo
	} else {
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// a minimised window reports 0x0
	w, h := uint32(max(width, 1)), uint32(max(height, 1))

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       w,
		Height:      h,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.msaa.release()
	b.depth.release()
	if b.sampleCount > 1 {
		b.msaa = b.mustCreateAttachment("MSAA Texture", b.surfaceFormat, w, h)
	}
	// the depth attachment is multisampled like the color attachment
	b.depth = b.mustCreateAttachment("Depth Texture", depthFormat, w, h)
}

func (b *wgpuBackend) mustCreateAttachment(label string, format wgpu.TextureFormat, width, height uint32) attachment {
	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   uint32(b.sampleCount),
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(fmt.Errorf("renderer: %s: %w", label, err))
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		panic(fmt.Errorf("renderer: %s view: %w", label, err))
	}
	return attachment{texture: texture, view: view}
}

// colorAttachment draws into the MSAA texture and resolves to the surface view, or draws to the
// surface view directly without MSAA.
func (b *wgpuBackend) colorAttachment(surfaceView *wgpu.TextureView) wgpu.RenderPassColorAttachment {
	a := wgpu.RenderPassColorAttachment{
		View:       surfaceView,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: clearColor,
	}
	if b.sampleCount > 1 {
		a.View = b.msaa.view
		a.ResolveTarget = surfaceView
		a.StoreOp = wgpu.StoreOpDiscard
	}
	return a
}

func (b *wgpuBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// acquiring a second surface image before presenting the first is a validation error
	if b.frame.surface != nil {
		return errFrameInFlight
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	b.frame.surface = surfaceTexture

	if b.frame.view, err = surfaceTexture.CreateView(nil); err != nil {
		b.frame.release()
		return err
	}
	if b.frame.encoder, err = b.device.CreateCommandEncoder(nil); err != nil {
		b.frame.release()
		return err
	}

	b.frame.pass = b.frame.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{b.colorAttachment(b.frame.view)},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1,
		},
	})
	return nil
}

func (b *wgpuBackend) DrawCall(
	p pipeline.Pipeline,
	meshProvider, instanceProvider bind_group_provider.BindGroupProvider,
	instanceCount uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pass := b.frame.pass
	if pass == nil || p.Pipeline() == nil {
		return
	}

	pass.SetPipeline(p.Pipeline())
	for group, provider := range bindGroups {
		pass.SetBindGroup(uint32(group), provider.BindGroup(), nil)
	}
	pass.SetVertexBuffer(0, meshProvider.VertexBuffer(), 0, wgpu.WholeSize)
	pass.SetVertexBuffer(1, instanceProvider.InstanceBuffer(), 0, wgpu.WholeSize)
	pass.SetIndexBuffer(meshProvider.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(meshProvider.IndexCount()), instanceCount, 0, 0, 0)
}

func (b *wgpuBackend) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.pass == nil {
		return
	}
	b.frame.pass.End()
	b.frame.pass.Release()
	b.frame.pass = nil

	commands, err := b.frame.encoder.Finish(nil)
	b.frame.encoder.Release()
	b.frame.encoder = nil
	if err != nil {
		// nothing to present
		b.frame.release()
		return
	}
	b.queue.Submit(commands)
	commands.Release()
}

func (b *wgpuBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.surface == nil {
		return
	}
	b.surface.Present()
	b.frame.release()
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frame.release()
	b.msaa.release()
	b.depth.release()

	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
	b.queue, b.device, b.adapter, b.surface, b.instance = nil, nil, nil, nil, nil
}
