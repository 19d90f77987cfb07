package renderer

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/bind_group_provider"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/pipeline"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/shader"
)

func (b *wgpuBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return fmt.Errorf("vertex module: %w", err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return fmt.Errorf("fragment module: %w", err)
	}
	defer fs.Release()

	layout, err := b.createPipelineLayout(p)
	if err != nil {
		return err
	}
	defer layout.Release()

	state := p.State()
	depthCompare := wgpu.CompareFunctionLess
	if !state.DepthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}
	stencil := wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey(),
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    p.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{Format: b.surfaceFormat, Blend: state.Blend, WriteMask: state.WriteMask},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  state.Topology,
			FrontFace: state.FrontFace,
			CullMode:  state.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              depthFormat,
			DepthWriteEnabled:   state.DepthWrite,
			DepthCompare:        depthCompare,
			DepthBias:           state.DepthBias,
			DepthBiasSlopeScale: state.DepthBiasSlopeScale,
			StencilFront:        stencil,
			StencilBack:         stencil,
		},
	})
	if err != nil {
		return err
	}
	p.SetRenderPipeline(created)
	return nil
}

// createPipelineLayout creates one bind group layout per group index, empty ones included,
// and the pipeline layout referencing them.
func (b *wgpuBackend) createPipelineLayout(p pipeline.Pipeline) (*wgpu.PipelineLayout, error) {
	descriptors := p.BindGroupLayouts()
	groups := make([]*wgpu.BindGroupLayout, 0, len(descriptors))
	defer func() {
		for _, g := range groups {
			g.Release()
		}
	}()

	for i := range descriptors {
		g, err := b.device.CreateBindGroupLayout(&descriptors[i])
		if err != nil {
			return nil, fmt.Errorf("bind group layout %d: %w", i, err)
		}
		groups = append(groups, g)
	}
	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: groups,
	})
}

func (b *wgpuBackend) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) > 0 {
		buf, err := b.createBufferInit(provider.Label()+" Vertex Buffer", vertexData, wgpu.BufferUsageVertex)
		if err != nil {
			return err
		}
		provider.SetVertexBuffer(buf)
	}
	if len(indexData) > 0 {
		buf, err := b.createBufferInit(provider.Label()+" Index Buffer", indexData, wgpu.BufferUsageIndex)
		if err != nil {
			return err
		}
		provider.SetIndexBuffer(buf)
	}
	provider.SetIndexCount(indexCount)
	provider.SetReady(true)
	return nil
}

func (b *wgpuBackend) createBufferInit(label string, contents []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: contents,
		Usage:    usage | wgpu.BufferUsageCopyDst,
	})
}

func (b *wgpuBackend) InitInstanceBuffer(provider bind_group_provider.BindGroupProvider, capacity int, stride uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old := provider.InstanceBuffer(); old != nil {
		old.Release()
	}
	provider.SetInstanceBuffer(nil, 0)

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " Instance Buffer",
		Size:  uint64(capacity) * stride,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	provider.SetInstanceBuffer(buf, capacity)
	return nil
}

func (b *wgpuBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		if layout, err = b.device.CreateBindGroupLayout(&descriptor); err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, layoutEntry := range descriptor.Entries {
		entry, err := b.bindGroupEntry(provider, layoutEntry)
		if err != nil {
			return err
		}
		entries[i] = entry
	}

	provider.ReleaseBindGroup()
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label(),
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)
	provider.SetReady(true)
	return nil
}

// bindGroupEntry resolves one layout entry against the provider. Views and samplers must
// already be stored; a missing buffer is created with the provider's size for the binding, or
// the layout's minimum binding size.
func (b *wgpuBackend) bindGroupEntry(provider bind_group_provider.BindGroupProvider, e wgpu.BindGroupLayoutEntry) (wgpu.BindGroupEntry, error) {
	binding := int(e.Binding)

	switch {
	case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
		view := provider.TextureView(binding)
		if view == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("%s: texture binding %d has no view", provider.Label(), binding)
		}
		return wgpu.BindGroupEntry{Binding: e.Binding, TextureView: view}, nil

	case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		sampler := provider.Sampler(binding)
		if sampler == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("%s: sampler binding %d has no sampler", provider.Label(), binding)
		}
		return wgpu.BindGroupEntry{Binding: e.Binding, Sampler: sampler}, nil
	}

	buf := provider.Buffer(binding)
	if buf == nil {
		size := provider.BufferSize(binding)
		if size == 0 {
			size = e.Buffer.MinBindingSize
		}
		usage := wgpu.BufferUsageStorage
		if e.Buffer.Type == wgpu.BufferBindingTypeUniform {
			usage = wgpu.BufferUsageUniform
		}
		var err error
		buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s binding %d", provider.Label(), binding),
			Size:  size,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return wgpu.BindGroupEntry{}, err
		}
		provider.SetBuffer(binding, buf)
		provider.SetBufferSize(binding, size)
	}
	return wgpu.BindGroupEntry{Binding: e.Binding, Buffer: buf, Size: wgpu.WholeSize}, nil
}

func (b *wgpuBackend) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := wgpu.Extent3D{Width: stagingData.Width, Height: stagingData.Height, DepthOrArrayLayers: 1}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         provider.Label(),
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	// the view keeps the texture alive
	defer tex.Release()

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{BytesPerRow: stagingData.Width * 4, RowsPerImage: stagingData.Height},
		&size,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		return err
	}
	provider.SetTextureView(bindingKey, view)
	provider.SetReady(true)
	return nil
}

func (b *wgpuBackend) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, s common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sampler, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label(),
		AddressModeU:  common.Coalesce(s.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(s.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(s.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(s.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(s.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(s.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
	})
	if err != nil {
		return err
	}
	provider.SetSampler(bindingKey, sampler)
	return nil
}

func (b *wgpuBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		var buf *wgpu.Buffer
		if w.Binding == bind_group_provider.InstanceBinding {
			buf = w.Provider.InstanceBuffer()
		} else {
			buf = w.Provider.Buffer(w.Binding)
		}
		if buf == nil || len(w.Data) == 0 {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}
