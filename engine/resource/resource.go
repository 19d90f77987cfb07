package resource

import (
	"fmt"
	"sync"

	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/bind_group_provider"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/material"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/pipeline"
)

// ErrResourceNotFound is returned when an id was never loaded or added.
var ErrResourceNotFound = renderer.ErrResourceNotFound

// MaterialParams configures AddMaterial. Empty fields take their defaults.
type MaterialParams struct {
	// Key names the material. Defaults to the shader id passed to AddMaterial.
	Key string

	// Texture is the id of the diffuse texture, loaded on demand. Required by textured pipelines.
	Texture string

	// Shader overrides the shader id passed to AddMaterial.
	Shader string

	// Uniform is the initial payload. Defaults to material.NewSimpleMaterial(material.DefaultColor).
	Uniform material.Uniform
}

// registry is the implementation of the Registry interface.
type registry struct {
	mu *sync.Mutex
	r  renderer.Renderer

	meshSource    MeshSource
	textureSource TextureSource
	sampler       common.SamplerStagingData

	meshes    map[string]bind_group_provider.BindGroupProvider
	textures  map[string]bind_group_provider.BindGroupProvider
	materials map[string]material.Material
}

// Registry caches meshes, textures and materials by id. Loads are idempotent: the first call
// uploads through the renderer, later calls return the cached provider. The Registry is the
// renderer.Resolver used by Flush.
type Registry interface {
	renderer.Resolver

	// LoadMesh returns the mesh provider for id, uploading it from the MeshSource on first use.
	//
	// Parameters:
	//   - id: the mesh id
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider
	//   - error: an error wrapping ErrResourceNotFound when the source has no such mesh, or the upload error
	LoadMesh(id string) (bind_group_provider.BindGroupProvider, error)

	// LoadTexture returns the texture provider for id, uploading it from the TextureSource on
	// first use. The provider holds the view at pipeline.BindingDiffuseTexture and the sampler at
	// pipeline.BindingDiffuseSampler.
	//
	// Parameters:
	//   - id: the texture id
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the texture provider
	//   - error: an error wrapping ErrResourceNotFound when the source has no such texture, or the upload error
	LoadTexture(id string) (bind_group_provider.BindGroupProvider, error)

	// AddMaterial registers a material for the pipeline shaderID. It is idempotent by key: adding
	// an existing key returns the cached material unchanged. The pipeline must be registered and
	// the uniform must match its material binding size.
	//
	// Parameters:
	//   - shaderID: the pipeline key, also the default material key
	//   - params: the material parameters
	//
	// Returns:
	//   - material.Material: the new or cached material
	//   - error: ErrResourceNotFound for an unknown pipeline or texture, pipeline.ErrBindingLayoutMismatch
	//     when the uniform or texture does not fit the pipeline's variant
	AddMaterial(shaderID string, params MaterialParams) (material.Material, error)

	// SetMaterialData replaces the uniform payload of a material. The shader and texture are kept.
	//
	// Parameters:
	//   - key: the material key
	//   - u: the new payload, same size as the current one
	//
	// Returns:
	//   - error: ErrResourceNotFound for an unknown key, pipeline.ErrBindingLayoutMismatch on a size change
	SetMaterialData(key string, u material.Uniform) error

	// Release frees every mesh and texture provider.
	Release()
}

var _ Registry = &registry{}

// NewRegistry creates a Registry uploading through r. Without options it serves the built-in
// meshes and the procedural checker texture.
//
// Parameters:
//   - r: the renderer used for uploads and pipeline lookups
//   - options: variadic list of RegistryBuilderOption functions to configure the registry
//
// Returns:
//   - Registry: a new Registry
func NewRegistry(r renderer.Renderer, options ...RegistryBuilderOption) Registry {
	reg := &registry{
		mu:            &sync.Mutex{},
		r:             r,
		meshSource:    BuiltinMeshes(),
		textureSource: ProceduralTextures(),
		meshes:        make(map[string]bind_group_provider.BindGroupProvider),
		textures:      make(map[string]bind_group_provider.BindGroupProvider),
		materials:     make(map[string]material.Material),
	}
	for _, opt := range options {
		opt(reg)
	}
	return reg
}

func (g *registry) LoadMesh(id string) (bind_group_provider.BindGroupProvider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.meshes[id]; ok {
		return p, nil
	}

	data, err := g.meshSource.LoadMesh(id)
	if err != nil {
		return nil, fmt.Errorf("load mesh: %w", err)
	}
	p := bind_group_provider.NewBindGroupProvider(id)
	if err := g.r.InitMeshBuffers(p, data.Vertices, data.Indices, data.IndexCount); err != nil {
		p.Release()
		return nil, fmt.Errorf("upload mesh %q: %w", id, err)
	}
	g.meshes[id] = p
	return p, nil
}

func (g *registry) LoadTexture(id string) (bind_group_provider.BindGroupProvider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadTexture(id)
}

func (g *registry) loadTexture(id string) (bind_group_provider.BindGroupProvider, error) {
	if p, ok := g.textures[id]; ok {
		return p, nil
	}

	data, err := g.textureSource.LoadTexture(id)
	if err != nil {
		return nil, fmt.Errorf("load texture: %w", err)
	}
	p := bind_group_provider.NewBindGroupProvider(id)
	if err := g.r.InitTextureView(p, pipeline.BindingDiffuseTexture, data); err != nil {
		p.Release()
		return nil, fmt.Errorf("upload texture %q: %w", id, err)
	}
	if err := g.r.InitSampler(p, pipeline.BindingDiffuseSampler, g.sampler); err != nil {
		p.Release()
		return nil, fmt.Errorf("sampler for texture %q: %w", id, err)
	}
	g.textures[id] = p
	return p, nil
}

func (g *registry) AddMaterial(shaderID string, params MaterialParams) (material.Material, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := common.Coalesce(params.Key, shaderID)
	if m, ok := g.materials[key]; ok {
		return m, nil
	}

	shaderKey := common.Coalesce(params.Shader, shaderID)
	p := g.r.Pipeline(shaderKey)
	if p == nil {
		return nil, fmt.Errorf("material %q: pipeline %q: %w", key, shaderKey, ErrResourceNotFound)
	}
	variant := p.Variant()

	u := params.Uniform
	if u == nil {
		u = material.NewSimpleMaterial(material.DefaultColor)
	}
	if variant.UsesMaterial() {
		if want := p.MaterialUniformSize(); uint64(u.Size()) != want {
			return nil, fmt.Errorf("material %q: uniform is %d bytes, pipeline %s expects %d: %w",
				key, u.Size(), shaderKey, want, pipeline.ErrBindingLayoutMismatch)
		}
	}

	switch {
	case variant.UsesTexture() && params.Texture == "":
		return nil, fmt.Errorf("material %q: pipeline %s (%s) requires a texture: %w",
			key, shaderKey, variant, pipeline.ErrBindingLayoutMismatch)
	case !variant.UsesTexture() && params.Texture != "":
		return nil, fmt.Errorf("material %q: pipeline %s (%s) has no texture binding: %w",
			key, shaderKey, variant, pipeline.ErrBindingLayoutMismatch)
	case params.Texture != "":
		if _, err := g.loadTexture(params.Texture); err != nil {
			return nil, fmt.Errorf("material %q: %w", key, err)
		}
	}

	options := []material.MaterialBuilderOption{
		material.WithShader(shaderKey),
		material.WithUniform(u),
	}
	if params.Texture != "" {
		options = append(options, material.WithTexture(params.Texture))
	}
	m := material.NewMaterial(key, options...)
	g.materials[key] = m
	return m, nil
}

func (g *registry) SetMaterialData(key string, u material.Uniform) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.materials[key]
	if !ok {
		return fmt.Errorf("material %q: %w", key, ErrResourceNotFound)
	}
	if u == nil {
		return fmt.Errorf("material %q: nil uniform: %w", key, pipeline.ErrBindingLayoutMismatch)
	}
	if cur := m.Uniform(); cur != nil && cur.Size() != u.Size() {
		return fmt.Errorf("material %q: uniform is %d bytes, want %d: %w", key, u.Size(), cur.Size(), pipeline.ErrBindingLayoutMismatch)
	}
	m.SetUniform(u)
	return nil
}

func (g *registry) Mesh(id string) (bind_group_provider.BindGroupProvider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.meshes[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("mesh %q: %w", id, ErrResourceNotFound)
}

func (g *registry) Texture(id string) (bind_group_provider.BindGroupProvider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.textures[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("texture %q: %w", id, ErrResourceNotFound)
}

func (g *registry) Material(id string) (material.Material, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.materials[id]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("material %q: %w", id, ErrResourceNotFound)
}

func (g *registry) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, p := range g.meshes {
		p.Release()
		delete(g.meshes, id)
	}
	for id, p := range g.textures {
		p.Release()
		delete(g.textures, id)
	}
}
