package resource

import "github.com/riwanou/wgpu-lua-fun/common"

// RegistryBuilderOption is a functional option applied to a registry during construction via NewRegistry.
type RegistryBuilderOption func(*registry)

// WithMeshSource sets where LoadMesh reads mesh data from. Defaults to BuiltinMeshes().
//
// Parameters:
//   - source: the mesh source
//
// Returns:
//   - RegistryBuilderOption: a function that applies the mesh source option to a registry
func WithMeshSource(source MeshSource) RegistryBuilderOption {
	return func(g *registry) {
		g.meshSource = source
	}
}

// WithTextureSource sets where LoadTexture reads texture data from. Defaults to ProceduralTextures().
//
// Parameters:
//   - source: the texture source
//
// Returns:
//   - RegistryBuilderOption: a function that applies the texture source option to a registry
func WithTextureSource(source TextureSource) RegistryBuilderOption {
	return func(g *registry) {
		g.textureSource = source
	}
}

// WithSampler sets the sampler configuration used for every loaded texture.
// Zero fields fall back to linear filtering with repeat addressing.
//
// Parameters:
//   - sampler: the sampler configuration
//
// Returns:
//   - RegistryBuilderOption: a function that applies the sampler option to a registry
func WithSampler(sampler common.SamplerStagingData) RegistryBuilderOption {
	return func(g *registry) {
		g.sampler = sampler
	}
}
