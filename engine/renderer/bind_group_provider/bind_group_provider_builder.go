package bind_group_provider

// BindGroupProviderOption is a functional option for configuring a BindGroupProvider via NewBindGroupProvider.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBufferSize overrides the size of the buffer created for a binding.
//
// Parameters:
//   - binding: the binding index
//   - size: the size in bytes
//
// Returns:
//   - BindGroupProviderOption: option function to apply
func WithBufferSize(binding int, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bufferSizes[binding] = size
	}
}

// WithSharedTexture binds a texture view and sampler owned by another provider, e.g. a loaded
// texture sampled by several materials.
//
// Parameters:
//   - viewBinding: the binding index of the texture view
//   - samplerBinding: the binding index of the sampler
//   - owner: the provider holding the view and sampler at the same bindings
//
// Returns:
//   - BindGroupProviderOption: option function to apply
func WithSharedTexture(viewBinding, samplerBinding int, owner BindGroupProvider) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.ShareTextureView(viewBinding, owner.TextureView(viewBinding))
		p.ShareSampler(samplerBinding, owner.Sampler(samplerBinding))
	}
}
