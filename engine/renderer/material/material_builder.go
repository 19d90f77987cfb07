package material

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithShader is an option builder that sets the render pipeline key of the material.
//
// Parameters:
//   - key: the pipeline key
//
// Returns:
//   - MaterialBuilderOption: a function that applies the shader option to a material
func WithShader(key string) MaterialBuilderOption {
	return func(m *material) {
		m.shaderKey = key
	}
}

// WithTexture is an option builder that sets the diffuse texture key of the material.
//
// Parameters:
//   - key: the texture key
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(key string) MaterialBuilderOption {
	return func(m *material) {
		m.textureKey = key
	}
}

// WithUniform is an option builder that sets the initial uniform payload of the material.
//
// Parameters:
//   - u: the uniform payload
//
// Returns:
//   - MaterialBuilderOption: a function that applies the uniform option to a material
func WithUniform(u Uniform) MaterialBuilderOption {
	return func(m *material) {
		m.uniform = u
	}
}
