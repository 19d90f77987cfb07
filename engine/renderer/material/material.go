package material

// Uniform is a material uniform payload laid out to match the shader's group 2 binding 0 struct.
type Uniform interface {
	// Size returns the payload size in bytes.
	//
	// Returns:
	//   - int: the size in bytes
	Size() int

	// Marshal serializes the payload for GPU upload.
	//
	// Returns:
	//   - []byte: Size() bytes ready for upload
	Marshal() []byte
}

// material is the implementation of the Material interface.
type material struct {
	key        string
	shaderKey  string
	textureKey string
	uniform    Uniform
	revision   uint64
}

// Material is a named set of shading inputs: the pipeline it renders with, an optional
// texture, and a uniform payload. The shader and texture persist for the material's lifetime;
// the uniform may be replaced every frame.
type Material interface {
	// Key retrieves the material identifier used as the third component of a batch key.
	//
	// Returns:
	//   - string: the material key
	Key() string

	// ShaderKey retrieves the key of the render pipeline this material uses.
	//
	// Returns:
	//   - string: the pipeline key
	ShaderKey() string

	// TextureKey retrieves the key of the diffuse texture, or an empty string when none is bound.
	//
	// Returns:
	//   - string: the texture key
	TextureKey() string

	// Uniform retrieves the current uniform payload, or nil if the material has none.
	//
	// Returns:
	//   - Uniform: the uniform payload
	Uniform() Uniform

	// SetUniform replaces the uniform payload. The new payload is uploaded on the next flush.
	//
	// Parameters:
	//   - u: the new payload
	SetUniform(u Uniform)

	// Revision returns a counter that increases on every SetUniform call.
	//
	// Returns:
	//   - uint64: the uniform revision
	Revision() uint64
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// The shader key defaults to the material key.
//
// Parameters:
//   - key: the material identifier
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(key string, options ...MaterialBuilderOption) Material {
	m := &material{
		key:       key,
		shaderKey: key,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Key() string {
	return m.key
}

func (m *material) ShaderKey() string {
	return m.shaderKey
}

func (m *material) TextureKey() string {
	return m.textureKey
}

func (m *material) Uniform() Uniform {
	return m.uniform
}

func (m *material) SetUniform(u Uniform) {
	m.uniform = u
	m.revision++
}

func (m *material) Revision() uint64 {
	return m.revision
}
