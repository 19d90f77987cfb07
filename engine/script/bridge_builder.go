package script

// BridgeBuilderOption is a functional option applied to a bridge during construction via NewBridge.
type BridgeBuilderOption func(*bridge)

// WithIDGenerator sets the function Register uses for empty ids. Defaults to uuid.NewString.
//
// Parameters:
//   - gen: the id generator
//
// Returns:
//   - BridgeBuilderOption: a function that applies the generator to a bridge
func WithIDGenerator(gen func() string) BridgeBuilderOption {
	return func(b *bridge) {
		if gen != nil {
			b.newID = gen
		}
	}
}
