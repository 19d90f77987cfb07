package light

// AggregatorBuilderOption is a functional option for configuring an Aggregator.
type AggregatorBuilderOption func(*aggregatorImpl)

// WithCapacity preallocates room for n lights to avoid growth during the first frames.
//
// Parameters:
//   - n: the expected number of lights per frame
//
// Returns:
//   - AggregatorBuilderOption: a function that applies the capacity to an aggregator
func WithCapacity(n int) AggregatorBuilderOption {
	return func(a *aggregatorImpl) {
		a.lights = make([]PointLight, 0, n)
	}
}
