package light

import "github.com/riwanou/wgpu-lua-fun/common"

// PointLight is an omni-directional light with a finite radius of influence.
type PointLight struct {
	Position [3]float32
	Radius   float32
}

// aggregatorImpl is the implementation of the Aggregator interface.
type aggregatorImpl struct {
	lights []PointLight
}

// Aggregator collects the point lights registered during one frame.
//
// The light set is rebuilt every frame: the frame driver calls Reset before the
// update pass, entities register lights from their render calls, and the renderer
// reads Lights when flushing. No light survives a Reset unless registered again.
type Aggregator interface {
	// PointLight registers a point light for the current frame. There is no per-frame limit;
	// the renderer grows the light buffer to fit.
	//
	// Parameters:
	//   - pos: world-space light position
	//   - radius: distance at which the light's contribution reaches zero
	PointLight(pos [3]float32, radius float32)

	// Lights returns the lights registered since the last Reset, in registration order.
	// The returned slice is only valid until the next Reset.
	//
	// Returns:
	//   - []PointLight: the registered lights
	Lights() []PointLight

	// Count returns the number of lights registered since the last Reset.
	//
	// Returns:
	//   - int: the light count
	Count() int

	// Reset clears all registered lights. Called once per frame by the frame driver.
	Reset()
}

var _ Aggregator = &aggregatorImpl{}

// NewAggregator creates an empty light Aggregator.
//
// Parameters:
//   - options: variadic list of AggregatorBuilderOption functions
//
// Returns:
//   - Aggregator: the new aggregator
func NewAggregator(options ...AggregatorBuilderOption) Aggregator {
	a := &aggregatorImpl{}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *aggregatorImpl) PointLight(pos [3]float32, radius float32) {
	a.lights = append(a.lights, PointLight{Position: pos, Radius: radius})
}

func (a *aggregatorImpl) Lights() []PointLight {
	return a.lights
}

func (a *aggregatorImpl) Count() int {
	return len(a.lights)
}

func (a *aggregatorImpl) Reset() {
	a.lights = a.lights[:0]
}

// Attenuate returns the fraction of a point light's contribution that reaches a
// fragment at distance d from a light of radius r:
//
//	s = saturate(d / r)
//	atten = (1 - s²)² / (1 + s)
//
// The result is 1 at d = 0, falls continuously to 0 at d = r, and stays 0 beyond.
// A non-positive radius contributes nothing.
//
// Parameters:
//   - d: distance from the light
//   - r: light radius
//
// Returns:
//   - float32: attenuation factor in [0, 1]
func Attenuate(d, r float32) float32 {
	if r <= 0 {
		return 0
	}
	s := common.Saturate(d / r)
	s2 := s * s
	return (1 - s2) * (1 - s2) / (1 + s)
}
