package scene

import (
	"github.com/riwanou/wgpu-lua-fun/engine/camera"
	"github.com/riwanou/wgpu-lua-fun/engine/light"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithDefaultShader sets the pipeline key used by BatchModel when no shader id is given.
// Defaults to DefaultShader.
//
// Parameters:
//   - key: the default pipeline key
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDefaultShader(key string) SceneBuilderOption {
	return func(s *scene) {
		if key != "" {
			s.defaultShader = key
		}
	}
}

// WithCamera sets the camera the scene is rendered from.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cam = cam
	}
}

// WithAggregator sets the light aggregator collecting PointLight registrations.
// Useful to share the aggregator with the frame driver or to cap the light count.
//
// Parameters:
//   - agg: the light aggregator
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAggregator(agg light.Aggregator) SceneBuilderOption {
	return func(s *scene) {
		s.lights = agg
	}
}
