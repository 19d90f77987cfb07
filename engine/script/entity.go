package script

import (
	"fmt"

	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

// Entity is a scripted object driven by the Bridge. Each lifecycle call receives the frame
// Context; a returned error or a panic isolates the entity for the rest of the frame.
type Entity interface {
	// Init runs once, on the first frame after registration. A failed Init is retried on the
	// next frame.
	//
	// Parameters:
	//   - ctx: the frame context
	//
	// Returns:
	//   - error: a non-nil error keeps the entity uninitialized
	Init(ctx *Context) error

	// Update advances the entity's simulation.
	//
	// Parameters:
	//   - ctx: the frame context
	//   - dt: seconds since the previous frame
	//   - elapsed: seconds since the engine started
	//
	// Returns:
	//   - error: a non-nil error skips the entity's Render for this frame
	Update(ctx *Context, dt, elapsed float32) error

	// Render emits draw requests and lights into ctx.Scene.
	//
	// Parameters:
	//   - ctx: the frame context
	//
	// Returns:
	//   - error: the render error, if any
	Render(ctx *Context) error

	// Transform returns the entity's transform.
	//
	// Returns:
	//   - *transform.Transform: the transform, owned by the entity
	Transform() *transform.Transform
}

// EntityState is the lifecycle state of a registered entity.
type EntityState int

const (
	// StateUninitialized entities have not completed Init yet.
	StateUninitialized EntityState = iota

	// StateActive entities receive Update and Render every frame.
	StateActive

	// StateTornDown entities were removed and receive no further calls.
	StateTornDown
)

func (s EntityState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateTornDown:
		return "torn down"
	default:
		return fmt.Sprintf("EntityState(%d)", int(s))
	}
}

// Store is the persistent per-entity state kept by the Bridge. It survives Replace and is
// released by Remove.
type Store map[string]any

// Float returns the float32 stored under key, or def when absent or of another type.
func (s Store) Float(key string, def float32) float32 {
	if v, ok := s[key].(float32); ok {
		return v
	}
	return def
}

// Int returns the int stored under key, or def when absent or of another type.
func (s Store) Int(key string, def int) int {
	if v, ok := s[key].(int); ok {
		return v
	}
	return def
}

// Bool returns the bool stored under key, or false when absent or of another type.
func (s Store) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}
