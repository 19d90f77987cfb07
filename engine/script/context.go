package script

import (
	"github.com/riwanou/wgpu-lua-fun/engine/input"
	"github.com/riwanou/wgpu-lua-fun/engine/resource"
	"github.com/riwanou/wgpu-lua-fun/engine/scene"
)

// WindowControl is the window capability exposed to entities.
type WindowControl interface {
	// GrabCursor hides the cursor and locks it to the window.
	GrabCursor()

	// ReleaseCursor restores the normal cursor.
	ReleaseCursor()

	// CursorGrabbed reports whether the cursor is currently grabbed.
	CursorGrabbed() bool
}

// Context carries the engine services an entity may use during a lifecycle call.
// The Bridge passes each entity its own copy with ID and State filled in.
type Context struct {
	// Scene receives BatchModel and PointLight requests and owns the camera.
	Scene scene.Scene

	// Graphics loads meshes and textures and manages materials.
	Graphics resource.Registry

	// Inputs is the input state of the current frame.
	Inputs input.Inputs

	// Window controls the cursor.
	Window WindowControl

	// ID is the id of the entity being called.
	ID string

	// State is the persistent store of the entity being called.
	State Store
}

// forEntity returns a copy of c bound to one entity.
func (c *Context) forEntity(id string, state Store) *Context {
	ec := *c
	ec.ID = id
	ec.State = state
	return &ec
}
