package script

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

// entityRecord is the bridge-side state of one entity.
type entityRecord struct {
	entity Entity
	state  EntityState
	store  Store

	// logged is set once the entity's first error has been logged and cleared by Replace.
	logged bool
}

// bridge is the implementation of the Bridge interface.
type bridge struct {
	mu *sync.Mutex

	records map[string]*entityRecord

	// order holds the ids of live entities in registration order.
	order []string

	newID func() string
}

// Bridge owns the registered entities and drives their lifecycle once per frame.
//
// Frame runs three passes in registration order: Init for entities not yet initialized,
// Update for active entities, then Render for active entities. A lifecycle call that returns
// an error or panics produces a *ScriptError; the entity is skipped for the rest of that
// frame and the error is logged once until the entity is replaced.
type Bridge interface {
	// Register adds an entity in the uninitialized state. Init runs on the next Frame.
	//
	// Parameters:
	//   - id: the entity id, empty to generate a uuid
	//   - e: the entity implementation
	//
	// Returns:
	//   - string: the entity id
	//   - error: ErrEntityExists if id is taken
	Register(id string, e Entity) (string, error)

	// Replace swaps an entity's implementation, keeping its state, store and lifecycle state.
	// It also clears the logged-error flag so a new failure is reported.
	//
	// Parameters:
	//   - id: the entity id
	//   - e: the new implementation
	//
	// Returns:
	//   - error: ErrEntityNotFound if id is not a live entity
	Replace(id string, e Entity) error

	// Remove tears an entity down and releases its store. The id stays reserved.
	//
	// Parameters:
	//   - id: the entity id
	//
	// Returns:
	//   - error: ErrEntityNotFound if id is not a live entity
	Remove(id string) error

	// Frame runs the Init, Update and Render passes. The scene material context is cleared
	// before every lifecycle call, so UseMaterial only affects the entity that set it.
	//
	// Parameters:
	//   - ctx: the frame context shared by all entities
	//   - dt: seconds since the previous frame
	//   - elapsed: seconds since the engine started
	//
	// Returns:
	//   - error: the joined *ScriptError values of this frame, nil if every call succeeded
	Frame(ctx *Context, dt, elapsed float32) error

	// State returns the lifecycle state of an entity.
	//
	// Parameters:
	//   - id: the entity id
	//
	// Returns:
	//   - EntityState: the state
	//   - bool: false if id was never registered
	State(id string) (EntityState, bool)

	// Store returns the persistent store of a live entity, nil otherwise.
	//
	// Parameters:
	//   - id: the entity id
	//
	// Returns:
	//   - Store: the entity's store
	Store(id string) Store

	// Transform returns the transform of a live entity, nil otherwise.
	//
	// Parameters:
	//   - id: the entity id
	//
	// Returns:
	//   - *transform.Transform: the entity's transform
	Transform(id string) *transform.Transform

	// Entities returns the ids of live entities in registration order.
	//
	// Returns:
	//   - []string: the entity ids
	Entities() []string
}

var _ Bridge = &bridge{}

// NewBridge creates an empty Bridge.
//
// Parameters:
//   - options: variadic list of BridgeBuilderOption functions
//
// Returns:
//   - Bridge: the new bridge
func NewBridge(options ...BridgeBuilderOption) Bridge {
	b := &bridge{
		mu:      &sync.Mutex{},
		records: make(map[string]*entityRecord),
		newID:   uuid.NewString,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *bridge) Register(id string, e Entity) (string, error) {
	if e == nil {
		return "", errors.New("register: nil entity")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if id == "" {
		id = b.newID()
	}
	if _, ok := b.records[id]; ok {
		return "", fmt.Errorf("register %s: %w", id, ErrEntityExists)
	}
	b.records[id] = &entityRecord{
		entity: e,
		state:  StateUninitialized,
		store:  make(Store),
	}
	b.order = append(b.order, id)
	return id, nil
}

func (b *bridge) Replace(id string, e Entity) error {
	if e == nil {
		return errors.New("replace: nil entity")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.live(id)
	if !ok {
		return fmt.Errorf("replace %s: %w", id, ErrEntityNotFound)
	}
	rec.entity = e
	rec.logged = false
	return nil
}

func (b *bridge) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.live(id)
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrEntityNotFound)
	}
	rec.state = StateTornDown
	rec.store = nil
	rec.entity = nil
	b.order = slices.DeleteFunc(b.order, func(o string) bool { return o == id })
	return nil
}

func (b *bridge) live(id string) (*entityRecord, bool) {
	rec, ok := b.records[id]
	if !ok || rec.state == StateTornDown {
		return nil, false
	}
	return rec, true
}

func (b *bridge) Frame(ctx *Context, dt, elapsed float32) error {
	if ctx == nil {
		ctx = &Context{}
	}
	b.mu.Lock()
	ids := slices.Clone(b.order)
	b.mu.Unlock()

	var errs []error
	failed := make(map[string]bool)

	// a removal made by an earlier call in this frame takes effect immediately
	run := func(id string, phase Phase, want EntityState, fn func(e Entity, ec *Context) error) {
		if failed[id] {
			return
		}
		b.mu.Lock()
		rec, ok := b.live(id)
		if !ok || rec.state != want {
			b.mu.Unlock()
			return
		}
		e, store := rec.entity, rec.store
		b.mu.Unlock()

		// the material context belongs to a single lifecycle call
		if ctx.Scene != nil {
			ctx.Scene.ClearMaterial()
		}
		err := call(id, phase, func() error { return fn(e, ctx.forEntity(id, store)) })

		b.mu.Lock()
		defer b.mu.Unlock()
		if err != nil {
			failed[id] = true
			errs = append(errs, err)
			if rec.entity == e && !rec.logged {
				rec.logged = true
				log.Printf("[Script] %v", err)
			}
			return
		}
		if phase == PhaseInit && rec.state == StateUninitialized {
			rec.state = StateActive
		}
	}

	for _, id := range ids {
		run(id, PhaseInit, StateUninitialized, func(e Entity, ec *Context) error {
			return e.Init(ec)
		})
	}
	// entities initialized this frame also update and render this frame
	for _, id := range ids {
		run(id, PhaseUpdate, StateActive, func(e Entity, ec *Context) error {
			return e.Update(ec, dt, elapsed)
		})
	}
	for _, id := range ids {
		run(id, PhaseRender, StateActive, func(e Entity, ec *Context) error {
			return e.Render(ec)
		})
	}

	return errors.Join(errs...)
}

// call invokes fn and converts a returned error or a panic into a *ScriptError.
func call(id string, phase Phase, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = &ScriptError{EntityID: id, Phase: phase, Err: cause, Panicked: true}
		}
	}()
	if ferr := fn(); ferr != nil {
		return &ScriptError{EntityID: id, Phase: phase, Err: ferr}
	}
	return nil
}

func (b *bridge) State(id string) (EntityState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[id]
	if !ok {
		return 0, false
	}
	return rec.state, true
}

func (b *bridge) Store(id string) Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok := b.live(id); ok {
		return rec.store
	}
	return nil
}

func (b *bridge) Transform(id string) *transform.Transform {
	b.mu.Lock()
	rec, ok := b.live(id)
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return rec.entity.Transform()
}

func (b *bridge) Entities() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.order)
}
