package script

import (
	"errors"
	"fmt"
)

var (
	// ErrScript is matched by every *ScriptError.
	ErrScript = errors.New("script error")

	// ErrEntityNotFound is returned when an id was never registered.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityExists is returned when registering an id that is already taken.
	ErrEntityExists = errors.New("entity already registered")
)

// Phase names the lifecycle call a ScriptError came from.
type Phase string

const (
	PhaseInit   Phase = "init"
	PhaseUpdate Phase = "update"
	PhaseRender Phase = "render"
)

// ScriptError reports a failed or panicking lifecycle call of one entity.
type ScriptError struct {
	EntityID string
	Phase    Phase
	Err      error

	// Panicked is true when the call panicked instead of returning an error.
	Panicked bool
}

func (e *ScriptError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("entity %s: %s: panic: %v", e.EntityID, e.Phase, e.Err)
	}
	return fmt.Sprintf("entity %s: %s: %v", e.EntityID, e.Phase, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func (e *ScriptError) Is(target error) bool {
	return target == ErrScript
}
