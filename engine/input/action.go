package input

import (
	"errors"
	"fmt"
	"strings"

	"github.com/riwanou/wgpu-lua-fun/common"
)

// ErrUnknownAction is returned when an action name is outside the closed action set.
var ErrUnknownAction = errors.New("unknown action")

// Action is one of the closed set of named inputs entities can poll.
type Action int

const (
	ActionForward Action = iota
	ActionBackward
	ActionLeft
	ActionRight
	ActionUp
	ActionDown
	ActionInteract
	ActionFocus

	actionCount
)

var actionNames = [actionCount]string{
	ActionForward:  "forward",
	ActionBackward: "backward",
	ActionLeft:     "left",
	ActionRight:    "right",
	ActionUp:       "up",
	ActionDown:     "down",
	ActionInteract: "interact",
	ActionFocus:    "focus",
}

// defaultBindings are the keys bound to each action by NewInputs.
var defaultBindings = map[Action][]uint32{
	ActionForward:  {common.KeyW},
	ActionBackward: {common.KeyS},
	ActionLeft:     {common.KeyA},
	ActionRight:    {common.KeyD},
	ActionUp:       {common.KeySpace},
	ActionDown:     {common.KeyLeftShift},
	ActionInteract: {common.KeyE},
	ActionFocus:    {common.KeyF},
}

// Valid reports whether a is part of the action set.
func (a Action) Valid() bool {
	return a >= 0 && a < actionCount
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction returns the Action named name. Matching is case-insensitive.
//
// Parameters:
//   - name: the action name, e.g. "forward"
//
// Returns:
//   - Action: the parsed action
//   - error: an error wrapping ErrUnknownAction if name is not in the action set
func ParseAction(name string) (Action, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for a, n := range actionNames {
		if n == lower {
			return Action(a), nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Actions returns every action in declaration order.
//
// Returns:
//   - []Action: the closed action set
func Actions() []Action {
	out := make([]Action, actionCount)
	for i := range out {
		out[i] = Action(i)
	}
	return out
}
