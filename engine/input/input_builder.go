package input

import "log"

// InputsBuilderOption is a functional option applied to an inputs during construction via NewInputs.
type InputsBuilderOption func(*inputs)

// WithBinding replaces the default keys of an action. Unknown actions are logged and ignored.
//
// Parameters:
//   - action: the action to bind
//   - keys: the key codes that trigger it
//
// Returns:
//   - InputsBuilderOption: a function that applies the binding to an inputs
func WithBinding(action Action, keys ...uint32) InputsBuilderOption {
	return func(in *inputs) {
		if !action.Valid() {
			log.Printf("[Input] ignoring binding for %v: %v", action, ErrUnknownAction)
			return
		}
		in.bindings[action] = append([]uint32(nil), keys...)
	}
}

// WithoutDefaultBindings starts with no key bound to any action.
//
// Returns:
//   - InputsBuilderOption: a function that clears the bindings of an inputs
func WithoutDefaultBindings() InputsBuilderOption {
	return func(in *inputs) {
		for a := range in.bindings {
			in.bindings[a] = nil
		}
	}
}
