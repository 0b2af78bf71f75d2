package instrumentation

import "errors"

var (
	// ErrInvalidValidator is returned by Define when an option declares a
	// validator that is neither a known value type, an enum set nor a predicate.
	ErrInvalidValidator = errors.New("validator must be array, boolean, callable, integer, string, an enum set or a predicate")

	// ErrInvalidDescriptor is returned by Define for descriptors without a name
	// or with duplicate option names.
	ErrInvalidDescriptor = errors.New("invalid instrumentation descriptor")

	// ErrAlreadyRegistered is returned by Registry.Register for a name that is
	// already taken.
	ErrAlreadyRegistered = errors.New("instrumentation already registered")

	// ErrNotRegistered is returned when a name cannot be found in the registry.
	ErrNotRegistered = errors.New("instrumentation not registered")

	// ErrCallbackPanicked wraps a panic raised by a validator, target check or the install procedure.
	ErrCallbackPanicked = errors.New("instrumentation callback panicked")
)

// IsInvalidValidator reports whether err was caused by an invalid validator declaration.
func IsInvalidValidator(err error) bool {
	return errors.Is(err, ErrInvalidValidator)
}

// IsAlreadyRegistered reports whether err is a duplicate registration error.
func IsAlreadyRegistered(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered)
}

// IsNotRegistered reports whether err is a missing registration error.
func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}
