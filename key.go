package flux

// Key is a type-safe name for one top-level state entry
type Key[T any] struct {
	name string
}

// NewKey creates a new key with the given name
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key's name in the state map
func (k Key[T]) Name() string {
	return k.name
}

// Get retrieves the value from a state. ok is false when the key is
// missing or holds a value of another type.
func (k Key[T]) Get(s State) (T, bool) {
	val, ok := s[k.name]
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := val.(T)
	return typed, ok
}

// MustGet retrieves the value or panics if not found
func (k Key[T]) MustGet(s State) T {
	val, ok := k.Get(s)
	if !ok {
		panic("key " + k.name + " not found")
	}
	return val
}

// GetOrDefault retrieves the value or returns a default
func (k Key[T]) GetOrDefault(s State, defaultVal T) T {
	if val, ok := k.Get(s); ok {
		return val
	}
	return defaultVal
}

// Lookup is Get with a reason for failure
func (k Key[T]) Lookup(s State) (T, error) {
	val, ok := s[k.name]
	if !ok {
		var zero T
		return zero, &OperationError{Op: OpRead, Key: k.name, Err: ErrKeyNotFound}
	}
	return SafeTypeAssertion[T](k.name, val)
}

// Changes builds a change set that sets only this key
func (k Key[T]) Changes(val T) State {
	return State{k.name: val}
}
