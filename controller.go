package flux

import "errors"

// Controller reads and writes one key of a store
type Controller[T any] struct {
	key   Key[T]
	store *Store
}

// Accessor creates a controller for a key
func Accessor[T any](s *Store, key Key[T]) *Controller[T] {
	return &Controller[T]{
		key:   key,
		store: s,
	}
}

// Get returns the current value, failing when the store is uninitialized,
// the key is missing or the value has another type
func (c *Controller[T]) Get() (T, error) {
	state, err := c.store.Read()
	if err != nil {
		var zero T
		return zero, err
	}
	return c.key.Lookup(state)
}

// Peek returns the current value without reporting why it is missing
func (c *Controller[T]) Peek() (T, bool) {
	state, ok := c.store.Peek()
	if !ok {
		var zero T
		return zero, false
	}
	return c.key.Get(state)
}

// Update sets a new value and notifies the subscriber
func (c *Controller[T]) Update(newVal T) error {
	return c.store.Update(c.key.Changes(newVal))
}

// Set is an alias for Update
func (c *Controller[T]) Set(newVal T) error {
	return c.Update(newVal)
}

// UpdateFunc applies fn to the current value and stores the result as one
// atomic step. A missing key passes the zero value to fn. fn runs with the
// store locked and must not use the store.
func (c *Controller[T]) UpdateFunc(fn func(T) T) error {
	return c.store.UpdateWith(func(state State) (State, error) {
		current, err := c.key.Lookup(state)
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return nil, err
		}
		return c.key.Changes(fn(current)), nil
	})
}

// Key returns the key this controller manages
func (c *Controller[T]) Key() Key[T] {
	return c.key
}
