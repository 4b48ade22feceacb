package flux

// State is the flat, string-keyed application data held by a store.
// Values are replaced wholesale on update; nested maps are never merged.
type State map[string]any

// Clone returns a shallow copy of the state
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the keys present in the state, in no particular order
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// Container owns the single mutable State.
//
// Container does no locking of its own. Store serializes access to it.
type Container struct {
	state       State
	initialized bool
}

// Initialize replaces the whole state with a shallow copy of initial.
// Calling it again discards the previous state rather than merging.
func (c *Container) Initialize(initial State) {
	next := make(State, len(initial))
	for k, v := range initial {
		next[k] = v
	}
	c.state = next
	c.initialized = true
}

// Initialized reports whether Initialize has been called
func (c *Container) Initialized() bool {
	return c.initialized
}

// Read returns the live state by reference
func (c *Container) Read() (State, error) {
	if !c.initialized {
		return nil, ErrUninitializedState
	}
	return c.state, nil
}

// MergeOne sets a single top-level key, creating it if absent
func (c *Container) MergeOne(key string, value any) error {
	if !c.initialized {
		return ErrUninitializedState
	}
	c.state[key] = value
	return nil
}
