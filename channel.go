package flux

// Subscriber receives a snapshot of the full state after every update
type Subscriber func(State)

// Channel holds at most one subscriber. Registering replaces the previous
// one, so the last registration wins.
type Channel struct {
	subscriber Subscriber
	versioned  func(State, uint64)
	token      uint64
}

// Register fills the subscriber slot. A nil subscriber clears it.
// The returned token identifies this registration.
func (ch *Channel) Register(sub Subscriber) uint64 {
	ch.subscriber = sub
	ch.versioned = nil
	ch.token++
	return ch.token
}

// registerVersioned fills the slot with a subscriber that is also told
// the state version. Called through Current it sees version 0.
func (ch *Channel) registerVersioned(fn func(State, uint64)) uint64 {
	token := ch.Register(func(s State) { fn(s, 0) })
	ch.versioned = fn
	return token
}

// owns reports whether token still names the registered subscriber
func (ch *Channel) owns(token uint64) bool {
	return ch.subscriber != nil && ch.token == token
}

// Current returns the registered subscriber, if any
func (ch *Channel) Current() (Subscriber, bool) {
	if ch.subscriber == nil {
		return nil, false
	}
	return ch.subscriber, true
}

// notifier returns the function a notification goes through
func (ch *Channel) notifier() (func(State, uint64), bool) {
	if ch.versioned != nil {
		return ch.versioned, true
	}
	if ch.subscriber == nil {
		return nil, false
	}
	sub := ch.subscriber
	return func(s State, _ uint64) { sub(s) }, true
}
