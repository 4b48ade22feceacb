package binding

import (
	"context"
	"fmt"
)

// Component is one node of a rendered tree. Render reads whatever state it
// needs from ctx and returns its children, which are rendered next with the
// same context.
type Component interface {
	Render(ctx context.Context) ([]Component, error)
}

// ComponentFunc adapts a function to Component
type ComponentFunc func(ctx context.Context) ([]Component, error)

func (f ComponentFunc) Render(ctx context.Context) ([]Component, error) {
	return f(ctx)
}

// Namer is implemented by components that want a readable name in Tree output
type Namer interface {
	Name() string
}

type named struct {
	Component
	name string
}

func (n named) Name() string {
	return n.name
}

// Named attaches a display name to a component
func Named(name string, c Component) Component {
	return named{Component: c, name: name}
}

// Leaf wraps a function that renders no children
func Leaf(name string, fn func(ctx context.Context) error) Component {
	return named{
		name: name,
		Component: ComponentFunc(func(ctx context.Context) ([]Component, error) {
			return nil, fn(ctx)
		}),
	}
}

// Group renders the given children unchanged
func Group(name string, children ...Component) Component {
	return named{
		name: name,
		Component: ComponentFunc(func(ctx context.Context) ([]Component, error) {
			return children, nil
		}),
	}
}

func nameOf(c Component) string {
	if n, ok := c.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", c)
}
