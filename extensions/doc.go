// Package extensions provides ready-made flux extensions: structured
// logging of store operations and a debug extension that draws the state
// tree when an operation fails.
package extensions
