package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m1gwings/treedrawer/tree"

	flux "github.com/pumped-fn/pumped-flux"
)

// StateDebugExtension logs a drawing of the state when an operation fails.
//
// Usage:
//
//	// Human-readable formatted output (with line breaks)
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewStateDebugExtension(handler)
//
//	// Structured JSON logging (compact, machine-readable)
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewStateDebugExtension(handler)
//
//	// Silent (for testing)
//	ext := extensions.NewStateDebugExtension(extensions.NewSilentHandler())
//
// The extension logs at ERROR level.
type StateDebugExtension struct {
	flux.BaseExtension

	mu sync.Mutex
	// Track how often each key was written
	writes  map[string]int
	updates int
	logger  *slog.Logger
}

// NewStateDebugExtension creates a new state debug extension.
// logHandler: slog.Handler for logging (use HumanHandler for formatted output, or any other slog.Handler)
func NewStateDebugExtension(logHandler slog.Handler) *StateDebugExtension {
	return &StateDebugExtension{
		BaseExtension: flux.NewBaseExtension("state-debug"),
		writes:        make(map[string]int),
		logger:        slog.New(logHandler),
	}
}

// OnUpdate counts key writes
func (e *StateDebugExtension) OnUpdate(changes flux.State, snapshot flux.State, notified bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.updates++
	for k := range changes {
		e.writes[k]++
	}
}

// Writes returns how many updates have written key
func (e *StateDebugExtension) Writes(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes[key]
}

// OnError logs the current state when an operation fails
func (e *StateDebugExtension) OnError(err error, op *flux.Operation, store *flux.Store) {
	drawing := "\n(uninitialized)"
	if state, ok := store.Peek(); ok {
		drawing = "\n" + e.DrawState(state)
	}

	e.mu.Lock()
	updates := e.updates
	e.mu.Unlock()

	e.logger.Error("State Operation Error",
		"operation", string(op.Kind),
		"key", op.Key,
		"error", err.Error(),
		"updates", updates,
		"state_tree", drawing,
	)
}

// DrawState renders state as a tree. Nested maps and slices become subtrees;
// keys that were written at least once are marked with ✓.
func (e *StateDebugExtension) DrawState(state flux.State) string {
	root := tree.NewTree(tree.NodeString("state"))

	e.mu.Lock()
	defer e.mu.Unlock()

	keys := state.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		label := k
		if e.writes[k] > 0 {
			label += " ✓"
		}
		addValue(root, label, state[k])
	}
	return root.String()
}

func addValue(parent *tree.Tree, label string, value any) {
	switch v := value.(type) {
	case flux.State:
		addMap(parent.AddChild(tree.NodeString(label)), v)
	case map[string]any:
		addMap(parent.AddChild(tree.NodeString(label)), v)
	case []any:
		node := parent.AddChild(tree.NodeString(label))
		for i, item := range v {
			addValue(node, fmt.Sprintf("[%d]", i), item)
		}
	default:
		parent.AddChild(tree.NodeString(fmt.Sprintf("%s: %v", label, v)))
	}
}

func addMap(node *tree.Tree, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		addValue(node, k, m[k])
	}
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}

// HumanHandler is a slog.Handler that formats logs for human readability
// with proper line breaks and visual formatting (especially for state trees)
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a new human-readable log handler
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{
		writer: writer,
		level:  level,
	}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Message == "State Operation Error" {
		return h.handleStateError(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func (h *HumanHandler) handleStateError(record slog.Record) error {
	var operation, key, errorMsg, stateTree string

	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "operation":
			operation = a.Value.String()
		case "key":
			key = a.Value.String()
		case "error":
			errorMsg = a.Value.String()
		case "state_tree":
			stateTree = a.Value.String()
		}
		return true
	})

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70) + "\n")
	sb.WriteString("[StateDebug] State Operation Error\n")
	sb.WriteString(strings.Repeat("=", 70) + "\n")
	sb.WriteString(fmt.Sprintf("\nOperation: %s\n", operation))
	if key != "" {
		sb.WriteString(fmt.Sprintf("Key: %s\n", key))
	}
	sb.WriteString(fmt.Sprintf("Error: %s\n", errorMsg))
	sb.WriteString(fmt.Sprintf("\nState:%s\n", stateTree))
	sb.WriteString(strings.Repeat("=", 70) + "\n\n")

	_, err := io.WriteString(h.writer, sb.String())
	return err
}

// WithAttrs returns self; attributes attached to the handler are not printed.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return h
}
