package extensions

import (
	"log/slog"
	"sort"

	flux "github.com/pumped-fn/pumped-flux"
)

// LoggingExtension logs all store operations
type LoggingExtension struct {
	flux.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a new logging extension. A nil logger uses slog.Default().
func NewLoggingExtension(logger *slog.Logger) *LoggingExtension {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExtension{
		BaseExtension: flux.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) OnInitialize(state flux.State) {
	e.logger.Info("state initialized", "extension", e.Name(), "keys", sortedKeys(state))
}

func (e *LoggingExtension) OnUpdate(changes flux.State, snapshot flux.State, notified bool) {
	e.logger.Info("state updated",
		"extension", e.Name(),
		"changed", sortedKeys(changes),
		"size", len(snapshot),
		"notified", notified,
	)
}

func (e *LoggingExtension) OnError(err error, op *flux.Operation, store *flux.Store) {
	attrs := []any{
		"extension", e.Name(),
		"operation", string(op.Kind),
		"error", err.Error(),
	}
	if op.Key != "" {
		attrs = append(attrs, "key", op.Key)
	}
	e.logger.Error("operation failed", attrs...)
}

func (e *LoggingExtension) Dispose(store *flux.Store) error {
	e.logger.Info("store disposed", "extension", e.Name())
	return nil
}

func sortedKeys(s flux.State) []string {
	keys := s.Keys()
	sort.Strings(keys)
	return keys
}
