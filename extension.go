package flux

// Extension observes the store lifecycle. Hooks run synchronously on the
// goroutine that performed the operation and cannot alter its outcome.
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a store
	Init(store *Store) error

	// OnInitialize is called after the state has been replaced
	OnInitialize(state State)

	// OnUpdate is called after the changes were merged and, when a
	// subscriber was registered, after it returned
	OnUpdate(changes State, snapshot State, notified bool)

	// OnError handles failed operations
	OnError(err error, op *Operation, store *Store)

	// Dispose is called when the store is disposed
	Dispose(store *Store) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(store *Store) error {
	return nil
}

func (e *BaseExtension) OnInitialize(state State) {
}

func (e *BaseExtension) OnUpdate(changes State, snapshot State, notified bool) {
}

func (e *BaseExtension) OnError(err error, op *Operation, store *Store) {
}

func (e *BaseExtension) Dispose(store *Store) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind  OperationKind
	Key   string
	Store *Store
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpInitialize indicates the state is being replaced
	OpInitialize OperationKind = "initialize"
	// OpRead indicates the state is being read
	OpRead OperationKind = "read"
	// OpMerge indicates a single key is being written
	OpMerge OperationKind = "merge"
	// OpUpdate indicates a change set is being dispatched
	OpUpdate OperationKind = "update"
)
