package flux

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrUninitializedState is returned when the state is read or merged
	// before the store has been initialized.
	ErrUninitializedState = errors.New("state is not initialized")
	ErrKeyNotFound        = errors.New("key not found in state")
	ErrStoreDisposed      = errors.New("store is disposed")
)

// OperationError records which store operation failed and on which key
type OperationError struct {
	Op  OperationKind
	Key string
	Err error
}

func (e *OperationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("flux: %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("flux: %s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// TypeMismatchError is returned when a key holds a value of another type
type TypeMismatchError struct {
	Key      string
	Expected string
	Actual   any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type assertion error for key %q: expected %s, got %T (value: %v)", e.Key, e.Expected, e.Actual, e.Actual)
}

// SafeTypeAssertion converts value to T. A nil value yields the zero T.
func SafeTypeAssertion[T any](key string, value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, &TypeMismatchError{
			Key:      key,
			Expected: reflect.TypeOf((*T)(nil)).Elem().String(),
			Actual:   value,
		}
	}

	return typed, nil
}
