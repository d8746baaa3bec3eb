package repository

import "fmt"

const versionColumn = "version"

// Versioned entities carry a row version used for optimistic locking.
type Versioned interface {
	GetVersion() int64
	SetVersion(version int64)
}

// OptimisticLockError is returned when a versioned update finds the row at a
// different version than the entity was read at.
type OptimisticLockError struct {
	EntityID string
	Expected int64
	Actual   int64
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("optimistic lock failed for entity %s: expected version %d, got %d",
		e.EntityID, e.Expected, e.Actual)
}

// NewOptimisticLockError creates an OptimisticLockError.
func NewOptimisticLockError(entityID string, expected, actual int64) *OptimisticLockError {
	return &OptimisticLockError{
		EntityID: entityID,
		Expected: expected,
		Actual:   actual,
	}
}
