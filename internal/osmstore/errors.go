package osmstore

import "fmt"

// ErrMissingEntity is returned by a store's Get when the requested id was
// never inserted and enforceIntegrity forbids silently skipping it.
type ErrMissingEntity struct {
	Kind ObjectKind
	ID   uint64
}

func (e *ErrMissingEntity) Error() string {
	return fmt.Sprintf("osmstore: missing %s %d", e.Kind, e.ID)
}

// ErrNotFinalized is returned when a lookup is attempted on a store that
// has been written to but not yet Finalize()d, so its backing slice is not
// sorted and binary search would be unsound.
type ErrNotFinalized struct {
	Kind ObjectKind
}

func (e *ErrNotFinalized) Error() string {
	return fmt.Sprintf("osmstore: %s store used before Finalize", e.Kind)
}

// ErrDuplicateEntity describes an id inserted twice into one store. The
// stores' Insert methods do not check for duplicates, and nothing in this
// package returns this error.
type ErrDuplicateEntity struct {
	Kind ObjectKind
	ID   uint64
}

func (e *ErrDuplicateEntity) Error() string {
	return fmt.Sprintf("osmstore: duplicate %s %d", e.Kind, e.ID)
}
