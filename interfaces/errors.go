package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned when the address-space service cannot
	// allocate backing memory. It is propagated, never fatal.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrBadParameters is returned for malformed parameter shapes before
	// any state mutation.
	ErrBadParameters = errors.New("bad parameters")

	// ErrBadState is returned when an operation is attempted against a
	// context that cannot serve it, e.g. a session marked failed.
	ErrBadState = errors.New("bad state")

	// ErrExcessData is returned when a caller-supplied buffer exceeds
	// the partition's communication buffer. No bytes are copied.
	ErrExcessData = errors.New("excess data")

	// ErrTargetFaulted is returned when the partition faulted during an
	// exchange. The context is left intact for inspection or teardown.
	ErrTargetFaulted = errors.New("target faulted")

	// ErrUnknownPartition is returned when a session names an identity
	// other than the single supported partition image.
	ErrUnknownPartition = errors.New("unknown partition")

	// ErrNotMapped is returned by address-space queries on addresses
	// outside any mapped region.
	ErrNotMapped = errors.New("address not mapped")

	// ErrObjectNotFound is returned when a named persistent object has
	// never been created.
	ErrObjectNotFound = errors.New("object not found")

	// ErrCorruptObject is returned when a persistent object fails its
	// integrity check on read.
	ErrCorruptObject = errors.New("object corrupt")

	// ErrStoreNotFound is returned when no object store backs the
	// requested storage-medium identifier.
	ErrStoreNotFound = errors.New("storage medium not available")
)

// ExcessDataError reports that a caller buffer exceeded the communication
// buffer, carrying the maximum size the partition accepts.
type ExcessDataError struct {
	Required uint64
}

func (e *ExcessDataError) Error() string {
	return fmt.Sprintf("excess data: at most %d bytes accepted", e.Required)
}

// Is makes the error match ErrExcessData under errors.Is.
func (e *ExcessDataError) Is(target error) bool { return target == ErrExcessData }

// TargetFaultError reports a partition-side fault with its diagnostic code.
type TargetFaultError struct {
	Code uint32
}

func (e *TargetFaultError) Error() string {
	return fmt.Sprintf("target faulted with code %#x", e.Code)
}

// Is makes the error match ErrTargetFaulted under errors.Is.
func (e *TargetFaultError) Is(target error) bool { return target == ErrTargetFaulted }
