// Package interfaces defines the contracts between the secure partition
// manager and its external collaborators, separating interface definitions
// from implementations.
//
// The package provides interfaces for the three subsystems the partition
// manager consumes rather than implements:
//
// # Address-Space Service
//
// AddressSpace: page-granular allocation, mapping, protection changes and
// protection queries for a partition's private address space, plus the data
// access the kernel needs to copy into and out of partition memory.
//
// AddressSpaceProvider: allocates a fresh address space for a new partition
// context.
//
// # Persistent-Object Service
//
// ObjectStore, ObjectRef, ObjectHandle: named durable objects with
// resolve/open-or-create/read/write/close/release/remove semantics. Reads
// report corruption through ErrCorruptObject.
//
// StoreResolver: selects the physical storage medium backing an object
// store from the storage identifier carried in a relay request.
//
// # Privilege-Transition Primitive
//
// Platform: masks asynchronous exceptions, grants the partition access to
// its virtual timer, and performs the actual privilege switch. The
// primitive saves and restores all hardware state not carried in the
// register frame and reports partition-side faults with a diagnostic code.
package interfaces
