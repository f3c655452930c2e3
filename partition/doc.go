// Package partition implements the kernel-side manager of the secure
// partition: a fixed firmware payload loaded into a private address space
// and repeatedly entered and exited, speaking a synchronous register-frame
// protocol with the kernel.
//
// The package is organized around a Manager that owns the partition
// registry and the consumed subsystems, and covers:
//
//   - context lifecycle: creation, single-instance registry, teardown
//   - image loading: layout computation, streaming decompression, final
//     page protections, boot descriptor construction
//   - the execution transition engine: privilege switches in and out of
//     the partition, fault detection
//   - protocol dispatch: version queries, direct requests routed to the
//     memory-attribute and storage-relay endpoints, direct responses
//     returning control to the caller
//   - the session surface consumed by a generic task-session host
//
// Exactly one partition instance with one logical thread of control is
// supported; entries are serialized per context.
package partition
