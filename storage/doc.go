// Package storage implements the persistent-object service consumed by the
// storage relay endpoint: named durable objects with combined
// open/read/close and open-or-create/write/close semantics across pluggable
// physical media.
//
// Backends:
//
//   - File system storage with an integrity trailer; at-rest tampering is
//     reported as object corruption on read.
//   - In-memory storage for tests and the emulated daemon.
//   - S3-compatible object storage for hosted deployments, with
//     read-modify-write offset semantics.
//
// A Router maps the storage-medium identifier carried in a relay request to
// the backend serving it; the identifiers follow the trusted-storage
// convention (StorageREE, StorageRPMB).
//
// Backends are constructed from URIs in the form [scheme]://..., e.g.
//
//	file:///var/lib/spmd/ree
//	mem:
//	s3://bucket/prefix/?region=us-west-2
package storage
