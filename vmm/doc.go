// Package vmm provides an in-memory implementation of the address-space
// service contract. It models page-granular mappings with per-page
// protections and is used by the emulated daemon and by tests; a production
// kernel substitutes its own implementation behind the same interface.
package vmm
