// Package ffa defines the register-frame message protocol spoken between the
// kernel and the secure partition at every privilege transition.
//
// The protocol is carried entirely in a fixed frame of eight general-purpose
// words plus stack pointer, program counter and processor status. The frame
// is exchanged bit-exact with the privilege-transition primitive; the
// constants in this package are part of the internal ABI between the kernel
// and the partition image and must not change without rebuilding the image.
//
// Three message kinds are understood:
//
//   - Version: the partition queries the supported protocol version.
//   - Direct request: the partition calls a kernel service endpoint.
//   - Direct response: the partition answers the caller and ends the
//     current exchange.
//
// Word 0 carries the function identifier, word 1 packs the source and
// destination endpoint identifiers (source in the high 16 bits), word 2 is
// reserved and must be zero, and words 3..7 carry parameters.
package ffa
