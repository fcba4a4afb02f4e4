// Package chunk implements bounded, lazy traversal over a sequence of
// tagged, length-prefixed records inside a byte region, the structural
// backbone of RIFF/WAVE and IFF/AIFF containers.
//
// A Reader walks one region: it reads 8-byte chunk headers, validates the
// untrusted declared lengths against the bytes remaining in the region, and
// resolves tags to typed handles through a pluggable mapping. Payloads are
// never read by the Reader itself; a returned handle carries only the tag
// and length, and the caller decides when and how to consume the payload.
package chunk
