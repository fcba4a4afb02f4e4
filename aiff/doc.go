// Package aiff demuxes IFF FORM/AIFF containers.
//
// The reader walks the big-endian chunk sequence lazily, decodes the COMM
// chunk into codec parameters (including the 80-bit extended-precision
// sample rate), harvests text and comment chunks into metadata tags and
// MARK chunks into cue points, and stops at the SSND chunk, from which it
// serves bounded packets of raw sample data.
//
// AIFF-C compressed forms are recognized but not decoded.
package aiff
