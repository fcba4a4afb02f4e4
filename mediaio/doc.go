// Package mediaio provides the byte-stream primitives the demuxers read
// from: fixed-width big- and little-endian integers, raw byte runs, skips,
// and optional random access when the underlying reader supports seeking.
package mediaio
