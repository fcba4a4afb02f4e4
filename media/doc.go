// Package media defines the core model shared by the container demuxers:
// tracks, codec parameters, packets, channel layouts, metadata tags, cue
// points, and the error taxonomy used across the module.
//
// A demuxer produces one or more Tracks describing the audio they carry,
// then hands out bounded Packets of raw sample bytes on demand. Nothing in
// this package touches the byte stream itself.
package media
