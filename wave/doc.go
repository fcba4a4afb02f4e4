// Package wave demuxes RIFF/WAVE containers.
//
// The reader walks the top-level chunk sequence lazily, decodes the fmt
// chunk into codec parameters (PCM, IEEE float, extensible, A-law and
// mu-law variants), harvests LIST/INFO metadata and cue points, and stops
// at the data chunk, from which it serves bounded packets of raw,
// byte-aligned sample data.
package wave
