package media

import (
	"math"
	"time"

	"github.com/go-audio/audio"
)

// TimeBase relates track timestamps to wall-clock time. A timestamp of ts
// spans ts*Num/Den seconds; the demuxers use one tick per sample frame, so
// Num is 1 and Den is the sample rate.
type TimeBase struct {
	Num uint32
	Den uint32
}

// Timestamp converts a duration to the nearest timestamp in this time base.
func (tb TimeBase) Timestamp(d time.Duration) uint64 {
	if tb.Num == 0 || tb.Den == 0 || d <= 0 {
		return 0
	}

	ticks := d.Seconds() * float64(tb.Den) / float64(tb.Num)

	return uint64(math.Round(ticks))
}

// Duration converts a timestamp in this time base to a duration.
func (tb TimeBase) Duration(ts uint64) time.Duration {
	if tb.Num == 0 || tb.Den == 0 {
		return 0
	}

	secs := float64(ts) * float64(tb.Num) / float64(tb.Den)

	return time.Duration(secs * float64(time.Second))
}

// CodecParameters describes the sample data of one track in a
// codec-agnostic way. A demuxer populates it from the container's format
// chunk and freezes it into a Track once the data chunk is located.
type CodecParameters struct {
	// Codec identifies the sample encoding.
	Codec CodecType
	// SampleRate in Hz.
	SampleRate uint32
	// Channels is the ordered speaker layout.
	Channels Channels
	// BitsPerSample is the number of valid bits in each sample.
	BitsPerSample uint16
	// BitsPerCodedSample is the stored width of each sample. Always a
	// multiple of 8 and >= BitsPerSample.
	BitsPerCodedSample uint16
	// FrameLength is the byte size of one frame, a single sample instant
	// across all channels.
	FrameLength uint32
	// NFrames is the total frame count, valid only if HasNFrames is set.
	NFrames    uint64
	HasNFrames bool
	// MaxFramesPerPacket bounds the frames carried by a single packet.
	MaxFramesPerPacket uint64
	// TimeBase relates packet timestamps to wall-clock time.
	TimeBase TimeBase
}

// Track is a single audio stream inside a container.
type Track struct {
	ID     uint32
	Params CodecParameters
}

// Format returns the track's audio format in go-audio terms.
func (t Track) Format() *audio.Format {
	return &audio.Format{
		NumChannels: t.Params.Channels.Count(),
		SampleRate:  int(t.Params.SampleRate),
	}
}

// Duration returns the track's total duration, or zero when the frame
// count is unknown.
func (t Track) Duration() time.Duration {
	if !t.Params.HasNFrames {
		return 0
	}

	return t.Params.TimeBase.Duration(t.Params.NFrames)
}

// Packet is one bounded unit of raw sample bytes handed to a decoder.
type Packet struct {
	// TrackID refers to the track the packet belongs to.
	TrackID uint32
	// Timestamp is the presentation timestamp of the first frame, in the
	// track's time base.
	Timestamp uint64
	// Duration is the number of frames the packet spans.
	Duration uint64
	// Data holds Duration frames of raw sample bytes.
	Data []byte
}

// Tag is one free-form textual metadata entry.
type Tag struct {
	Key   string
	Value string
}

// Cue is a named marker position inside a track, in frames.
type Cue struct {
	ID       uint32
	Position uint64
	Label    string
}

// SeekTarget is a position to seek to, either an absolute frame timestamp
// or a wall-clock time resolved through the track's time base.
type SeekTarget struct {
	ts     uint64
	dur    time.Duration
	isTime bool
}

// SeekFrame targets an absolute frame timestamp.
func SeekFrame(ts uint64) SeekTarget {
	return SeekTarget{ts: ts}
}

// SeekTime targets a wall-clock time.
func SeekTime(d time.Duration) SeekTarget {
	return SeekTarget{dur: d, isTime: true}
}

// Resolve converts the target to a frame timestamp using the given time
// base. It fails with an unseekable SeekError when a time target cannot be
// resolved because the time base is void.
func (st SeekTarget) Resolve(tb TimeBase) (uint64, error) {
	if !st.isTime {
		return st.ts, nil
	}

	if tb.Den == 0 {
		return 0, NewSeekError(SeekUnseekable)
	}

	return tb.Timestamp(st.dur), nil
}

// SeekedTo reports the outcome of a seek request. No snapping beyond frame
// alignment is performed, so the actual and required timestamps are equal.
type SeekedTo struct {
	TrackID           uint32
	RequiredTimestamp uint64
	ActualTimestamp   uint64
}

// Demuxer reads tracks and packets from an audio container. Implementations
// are single-threaded and own their byte stream exclusively for the
// container's lifetime.
type Demuxer interface {
	// Tracks lists the tracks found in the container.
	Tracks() []Track
	// NextPacket produces the next packet of the data region, or
	// ErrEndOfStream once the region is exhausted.
	NextPacket() (Packet, error)
	// Seek positions the packet cursor at the frame resolved from the
	// target and reports the resolved timestamp.
	Seek(target SeekTarget) (SeekedTo, error)
	// Metadata returns the textual tags harvested during scanning.
	Metadata() []Tag
	// Cues returns the marker positions carried by the container.
	Cues() []Cue
}
