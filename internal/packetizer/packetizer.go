// Package packetizer implements the seek and packet-read arithmetic shared
// by the container demuxers: a single forward-iterating cursor over the
// absolute byte span of raw sample data.
package packetizer

import (
	"errors"
	"io"
	"math"

	"github.com/cwbudde/demux/media"
	"github.com/cwbudde/demux/mediaio"
)

// UnknownEnd marks a data region whose end is not known because the
// container declared the unknown-length sentinel; packets are then served
// until the stream itself ends.
const UnknownEnd = math.MaxUint64

// Packetizer serves bounded packets from the data region of one track and
// resolves seek targets to byte offsets inside it. The byte stream is
// borrowed from the owning demuxer; the cursor is the stream position.
type Packetizer struct {
	s         mediaio.ByteStream
	trackID   uint32
	start     uint64
	end       uint64
	frameLen  uint32
	maxFrames uint64
}

// New returns a Packetizer over [start, end) with the given frame length
// in bytes and per-packet frame cap. The stream is expected to be
// positioned at start.
func New(s mediaio.ByteStream, trackID uint32, start, end uint64, frameLen uint32, maxFrames uint64) *Packetizer {
	return &Packetizer{
		s:         s,
		trackID:   trackID,
		start:     start,
		end:       end,
		frameLen:  frameLen,
		maxFrames: maxFrames,
	}
}

// NextPacket reads the next run of frames, capped at the per-packet
// maximum. Once no whole frame remains it returns media.ErrEndOfStream;
// the sequence is finite and only an explicit seek restarts it.
func (p *Packetizer) NextPacket() (media.Packet, error) {
	pos := p.s.Pos()

	var framesLeft uint64
	if pos < p.end {
		framesLeft = (p.end - pos) / uint64(p.frameLen)
	}

	if framesLeft == 0 {
		return media.Packet{}, media.ErrEndOfStream
	}

	frames := framesLeft
	if frames > p.maxFrames {
		frames = p.maxFrames
	}

	buf := make([]byte, frames*uint64(p.frameLen))

	if p.end == UnknownEnd {
		// The data extends to the end of the stream; a short final read
		// is the expected termination, not corruption. A trailing
		// partial frame is tolerated and dropped.
		n, err := io.ReadFull(p.s, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return media.Packet{}, err
		}

		frames = uint64(n) / uint64(p.frameLen)
		if frames == 0 {
			return media.Packet{}, media.ErrEndOfStream
		}

		buf = buf[:frames*uint64(p.frameLen)]
	} else if err := p.s.ReadFull(buf); err != nil {
		return media.Packet{}, err
	}

	return media.Packet{
		TrackID:   p.trackID,
		Timestamp: (pos - p.start) / uint64(p.frameLen),
		Duration:  frames,
		Data:      buf,
	}, nil
}

// Seek positions the cursor at the frame resolved from the target. On a
// stream without random access only forward movement is possible; the gap
// is skipped by discarding bytes.
func (p *Packetizer) Seek(target media.SeekTarget, params media.CodecParameters) (media.SeekedTo, error) {
	if p.frameLen == 0 || params.SampleRate == 0 {
		return media.SeekedTo{}, media.NewSeekError(media.SeekUnseekable)
	}

	ts, err := target.Resolve(params.TimeBase)
	if err != nil {
		return media.SeekedTo{}, err
	}

	if params.HasNFrames && ts > params.NFrames {
		return media.SeekedTo{}, media.NewSeekError(media.SeekOutOfRange)
	}

	seekPos := p.start + ts*uint64(p.frameLen)

	if p.s.Seekable() {
		if err := p.s.SeekTo(seekPos); err != nil {
			return media.SeekedTo{}, err
		}
	} else {
		pos := p.s.Pos()
		if seekPos < pos {
			return media.SeekedTo{}, media.NewSeekError(media.SeekForwardOnly)
		}

		if err := p.s.Ignore(seekPos - pos); err != nil {
			return media.SeekedTo{}, err
		}
	}

	// No snapping beyond frame alignment is performed.
	return media.SeekedTo{
		TrackID:           p.trackID,
		RequiredTimestamp: ts,
		ActualTimestamp:   ts,
	}, nil
}
