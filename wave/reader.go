package wave

import (
	"encoding/binary"
	"fmt"

	"github.com/go-audio/riff"

	"github.com/cwbudde/demux/chunk"
	"github.com/cwbudde/demux/internal/packetizer"
	"github.com/cwbudde/demux/media"
	"github.com/cwbudde/demux/mediaio"
)

// maxFramesPerPacket bounds the number of frames carried by one packet,
// keeping memory use bounded and giving decoders a bounded unit of work.
const maxFramesPerPacket = 1024

// Reader demuxes one RIFF/WAVE container from a byte stream. It owns the
// stream exclusively for the container's lifetime and serves exactly one
// track.
type Reader struct {
	s  mediaio.ByteStream
	pk *packetizer.Packetizer

	track media.Track
	tags  []media.Tag
	cues  []media.Cue
}

var _ media.Demuxer = (*Reader)(nil)

// NewReader validates the RIFF/WAVE header, scans the top-level chunks
// until the data chunk is located, and leaves the stream positioned at the
// first byte of sample data. Chunks following the data chunk are not
// visited; sample data commonly extends to the end of the stream.
func NewReader(s mediaio.ByteStream) (*Reader, error) {
	marker, err := s.ReadQuad()
	if err != nil {
		return nil, fmt.Errorf("failed to read riff marker: %w", err)
	}

	if marker != riff.RiffID {
		return nil, media.NewUnsupportedError("wav: missing riff stream marker")
	}

	riffLen, err := s.ReadU32(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read riff length: %w", err)
	}

	form, err := s.ReadQuad()
	if err != nil {
		return nil, fmt.Errorf("failed to read riff form: %w", err)
	}

	if form != riff.WavFormatID {
		return nil, media.NewUnsupportedError("wav: riff form is not wave")
	}

	r := &Reader{s: s}

	chunks := chunk.NewReader(riffLen, binary.LittleEndian, parseChunkTag)
	// The riff length covers the form identifier just read.
	chunks.Consume(4)

	var (
		format     *FormatChunk
		factFrames uint32
		haveFact   bool
	)

	for {
		ck, ok, err := chunks.Next(s)
		if err != nil {
			return nil, err
		}

		if !ok {
			return nil, media.NewDecodeError("wav: missing data chunk")
		}

		switch ck.kind {
		case kindFormat:
			if format != nil {
				return nil, media.NewDecodeError("wav: duplicate fmt chunk")
			}

			err = chunk.Payload(s, ck.length, func() error {
				format, err = decodeFormatChunk(s, ck.length)
				return err
			})
			if err != nil {
				return nil, err
			}

		case kindFact:
			err = chunk.Payload(s, ck.length, func() error {
				factFrames, err = decodeFactChunk(s, ck.length)
				return err
			})
			if err != nil {
				return nil, err
			}

			haveFact = true

		case kindList:
			err = chunk.Payload(s, ck.length, func() error {
				return r.readList(ck.length)
			})
			if err != nil {
				return nil, err
			}

		case kindCue:
			err = chunk.Payload(s, ck.length, func() error {
				cues, err := decodeCueChunk(s, ck.length)
				if err != nil {
					return err
				}

				r.cues = append(r.cues, cues...)

				return nil
			})
			if err != nil {
				return nil, err
			}

		case kindData:
			if format == nil {
				return nil, media.NewDecodeError("wav: missing fmt chunk")
			}

			r.finalize(format, ck.length, factFrames, haveFact)

			return r, nil
		}
	}
}

// readList descends into a LIST chunk. INFO lists are harvested into
// metadata tags; any other list type is an opaque group whose remainder
// the caller skips.
func (r *Reader) readList(length uint32) error {
	if length < 4 {
		return media.NewDecodeError("wav: malformed list chunk")
	}

	form, err := r.s.ReadQuad()
	if err != nil {
		return fmt.Errorf("failed to read list type: %w", err)
	}

	if form != CIDInfo {
		return nil
	}

	tags, err := decodeInfoList(r.s, length-4)
	if err != nil {
		return err
	}

	r.tags = append(r.tags, tags...)

	return nil
}

// finalize freezes the accumulated codec parameters into the track and
// arms the packet cursor over the located data region.
func (r *Reader) finalize(format *FormatChunk, dataLen, factFrames uint32, haveFact bool) {
	frameLen := uint32(format.BlockAlign)
	dataStart := r.s.Pos()

	dataEnd := uint64(packetizer.UnknownEnd)
	if dataLen != chunk.UnknownLength {
		dataEnd = dataStart + uint64(dataLen)
	}

	params := media.CodecParameters{
		Codec:              format.Data.Codec(),
		SampleRate:         format.SampleRate,
		Channels:           format.Data.Layout(),
		FrameLength:        frameLen,
		MaxFramesPerPacket: maxFramesPerPacket,
		TimeBase:           media.TimeBase{Num: 1, Den: format.SampleRate},
	}

	switch data := format.Data.(type) {
	case *PCMFormat:
		params.BitsPerSample = data.BitsPerSample
		params.BitsPerCodedSample = data.BitsPerSample
	case *ExtensibleFormat:
		params.BitsPerSample = data.BitsPerSample
		params.BitsPerCodedSample = data.BitsPerCodedSample
	case *IEEEFloatFormat:
		width := uint16(32)
		if data.CodecType == media.PCMF64LE {
			width = 64
		}

		params.BitsPerSample = width
		params.BitsPerCodedSample = width
	case *ALawFormat, *MuLawFormat:
		params.BitsPerSample = 8
		params.BitsPerCodedSample = 8
	}

	// An explicit frame count from the fact chunk wins over the data
	// length division; no cross-validation is attempted.
	switch {
	case haveFact:
		params.NFrames = uint64(factFrames)
		params.HasNFrames = true
	case dataEnd != packetizer.UnknownEnd:
		params.NFrames = uint64(dataLen) / uint64(frameLen)
		params.HasNFrames = true
	}

	r.track = media.Track{ID: 0, Params: params}
	r.pk = packetizer.New(r.s, 0, dataStart, dataEnd, frameLen, maxFramesPerPacket)
}

// Tracks lists the single track found in the container.
func (r *Reader) Tracks() []media.Track {
	return []media.Track{r.track}
}

// Metadata returns the tags harvested from INFO lists.
func (r *Reader) Metadata() []media.Tag {
	return r.tags
}

// Cues returns the marker positions read from the cue chunk.
func (r *Reader) Cues() []media.Cue {
	return r.cues
}

// NextPacket produces the next packet of raw sample data, or
// media.ErrEndOfStream once the data region is exhausted.
func (r *Reader) NextPacket() (media.Packet, error) {
	return r.pk.NextPacket()
}

// Seek positions the packet cursor at the frame resolved from the target.
func (r *Reader) Seek(target media.SeekTarget) (media.SeekedTo, error) {
	return r.pk.Seek(target, r.track.Params)
}
