package aiff

import (
	"encoding/binary"
	"fmt"

	"github.com/cwbudde/demux/chunk"
	"github.com/cwbudde/demux/internal/packetizer"
	"github.com/cwbudde/demux/media"
	"github.com/cwbudde/demux/mediaio"
)

// maxFramesPerPacket bounds the number of frames carried by one packet.
const maxFramesPerPacket = 1029

// Reader demuxes one FORM/AIFF container from a byte stream. It owns the
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

// NewReader validates the FORM/AIFF header, scans the chunk sequence until
// the SSND chunk is located, and leaves the stream positioned at the first
// byte of sample data. Chunks following the SSND chunk are not visited.
func NewReader(s mediaio.ByteStream) (*Reader, error) {
	marker, err := s.ReadQuad()
	if err != nil {
		return nil, fmt.Errorf("failed to read form marker: %w", err)
	}

	if marker != CIDForm {
		return nil, media.NewUnsupportedError("aiff: missing form marker")
	}

	formLen, err := s.ReadU32(binary.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read form length: %w", err)
	}

	formType, err := s.ReadQuad()
	if err != nil {
		return nil, fmt.Errorf("failed to read form type: %w", err)
	}

	switch formType {
	case CIDAiff:
	case CIDAifc:
		return nil, media.NewUnsupportedError("aiff: aiff-c is not supported")
	default:
		return nil, media.NewDecodeError("aiff: unsupported form type")
	}

	r := &Reader{s: s}

	chunks := chunk.NewReader(formLen, binary.BigEndian, parseChunkTag)
	// The form length covers the form type just read.
	chunks.Consume(4)

	var common *CommonChunk

	for {
		ck, ok, err := chunks.Next(s)
		if err != nil {
			return nil, err
		}

		if !ok {
			return nil, media.NewDecodeError("aiff: missing ssnd chunk")
		}

		switch ck.kind {
		case kindCommon:
			if common != nil {
				return nil, media.NewDecodeError("aiff: duplicate comm chunk")
			}

			err = chunk.Payload(s, ck.length, func() error {
				common, err = decodeCommonChunk(s, ck.length)
				return err
			})
			if err != nil {
				return nil, err
			}

		case kindText:
			err = chunk.Payload(s, ck.length, func() error {
				tag, err := decodeTextChunk(s, ck.tag, ck.length)
				if err != nil {
					return err
				}

				r.tags = append(r.tags, tag)

				return nil
			})
			if err != nil {
				return nil, err
			}

		case kindComments:
			err = chunk.Payload(s, ck.length, func() error {
				tags, err := decodeCommentsChunk(s, ck.length)
				if err != nil {
					return err
				}

				r.tags = append(r.tags, tags...)

				return nil
			})
			if err != nil {
				return nil, err
			}

		case kindMarkers:
			err = chunk.Payload(s, ck.length, func() error {
				cues, err := decodeMarkerChunk(s, ck.length)
				if err != nil {
					return err
				}

				r.cues = append(r.cues, cues...)

				return nil
			})
			if err != nil {
				return nil, err
			}

		case kindSound:
			if common == nil {
				return nil, media.NewDecodeError("aiff: missing comm chunk")
			}

			sound, err := decodeSoundDataChunk(s, ck.length)
			if err != nil {
				return nil, err
			}

			r.finalize(common, sound)

			return r, nil
		}
	}
}

// finalize freezes the accumulated codec parameters into the track and
// arms the packet cursor over the located data region.
func (r *Reader) finalize(common *CommonChunk, sound *SoundDataChunk) {
	frameLen := common.FrameLength()

	params := media.CodecParameters{
		Codec:              common.CodecType,
		SampleRate:         common.SampleRate,
		Channels:           common.ChannelLayout,
		BitsPerSample:      common.SampleSize,
		BitsPerCodedSample: uint16((common.SampleSize + 7) / 8 * 8),
		FrameLength:        frameLen,
		MaxFramesPerPacket: maxFramesPerPacket,
		TimeBase:           media.TimeBase{Num: 1, Den: common.SampleRate},
	}

	// The comm chunk carries an explicit frame count; it wins over the
	// data length division without cross-validation.
	switch {
	case common.NumSampleFrames > 0:
		params.NFrames = uint64(common.NumSampleFrames)
		params.HasNFrames = true
	case frameLen > 0:
		params.NFrames = (sound.DataEnd - sound.DataStart) / uint64(frameLen)
		params.HasNFrames = true
	}

	r.track = media.Track{ID: 0, Params: params}
	r.pk = packetizer.New(r.s, 0, sound.DataStart, sound.DataEnd, frameLen, maxFramesPerPacket)
}

// Tracks lists the single track found in the container.
func (r *Reader) Tracks() []media.Track {
	return []media.Track{r.track}
}

// Metadata returns the tags harvested from text and comment chunks.
func (r *Reader) Metadata() []media.Tag {
	return r.tags
}

// Cues returns the marker positions read from the MARK chunk.
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
