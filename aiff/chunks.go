package aiff

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cwbudde/demux/media"
	"github.com/cwbudde/demux/mediaio"
)

var (
	// CIDForm is the IFF group identifier leading every AIFF stream.
	CIDForm = [4]byte{'F', 'O', 'R', 'M'}
	// CIDAiff is the form type of an uncompressed AIFF stream.
	CIDAiff = [4]byte{'A', 'I', 'F', 'F'}
	// CIDAifc is the form type of a compressed AIFF-C stream.
	CIDAifc = [4]byte{'A', 'I', 'F', 'C'}
	// CIDComm is the chunk ID of the common chunk.
	CIDComm = [4]byte{'C', 'O', 'M', 'M'}
	// CIDSsnd is the chunk ID of the sound data chunk.
	CIDSsnd = [4]byte{'S', 'S', 'N', 'D'}
	// CIDMark is the chunk ID of the marker chunk.
	CIDMark = [4]byte{'M', 'A', 'R', 'K'}
	// CIDComt is the chunk ID of the comments chunk.
	CIDComt = [4]byte{'C', 'O', 'M', 'T'}

	cidName       = [4]byte{'N', 'A', 'M', 'E'}
	cidAuthor     = [4]byte{'A', 'U', 'T', 'H'}
	cidCopyright  = [4]byte{'(', 'c', ')', ' '}
	cidAnnotation = [4]byte{'A', 'N', 'N', 'O'}
)

type chunkKind int

const (
	kindCommon chunkKind = iota
	kindSound
	kindText
	kindComments
	kindMarkers
)

// aiffChunk is a lazy handle for a recognized chunk: only the header has
// been read when it is returned.
type aiffChunk struct {
	kind   chunkKind
	tag    [4]byte
	length uint32
}

func parseChunkTag(tag [4]byte, length uint32) (aiffChunk, bool) {
	switch tag {
	case CIDComm:
		return aiffChunk{kind: kindCommon, tag: tag, length: length}, true
	case CIDSsnd:
		return aiffChunk{kind: kindSound, tag: tag, length: length}, true
	case cidName, cidAuthor, cidCopyright, cidAnnotation:
		return aiffChunk{kind: kindText, tag: tag, length: length}, true
	case CIDComt:
		return aiffChunk{kind: kindComments, tag: tag, length: length}, true
	case CIDMark:
		return aiffChunk{kind: kindMarkers, tag: tag, length: length}, true
	default:
		return aiffChunk{}, false
	}
}

// commonChunkSize is the fixed wire size of a COMM chunk payload.
const commonChunkSize = 18

// CommonChunk is a fully decoded COMM chunk.
type CommonChunk struct {
	NumChannels     uint16
	NumSampleFrames uint32
	SampleSize      uint16
	SampleRate      uint32

	ChannelLayout media.Channels
	CodecType     media.CodecType
}

// FrameLength returns the byte size of one frame, a single sample instant
// across all channels.
func (c *CommonChunk) FrameLength() uint32 {
	return uint32(c.NumChannels) * uint32((c.SampleSize+7)/8)
}

// decodeCommonChunk reads and validates the payload of a COMM chunk.
func decodeCommonChunk(s mediaio.ByteStream, length uint32) (*CommonChunk, error) {
	if length < commonChunkSize {
		return nil, media.NewDecodeError("aiff: malformed comm chunk")
	}

	numChannels, err := s.ReadU16(binary.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels: %w", err)
	}

	numSampleFrames, err := s.ReadU32(binary.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame count: %w", err)
	}

	sampleSize, err := s.ReadU16(binary.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample size: %w", err)
	}

	var rateBytes [10]byte
	if err := s.ReadFull(rateBytes[:]); err != nil {
		return nil, fmt.Errorf("failed to read sample rate: %w", err)
	}

	rate, err := parseExtended(rateBytes)
	if err != nil {
		return nil, err
	}

	if rate <= 0 || rate > math.MaxUint32 {
		return nil, media.NewDecodeError("aiff: sample rate out of range")
	}

	// Samples are interleaved and big-endian encoded.
	var codec media.CodecType

	switch sampleSize {
	case 8:
		codec = media.PCMU8
	case 16:
		codec = media.PCMS16BE
	case 24:
		codec = media.PCMS24BE
	case 32:
		codec = media.PCMS32BE
	default:
		return nil, media.NewDecodeError("aiff: sample size must be 8, 16, 24 or 32 bits")
	}

	var channels media.Channels

	switch numChannels {
	case 1:
		channels = media.ChMono
	case 2:
		channels = media.ChStereo
	case 3:
		channels = media.ChStereo | media.ChFrontCentre
	case 4:
		channels = media.ChStereo | media.ChFrontCentre | media.ChRearCentre
	case 6:
		channels = media.ChStereo | media.ChFrontCentre | media.ChFrontLeftCentre |
			media.ChFrontRightCentre | media.ChRearCentre
	default:
		return nil, media.NewDecodeError("aiff: unsupported channel count")
	}

	return &CommonChunk{
		NumChannels:     numChannels,
		NumSampleFrames: numSampleFrames,
		SampleSize:      sampleSize,
		SampleRate:      uint32(rate),
		ChannelLayout:   channels,
		CodecType:       codec,
	}, nil
}

// soundPreambleSize is the byte size of the offset and block-size fields
// that precede the raw samples in an SSND chunk.
const soundPreambleSize = 8

// SoundDataChunk records the absolute byte span of raw sample data located
// by an SSND chunk. The payload itself is not read.
type SoundDataChunk struct {
	Offset    uint32
	BlockSize uint32
	DataStart uint64
	DataEnd   uint64
}

// decodeSoundDataChunk reads the SSND preamble and computes the data
// range. The offset field shifts the start of valid samples past the
// preamble; the stream is left positioned at the first valid sample byte.
func decodeSoundDataChunk(s mediaio.ByteStream, length uint32) (*SoundDataChunk, error) {
	if length < soundPreambleSize {
		return nil, media.NewDecodeError("aiff: malformed ssnd chunk")
	}

	offset, err := s.ReadU32(binary.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssnd offset: %w", err)
	}

	blockSize, err := s.ReadU32(binary.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssnd block size: %w", err)
	}

	if uint64(offset) > uint64(length)-soundPreambleSize {
		return nil, media.NewDecodeError("aiff: ssnd offset exceeds chunk length")
	}

	if offset > 0 {
		if err := s.Ignore(uint64(offset)); err != nil {
			return nil, fmt.Errorf("failed to skip ssnd offset bytes: %w", err)
		}
	}

	start := s.Pos()

	return &SoundDataChunk{
		Offset:    offset,
		BlockSize: blockSize,
		DataStart: start,
		DataEnd:   start + uint64(length) - soundPreambleSize - uint64(offset),
	}, nil
}

var textTagNames = map[[4]byte]string{
	cidName:       "name",
	cidAuthor:     "author",
	cidCopyright:  "copyright",
	cidAnnotation: "annotation",
}

// decodeTextChunk reads one of the free-form text chunks into a tag.
func decodeTextChunk(s mediaio.ByteStream, tag [4]byte, length uint32) (media.Tag, error) {
	text := make([]byte, length)
	if err := s.ReadFull(text); err != nil {
		return media.Tag{}, fmt.Errorf("failed to read text chunk %q: %w", tag[:], err)
	}

	return media.Tag{Key: textTagNames[tag], Value: string(text)}, nil
}

// decodeCommentsChunk reads the COMT comment records into tags. The marker
// association and timestamp of each comment are dropped; only the text is
// kept.
func decodeCommentsChunk(s mediaio.ByteStream, length uint32) ([]media.Tag, error) {
	if length < 2 {
		return nil, media.NewDecodeError("aiff: malformed comt chunk")
	}

	count, err := s.ReadU16(binary.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read comment count: %w", err)
	}

	tags := make([]media.Tag, 0, count)

	for i := uint16(0); i < count; i++ {
		// Timestamp and marker id.
		if err := s.Ignore(6); err != nil {
			return nil, fmt.Errorf("failed to skip comment fields: %w", err)
		}

		textLen, err := s.ReadU16(binary.BigEndian)
		if err != nil {
			return nil, fmt.Errorf("failed to read comment length: %w", err)
		}

		text := make([]byte, textLen)
		if err := s.ReadFull(text); err != nil {
			return nil, fmt.Errorf("failed to read comment text: %w", err)
		}

		tags = append(tags, media.Tag{Key: "comment", Value: string(text)})
	}

	return tags, nil
}

// decodeMarkerChunk reads the MARK chunk into cue points. Marker names are
// stored as pascal strings padded to an even total length.
func decodeMarkerChunk(s mediaio.ByteStream, length uint32) ([]media.Cue, error) {
	if length < 2 {
		return nil, media.NewDecodeError("aiff: malformed mark chunk")
	}

	count, err := s.ReadU16(binary.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read marker count: %w", err)
	}

	cues := make([]media.Cue, 0, count)

	for i := uint16(0); i < count; i++ {
		id, err := s.ReadU16(binary.BigEndian)
		if err != nil {
			return nil, fmt.Errorf("failed to read marker id: %w", err)
		}

		position, err := s.ReadU32(binary.BigEndian)
		if err != nil {
			return nil, fmt.Errorf("failed to read marker position: %w", err)
		}

		nameLen, err := s.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("failed to read marker name length: %w", err)
		}

		name := make([]byte, nameLen)
		if err := s.ReadFull(name); err != nil {
			return nil, fmt.Errorf("failed to read marker name: %w", err)
		}

		// The pascal string is padded so the length byte plus text
		// occupy an even number of bytes.
		if (1+uint32(nameLen))&0x1 == 1 {
			if _, err := s.ReadU8(); err != nil {
				return nil, fmt.Errorf("failed to read marker name pad: %w", err)
			}
		}

		cues = append(cues, media.Cue{
			ID:       uint32(id),
			Position: uint64(position),
			Label:    string(name),
		})
	}

	return cues, nil
}
