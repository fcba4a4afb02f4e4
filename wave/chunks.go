package wave

import (
	"encoding/binary"
	"fmt"

	"github.com/go-audio/riff"

	"github.com/cwbudde/demux/chunk"
	"github.com/cwbudde/demux/media"
	"github.com/cwbudde/demux/mediaio"
)

var (
	// CIDList is the chunk ID for a LIST chunk.
	CIDList = [4]byte{'L', 'I', 'S', 'T'}
	// CIDFact is the chunk ID for the fact chunk.
	CIDFact = [4]byte{'f', 'a', 'c', 't'}
	// CIDCue is the chunk ID for the cue chunk.
	CIDCue = [4]byte{'c', 'u', 'e', 0x20}
	// CIDInfo is the list type of an INFO list chunk.
	CIDInfo = [4]byte{'I', 'N', 'F', 'O'}
)

// Format tags defined in mmreg.h of the Microsoft Windows Platform SDK.
const (
	wavFormatPCM        = 0x0001
	wavFormatIEEEFloat  = 0x0003
	wavFormatALaw       = 0x0006
	wavFormatMuLaw      = 0x0007
	wavFormatExtensible = 0xFFFE
)

// extensibleExtraSize is the fixed size of the fmt chunk extension for the
// extensible format: valid bits, channel mask and sub-format GUID.
const extensibleExtraSize = 22

const (
	ksSubFormatGUIDTail0  = 0x00
	ksSubFormatGUIDTail1  = 0x00
	ksSubFormatGUIDTail2  = 0x10
	ksSubFormatGUIDTail3  = 0x00
	ksSubFormatGUIDTail4  = 0x80
	ksSubFormatGUIDTail5  = 0x00
	ksSubFormatGUIDTail6  = 0x00
	ksSubFormatGUIDTail7  = 0xAA
	ksSubFormatGUIDTail8  = 0x00
	ksSubFormatGUIDTail9  = 0x38
	ksSubFormatGUIDTail10 = 0x9B
	ksSubFormatGUIDTail11 = 0x71
)

// makeSubFormatGUID builds the ksmedia.h sub-format GUID that corresponds
// to a simple wave format tag.
func makeSubFormatGUID(formatTag uint16) [16]byte {
	var guid [16]byte
	binary.LittleEndian.PutUint32(guid[:4], uint32(formatTag))
	guid[4] = ksSubFormatGUIDTail0
	guid[5] = ksSubFormatGUIDTail1
	guid[6] = ksSubFormatGUIDTail2
	guid[7] = ksSubFormatGUIDTail3
	guid[8] = ksSubFormatGUIDTail4
	guid[9] = ksSubFormatGUIDTail5
	guid[10] = ksSubFormatGUIDTail6
	guid[11] = ksSubFormatGUIDTail7
	guid[12] = ksSubFormatGUIDTail8
	guid[13] = ksSubFormatGUIDTail9
	guid[14] = ksSubFormatGUIDTail10
	guid[15] = ksSubFormatGUIDTail11

	return guid
}

var (
	subFormatPCM       = makeSubFormatGUID(wavFormatPCM)
	subFormatIEEEFloat = makeSubFormatGUID(wavFormatIEEEFloat)
	subFormatALaw      = makeSubFormatGUID(wavFormatALaw)
	subFormatMuLaw     = makeSubFormatGUID(wavFormatMuLaw)
)

// waveChannelMask maps the 18 defined channel mask bit positions to named
// speaker slots. The positions are defined in ksmedia.h; multiple bits may
// be set and an empty mask yields an empty layout.
var waveChannelMask = [18]media.Channels{
	media.ChFrontLeft,
	media.ChFrontRight,
	media.ChFrontCentre,
	media.ChLFE,
	media.ChRearLeft,
	media.ChRearRight,
	media.ChFrontLeftCentre,
	media.ChFrontRightCentre,
	media.ChRearCentre,
	media.ChSideLeft,
	media.ChSideRight,
	media.ChTopCentre,
	media.ChTopFrontLeft,
	media.ChTopFrontCentre,
	media.ChTopFrontRight,
	media.ChTopRearLeft,
	media.ChTopRearCentre,
	media.ChTopRearRight,
}

func channelsFromMask(mask uint32) media.Channels {
	var channels media.Channels

	for i, ch := range waveChannelMask {
		if mask&(1<<uint(i)) != 0 {
			channels |= ch
		}
	}

	return channels
}

func channelsFromCount(numChannels uint16, context string) (media.Channels, error) {
	switch numChannels {
	case 1:
		return media.ChMono, nil
	case 2:
		return media.ChStereo, nil
	default:
		return 0, media.NewDecodeError(
			"wav: only mono and stereo channel layouts are supported for " + context)
	}
}

// FormatData is the variant part of a decoded fmt chunk.
type FormatData interface {
	// Codec is the codec resolved for the variant.
	Codec() media.CodecType
	// Layout is the channel layout resolved for the variant.
	Layout() media.Channels
}

// PCMFormat is the plain integer PCM fmt variant.
type PCMFormat struct {
	// BitsPerSample is both the coded and the valid sample width.
	BitsPerSample uint16
	ChannelLayout media.Channels
	CodecType     media.CodecType
}

func (f *PCMFormat) Codec() media.CodecType { return f.CodecType }
func (f *PCMFormat) Layout() media.Channels { return f.ChannelLayout }

// IEEEFloatFormat is the IEEE float fmt variant.
type IEEEFloatFormat struct {
	ChannelLayout media.Channels
	CodecType     media.CodecType
}

func (f *IEEEFloatFormat) Codec() media.CodecType { return f.CodecType }
func (f *IEEEFloatFormat) Layout() media.Channels { return f.ChannelLayout }

// ExtensibleFormat is the GUID-tagged fmt variant.
type ExtensibleFormat struct {
	// BitsPerSample is the number of valid bits in each sample, at most
	// BitsPerCodedSample.
	BitsPerSample uint16
	// BitsPerCodedSample is the stored sample width, a multiple of 8.
	BitsPerCodedSample uint16
	ChannelLayout      media.Channels
	SubFormat          [16]byte
	CodecType          media.CodecType
}

func (f *ExtensibleFormat) Codec() media.CodecType { return f.CodecType }
func (f *ExtensibleFormat) Layout() media.Channels { return f.ChannelLayout }

// ALawFormat is the G.711 A-law fmt variant.
type ALawFormat struct {
	ChannelLayout media.Channels
	CodecType     media.CodecType
}

func (f *ALawFormat) Codec() media.CodecType { return f.CodecType }
func (f *ALawFormat) Layout() media.Channels { return f.ChannelLayout }

// MuLawFormat is the G.711 mu-law fmt variant.
type MuLawFormat struct {
	ChannelLayout media.Channels
	CodecType     media.CodecType
}

func (f *MuLawFormat) Codec() media.CodecType { return f.CodecType }
func (f *MuLawFormat) Layout() media.Channels { return f.ChannelLayout }

// FormatChunk is a fully decoded fmt chunk.
type FormatChunk struct {
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	Data           FormatData
}

// decodeFormatChunk reads and validates the payload of a fmt chunk of the
// given declared length.
func decodeFormatChunk(s mediaio.ByteStream, length uint32) (*FormatChunk, error) {
	if length < 16 {
		return nil, media.NewDecodeError("wav: malformed fmt chunk")
	}

	formatTag, err := s.ReadU16(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read wav format: %w", err)
	}

	numChannels, err := s.ReadU16(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels: %w", err)
	}

	sampleRate, err := s.ReadU32(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample rate: %w", err)
	}

	avgBytesPerSec, err := s.ReadU32(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read avg bytes/sec: %w", err)
	}

	blockAlign, err := s.ReadU16(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read block align: %w", err)
	}

	bitsPerSample, err := s.ReadU16(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read bit depth: %w", err)
	}

	if blockAlign == 0 {
		return nil, media.NewDecodeError("wav: invalid zero block alignment")
	}

	var data FormatData

	switch formatTag {
	case wavFormatPCM:
		data, err = decodePCMFormat(s, bitsPerSample, numChannels, length)
	case wavFormatIEEEFloat:
		data, err = decodeIEEEFloatFormat(s, bitsPerSample, numChannels, length)
	case wavFormatExtensible:
		data, err = decodeExtensibleFormat(s, bitsPerSample, length)
	case wavFormatALaw:
		data, err = decodeALawFormat(s, numChannels, length)
	case wavFormatMuLaw:
		data, err = decodeMuLawFormat(s, numChannels, length)
	default:
		return nil, media.NewUnsupportedError(fmt.Sprintf("wav: format tag 0x%04x", formatTag))
	}

	if err != nil {
		return nil, err
	}

	return &FormatChunk{
		NumChannels:    numChannels,
		SampleRate:     sampleRate,
		AvgBytesPerSec: avgBytesPerSec,
		BlockAlign:     blockAlign,
		Data:           data,
	}, nil
}

// decodePCMFormat decodes the fmt payload trailing the common fields for
// the plain PCM format. The chunk is either the minimal 16-byte struct, an
// 18-byte struct with an extra-size field, or a 40-byte struct whose extra
// data is discarded.
func decodePCMFormat(s mediaio.ByteStream, bitsPerSample, numChannels uint16, length uint32) (FormatData, error) {
	var extended bool

	switch length {
	case 16:
	case 18, 40:
		extended = true
	default:
		return nil, media.NewDecodeError("wav: malformed pcm fmt chunk")
	}

	if extended {
		extraSize, err := s.ReadU16(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("failed to read fmt extension size: %w", err)
		}

		if extraSize > 0 {
			if err := s.Ignore(uint64(extraSize)); err != nil {
				return nil, fmt.Errorf("failed to skip fmt extension data: %w", err)
			}
		}
	}

	// PCM samples are interleaved and little-endian. The coded and valid
	// sample widths coincide.
	var codec media.CodecType

	switch bitsPerSample {
	case 8:
		codec = media.PCMU8
	case 16:
		codec = media.PCMS16LE
	case 24:
		codec = media.PCMS24LE
	case 32:
		codec = media.PCMS32LE
	default:
		return nil, media.NewDecodeError("wav: bits per sample for pcm fmt must be 8, 16, 24 or 32 bits")
	}

	channels, err := channelsFromCount(numChannels, "pcm fmt")
	if err != nil {
		return nil, err
	}

	return &PCMFormat{
		BitsPerSample: bitsPerSample,
		ChannelLayout: channels,
		CodecType:     codec,
	}, nil
}

// decodeIEEEFloatFormat decodes the IEEE float variant. The chunk should
// not be extended, but an empty extra-size field is tolerated.
func decodeIEEEFloatFormat(s mediaio.ByteStream, bitsPerSample, numChannels uint16, length uint32) (FormatData, error) {
	if length == 18 {
		extraSize, err := s.ReadU16(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("failed to read fmt extension size: %w", err)
		}

		if extraSize != 0 {
			return nil, media.NewDecodeError("wav: extra data not expected for ieee fmt chunk")
		}
	} else if length > 16 {
		return nil, media.NewDecodeError("wav: malformed ieee fmt chunk")
	}

	var codec media.CodecType

	switch bitsPerSample {
	case 32:
		codec = media.PCMF32LE
	case 64:
		codec = media.PCMF64LE
	default:
		return nil, media.NewDecodeError("wav: bits per sample for ieee fmt must be 32 or 64 bits")
	}

	channels, err := channelsFromCount(numChannels, "ieee fmt")
	if err != nil {
		return nil, err
	}

	return &IEEEFloatFormat{ChannelLayout: channels, CodecType: codec}, nil
}

// decodeExtensibleFormat decodes the GUID-tagged variant. The channel
// layout comes from an explicit bitmask rather than a channel count, and
// the sub-format GUID selects the codec family.
func decodeExtensibleFormat(s mediaio.ByteStream, bitsPerCodedSample uint16, length uint32) (FormatData, error) {
	if length < 40 {
		return nil, media.NewDecodeError("wav: malformed extensible fmt chunk")
	}

	extraSize, err := s.ReadU16(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read fmt extension size: %w", err)
	}

	if extraSize != extensibleExtraSize {
		return nil, media.NewDecodeError("wav: extra data size not 22 bytes for extensible fmt chunk")
	}

	bitsPerSample, err := s.ReadU16(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read valid bits per sample: %w", err)
	}

	// The stored width must be a whole number of bytes, and the valid
	// width can never exceed it.
	if bitsPerCodedSample&0x7 != 0 {
		return nil, media.NewDecodeError("wav: bits per coded sample for extensible fmt must be a multiple of 8 bits")
	}

	if bitsPerSample > bitsPerCodedSample {
		return nil, media.NewDecodeError("wav: bits per sample must be <= bits per coded sample for extensible fmt")
	}

	channelMask, err := s.ReadU32(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel mask: %w", err)
	}

	var subFormat [16]byte
	if err := s.ReadFull(subFormat[:]); err != nil {
		return nil, fmt.Errorf("failed to read sub-format guid: %w", err)
	}

	var codec media.CodecType

	switch subFormat {
	case subFormatPCM:
		if bitsPerCodedSample > 32 {
			return nil, media.NewDecodeError("wav: bits per coded sample for extensible pcm sub-type must be <= 32 bits")
		}

		// The coded width picks the codec. A smaller valid width is
		// expanded by the decoder during decode.
		switch bitsPerCodedSample {
		case 8:
			codec = media.PCMU8
		case 16:
			codec = media.PCMS16LE
		case 24:
			codec = media.PCMS24LE
		case 32:
			codec = media.PCMS32LE
		}
	case subFormatIEEEFloat:
		// Floating point formats do not support truncated sample widths.
		if bitsPerSample != bitsPerCodedSample {
			return nil, media.NewDecodeError("wav: bits per sample for extensible ieee sub-type must equal bits per coded sample")
		}

		switch bitsPerCodedSample {
		case 32:
			codec = media.PCMF32LE
		case 64:
			codec = media.PCMF64LE
		default:
			return nil, media.NewDecodeError("wav: bits per sample for extensible ieee sub-type must be 32 or 64 bits")
		}
	case subFormatALaw:
		codec = media.PCMALaw
	case subFormatMuLaw:
		codec = media.PCMMuLaw
	default:
		return nil, media.NewUnsupportedError("wav: extensible fmt sub-type")
	}

	return &ExtensibleFormat{
		BitsPerSample:      bitsPerSample,
		BitsPerCodedSample: bitsPerCodedSample,
		ChannelLayout:      channelsFromMask(channelMask),
		SubFormat:          subFormat,
		CodecType:          codec,
	}, nil
}

func decodeALawFormat(s mediaio.ByteStream, numChannels uint16, length uint32) (FormatData, error) {
	if length != 18 {
		return nil, media.NewDecodeError("wav: malformed alaw fmt chunk")
	}

	extraSize, err := s.ReadU16(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read fmt extension size: %w", err)
	}

	if extraSize > 0 {
		if err := s.Ignore(uint64(extraSize)); err != nil {
			return nil, fmt.Errorf("failed to skip fmt extension data: %w", err)
		}
	}

	channels, err := channelsFromCount(numChannels, "alaw fmt")
	if err != nil {
		return nil, err
	}

	return &ALawFormat{ChannelLayout: channels, CodecType: media.PCMALaw}, nil
}

func decodeMuLawFormat(s mediaio.ByteStream, numChannels uint16, length uint32) (FormatData, error) {
	if length != 18 {
		return nil, media.NewDecodeError("wav: malformed mulaw fmt chunk")
	}

	extraSize, err := s.ReadU16(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read fmt extension size: %w", err)
	}

	if extraSize > 0 {
		if err := s.Ignore(uint64(extraSize)); err != nil {
			return nil, fmt.Errorf("failed to skip fmt extension data: %w", err)
		}
	}

	channels, err := channelsFromCount(numChannels, "mulaw fmt")
	if err != nil {
		return nil, err
	}

	return &MuLawFormat{ChannelLayout: channels, CodecType: media.PCMMuLaw}, nil
}

type chunkKind int

const (
	kindFormat chunkKind = iota
	kindList
	kindFact
	kindCue
	kindData
)

// waveChunk is a lazy handle for a recognized top-level chunk: the payload
// has not been read yet, only the header.
type waveChunk struct {
	kind   chunkKind
	tag    [4]byte
	length uint32
}

func parseChunkTag(tag [4]byte, length uint32) (waveChunk, bool) {
	switch tag {
	case riff.FmtID:
		return waveChunk{kind: kindFormat, tag: tag, length: length}, true
	case CIDList:
		return waveChunk{kind: kindList, tag: tag, length: length}, true
	case CIDFact:
		return waveChunk{kind: kindFact, tag: tag, length: length}, true
	case CIDCue:
		return waveChunk{kind: kindCue, tag: tag, length: length}, true
	case riff.DataFormatID:
		return waveChunk{kind: kindData, tag: tag, length: length}, true
	default:
		return waveChunk{}, false
	}
}

// decodeFactChunk reads the sample frame count written for non-PCM and
// streamed files. The chunk is exactly 4 bytes long.
func decodeFactChunk(s mediaio.ByteStream, length uint32) (uint32, error) {
	if length != 4 {
		return 0, media.NewDecodeError("wav: malformed fact chunk")
	}

	frames, err := s.ReadU32(binary.LittleEndian)
	if err != nil {
		return 0, fmt.Errorf("failed to read fact frame count: %w", err)
	}

	return frames, nil
}

// See http://bwfmetaedit.sourceforge.net/listinfo.html
var infoTagNames = map[[4]byte]string{
	{'I', 'A', 'R', 'L'}: "location",
	{'I', 'A', 'R', 'T'}: "artist",
	{'I', 'C', 'M', 'T'}: "comment",
	{'I', 'C', 'O', 'P'}: "copyright",
	{'I', 'C', 'R', 'D'}: "creation_date",
	{'I', 'E', 'N', 'G'}: "engineer",
	{'I', 'G', 'N', 'R'}: "genre",
	{'I', 'K', 'E', 'Y'}: "keywords",
	{'I', 'M', 'E', 'D'}: "medium",
	{'I', 'N', 'A', 'M'}: "title",
	{'I', 'P', 'R', 'D'}: "product",
	{'I', 'S', 'B', 'J'}: "subject",
	{'I', 'S', 'F', 'T'}: "software",
	{'I', 'S', 'R', 'C'}: "source",
	{'I', 'T', 'C', 'H'}: "technician",
	{'I', 'T', 'R', 'K'}: "track_number",
	{'i', 't', 'r', 'k'}: "track_number",
}

// infoEntry is a lazy handle for one entry of an INFO list.
type infoEntry struct {
	tag    [4]byte
	length uint32
}

func parseInfoTag(tag [4]byte, length uint32) (infoEntry, bool) {
	// Every entry of an INFO list is a free-form text chunk.
	return infoEntry{tag: tag, length: length}, true
}

// decodeInfoList harvests the entries of a LIST chunk of the INFO type
// into free-form tags. The list region starts after the 4-byte type
// identifier and spans the remaining declared length; its alignment pad,
// if any, belongs to the enclosing region.
func decodeInfoList(s mediaio.ByteStream, length uint32) ([]media.Tag, error) {
	var tags []media.Tag

	entries := chunk.NewReader(length, binary.LittleEndian, parseInfoTag)

	for {
		entry, ok, err := entries.Next(s)
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		value := make([]byte, entry.length)
		if err := s.ReadFull(value); err != nil {
			return nil, fmt.Errorf("failed to read info entry %q: %w", entry.tag[:], err)
		}

		key, known := infoTagNames[entry.tag]
		if !known {
			key = string(entry.tag[:])
		}

		tags = append(tags, media.Tag{Key: key, Value: nullTermStr(value)})
	}

	if err := entries.SkipRemaining(s); err != nil {
		return nil, err
	}

	return tags, nil
}

// cuePointSize is the fixed wire size of one cue point record.
const cuePointSize = 24

// decodeCueChunk reads the cue point table into marker positions. The
// play-order position field is ignored in favour of the sample offset.
func decodeCueChunk(s mediaio.ByteStream, length uint32) ([]media.Cue, error) {
	if length < 4 {
		return nil, media.NewDecodeError("wav: malformed cue chunk")
	}

	count, err := s.ReadU32(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("failed to read cue count: %w", err)
	}

	if uint64(length-4) < uint64(count)*cuePointSize {
		return nil, media.NewDecodeError("wav: cue chunk too short for cue count")
	}

	cues := make([]media.Cue, 0, count)

	for i := uint32(0); i < count; i++ {
		id, err := s.ReadU32(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("failed to read cue point id: %w", err)
		}

		// Play-order position, data chunk id, chunk start and block
		// start are unused for uncompressed data.
		if err := s.Ignore(16); err != nil {
			return nil, fmt.Errorf("failed to skip cue point fields: %w", err)
		}

		sampleOffset, err := s.ReadU32(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("failed to read cue sample offset: %w", err)
		}

		cues = append(cues, media.Cue{ID: id, Position: uint64(sampleOffset)})
	}

	// Tolerate trailing bytes beyond the cue table.
	extra := uint64(length-4) - uint64(count)*cuePointSize
	if extra > 0 {
		if err := s.Ignore(extra); err != nil {
			return nil, fmt.Errorf("failed to skip cue chunk tail: %w", err)
		}
	}

	return cues, nil
}

func nullTermStr(b []byte) string {
	for i := range b {
		if b[i] == 0 {
			return string(b[:i])
		}
	}

	return string(b)
}
