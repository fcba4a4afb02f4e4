package wave

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cwbudde/demux/media"
	"github.com/cwbudde/demux/mediaio"
)

// fmtCommon builds the 16 fields every fmt chunk variant opens with.
func fmtCommon(formatTag, numChannels uint16, sampleRate uint32, blockAlign, bitsPerSample uint16) *bytes.Buffer {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, formatTag)
	binary.Write(buf, binary.LittleEndian, numChannels)
	binary.Write(buf, binary.LittleEndian, sampleRate)
	binary.Write(buf, binary.LittleEndian, sampleRate*uint32(blockAlign))
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, bitsPerSample)

	return buf
}

func pcmFmt(numChannels uint16, sampleRate uint32, bitsPerSample uint16) []byte {
	blockAlign := numChannels * bitsPerSample / 8
	return fmtCommon(wavFormatPCM, numChannels, sampleRate, blockAlign, bitsPerSample).Bytes()
}

func ieeeFmt(numChannels uint16, sampleRate uint32, bitsPerSample uint16) []byte {
	blockAlign := numChannels * bitsPerSample / 8
	return fmtCommon(wavFormatIEEEFloat, numChannels, sampleRate, blockAlign, bitsPerSample).Bytes()
}

func g711Fmt(formatTag, numChannels uint16, sampleRate uint32, extraSize uint16) []byte {
	buf := fmtCommon(formatTag, numChannels, sampleRate, numChannels, 8)
	binary.Write(buf, binary.LittleEndian, extraSize)

	return buf.Bytes()
}

func extensibleFmt(numChannels uint16, sampleRate uint32, codedBits, validBits uint16, mask uint32, subFormat [16]byte) []byte {
	blockAlign := numChannels * ((codedBits + 7) / 8)
	buf := fmtCommon(wavFormatExtensible, numChannels, sampleRate, blockAlign, codedBits)
	binary.Write(buf, binary.LittleEndian, uint16(extensibleExtraSize))
	binary.Write(buf, binary.LittleEndian, validBits)
	binary.Write(buf, binary.LittleEndian, mask)
	buf.Write(subFormat[:])

	return buf.Bytes()
}

func decodeFmt(t *testing.T, payload []byte) (*FormatChunk, error) {
	t.Helper()

	s := mediaio.NewStream(bytes.NewReader(payload))

	return decodeFormatChunk(s, uint32(len(payload)))
}

func TestDecodePCMFormat(t *testing.T) {
	tests := []struct {
		name     string
		channels uint16
		bits     uint16
		codec    media.CodecType
		layout   media.Channels
	}{
		{"8-bit mono", 1, 8, media.PCMU8, media.ChMono},
		{"16-bit stereo", 2, 16, media.PCMS16LE, media.ChStereo},
		{"24-bit stereo", 2, 24, media.PCMS24LE, media.ChStereo},
		{"32-bit mono", 1, 32, media.PCMS32LE, media.ChMono},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			format, err := decodeFmt(t, pcmFmt(tc.channels, 44100, tc.bits))
			if err != nil {
				t.Fatal(err)
			}

			data, ok := format.Data.(*PCMFormat)
			if !ok {
				t.Fatalf("unexpected variant %T", format.Data)
			}

			if data.CodecType != tc.codec {
				t.Fatalf("codec = %v, want %v", data.CodecType, tc.codec)
			}

			if data.ChannelLayout != tc.layout {
				t.Fatalf("layout = %v, want %v", data.ChannelLayout, tc.layout)
			}
		})
	}
}

func TestDecodePCMFormatRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"12-bit samples", pcmFmt(1, 44100, 12)},
		{"three channels", fmtCommon(wavFormatPCM, 3, 44100, 6, 16).Bytes()},
		{"zero block align", fmtCommon(wavFormatPCM, 2, 44100, 0, 16).Bytes()},
		{"truncated chunk", pcmFmt(1, 44100, 16)[:12]},
		{"unaligned length", append(pcmFmt(1, 44100, 16), 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeFmt(t, tc.payload); !media.IsDecodeError(err) {
				t.Fatalf("expected a decode error, got %v", err)
			}
		})
	}
}

func TestDecodeIEEEFloatFormat(t *testing.T) {
	format, err := decodeFmt(t, ieeeFmt(2, 48000, 32))
	if err != nil {
		t.Fatal(err)
	}

	if format.Data.Codec() != media.PCMF32LE {
		t.Fatalf("codec = %v", format.Data.Codec())
	}

	// An extension size field is tolerated as long as it is empty.
	extended := append(ieeeFmt(1, 48000, 64), 0, 0)

	format, err = decodeFmt(t, extended)
	if err != nil {
		t.Fatal(err)
	}

	if format.Data.Codec() != media.PCMF64LE {
		t.Fatalf("extended codec = %v", format.Data.Codec())
	}
}

func TestDecodeIEEEFloatFormatRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"16-bit samples", ieeeFmt(1, 48000, 16)},
		{"non-empty extension", append(ieeeFmt(1, 48000, 32), 2, 0)},
		{"17-byte chunk", append(ieeeFmt(1, 48000, 32), 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeFmt(t, tc.payload); !media.IsDecodeError(err) {
				t.Fatalf("expected a decode error, got %v", err)
			}
		})
	}
}

func TestDecodeG711Formats(t *testing.T) {
	format, err := decodeFmt(t, g711Fmt(wavFormatALaw, 1, 8000, 0))
	if err != nil {
		t.Fatal(err)
	}

	if format.Data.Codec() != media.PCMALaw {
		t.Fatalf("alaw codec = %v", format.Data.Codec())
	}

	format, err = decodeFmt(t, g711Fmt(wavFormatMuLaw, 2, 8000, 0))
	if err != nil {
		t.Fatal(err)
	}

	if format.Data.Codec() != media.PCMMuLaw {
		t.Fatalf("mulaw codec = %v", format.Data.Codec())
	}

	// Without the extension size field the chunk is malformed.
	if _, err := decodeFmt(t, fmtCommon(wavFormatALaw, 1, 8000, 1, 8).Bytes()); !media.IsDecodeError(err) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestDecodeExtensibleFormat(t *testing.T) {
	const mask51 = 0x3F

	format, err := decodeFmt(t, extensibleFmt(6, 48000, 24, 20, mask51, subFormatPCM))
	if err != nil {
		t.Fatal(err)
	}

	data, ok := format.Data.(*ExtensibleFormat)
	if !ok {
		t.Fatalf("unexpected variant %T", format.Data)
	}

	if data.CodecType != media.PCMS24LE {
		t.Fatalf("codec = %v", data.CodecType)
	}

	if data.BitsPerSample != 20 || data.BitsPerCodedSample != 24 {
		t.Fatalf("sample widths = %d/%d", data.BitsPerSample, data.BitsPerCodedSample)
	}

	if data.ChannelLayout.Count() != 6 {
		t.Fatalf("layout counts %d channels", data.ChannelLayout.Count())
	}

	format, err = decodeFmt(t, extensibleFmt(2, 48000, 32, 32, 0x3, subFormatIEEEFloat))
	if err != nil {
		t.Fatal(err)
	}

	if format.Data.Codec() != media.PCMF32LE {
		t.Fatalf("float codec = %v", format.Data.Codec())
	}

	format, err = decodeFmt(t, extensibleFmt(1, 8000, 8, 8, 0x4, subFormatMuLaw))
	if err != nil {
		t.Fatal(err)
	}

	if format.Data.Codec() != media.PCMMuLaw {
		t.Fatalf("mulaw codec = %v", format.Data.Codec())
	}
}

func TestDecodeExtensibleFormatRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"short chunk", extensibleFmt(2, 48000, 16, 16, 0x3, subFormatPCM)[:24]},
		{"coded width not whole bytes", extensibleFmt(2, 48000, 20, 16, 0x3, subFormatPCM)},
		{"valid exceeds coded", extensibleFmt(2, 48000, 16, 24, 0x3, subFormatPCM)},
		{"pcm wider than 32 bits", extensibleFmt(2, 48000, 40, 40, 0x3, subFormatPCM)},
		{"float width mismatch", extensibleFmt(2, 48000, 32, 24, 0x3, subFormatIEEEFloat)},
		{"float width not 32 or 64", extensibleFmt(2, 48000, 16, 16, 0x3, subFormatIEEEFloat)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeFmt(t, tc.payload); !media.IsDecodeError(err) {
				t.Fatalf("expected a decode error, got %v", err)
			}
		})
	}
}

func TestDecodeExtensibleFormatWrongExtraSize(t *testing.T) {
	payload := extensibleFmt(2, 48000, 16, 16, 0x3, subFormatPCM)
	// Corrupt the extension size field.
	binary.LittleEndian.PutUint16(payload[16:18], 20)

	if _, err := decodeFmt(t, payload); !media.IsDecodeError(err) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestDecodeExtensibleFormatUnknownSubFormat(t *testing.T) {
	var guid [16]byte
	copy(guid[:], "not a known guid")

	_, err := decodeFmt(t, extensibleFmt(2, 48000, 16, 16, 0x3, guid))
	if !media.IsUnsupportedError(err) {
		t.Fatalf("expected an unsupported error, got %v", err)
	}
}

func TestDecodeFormatUnknownTag(t *testing.T) {
	_, err := decodeFmt(t, fmtCommon(0x0050, 1, 8000, 1, 8).Bytes())
	if !media.IsUnsupportedError(err) {
		t.Fatalf("expected an unsupported error, got %v", err)
	}
}

func TestSubFormatGUIDs(t *testing.T) {
	want := [16]byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
		0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

	if subFormatPCM != want {
		t.Fatalf("pcm sub-format guid = %x", subFormatPCM)
	}

	if subFormatMuLaw[0] != 0x07 || subFormatALaw[0] != 0x06 {
		t.Fatal("g711 sub-format guids do not carry their format tags")
	}
}

func TestChannelsFromMask(t *testing.T) {
	if channelsFromMask(0) != 0 {
		t.Fatal("empty mask should give an empty layout")
	}

	got := channelsFromMask(0x3F)
	want := media.ChFrontLeft | media.ChFrontRight | media.ChFrontCentre |
		media.ChLFE | media.ChRearLeft | media.ChRearRight

	if got != want {
		t.Fatalf("mask 0x3F = %v", got)
	}

	// Bits above the 18 defined positions are ignored.
	if channelsFromMask(0xFFFC0000) != 0 {
		t.Fatal("undefined mask bits leaked into the layout")
	}
}
