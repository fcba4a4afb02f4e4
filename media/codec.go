package media

// CodecType identifies the encoding of the raw sample data carried by a
// track. Demuxers resolve it from the container's format description; they
// never decode the samples themselves.
type CodecType uint32

const (
	// CodecNone marks a track whose codec could not be resolved.
	CodecNone CodecType = iota

	// PCMU8 is 8-bit unsigned linear PCM.
	PCMU8
	// PCMS16LE is signed 16-bit little-endian linear PCM.
	PCMS16LE
	// PCMS24LE is signed 24-bit little-endian linear PCM.
	PCMS24LE
	// PCMS32LE is signed 32-bit little-endian linear PCM.
	PCMS32LE
	// PCMF32LE is 32-bit little-endian IEEE float PCM.
	PCMF32LE
	// PCMF64LE is 64-bit little-endian IEEE float PCM.
	PCMF64LE
	// PCMS16BE is signed 16-bit big-endian linear PCM.
	PCMS16BE
	// PCMS24BE is signed 24-bit big-endian linear PCM.
	PCMS24BE
	// PCMS32BE is signed 32-bit big-endian linear PCM.
	PCMS32BE
	// PCMALaw is G.711 A-law companded PCM.
	PCMALaw
	// PCMMuLaw is G.711 mu-law companded PCM.
	PCMMuLaw
)

// String implements the Stringer interface.
func (c CodecType) String() string {
	switch c {
	case PCMU8:
		return "pcm_u8"
	case PCMS16LE:
		return "pcm_s16le"
	case PCMS24LE:
		return "pcm_s24le"
	case PCMS32LE:
		return "pcm_s32le"
	case PCMF32LE:
		return "pcm_f32le"
	case PCMF64LE:
		return "pcm_f64le"
	case PCMS16BE:
		return "pcm_s16be"
	case PCMS24BE:
		return "pcm_s24be"
	case PCMS32BE:
		return "pcm_s32be"
	case PCMALaw:
		return "pcm_alaw"
	case PCMMuLaw:
		return "pcm_mulaw"
	default:
		return "none"
	}
}
