package aiff

import (
	"encoding/binary"
	"math"

	"github.com/cwbudde/demux/media"
)

// parseExtended decodes an 80-bit IEEE 754 extended-precision float, the
// encoding AIFF uses for the sample rate: a sign bit, a 15-bit biased
// exponent and a 64-bit mantissa with an explicit integer bit.
func parseExtended(b [10]byte) (float64, error) {
	sign := b[0] & 0x80
	exponent := binary.BigEndian.Uint16(b[0:2]) & 0x7FFF
	mantissa := binary.BigEndian.Uint64(b[2:10])

	if exponent == 0 && mantissa == 0 {
		return 0, nil
	}

	// Infinities, NaNs and denormals are never meaningful sample rates.
	if exponent == 0x7FFF || exponent == 0 {
		return 0, media.NewDecodeError("aiff: invalid extended-precision sample rate")
	}

	value := float64(mantissa) * math.Pow(2, float64(int(exponent)-16383-63))
	if sign != 0 {
		value = -value
	}

	return value, nil
}
