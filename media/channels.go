package media

import (
	"math/bits"
	"strings"
)

// Channels is a bitmask of named speaker positions. The set bits describe
// the channel layout of a track; the order of samples in a frame follows
// the bit order, lowest first.
type Channels uint32

const (
	ChFrontLeft Channels = 1 << iota
	ChFrontRight
	ChFrontCentre
	ChLFE
	ChRearLeft
	ChRearRight
	ChFrontLeftCentre
	ChFrontRightCentre
	ChRearCentre
	ChSideLeft
	ChSideRight
	ChTopCentre
	ChTopFrontLeft
	ChTopFrontCentre
	ChTopFrontRight
	ChTopRearLeft
	ChTopRearCentre
	ChTopRearRight
)

// ChMono and ChStereo are the layouts used by the non-extensible WAVE
// formats and by single- and dual-channel AIFF files.
const (
	ChMono   = ChFrontLeft
	ChStereo = ChFrontLeft | ChFrontRight
)

var channelNames = []string{
	"FL", "FR", "FC", "LFE", "RL", "RR", "FLC", "FRC", "RC",
	"SL", "SR", "TC", "TFL", "TFC", "TFR", "TRL", "TRC", "TRR",
}

// Count returns the number of channels in the layout.
func (c Channels) Count() int {
	return bits.OnesCount32(uint32(c))
}

// String implements the Stringer interface.
func (c Channels) String() string {
	if c == 0 {
		return "none"
	}

	var names []string

	for i, name := range channelNames {
		if c&(1<<uint(i)) != 0 {
			names = append(names, name)
		}
	}

	return strings.Join(names, "|")
}
