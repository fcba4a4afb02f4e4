package media

import "errors"

// ErrEndOfStream signals that a demuxer has produced its final packet. It is
// the expected terminal condition of packet iteration, not a failure; no
// further packets will ever be produced without an explicit seek.
var ErrEndOfStream = errors.New("end of stream")

// DecodeError reports a container that is structurally invalid per its own
// format rules. Malformed input is never self-correcting, so a DecodeError
// is fatal to parsing the current container.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode error: " + e.Reason
}

// NewDecodeError returns a DecodeError with the given reason.
func NewDecodeError(reason string) error {
	return &DecodeError{Reason: reason}
}

// IsDecodeError reports whether err is, or wraps, a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// UnsupportedError reports input that is structurally valid but describes a
// variant this module does not decode, such as an unknown format tag or an
// unrecognized sub-format GUID. It is kept distinct from DecodeError so
// callers can skip the file rather than report corruption.
type UnsupportedError struct {
	Feature string
}

func (e *UnsupportedError) Error() string {
	return "unsupported: " + e.Feature
}

// NewUnsupportedError returns an UnsupportedError for the given feature.
func NewUnsupportedError(feature string) error {
	return &UnsupportedError{Feature: feature}
}

// IsUnsupportedError reports whether err is, or wraps, an UnsupportedError.
func IsUnsupportedError(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

// SeekErrorKind discriminates the ways a seek request can fail.
type SeekErrorKind int

const (
	// SeekUnseekable means the track exposes no sample rate or frame
	// length, so a target cannot be resolved to a byte offset.
	SeekUnseekable SeekErrorKind = iota
	// SeekOutOfRange means the target lies beyond the track's declared
	// total frame count.
	SeekOutOfRange
	// SeekForwardOnly means a backward seek was requested on a stream
	// without random access.
	SeekForwardOnly
)

func (k SeekErrorKind) String() string {
	switch k {
	case SeekOutOfRange:
		return "out of range"
	case SeekForwardOnly:
		return "forward-only stream"
	default:
		return "unseekable"
	}
}

// SeekError reports a failed seek request.
type SeekError struct {
	Kind SeekErrorKind
}

func (e *SeekError) Error() string {
	return "seek error: " + e.Kind.String()
}

// NewSeekError returns a SeekError of the given kind.
func NewSeekError(kind SeekErrorKind) error {
	return &SeekError{Kind: kind}
}
