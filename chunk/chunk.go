package chunk

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cwbudde/demux/media"
	"github.com/cwbudde/demux/mediaio"
)

// UnknownLength is the all-ones length some producers write for the
// container and data chunks when the output size cannot be known ahead of
// time, meaning the data extends to the end of the stream.
const UnknownLength = math.MaxUint32

// headerSize is the byte size of a chunk header: 4-byte tag plus 32-bit
// declared length.
const headerSize = 8

// ParseTag maps a 4-byte chunk tag and its declared length to a typed, lazy
// chunk handle. Returning false marks the tag as unrecognized, in which
// case the Reader skips the payload and continues.
type ParseTag[T any] func(tag [4]byte, length uint32) (T, bool)

// Reader traverses the chunks inside a region of a declared total byte
// length. It accounts every byte of the region, header, payload and pad
// bytes alike, and guarantees that the accounted total never exceeds the
// declared length.
type Reader[T any] struct {
	length   uint32
	consumed uint32
	order    binary.ByteOrder
	parseTag ParseTag[T]
}

// NewReader returns a Reader over a region of length bytes. Chunk lengths
// are decoded in the given byte order: little-endian for RIFF forms,
// big-endian for IFF forms.
func NewReader[T any](length uint32, order binary.ByteOrder, parseTag ParseTag[T]) *Reader[T] {
	return &Reader[T]{
		length:   length,
		order:    order,
		parseTag: parseTag,
	}
}

// Length returns the declared total length of the region.
func (r *Reader[T]) Length() uint32 {
	return r.length
}

// Consumed returns the number of region bytes accounted for so far.
func (r *Reader[T]) Consumed() uint32 {
	return r.consumed
}

// Consume accounts n region bytes the caller read itself, such as a form
// type identifier that precedes the first chunk. Saturates at the region
// length counter's maximum, never wraps.
func (r *Reader[T]) Consume(n uint32) {
	if r.consumed > math.MaxUint32-n {
		r.consumed = math.MaxUint32

		return
	}

	r.consumed += n
}

// Next returns the next recognized chunk as a lazy handle. The second
// return value is false once fewer than a header's worth of bytes remain in
// the region, the clean end of traversal. Unrecognized chunks are skipped.
//
// The caller must fully consume the returned chunk's payload, pad byte
// excluded, before calling Next again.
func (r *Reader[T]) Next(s mediaio.ByteStream) (T, bool, error) {
	var none T

	for {
		// 2-byte alignment rule: an odd payload is followed by one pad
		// byte that is not included in the declared chunk length.
		if r.consumed&0x1 == 1 && r.consumed < r.length {
			if _, err := s.ReadU8(); err != nil {
				return none, false, err
			}

			r.consumed++
		}

		if r.consumed >= r.length || r.length-r.consumed < headerSize {
			return none, false, nil
		}

		tag, err := s.ReadQuad()
		if err != nil {
			return none, false, err
		}

		length, err := s.ReadU32(r.order)
		if err != nil {
			return none, false, err
		}

		r.consumed += headerSize

		// length is untrusted input; it must never be added to anything
		// before this check. The all-ones value on both the region and
		// the chunk is the documented unknown-length escape.
		if r.length-r.consumed < length {
			if r.length != length || length != UnknownLength {
				return none, false, media.NewDecodeError(fmt.Sprintf(
					"chunk %q length %d exceeds parent region length", tag[:], length))
			}
		}

		if r.consumed > math.MaxUint32-length {
			r.consumed = math.MaxUint32
		} else {
			r.consumed += length
		}

		if handle, ok := r.parseTag(tag, length); ok {
			return handle, true, nil
		}

		if err := s.Ignore(uint64(length)); err != nil {
			return none, false, err
		}
	}
}

// SkipRemaining skips whatever remains unconsumed in the region, without
// touching the region's trailing pad byte. Used for nested regions whose
// alignment is owned by the enclosing region.
func (r *Reader[T]) SkipRemaining(s mediaio.ByteStream) error {
	if r.consumed < r.length {
		remaining := r.length - r.consumed

		if err := s.Ignore(uint64(remaining)); err != nil {
			return err
		}

		r.consumed = r.length
	}

	return nil
}

// Finish skips whatever remains unconsumed in the region and the trailing
// pad byte of an odd-length region. Call exactly once, after the last Next.
func (r *Reader[T]) Finish(s mediaio.ByteStream) error {
	if err := r.SkipRemaining(s); err != nil {
		return err
	}

	if r.length&0x1 == 1 {
		if _, err := s.ReadU8(); err != nil {
			return err
		}
	}

	return nil
}

// Payload runs decode over the payload of a chunk with the given declared
// length, then skips whatever decode left unread so the stream lands
// exactly on the chunk boundary. A decode that reads past the declared
// length is a decode error.
func Payload(s mediaio.ByteStream, length uint32, decode func() error) error {
	start := s.Pos()

	if err := decode(); err != nil {
		return err
	}

	used := s.Pos() - start
	if used > uint64(length) {
		return media.NewDecodeError(fmt.Sprintf(
			"chunk payload overrun: read %d of %d declared bytes", used, length))
	}

	if used < uint64(length) {
		return s.Ignore(uint64(length) - used)
	}

	return nil
}
