package mediaio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// ByteStream is the primitive surface the demuxers parse from. Every read
// advances the position; a short read in the middle of a fixed-width field
// surfaces as io.ErrUnexpectedEOF.
type ByteStream interface {
	io.Reader

	// ReadU8 reads a single byte.
	ReadU8() (uint8, error)
	// ReadU16 reads a 16-bit integer in the given byte order.
	ReadU16(order binary.ByteOrder) (uint16, error)
	// ReadU32 reads a 32-bit integer in the given byte order.
	ReadU32(order binary.ByteOrder) (uint32, error)
	// ReadQuad reads a 4-byte identifier.
	ReadQuad() ([4]byte, error)
	// ReadFull fills buf completely.
	ReadFull(buf []byte) error
	// Ignore discards exactly n bytes.
	Ignore(n uint64) error
	// Pos reports the absolute byte offset of the next read.
	Pos() uint64
	// Seekable reports whether SeekTo is available.
	Seekable() bool
	// SeekTo repositions the stream at an absolute byte offset.
	SeekTo(pos uint64) error
}

const defaultBufferSize = 32 * 1024

// Stream is a buffered ByteStream over an io.Reader. If the reader also
// implements io.ReadSeeker the stream supports random access; otherwise it
// is forward-only.
type Stream struct {
	br  *bufio.Reader
	sr  io.ReadSeeker
	pos uint64

	scratch [8]byte
}

var _ ByteStream = (*Stream)(nil)

// NewStream wraps r in a buffered stream starting at position zero.
func NewStream(r io.Reader) *Stream {
	s := &Stream{br: bufio.NewReaderSize(r, defaultBufferSize)}
	if sr, ok := r.(io.ReadSeeker); ok {
		s.sr = sr
	}

	return s
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.br.Read(p)
	s.pos += uint64(n)

	return n, err
}

// ReadU8 reads a single byte.
func (s *Stream) ReadU8() (uint8, error) {
	b, err := s.br.ReadByte()
	if err != nil {
		return 0, err
	}

	s.pos++

	return b, nil
}

// ReadU16 reads a 16-bit integer in the given byte order.
func (s *Stream) ReadU16(order binary.ByteOrder) (uint16, error) {
	if err := s.ReadFull(s.scratch[:2]); err != nil {
		return 0, err
	}

	return order.Uint16(s.scratch[:2]), nil
}

// ReadU32 reads a 32-bit integer in the given byte order.
func (s *Stream) ReadU32(order binary.ByteOrder) (uint32, error) {
	if err := s.ReadFull(s.scratch[:4]); err != nil {
		return 0, err
	}

	return order.Uint32(s.scratch[:4]), nil
}

// ReadQuad reads a 4-byte identifier.
func (s *Stream) ReadQuad() ([4]byte, error) {
	var quad [4]byte
	if err := s.ReadFull(quad[:]); err != nil {
		return quad, err
	}

	return quad, nil
}

// ReadFull fills buf completely or fails.
func (s *Stream) ReadFull(buf []byte) error {
	n, err := io.ReadFull(s.br, buf)
	s.pos += uint64(n)

	if err != nil {
		return fmt.Errorf("failed to read %d bytes: %w", len(buf), err)
	}

	return nil
}

// Ignore discards exactly n bytes.
func (s *Stream) Ignore(n uint64) error {
	for n > 0 {
		step := n
		// bufio.Discard takes an int; chunk very large skips.
		const maxStep = 1 << 30
		if step > maxStep {
			step = maxStep
		}

		skipped, err := s.br.Discard(int(step))
		s.pos += uint64(skipped)

		if err != nil {
			return fmt.Errorf("failed to skip %d bytes: %w", n, err)
		}

		n -= uint64(skipped)
	}

	return nil
}

// Pos reports the absolute byte offset of the next read.
func (s *Stream) Pos() uint64 {
	return s.pos
}

// Seekable reports whether SeekTo is available.
func (s *Stream) Seekable() bool {
	return s.sr != nil
}

// SeekTo repositions the stream at an absolute byte offset. The read
// buffer is dropped and refilled from the new position.
func (s *Stream) SeekTo(pos uint64) error {
	if s.sr == nil {
		return fmt.Errorf("stream does not support random access")
	}

	if _, err := s.sr.Seek(int64(pos), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to %d: %w", pos, err)
	}

	s.br.Reset(s.sr)
	s.pos = pos

	return nil
}
