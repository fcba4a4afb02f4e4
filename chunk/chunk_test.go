package chunk

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/cwbudde/demux/media"
	"github.com/cwbudde/demux/mediaio"
)

type testChunk struct {
	tag    [4]byte
	length uint32
}

func parseTestTag(tag [4]byte, length uint32) (testChunk, bool) {
	if tag == [4]byte{'g', 'o', 'o', 'd'} {
		return testChunk{tag: tag, length: length}, true
	}

	return testChunk{}, false
}

func appendChunk(buf *bytes.Buffer, order binary.ByteOrder, tag string, payload []byte) {
	buf.WriteString(tag)

	var lenBytes [4]byte
	order.PutUint32(lenBytes[:], uint32(len(payload)))
	buf.Write(lenBytes[:])

	buf.Write(payload)

	if len(payload)&0x1 == 1 {
		buf.WriteByte(0)
	}
}

func TestReaderSkipsUnknownChunks(t *testing.T) {
	var buf bytes.Buffer
	appendChunk(&buf, binary.LittleEndian, "junk", []byte{1, 2, 3, 4})
	appendChunk(&buf, binary.LittleEndian, "good", []byte{5, 6})

	s := mediaio.NewStream(bytes.NewReader(buf.Bytes()))
	r := NewReader(uint32(buf.Len()), binary.LittleEndian, parseTestTag)

	ck, ok, err := r.Next(s)
	if err != nil {
		t.Fatal(err)
	}

	if !ok {
		t.Fatal("expected a recognized chunk")
	}

	if ck.tag != [4]byte{'g', 'o', 'o', 'd'} || ck.length != 2 {
		t.Fatalf("unexpected chunk handle: %q length %d", ck.tag[:], ck.length)
	}

	payload := make([]byte, ck.length)
	if err := s.ReadFull(payload); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(payload, []byte{5, 6}) {
		t.Fatalf("unexpected payload: %v", payload)
	}

	if _, ok, err := r.Next(s); err != nil || ok {
		t.Fatalf("expected clean end of region, got ok=%v err=%v", ok, err)
	}
}

func TestReaderAlignsOddPayloads(t *testing.T) {
	var buf bytes.Buffer
	appendChunk(&buf, binary.BigEndian, "good", []byte{1, 2, 3})
	appendChunk(&buf, binary.BigEndian, "good", []byte{4})

	s := mediaio.NewStream(bytes.NewReader(buf.Bytes()))
	r := NewReader(uint32(buf.Len()), binary.BigEndian, parseTestTag)

	ck, ok, err := r.Next(s)
	if err != nil || !ok {
		t.Fatalf("first chunk: ok=%v err=%v", ok, err)
	}

	if err := s.Ignore(uint64(ck.length)); err != nil {
		t.Fatal(err)
	}

	ck, ok, err = r.Next(s)
	if err != nil || !ok {
		t.Fatalf("second chunk: ok=%v err=%v", ok, err)
	}

	if ck.length != 1 {
		t.Fatalf("expected second chunk of length 1, got %d", ck.length)
	}

	payload, err := s.ReadU8()
	if err != nil {
		t.Fatal(err)
	}

	if payload != 4 {
		t.Fatalf("pad byte not skipped, read %d", payload)
	}
}

func TestReaderRejectsOversizedChild(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("good")
	binary.Write(&buf, binary.LittleEndian, uint32(100))

	s := mediaio.NewStream(bytes.NewReader(buf.Bytes()))
	r := NewReader(20, binary.LittleEndian, parseTestTag)

	_, _, err := r.Next(s)
	if !media.IsDecodeError(err) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestReaderUnknownLengthSentinel(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("good")
	binary.Write(&buf, binary.LittleEndian, uint32(math.MaxUint32))

	s := mediaio.NewStream(bytes.NewReader(buf.Bytes()))
	r := NewReader(math.MaxUint32, binary.LittleEndian, parseTestTag)

	ck, ok, err := r.Next(s)
	if err != nil || !ok {
		t.Fatalf("sentinel chunk not returned: ok=%v err=%v", ok, err)
	}

	if ck.length != UnknownLength {
		t.Fatalf("expected sentinel length, got %d", ck.length)
	}
}

func TestReaderSentinelRequiresUnknownRegion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("good")
	binary.Write(&buf, binary.LittleEndian, uint32(math.MaxUint32))

	s := mediaio.NewStream(bytes.NewReader(buf.Bytes()))
	r := NewReader(100, binary.LittleEndian, parseTestTag)

	_, _, err := r.Next(s)
	if !media.IsDecodeError(err) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestConsumeSaturates(t *testing.T) {
	r := NewReader(math.MaxUint32, binary.LittleEndian, parseTestTag)

	r.Consume(math.MaxUint32)
	r.Consume(10)

	if r.Consumed() != math.MaxUint32 {
		t.Fatalf("consumed counter wrapped: %d", r.Consumed())
	}
}

func TestPayloadSkipsUnreadRemainder(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 0xAB}
	s := mediaio.NewStream(bytes.NewReader(data))

	err := Payload(s, 10, func() error {
		var head [4]byte
		return s.ReadFull(head[:])
	})
	if err != nil {
		t.Fatal(err)
	}

	marker, err := s.ReadU8()
	if err != nil {
		t.Fatal(err)
	}

	if marker != 0xAB {
		t.Fatalf("stream not on chunk boundary, read 0x%02X", marker)
	}
}

func TestPayloadRejectsOverrun(t *testing.T) {
	data := make([]byte, 16)
	s := mediaio.NewStream(bytes.NewReader(data))

	err := Payload(s, 4, func() error {
		var head [8]byte
		return s.ReadFull(head[:])
	})
	if !media.IsDecodeError(err) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestFinishSkipsRemainderAndPad(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 0, 0xCD}
	s := mediaio.NewStream(bytes.NewReader(data))

	r := NewReader(5, binary.LittleEndian, parseTestTag)
	if err := r.Finish(s); err != nil {
		t.Fatal(err)
	}

	marker, err := s.ReadU8()
	if err != nil {
		t.Fatal(err)
	}

	if marker != 0xCD {
		t.Fatalf("expected position past region and pad, read 0x%02X", marker)
	}
}
