package pbf

import (
	"encoding/binary"
	"testing"

	"github.com/wegman-software/osmpbf-core/internal/errs"
)

// memSource is an in-memory ByteSource for tests.
type memSource struct {
	data []byte
	pos  int
}

func newMemSource(b []byte) *memSource { return &memSource{data: b} }

func (s *memSource) ReadExact(dst []byte) (bool, error) {
	if s.pos >= len(s.data) && len(dst) > 0 {
		return false, nil
	}
	remaining := len(s.data) - s.pos
	if remaining < len(dst) {
		n := copy(dst, s.data[s.pos:])
		s.pos += n
		return false, errs.NewTruncated("short read")
	}
	n := copy(dst, s.data[s.pos:s.pos+len(dst)])
	s.pos += n
	return true, nil
}

func (s *memSource) Close() error { return nil }

func buildFrame(blobType string, payload []byte) []byte {
	var headerBytes []byte
	headerBytes = appendStringField(headerBytes, 1, blobType)
	headerBytes = appendVarintField(headerBytes, 3, uint64(len(payload)))

	var out []byte
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(headerBytes)))
	out = append(out, sizeBuf[:]...)
	out = append(out, headerBytes...)
	out = append(out, payload...)
	return out
}

func TestFrameReaderCleanEOF(t *testing.T) {
	fr := NewFrameReader(newMemSource(nil))
	f, err := fr.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != nil {
		t.Fatalf("expected nil frame at clean EOF, got %+v", f)
	}
}

func TestFrameReaderExpectsHeaderFirst(t *testing.T) {
	data := buildFrame("OSMData", []byte("x"))
	fr := NewFrameReader(newMemSource(data))
	_, err := fr.Next()
	if err == nil {
		t.Fatal("expected an error when the first blob isn't OSMHeader")
	}
	if kind, ok := errs.KindOf(err); !ok || kind != errs.Corrupt {
		t.Fatalf("KindOf(err) = %v, %v, want Corrupt", kind, ok)
	}
}

func TestFrameReaderSequencing(t *testing.T) {
	var data []byte
	data = append(data, buildFrame("OSMHeader", []byte("h"))...)
	data = append(data, buildFrame("OSMData", []byte("d1"))...)
	data = append(data, buildFrame("OSMData", []byte("d2"))...)

	fr := NewFrameReader(newMemSource(data))

	f1, err := fr.Next()
	if err != nil || f1 == nil || string(f1.Payload) != "h" {
		t.Fatalf("frame 1 = %+v, err = %v", f1, err)
	}
	f2, err := fr.Next()
	if err != nil || f2 == nil || string(f2.Payload) != "d1" || f2.SeqNo != 1 {
		t.Fatalf("frame 2 = %+v, err = %v", f2, err)
	}
	f3, err := fr.Next()
	if err != nil || f3 == nil || string(f3.Payload) != "d2" || f3.SeqNo != 2 {
		t.Fatalf("frame 3 = %+v, err = %v", f3, err)
	}
	f4, err := fr.Next()
	if err != nil || f4 != nil {
		t.Fatalf("expected clean EOF, got %+v, err = %v", f4, err)
	}
}

func TestFrameReaderHeaderTooLarge(t *testing.T) {
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], MaxBlobHeaderSize+1)
	fr := NewFrameReader(newMemSource(sizeBuf[:]))
	_, err := fr.Next()
	if err == nil {
		t.Fatal("expected an error for an oversized blob header")
	}
	if kind, ok := errs.KindOf(err); !ok || kind != errs.Corrupt {
		t.Fatalf("KindOf(err) = %v, %v, want Corrupt", kind, ok)
	}
}

func TestFrameReaderTruncatedPayload(t *testing.T) {
	full := buildFrame("OSMHeader", []byte("hello"))
	// Cut off the last two bytes of the payload.
	truncated := full[:len(full)-2]
	fr := NewFrameReader(newMemSource(truncated))
	_, err := fr.Next()
	if err == nil {
		t.Fatal("expected a truncation error")
	}
	if kind, ok := errs.KindOf(err); !ok || kind != errs.Truncated {
		t.Fatalf("KindOf(err) = %v, %v, want Truncated", kind, ok)
	}
}
