package pbf

import (
	"encoding/binary"

	"github.com/wegman-software/osmpbf-core/internal/errs"
	"github.com/wegman-software/osmpbf-core/internal/pbfwire"
)

// MaxBlobHeaderSize is the largest permitted BlobHeader, in bytes.
const MaxBlobHeaderSize = 64 * 1024

// kindHeader and kindData are the two expected BlobHeader.Type values, in
// the order FrameReader expects to see them.
const (
	kindHeader = "OSMHeader"
	kindData   = "OSMData"
)

// Frame is one length-delimited blob payload pending decode.
type Frame struct {
	SeqNo    uint64
	DataSize int32
	Payload  []byte
}

// FrameReader extracts BlobHeader+Blob frames sequentially from a
// ByteSource. It owns the input cursor and is single-threaded: only the
// producer goroutine calls Next.
type FrameReader struct {
	src      ByteSource
	seqNo    uint64
	sawFirst bool
}

// NewFrameReader wraps src.
func NewFrameReader(src ByteSource) *FrameReader {
	return &FrameReader{src: src}
}

// Next reads the next frame. It returns (nil, nil) at clean end of
// stream. The first frame read must be an "OSMHeader" blob; every
// subsequent frame must be "OSMData".
func (r *FrameReader) Next() (*Frame, error) {
	var sizeBuf [4]byte
	ok, err := r.src.ReadExact(sizeBuf[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	headerSize := binary.BigEndian.Uint32(sizeBuf[:])
	if headerSize > MaxBlobHeaderSize {
		return nil, errs.NewCorruptf("blob header too large: %d bytes", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	ok, err = r.src.ReadExact(headerBytes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NewTruncated("EOF reading blob header")
	}

	header, err := pbfwire.UnmarshalBlobHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	expected := kindData
	if !r.sawFirst {
		expected = kindHeader
	}
	if header.Type != expected {
		return nil, errs.NewCorruptf("unexpected blob type %q, expected %q", header.Type, expected)
	}
	r.sawFirst = true

	payload := make([]byte, header.DataSize)
	ok, err = r.src.ReadExact(payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NewTruncated("EOF reading blob payload")
	}

	f := &Frame{SeqNo: r.seqNo, DataSize: header.DataSize, Payload: payload}
	r.seqNo++
	return f, nil
}
