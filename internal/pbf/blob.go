package pbf

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/wegman-software/osmpbf-core/internal/errs"
	"github.com/wegman-software/osmpbf-core/internal/pbfwire"
)

// MaxUncompressedBlob is the largest permitted decompressed blob, in
// bytes.
const MaxUncompressedBlob = 32 * 1024 * 1024

// DecodeBlob turns a raw frame payload into a decoded byte block. It is
// stateless and reentrant: callers run it on any worker goroutine.
func DecodeBlob(payload []byte) ([]byte, error) {
	blob, err := pbfwire.UnmarshalBlob(payload)
	if err != nil {
		return nil, err
	}

	switch {
	case blob.HasRaw:
		return blob.Raw, nil

	case blob.HasZlibData:
		if blob.RawSize < 0 || blob.RawSize > MaxUncompressedBlob {
			return nil, errs.NewCorruptf("zlib raw_size %d out of range", blob.RawSize)
		}
		zr, err := zlib.NewReader(bytes.NewReader(blob.ZlibData))
		if err != nil {
			return nil, errs.WrapCorrupt("opening zlib blob", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, int64(blob.RawSize)+1))
		if err != nil {
			return nil, errs.WrapCorrupt("decompressing zlib blob", err)
		}
		if int32(len(out)) != blob.RawSize {
			return nil, errs.NewCorruptf("zlib blob decompressed to %d bytes, expected %d", len(out), blob.RawSize)
		}
		return out, nil

	case blob.HasLzmaData:
		return nil, errs.NewUnsupported("lzma_data blob compression not implemented")

	case blob.HasOBSOLETEBzip2Data:
		return nil, errs.NewUnsupported("OBSOLETE_bzip2_data blob compression not implemented")

	default:
		return nil, errs.NewCorrupt("blob has no populated payload variant")
	}
}
