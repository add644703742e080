package pbf

import (
	"io"
	"os"

	"github.com/wegman-software/osmpbf-core/internal/errs"
)

// ByteSource is the transport collaborator: it fills dst fully or reports
// clean EOF. Partial reads are the source's problem to loop internally; a
// mid-frame EOF is the caller's problem (a hard Truncated error), never
// reported as false here.
type ByteSource interface {
	// ReadExact fills dst completely and returns true, or returns false on
	// a clean EOF with zero bytes read. Any other failure, including a
	// partial read followed by EOF, is returned as an error.
	ReadExact(dst []byte) (ok bool, err error)
	Close() error
}

// FileSource is a ByteSource backed by an *os.File.
type FileSource struct {
	f *os.File
}

// OpenFile opens path as a FileSource.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.WrapIo("opening input file", err)
	}
	return &FileSource{f: f}, nil
}

func (s *FileSource) ReadExact(dst []byte) (bool, error) {
	n, err := io.ReadFull(s.f, dst)
	switch {
	case err == nil:
		return true, nil
	case err == io.EOF && n == 0:
		return false, nil
	case err == io.ErrUnexpectedEOF || err == io.EOF:
		return false, errs.NewTruncated("unexpected EOF mid-read")
	default:
		return false, errs.WrapIo("reading input file", err)
	}
}

func (s *FileSource) Close() error {
	return errs.WrapIo("closing input file", s.f.Close())
}
