package pbf

import (
	"context"

	"go.uber.org/zap"

	"github.com/wegman-software/osmpbf-core/internal/entity"
	"github.com/wegman-software/osmpbf-core/internal/errs"
)

// Reader is the facade consumers use: Header() then repeated Next() calls.
// The header is decoded synchronously on construction; data decoding
// runs on the WorkerPool's dedicated goroutines.
type Reader struct {
	src    ByteSource
	fr     *FrameReader
	pool   *WorkerPool
	header *entity.Header
	cancel context.CancelFunc
	log    *zap.Logger
}

// Open reads and decodes the OSMHeader blob synchronously, then starts
// the worker pool over the remaining OSMData blobs.
func Open(ctx context.Context, src ByteSource, filter KindFilter, workers, maxWorkQueue, maxBufferQueue int, log *zap.Logger) (*Reader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fr := NewFrameReader(src)

	headerFrame, err := fr.Next()
	if err != nil {
		return nil, err
	}
	if headerFrame == nil {
		return nil, errs.NewTruncated("empty file: no OSMHeader blob")
	}
	block, err := DecodeBlob(headerFrame.Payload)
	if err != nil {
		return nil, err
	}
	header, err := DecodeHeaderBlock(block)
	if err != nil {
		return nil, err
	}

	poolCtx, cancel := context.WithCancel(ctx)
	pool := NewWorkerPool(fr, filter, workers, maxWorkQueue, maxBufferQueue, log)
	pool.Start(poolCtx)

	return &Reader{src: src, fr: fr, pool: pool, header: header, cancel: cancel, log: log}, nil
}

// Header returns the decoded header block.
func (r *Reader) Header() *entity.Header {
	return r.header
}

// Next returns the next decoded output buffer, or (nil, nil) at end of
// stream.
func (r *Reader) Next() (*entity.OutputBuffer, error) {
	return r.pool.Next()
}

// Close tears down the reader: it stops the pool, drains any in-flight
// buffers, and closes the byte source. It never returns an error a
// destructor-style caller can't ignore.
func (r *Reader) Close() error {
	r.pool.Cancel()
	r.cancel()
	r.pool.Drain()
	_ = r.pool.Wait()
	return r.src.Close()
}
