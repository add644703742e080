package pbf

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osmpbf-core/internal/entity"
)

// Result is what a worker delivers through its future.
type Result struct {
	Buf *entity.OutputBuffer
	Err error
}

// WorkerPool schedules BlobDecoder+BlockDecoder tasks across a bounded
// pool of goroutines while preserving delivery order. The FrameReader
// is the sole producer; Next is the sole consumer entry point.
type WorkerPool struct {
	fr     *FrameReader
	filter KindFilter
	log    *zap.Logger

	workers int
	maxWork int
	maxBuf  int

	fifo chan chan Result // ordered queue of pending futures
	sem  chan struct{}    // bounds MAX_WORK_QUEUE pending decode tasks
	done atomic.Bool

	g       *errgroup.Group
	started bool
}

// NewWorkerPool builds a pool reading frames from fr, decoding only the
// entity kinds selected by filter.
func NewWorkerPool(fr *FrameReader, filter KindFilter, workers, maxWorkQueue, maxBufferQueue int, log *zap.Logger) *WorkerPool {
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		fr:      fr,
		filter:  filter,
		log:     log,
		workers: workers,
		maxWork: maxWorkQueue,
		maxBuf:  maxBufferQueue,
	}
}

// Start launches the producer and worker goroutines. ctx cancellation
// stops the pool the same way the shared done flag does.
func (p *WorkerPool) Start(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers + 1) // one slot for the producer, p.workers for decode tasks
	p.g = g
	p.fifo = make(chan chan Result, p.maxBuf)
	p.sem = make(chan struct{}, p.maxWork)
	p.started = true

	g.Go(func() error {
		return p.produce(gctx)
	})
}

func (p *WorkerPool) produce(ctx context.Context) error {
	defer close(p.fifo)

	for {
		if p.done.Load() {
			return nil
		}

		frame, err := p.fr.Next()
		if err != nil {
			fut := make(chan Result, 1)
			fut <- Result{Err: err}
			select {
			case p.fifo <- fut:
			case <-ctx.Done():
			}
			return err
		}
		if frame == nil {
			return nil // clean EOF
		}

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		fut := make(chan Result, 1)
		select {
		case p.fifo <- fut:
		case <-ctx.Done():
			<-p.sem
			return ctx.Err()
		}

		f := frame
		p.g.Go(func() error {
			defer func() { <-p.sem }()
			block, err := DecodeBlob(f.Payload)
			if err != nil {
				fut <- Result{Err: err}
				return nil
			}
			buf, err := DecodePrimitiveBlock(block, f.SeqNo, p.filter)
			fut <- Result{Buf: buf, Err: err}
			return nil
		})
	}
}

// Next blocks for the head future and returns its result, preserving
// submission order. It returns (nil, nil) at clean end of stream.
func (p *WorkerPool) Next() (*entity.OutputBuffer, error) {
	fut, ok := <-p.fifo
	if !ok {
		return nil, nil
	}
	res := <-fut
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Buf, nil
}

// Cancel signals teardown: the producer stops issuing new frames and
// Drain releases every worker-allocated buffer still in flight.
func (p *WorkerPool) Cancel() {
	p.done.Store(true)
}

// Drain discards every future still queued, releasing worker-held
// buffers. Callers must call this after Cancel to avoid leaking
// goroutines blocked sending into a full fifo or sem.
func (p *WorkerPool) Drain() {
	for fut := range p.fifo {
		<-fut
	}
}

// Wait blocks until the producer and all in-flight workers have exited,
// returning the first error encountered (if any).
func (p *WorkerPool) Wait() error {
	if !p.started {
		return nil
	}
	return p.g.Wait()
}
