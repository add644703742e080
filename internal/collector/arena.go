// Package collector implements the two-pass relation assembly engine: a
// RelationStore + MemberIndex built in pass 1, and a MemberStore +
// completion firing built in pass 2, both backed by append-only byte
// arenas with a commit/rollback watermark.
package collector

import (
	"encoding/binary"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/wegman-software/osmpbf-core/internal/errs"
)

// byteArena is an append-only region of self-delimiting records with a
// commit/rollback watermark: Append writes past the tail speculatively,
// Commit advances the durable watermark to the current tail, and
// Rollback resets the tail back to the watermark, discarding anything
// written since the last commit.
type byteArena interface {
	// Append writes a length-prefixed record at the current tail and
	// returns its offset. The record is visible to ReadAt immediately,
	// but is only permanent once Commit is called.
	Append(rec []byte) (offset uint64, err error)
	// ReadAt reads back the record written at offset.
	ReadAt(offset uint64) ([]byte, error)
	// Commit advances the watermark to the current tail.
	Commit()
	// Rollback resets the tail to the last committed watermark.
	Rollback()
	// Tail returns the current (uncommitted) write position.
	Tail() uint64
	// ForEachRecord walks every committed record, [0, watermark), in
	// order, calling fn with each record's offset and bytes. Uncommitted
	// records past the watermark are not visited. fn returning false
	// stops the walk early.
	ForEachRecord(fn func(offset uint64, rec []byte) bool) error
	// Close releases any backing resources (mmap, temp files).
	Close() error
}

// lengthPrefixSize is the 4-byte little-endian length prefix ahead of every
// record; it is what makes ForEachRecord self-delimiting.
const lengthPrefixSize = 4

// memArena is a byteArena backed by a growable in-process byte slice.
type memArena struct {
	buf       []byte
	watermark uint64
}

func newMemArena() *memArena {
	return &memArena{}
}

func (a *memArena) Append(rec []byte) (uint64, error) {
	offset := uint64(len(a.buf))
	var hdr [lengthPrefixSize]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(rec)))
	a.buf = append(a.buf, hdr[:]...)
	a.buf = append(a.buf, rec...)
	return offset, nil
}

func (a *memArena) ReadAt(offset uint64) ([]byte, error) {
	if offset+lengthPrefixSize > uint64(len(a.buf)) {
		return nil, errs.NewCorruptf("arena read offset %d out of range", offset)
	}
	n := binary.LittleEndian.Uint32(a.buf[offset : offset+lengthPrefixSize])
	start := offset + lengthPrefixSize
	end := start + uint64(n)
	if end > uint64(len(a.buf)) {
		return nil, errs.NewCorruptf("arena record at %d truncated", offset)
	}
	return a.buf[start:end], nil
}

func (a *memArena) Commit() { a.watermark = uint64(len(a.buf)) }

func (a *memArena) Rollback() { a.buf = a.buf[:a.watermark] }

func (a *memArena) Tail() uint64 { return uint64(len(a.buf)) }

func (a *memArena) ForEachRecord(fn func(offset uint64, rec []byte) bool) error {
	var off uint64
	for off < a.watermark {
		rec, err := a.ReadAt(off)
		if err != nil {
			return err
		}
		if !fn(off, rec) {
			return nil
		}
		off += lengthPrefixSize + uint64(len(rec))
	}
	return nil
}

func (a *memArena) Close() error { return nil }

// mmapArena is a byteArena backed by a memory-mapped, growable temp
// file, for callers that want member/relation buffers off the Go heap.
type mmapArena struct {
	f         *os.File
	m         mmap.MMap
	tail      uint64
	watermark uint64
	cap       uint64
}

const mmapInitialCap = 1 << 20 // 1 MiB

func newMmapArena() (*mmapArena, error) {
	f, err := os.CreateTemp("", "osmpbf-collector-*.arena")
	if err != nil {
		return nil, errs.WrapIo("creating arena temp file", err)
	}
	if err := f.Truncate(int64(mmapInitialCap)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, errs.WrapIo("sizing arena temp file", err)
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, errs.WrapIo("mmapping arena temp file", err)
	}
	return &mmapArena{f: f, m: m, cap: mmapInitialCap}, nil
}

func (a *mmapArena) grow(minCap uint64) error {
	newCap := a.cap
	for newCap < minCap {
		newCap *= 2
	}
	if err := a.m.Unmap(); err != nil {
		return errs.WrapIo("unmapping arena for growth", err)
	}
	if err := a.f.Truncate(int64(newCap)); err != nil {
		return errs.WrapIo("growing arena temp file", err)
	}
	m, err := mmap.Map(a.f, mmap.RDWR, 0)
	if err != nil {
		return errs.WrapIo("remapping arena after growth", err)
	}
	a.m = m
	a.cap = newCap
	return nil
}

func (a *mmapArena) Append(rec []byte) (uint64, error) {
	need := a.tail + lengthPrefixSize + uint64(len(rec))
	if need > a.cap {
		if err := a.grow(need); err != nil {
			return 0, err
		}
	}
	offset := a.tail
	binary.LittleEndian.PutUint32(a.m[offset:offset+lengthPrefixSize], uint32(len(rec)))
	copy(a.m[offset+lengthPrefixSize:], rec)
	a.tail = need
	return offset, nil
}

func (a *mmapArena) ReadAt(offset uint64) ([]byte, error) {
	if offset+lengthPrefixSize > a.tail {
		return nil, errs.NewCorruptf("arena read offset %d out of range", offset)
	}
	n := binary.LittleEndian.Uint32(a.m[offset : offset+lengthPrefixSize])
	start := offset + lengthPrefixSize
	end := start + uint64(n)
	if end > a.tail {
		return nil, errs.NewCorruptf("arena record at %d truncated", offset)
	}
	// Copy out: the mmap backing array is reused across Unmap/remap on
	// growth, so callers must not hold slices across an Append call.
	out := make([]byte, n)
	copy(out, a.m[start:end])
	return out, nil
}

func (a *mmapArena) Commit() { a.watermark = a.tail }

func (a *mmapArena) Rollback() { a.tail = a.watermark }

func (a *mmapArena) Tail() uint64 { return a.tail }

func (a *mmapArena) ForEachRecord(fn func(offset uint64, rec []byte) bool) error {
	var off uint64
	for off < a.watermark {
		rec, err := a.ReadAt(off)
		if err != nil {
			return err
		}
		if !fn(off, rec) {
			return nil
		}
		off += lengthPrefixSize + uint64(len(rec))
	}
	return nil
}

func (a *mmapArena) Close() error {
	name := a.f.Name()
	if err := a.m.Unmap(); err != nil {
		return errs.WrapIo("unmapping arena", err)
	}
	if err := a.f.Close(); err != nil {
		return errs.WrapIo("closing arena temp file", err)
	}
	return errs.WrapIo("removing arena temp file", os.Remove(name))
}
