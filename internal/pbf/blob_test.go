package pbf

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/wegman-software/osmpbf-core/internal/errs"
)

func TestDecodeBlobRaw(t *testing.T) {
	payload := appendBytesField(nil, 1, []byte("raw payload"))
	out, err := DecodeBlob(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "raw payload" {
		t.Errorf("out = %q", out)
	}
}

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeBlobZlib(t *testing.T) {
	raw := []byte("hello, compressed world")
	compressed := zlibCompress(t, raw)

	var payload []byte
	payload = appendBytesField(payload, 3, compressed)
	payload = appendVarintField(payload, 2, uint64(len(raw)))

	out, err := DecodeBlob(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != string(raw) {
		t.Errorf("out = %q, want %q", out, raw)
	}
}

func TestDecodeBlobZlibEmpty(t *testing.T) {
	compressed := zlibCompress(t, nil)

	var payload []byte
	payload = appendBytesField(payload, 3, compressed)
	payload = appendVarintField(payload, 2, 0)

	out, err := DecodeBlob(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("out = %q, want empty", out)
	}
}

func TestDecodeBlobLzmaUnsupported(t *testing.T) {
	payload := appendBytesField(nil, 4, []byte("lzma bytes"))
	_, err := DecodeBlob(payload)
	if err == nil {
		t.Fatal("expected an error for lzma_data")
	}
	if kind, ok := errs.KindOf(err); !ok || kind != errs.Unsupported {
		t.Fatalf("KindOf(err) = %v, %v, want Unsupported", kind, ok)
	}
}

func TestDecodeBlobNoVariant(t *testing.T) {
	_, err := DecodeBlob(nil)
	if err == nil {
		t.Fatal("expected an error for an empty blob")
	}
	if kind, ok := errs.KindOf(err); !ok || kind != errs.Corrupt {
		t.Fatalf("KindOf(err) = %v, %v, want Corrupt", kind, ok)
	}
}
