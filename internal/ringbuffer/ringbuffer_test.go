package ringbuffer

import (
	"bytes"
	"testing"
)

func TestWriteReadFIFO(t *testing.T) {
	rb := New(1)

	rb.Write([]byte{1, 2, 3, 4})
	rb.Write([]byte{5, 6})

	p := make([]byte, 6)
	n := rb.Read(p)
	if n != 6 {
		t.Fatalf("expected 6 bytes, got %d", n)
	}
	if !bytes.Equal(p, []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("got %v, want FIFO order", p)
	}
	if rb.Buffered() != 0 {
		t.Errorf("expected empty buffer after full read, got %f seconds", rb.Buffered())
	}
}

func TestReadEmpty(t *testing.T) {
	rb := New(1)
	p := make([]byte, 10)
	if n := rb.Read(p); n != 0 {
		t.Errorf("expected 0 bytes from empty buffer, got %d", n)
	}
}

func TestPartialRead(t *testing.T) {
	rb := New(1)
	rb.Write([]byte{1, 2, 3, 4, 5})

	p := make([]byte, 2)
	if n := rb.Read(p); n != 2 || !bytes.Equal(p, []byte{1, 2}) {
		t.Fatalf("first read: n=%d p=%v", n, p)
	}
	if n := rb.Read(p); n != 2 || !bytes.Equal(p, []byte{3, 4}) {
		t.Fatalf("second read: n=%d p=%v", n, p)
	}
	if n := rb.Read(p); n != 1 || p[0] != 5 {
		t.Fatalf("third read: n=%d p=%v", n, p)
	}
}

func TestOverwriteOldestWhenFull(t *testing.T) {
	rb := New(1)

	// Fill to capacity with a known pattern.
	fill := make([]byte, BytesPerSecond)
	for i := range fill {
		fill[i] = byte(i % 251)
	}
	rb.Write(fill)

	// Push 100 more bytes; the oldest 100 must be dropped.
	extra := make([]byte, 100)
	for i := range extra {
		extra[i] = 0xAB
	}
	rb.Write(extra)

	if rb.Dropped() != 100 {
		t.Errorf("expected 100 dropped bytes, got %d", rb.Dropped())
	}

	p := make([]byte, BytesPerSecond)
	n := rb.Read(p)
	if n != BytesPerSecond {
		t.Fatalf("expected full read of %d bytes, got %d", BytesPerSecond, n)
	}
	if p[0] != fill[100] {
		t.Errorf("oldest byte after overwrite: got %d, want %d", p[0], fill[100])
	}
	if p[BytesPerSecond-1] != 0xAB {
		t.Errorf("newest byte: got %d, want 0xAB", p[BytesPerSecond-1])
	}
}

func TestOversizedWriteKeepsNewest(t *testing.T) {
	rb := New(1)

	big := make([]byte, BytesPerSecond+500)
	for i := range big {
		big[i] = byte(i % 199)
	}
	rb.Write(big)

	if rb.Dropped() != 500 {
		t.Errorf("expected 500 dropped bytes, got %d", rb.Dropped())
	}

	p := make([]byte, BytesPerSecond)
	n := rb.Read(p)
	if n != BytesPerSecond {
		t.Fatalf("expected %d bytes, got %d", BytesPerSecond, n)
	}
	if p[0] != big[500] {
		t.Errorf("first byte: got %d, want %d", p[0], big[500])
	}
}

func TestWraparoundRead(t *testing.T) {
	rb := New(1)

	// Advance positions close to the end of the backing array, then write
	// data that wraps so Read has to copy in two segments.
	fill := make([]byte, BytesPerSecond-3)
	rb.Write(fill)
	rb.Read(make([]byte, BytesPerSecond-3))

	rb.Write([]byte{10, 20, 30, 40, 50, 60})
	p := make([]byte, 6)
	if n := rb.Read(p); n != 6 {
		t.Fatalf("expected 6 bytes, got %d", n)
	}
	if !bytes.Equal(p, []byte{10, 20, 30, 40, 50, 60}) {
		t.Errorf("wrapped read: got %v", p)
	}
}

func TestBuffered(t *testing.T) {
	rb := New(2)
	if rb.Buffered() != 0 {
		t.Errorf("new buffer: got %f seconds, want 0", rb.Buffered())
	}

	rb.Write(make([]byte, BytesPerSecond/2))
	if got := rb.Buffered(); got != 0.5 {
		t.Errorf("got %f seconds, want 0.5", got)
	}
}

func TestCapacitySeconds(t *testing.T) {
	rb := New(5)
	if got := rb.CapacitySeconds(); got != 5 {
		t.Errorf("got %f seconds, want 5", got)
	}
}
