package ringbuffer

import "sync"

// BytesPerSecond is the number of bytes per second for PCM s16le, 24kHz, mono
// audio. 24000 samples/sec * 2 bytes/sample = 48000 bytes/sec.
const BytesPerSecond = 24000 * 2

// RingBuffer holds a fixed-duration circular buffer of PCM s16le, 24kHz, mono
// audio with FIFO consumption. The playback path writes decoded provider
// audio in and a paced drain goroutine reads it back out; when the writer
// outruns the reader the oldest unread audio is dropped.
// Safe for concurrent use from a single writer and single reader.
type RingBuffer struct {
	mu       sync.Mutex
	buf      []byte
	readPos  int
	writePos int
	size     int // unread bytes
	capacity int
	dropped  int64 // total bytes overwritten before being read
}

// New creates a ring buffer that holds the specified number of seconds of audio.
func New(seconds int) *RingBuffer {
	capacity := seconds * BytesPerSecond
	return &RingBuffer{
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
}

// Write appends PCM data to the buffer, overwriting the oldest unread data
// when full.
func (rb *RingBuffer) Write(data []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	// Oversized writes keep only the newest capacity bytes.
	if len(data) > rb.capacity {
		rb.dropped += int64(len(data) - rb.capacity)
		data = data[len(data)-rb.capacity:]
	}

	for len(data) > 0 {
		n := copy(rb.buf[rb.writePos:], data)
		data = data[n:]
		rb.writePos = (rb.writePos + n) % rb.capacity
		rb.size += n
	}

	if rb.size > rb.capacity {
		over := rb.size - rb.capacity
		rb.dropped += int64(over)
		rb.readPos = (rb.readPos + over) % rb.capacity
		rb.size = rb.capacity
	}
}

// Read consumes up to len(p) of the oldest buffered bytes into p and returns
// the number of bytes copied. Returns 0 when the buffer is empty.
func (rb *RingBuffer) Read(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	want := len(p)
	if want > rb.size {
		want = rb.size
	}
	if want == 0 {
		return 0
	}

	if rb.readPos+want <= rb.capacity {
		copy(p, rb.buf[rb.readPos:rb.readPos+want])
	} else {
		first := rb.capacity - rb.readPos
		copy(p[:first], rb.buf[rb.readPos:])
		copy(p[first:want], rb.buf[:want-first])
	}

	rb.readPos = (rb.readPos + want) % rb.capacity
	rb.size -= want
	return want
}

// Buffered returns the number of seconds of unread audio currently stored.
func (rb *RingBuffer) Buffered() float64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return float64(rb.size) / float64(BytesPerSecond)
}

// Dropped returns the total bytes overwritten before they were read.
func (rb *RingBuffer) Dropped() int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// CapacitySeconds returns the buffer capacity in seconds.
func (rb *RingBuffer) CapacitySeconds() float64 {
	return float64(rb.capacity) / float64(BytesPerSecond)
}
