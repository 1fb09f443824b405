package logging

import (
	"os"
	"sync"
)

// RingBuffer keeps the last N bytes written to it. It backs the crash dump
// written on SIGUSR1.
type RingBuffer struct {
	mu   sync.Mutex
	data []byte
	next int
	full bool
}

// NewRingBuffer returns a buffer holding at most size bytes (1MB when <= 0).
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1024 * 1024
	}
	return &RingBuffer{data: make([]byte, size)}
}

// Write never fails; older bytes are overwritten once the buffer is full.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(p)
	size := len(rb.data)
	if n >= size {
		copy(rb.data, p[n-size:])
		rb.next, rb.full = 0, true
		return n, nil
	}

	copied := copy(rb.data[rb.next:], p)
	if copied < n {
		copy(rb.data, p[copied:])
	}
	rb.next = (rb.next + n) % size
	if copied < n || rb.next == 0 {
		rb.full = true
	}
	return n, nil
}

// Bytes returns the buffered data oldest first.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if !rb.full {
		return append([]byte(nil), rb.data[:rb.next]...)
	}
	out := make([]byte, 0, len(rb.data))
	out = append(out, rb.data[rb.next:]...)
	return append(out, rb.data[:rb.next]...)
}

// DumpToFile writes Bytes to path with owner-only permissions.
func (rb *RingBuffer) DumpToFile(path string) error {
	return os.WriteFile(path, rb.Bytes(), 0o600)
}
