// Package circbuff implements a fixed-capacity FIFO byte buffer with
// independent read and write cursors that wrap around the backing array.
//
// A CircularByteBuffer does no locking of its own. Use it from a single
// goroutine, guard it externally, or go through stream.Pipe which owns the
// lock and adds blocking semantics.
package circbuff

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const DefaultCapacity = 4096

// -----|+++++++++++++++++|--------------|
//    readPos          writePos       capacity
//
// Bytes between readPos and writePos (wrapping past capacity) are the
// buffered ones. count disambiguates readPos == writePos (empty vs full).

type CircularByteBuffer struct {
	buff     []byte
	readPos  int
	writePos int
	count    int
}

// New allocates a buffer holding at most capacity bytes.
func New(capacity int) (*CircularByteBuffer, error) {
	if capacity <= 0 {
		return nil, illegalCapacity(capacity)
	}
	return &CircularByteBuffer{buff: make([]byte, capacity)}, nil
}

// NewDefault allocates a buffer of DefaultCapacity bytes.
func NewDefault() *CircularByteBuffer {
	return &CircularByteBuffer{buff: make([]byte, DefaultCapacity)}
}

// Add appends a single byte. It fails with ErrCapacityExceeded when the
// buffer is full.
func (cb *CircularByteBuffer) Add(b byte) error {
	if cb.count == len(cb.buff) {
		return errors.Wrap(ErrCapacityExceeded, "no space left")
	}
	cb.buff[cb.writePos] = b
	cb.writePos = cb.advance(cb.writePos, 1)
	cb.count++
	return nil
}

// AddBytes appends src[offset:offset+length]. Either all length bytes are
// stored or none are.
func (cb *CircularByteBuffer) AddBytes(src []byte, offset, length int) error {
	if length < 0 {
		return illegalLength(length)
	}
	if offset < 0 || offset > len(src)-length {
		return illegalOffset(offset)
	}
	if length > cb.Space() {
		return errors.Wrapf(ErrCapacityExceeded, "cannot add %d bytes, %d free", length, cb.Space())
	}
	if length == 0 {
		return nil
	}

	data := src[offset : offset+length]
	n := copy(cb.buff[cb.writePos:], data)
	if n < length { // wrapped
		copy(cb.buff, data[n:])
	}
	cb.writePos = cb.advance(cb.writePos, length)
	cb.count += length
	return nil
}

// ReadByte removes and returns the oldest byte. It fails with ErrUnderflow
// when the buffer is empty.
func (cb *CircularByteBuffer) ReadByte() (byte, error) {
	if cb.count == 0 {
		return 0, errors.Wrap(ErrUnderflow, "no bytes available")
	}
	b := cb.buff[cb.readPos]
	cb.readPos = cb.advance(cb.readPos, 1)
	cb.count--
	return b, nil
}

// ReadBytes moves up to length bytes into dst starting at offset and returns
// how many were moved. Asking for more than is buffered is not an error; an
// empty buffer yields 0.
func (cb *CircularByteBuffer) ReadBytes(dst []byte, offset, length int) (int, error) {
	if length < 0 {
		return 0, illegalLength(length)
	}
	n := min(length, cb.count)
	if offset < 0 || offset > len(dst)-n {
		return 0, illegalOffset(offset)
	}
	if n == 0 {
		return 0, nil
	}
	cb.copyOut(dst[offset:offset+n], n)
	cb.readPos = cb.advance(cb.readPos, n)
	cb.count -= n
	return n, nil
}

// Peek copies up to len(dst) buffered bytes without consuming them.
func (cb *CircularByteBuffer) Peek(dst []byte) int {
	n := min(len(dst), cb.count)
	cb.copyOut(dst, n)
	return n
}

// Discard drops up to n of the oldest bytes and returns how many were dropped.
func (cb *CircularByteBuffer) Discard(n int) int {
	n = max(0, min(n, cb.count))
	cb.readPos = cb.advance(cb.readPos, n)
	cb.count -= n
	return n
}

// Bytes returns a copy of the buffered bytes in FIFO order.
func (cb *CircularByteBuffer) Bytes() []byte {
	if cb.count == 0 {
		return nil
	}
	buf := make([]byte, cb.count)
	cb.copyOut(buf, cb.count)
	return buf
}

func (cb *CircularByteBuffer) Reset() {
	cb.readPos = 0
	cb.writePos = 0
	cb.count = 0
}

// Write stores as much of p as fits. A short write returns
// ErrCapacityExceeded alongside the number of bytes stored.
func (cb *CircularByteBuffer) Write(p []byte) (int, error) {
	n := min(len(p), cb.Space())
	if err := cb.AddBytes(p, 0, n); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, errors.Wrapf(ErrCapacityExceeded, "short write: %d of %d bytes", n, len(p))
	}
	return n, nil
}

func (cb *CircularByteBuffer) WriteByte(b byte) error {
	return cb.Add(b)
}

// Read drains up to len(p) bytes, returning io.EOF once the buffer is empty.
func (cb *CircularByteBuffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if cb.count == 0 {
		return 0, io.EOF
	}
	return cb.ReadBytes(p, 0, len(p))
}

func (cb *CircularByteBuffer) Cap() int {
	return len(cb.buff)
}

// Gets the available write space
func (cb *CircularByteBuffer) Space() int {
	return len(cb.buff) - cb.count
}

// Gets the number of buffered bytes
func (cb *CircularByteBuffer) CurrentNumberOfBytes() int {
	return cb.count
}

func (cb *CircularByteBuffer) HasBytes() bool {
	return cb.count > 0
}

func (cb *CircularByteBuffer) HasSpace() bool {
	return cb.count < len(cb.buff)
}

func (cb *CircularByteBuffer) ReadPosition() int {
	return cb.readPos
}

func (cb *CircularByteBuffer) WritePosition() int {
	return cb.writePos
}

func (cb *CircularByteBuffer) String() string {
	return fmt.Sprintf("CircularByteBuffer{cap=%d bytes=%d space=%d read=%d write=%d}",
		len(cb.buff), cb.count, cb.Space(), cb.readPos, cb.writePos)
}

// copyOut copies the n oldest bytes into dst, splitting at the array end.
func (cb *CircularByteBuffer) copyOut(dst []byte, n int) {
	if n == 0 {
		return
	}
	end := cb.readPos + n
	if end <= len(cb.buff) {
		copy(dst, cb.buff[cb.readPos:end])
		return
	}
	first := copy(dst, cb.buff[cb.readPos:])
	copy(dst[first:n], cb.buff[:n-first])
}

func (cb *CircularByteBuffer) advance(pos, n int) int {
	return (pos + n) % len(cb.buff)
}
