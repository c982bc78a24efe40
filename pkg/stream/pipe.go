// Package stream puts blocking io.Reader/io.Writer semantics on top of a
// circbuff.CircularByteBuffer. The Pipe owns the lock; the buffer itself
// stays lock-free.
package stream

import (
	"context"
	"io"
	"sync"

	"circbuff/pkg/circbuff"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

// SetLogger replaces the package logger. A nil logger disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Pipe is a bounded in-memory pipe. Writers block while the ring is full,
// readers block while it is empty.
type Pipe struct {
	mu         sync.Mutex
	cb         *circbuff.CircularByteBuffer
	changed    chan struct{} // closed and replaced on every state change
	closeWrite bool
	closeErr   error
}

func NewPipe(capacity int) (*Pipe, error) {
	cb, err := circbuff.New(capacity)
	if err != nil {
		return nil, errors.Wrap(err, "stream: new pipe")
	}
	return &Pipe{
		cb:      cb,
		changed: make(chan struct{}),
	}, nil
}

// Read blocks until at least one byte is available. After CloseWrite the
// remaining bytes are drained and then io.EOF is returned.
func (p *Pipe) Read(buf []byte) (int, error) {
	return p.ReadContext(context.Background(), buf)
}

func (p *Pipe) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.closeErr != nil {
			return 0, errors.Wrap(p.closeErr, "stream: read from closed pipe")
		}
		if p.cb.HasBytes() {
			n, err := p.cb.ReadBytes(buf, 0, len(buf))
			if n > 0 {
				p.broadcastLocked()
			}
			return n, err
		}
		if p.closeWrite {
			return 0, io.EOF
		}
		if err := p.waitLocked(ctx); err != nil {
			return 0, err
		}
	}
}

// Write blocks until all of buf is in the ring or the pipe is closed. On
// failure n reports how much was accepted before the error.
func (p *Pipe) Write(buf []byte) (int, error) {
	return p.WriteContext(context.Background(), buf)
}

func (p *Pipe) WriteContext(ctx context.Context, buf []byte) (written int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(buf) > 0 {
		if p.closeErr != nil {
			return written, errors.Wrap(p.closeErr, "stream: write to closed pipe")
		}
		if p.closeWrite {
			return written, errors.Wrap(io.ErrClosedPipe, "stream: write to closed pipe")
		}
		if !p.cb.HasSpace() {
			if err := p.waitLocked(ctx); err != nil {
				return written, err
			}
			continue
		}

		n := min(len(buf), p.cb.Space())
		if err := p.cb.AddBytes(buf, 0, n); err != nil {
			return written, err
		}
		written += n
		buf = buf[n:]
		p.broadcastLocked()
	}
	return written, nil
}

// CloseWrite stops further writes. Readers drain what is left, then get io.EOF.
func (p *Pipe) CloseWrite() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closeWrite {
		return nil
	}
	p.closeWrite = true
	p.broadcastLocked()
	return nil
}

// CloseWithError fails every pending and future Read and Write with err.
// A nil err means io.ErrClosedPipe. Only the first call has an effect.
func (p *Pipe) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closeErr != nil {
		return nil
	}
	logger.Debug("closing pipe", zap.Error(err), zap.Int("buffered", p.cb.CurrentNumberOfBytes()))
	p.closeErr = err
	p.closeWrite = true
	p.broadcastLocked()
	return nil
}

func (p *Pipe) Close() error {
	return p.CloseWithError(io.ErrClosedPipe)
}

func (p *Pipe) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cb.CurrentNumberOfBytes()
}

func (p *Pipe) Space() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cb.Space()
}

func (p *Pipe) Cap() int {
	return p.cb.Cap()
}

// The lock must be held on entry.
func (p *Pipe) broadcastLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// waitLocked releases the lock until the next state change or ctx is done.
// The lock is held again on return.
func (p *Pipe) waitLocked(ctx context.Context) error {
	changed := p.changed
	p.mu.Unlock()
	defer p.mu.Lock()

	select {
	case <-changed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
