package stream

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultChunk = 512

// Pump copies src to dst through a Pipe of the given capacity. One goroutine
// fills the pipe from src in chunk-sized reads while another drains it into
// dst, so a slow dst does not stall src until the ring is full.
// It returns the number of bytes delivered to dst.
//
// Pump returns only after the pending src.Read returns, even when dst fails
// or ctx is canceled; a source that never yields keeps Pump waiting.
func Pump(ctx context.Context, dst io.Writer, src io.Reader, capacity, chunk int) (int64, error) {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	p, err := NewPipe(capacity)
	if err != nil {
		return 0, err
	}

	var delivered atomic.Int64
	g, ctx := errgroup.WithContext(ctx)

	// producer
	g.Go(func() error {
		buf := make([]byte, chunk)
		for {
			if err := ctx.Err(); err != nil {
				p.CloseWithError(err)
				return err
			}
			n, rerr := src.Read(buf)
			if n > 0 {
				if _, werr := p.WriteContext(ctx, buf[:n]); werr != nil {
					p.CloseWithError(werr)
					return werr
				}
			}
			if rerr == io.EOF {
				return p.CloseWrite()
			}
			if rerr != nil {
				rerr = errors.Wrap(rerr, "stream: read source")
				p.CloseWithError(rerr)
				return rerr
			}
		}
	})

	// consumer
	g.Go(func() error {
		buf := make([]byte, chunk)
		for {
			n, rerr := p.ReadContext(ctx, buf)
			if n > 0 {
				w, werr := dst.Write(buf[:n])
				delivered.Add(int64(w))
				if werr == nil && w < n {
					werr = io.ErrShortWrite
				}
				if werr != nil {
					werr = errors.Wrap(werr, "stream: write destination")
					p.CloseWithError(werr)
					return werr
				}
			}
			if rerr == io.EOF {
				return nil
			}
			if rerr != nil {
				return rerr
			}
		}
	})

	err = g.Wait()
	logger.Debug("pump finished",
		zap.Int64("bytes", delivered.Load()),
		zap.Int("capacity", capacity),
		zap.Int("chunk", chunk),
		zap.Error(err))
	return delivered.Load(), err
}
