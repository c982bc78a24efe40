package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"
	"time"

	"circbuff/pkg/circbuff"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewPipe_InvalidCapacity(t *testing.T) {
	_, err := NewPipe(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, circbuff.ErrInvalidArgument)
}

func TestPipe_ReadBlocksUntilWrite(t *testing.T) {
	p, err := NewPipe(8)
	require.NoError(t, err)

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 8)
		n, err := p.Read(buf)
		if err != nil {
			got <- "error: " + err.Error()
			return
		}
		got <- string(buf[:n])
	}()

	select {
	case s := <-got:
		t.Fatalf("read returned before any write: %q", s)
	case <-time.After(20 * time.Millisecond):
	}

	n, err := p.Write([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "hi", <-got)
}

func TestPipe_WriteLargerThanCapacity(t *testing.T) {
	p, err := NewPipe(16)
	require.NoError(t, err)

	payload := make([]byte, 10_000)
	rand.New(rand.NewSource(1)).Read(payload)

	done := make(chan error, 1)
	go func() {
		_, err := p.Write(payload)
		if err == nil {
			err = p.CloseWrite()
		}
		done <- err
	}()

	got, err := io.ReadAll(p)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.True(t, bytes.Equal(payload, got), "payload corrupted through the ring")
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 16, p.Space())
}

func TestPipe_CloseWriteDrains(t *testing.T) {
	p, err := NewPipe(8)
	require.NoError(t, err)

	_, err = p.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, p.CloseWrite())
	require.NoError(t, p.CloseWrite())

	_, err = p.Write([]byte("d"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	buf := make([]byte, 2)
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(buf[:n]))
	n, err = p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "c", string(buf[:n]))
	_, err = p.Read(buf)
	assert.Equal(t, io.EOF, err)
}

func TestPipe_CloseWithErrorUnblocks(t *testing.T) {
	p, err := NewPipe(4)
	require.NoError(t, err)
	boom := errors.New("boom")

	readErr := make(chan error, 1)
	go func() {
		_, err := p.Read(make([]byte, 4))
		readErr <- err
	}()

	_, err = p.Write([]byte("full"))
	require.NoError(t, err)
	// the reader may have taken those bytes; fill again so the writer blocks
	writeErr := make(chan error, 1)
	go func() {
		_, err := p.Write([]byte("morebytes"))
		writeErr <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.CloseWithError(boom))
	require.NoError(t, p.CloseWithError(errors.New("ignored")))

	if err := <-readErr; err != nil {
		assert.ErrorIs(t, err, boom)
	}
	assert.ErrorIs(t, <-writeErr, boom)

	_, err = p.Read(make([]byte, 1))
	assert.ErrorIs(t, err, boom)
}

func TestPipe_Close(t *testing.T) {
	p, err := NewPipe(4)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	_, err = p.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestPipe_ReadContextCancel(t *testing.T) {
	p, err := NewPipe(4)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	n, err := p.ReadContext(ctx, make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipe_WriteContextCancel(t *testing.T) {
	p, err := NewPipe(4)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	n, err := p.WriteContext(ctx, []byte("abcdef"))
	assert.Equal(t, 4, n)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, 0, p.Space())
	assert.Equal(t, 4, p.Cap())
}

func TestPipe_ZeroLength(t *testing.T) {
	p, err := NewPipe(4)
	require.NoError(t, err)

	n, err := p.Read(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = p.Write(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}
