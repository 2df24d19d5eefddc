package printer_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tokoanjar/pos-api/internal/printer"
)

type fakeTransport struct {
	connectErr error
	writeErr   error

	connected bool
	closed    bool
	chunks    [][]byte
}

func (f *fakeTransport) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Write(_ context.Context, p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	f.chunks = append(f.chunks, buf)
	return len(p), nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestPrintChunksPayload(t *testing.T) {
	ft := &fakeTransport{}
	c := &printer.Client{Transport: ft, ChunkSize: 20, ChunkDelay: time.Millisecond}

	payload := bytes.Repeat([]byte{0x41}, 45)
	require.NoError(t, c.Print(context.Background(), payload))

	require.True(t, ft.connected)
	require.True(t, ft.closed)
	require.Len(t, ft.chunks, 3)
	require.Len(t, ft.chunks[0], 20)
	require.Len(t, ft.chunks[1], 20)
	require.Len(t, ft.chunks[2], 5)
	require.Equal(t, payload, bytes.Join(ft.chunks, nil))
}

func TestPrintSingleChunk(t *testing.T) {
	ft := &fakeTransport{}
	c := &printer.Client{Transport: ft, ChunkSize: 64, ChunkDelay: time.Second}

	start := time.Now()
	require.NoError(t, c.Print(context.Background(), []byte("hello")))
	// No inter-chunk pause after the last write.
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.Len(t, ft.chunks, 1)
}

func TestPrintEmptyPayload(t *testing.T) {
	c := &printer.Client{Transport: &fakeTransport{}}
	require.Error(t, c.Print(context.Background(), nil))
}

func TestPrintConnectError(t *testing.T) {
	ft := &fakeTransport{connectErr: errors.New("refused")}
	c := &printer.Client{Transport: ft}

	err := c.Print(context.Background(), []byte("data"))
	require.ErrorContains(t, err, "connect")
	require.False(t, ft.closed)
}

func TestPrintWriteErrorCloses(t *testing.T) {
	ft := &fakeTransport{writeErr: errors.New("pipe broken")}
	c := &printer.Client{Transport: ft}

	err := c.Print(context.Background(), []byte("data"))
	require.ErrorContains(t, err, "write at offset 0")
	require.True(t, ft.closed)
}

func TestPrintCancelledBetweenChunks(t *testing.T) {
	ft := &fakeTransport{}
	c := &printer.Client{Transport: ft, ChunkSize: 2, ChunkDelay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Print(ctx, []byte("abcdef"))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, ft.chunks, 1)
}
