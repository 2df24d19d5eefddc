package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Transport is a connection to a thermal printer.
type Transport interface {
	Connect(ctx context.Context) error
	Write(ctx context.Context, p []byte) (int, error)
	Close() error
}

// Client drives a receipt printer over a Transport. Cheap thermal printers
// drop bytes when fed too fast, so payloads go out in small chunks with a
// pause between writes.
type Client struct {
	Transport      Transport
	ChunkSize      int
	ChunkDelay     time.Duration
	ConnectTimeout time.Duration
}

func (c *Client) chunkSize() int {
	if c.ChunkSize <= 0 {
		return 20
	}
	return c.ChunkSize
}

func (c *Client) chunkDelay() time.Duration {
	if c.ChunkDelay <= 0 {
		return 50 * time.Millisecond
	}
	return c.ChunkDelay
}

func (c *Client) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return 10 * time.Second
	}
	return c.ConnectTimeout
}

// Print connects, streams the payload in chunks, and closes the connection.
func (c *Client) Print(ctx context.Context, payload []byte) error {
	if c == nil || c.Transport == nil {
		return errors.New("printer: transport not configured")
	}
	if len(payload) == 0 {
		return errors.New("printer: empty payload")
	}

	connectCtx, cancel := context.WithTimeout(ctx, c.connectTimeout())
	defer cancel()
	if err := c.Transport.Connect(connectCtx); err != nil {
		return fmt.Errorf("printer: connect: %w", err)
	}
	defer c.Transport.Close()

	size := c.chunkSize()
	delay := c.chunkDelay()
	for offset := 0; offset < len(payload); offset += size {
		end := offset + size
		if end > len(payload) {
			end = len(payload)
		}
		if _, err := c.Transport.Write(ctx, payload[offset:end]); err != nil {
			return fmt.Errorf("printer: write at offset %d: %w", offset, err)
		}
		if end == len(payload) {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// TCPTransport speaks to a network printer, typically port 9100.
type TCPTransport struct {
	Addr string
	conn net.Conn
}

// Connect dials the printer.
func (t *TCPTransport) Connect(ctx context.Context) error {
	if t.Addr == "" {
		return errors.New("printer: address not configured")
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

// Write sends bytes to the open connection.
func (t *TCPTransport) Write(ctx context.Context, p []byte) (int, error) {
	if t.conn == nil {
		return 0, errors.New("printer: not connected")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}
	return t.conn.Write(p)
}

// Close tears the connection down.
func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
