package publish

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"
)

// freePort returns a local TCP port that nothing is listening on.
func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// serveConnack accepts MQTT clients on ln, acknowledges their CONNECT and
// discards everything after it.
func serveConnack(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			r := bufio.NewReader(c)
			if err := readPacket(r); err != nil {
				return
			}
			if _, err := c.Write([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
				return
			}
			_, _ = io.Copy(io.Discard, r)
		}(conn)
	}
}

// readPacket consumes one MQTT control packet.
func readPacket(r *bufio.Reader) error {
	if _, err := r.ReadByte(); err != nil {
		return err
	}
	var (
		length     int
		multiplier = 1
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		length += int(b&0x7f) * multiplier
		if b&0x80 == 0 {
			break
		}
		multiplier *= 128
		if multiplier > 128*128*128 {
			return errors.New("malformed remaining length")
		}
	}
	_, err := io.CopyN(io.Discard, r, int64(length))
	return err
}

func TestConnectKeepsRetryingAfterStartupTimeout(t *testing.T) {
	t.Parallel()

	port := freePort(t)
	p := NewMQTTPublisher(MQTTConfig{
		Broker:        "127.0.0.1",
		Port:          port,
		Topic:         "weather/readings",
		ClientID:      "retry-test",
		RetryInterval: 100 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(p.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	err := p.Connect(ctx)
	cancel()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect err=%v want deadline exceeded", err)
	}
	if p.Connected() {
		t.Fatal("connected without a broker")
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Skipf("port %d taken before the broker could start: %v", port, err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go serveConnack(ln)

	deadline := time.Now().Add(5 * time.Second)
	for !p.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("publisher did not connect after the broker came up")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
