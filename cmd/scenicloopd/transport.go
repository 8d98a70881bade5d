package main

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/goccy/go-json"

	"github.com/NERVsystems/scenicloops/pkg/monitoring"
	"github.com/NERVsystems/scenicloops/pkg/session"
)

// connSender implements session.Sender by writing one JSON line per
// message to a TCP connection. The push transport itself is out of
// scope (spec.md §1); this is the minimal concrete harness that makes
// the dispatcher reachable from a real client.
type connSender struct {
	mu   sync.Mutex
	conn net.Conn
	enc  *json.Encoder
}

func newConnSender(conn net.Conn) *connSender {
	return &connSender{conn: conn, enc: json.NewEncoder(conn)}
}

type wireEnvelope struct {
	Tag     string `json:"tag"`
	Payload any    `json:"payload,omitempty"`
}

func (c *connSender) Send(ctx context.Context, tag string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(wireEnvelope{Tag: tag, Payload: payload})
}

// serveConn reads line-delimited JSON commands off conn and feeds them to
// a fresh session bound to dispatcher d, closing the session's inbound
// channel (and so cancelling any active enumeration, per spec.md §5) the
// moment the connection drops.
func serveConn(ctx context.Context, logger *slog.Logger, d *session.Dispatcher, conn net.Conn) {
	defer conn.Close()

	monitoring.UpdateActiveConnections("tcp", "session", 1)
	defer monitoring.UpdateActiveConnections("tcp", "session", 0)

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []byte)
	go func() {
		defer close(in)
		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case in <- line:
			case <-sessCtx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Warn("connection read error", "remote", conn.RemoteAddr(), "error", err)
		}
	}()

	sess := d.NewSession()
	if err := sess.Run(sessCtx, in, newConnSender(conn)); err != nil && sessCtx.Err() == nil {
		logger.Warn("session ended with error", "remote", conn.RemoteAddr(), "error", err)
	}
}

// serve accepts connections on ln until ctx is cancelled, spawning one
// session goroutine per connection.
func serve(ctx context.Context, logger *slog.Logger, d *session.Dispatcher, ln net.Listener) {
	var wg sync.WaitGroup
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn("accept failed", "error", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, logger, d, conn)
		}()
	}
	wg.Wait()
}
