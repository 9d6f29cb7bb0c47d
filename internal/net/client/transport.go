// Package client is the wire transport an interactor plugs into. It keeps
// a websocket to the hub, queues inbound server events, and lets the UI
// thread drain them at its own pace.
package client

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tableslate/server/internal/net/proto"
)

const sendTimeout = 10 * time.Second

// Transport is a live connection to the hub. Safe for one writer and one
// drainer; the read pump runs on its own goroutine.
type Transport struct {
	conn   *websocket.Conn
	logger *log.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	inbound []proto.ServerEvent
	err     error
	closed  bool
}

// Dial connects to the hub's websocket endpoint and starts the read pump.
func Dial(ctx context.Context, url string, logger *log.Logger) (*Transport, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	t := &Transport{conn: conn, logger: logger}
	go t.readPump()
	return t, nil
}

// Send encodes and writes one client message.
func (t *Transport) Send(msg proto.ClientMessage) error {
	data, err := proto.EncodeClientMessage(msg)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Events drains every server event received since the last call.
func (t *Transport) Events() []proto.ServerEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	events := t.inbound
	t.inbound = nil
	return events
}

// Err reports why the read pump stopped, nil while it is still running or
// after a clean Close.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Close tears the connection down. The read pump exits on its own.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return t.conn.Close()
}

func (t *Transport) readPump() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if !t.closed {
				t.err = err
			}
			t.mu.Unlock()
			return
		}
		ev, err := proto.DecodeServerEvent(data)
		if err != nil {
			t.logger.Printf("discarding malformed server event: %v", err)
			continue
		}
		t.mu.Lock()
		t.inbound = append(t.inbound, ev)
		t.mu.Unlock()
	}
}
