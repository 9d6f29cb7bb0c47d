package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tableslate/server/internal/net/proto"
)

const writeTimeout = 10 * time.Second

// session adapts one websocket connection to the hub's sink contract.
// Writes are serialised; the hub may push from several goroutines at once.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newSession(conn *websocket.Conn) *session {
	return &session{conn: conn}
}

func (s *session) Send(ev proto.ServerEvent) error {
	data, err := proto.EncodeServerEvent(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) Close() error {
	return s.conn.Close()
}
