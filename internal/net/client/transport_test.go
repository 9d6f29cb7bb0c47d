package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tableslate/server/internal/net/proto"
)

func TestTransportRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	received := make(chan proto.ClientMessage, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		data, err := proto.EncodeServerEvent(proto.UserID(7))
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			return
		}
		received <- msg
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	transport, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { transport.Close() })

	beat := proto.ClientMessage{Ver: proto.Version, Type: proto.ClientHeartbeat, SentAt: time.Now().UnixMilli()}
	if err := transport.Send(beat); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Type != proto.ClientHeartbeat {
			t.Fatalf("server received %+v, want heartbeat", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received the heartbeat")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		events := transport.Events()
		if len(events) > 0 {
			if events[0].Type != proto.ServerUserID || events[0].UserID != 7 {
				t.Fatalf("inbound event = %+v, want userId 7", events[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("inbound event never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if len(transport.Events()) != 0 {
		t.Fatalf("events were not drained")
	}
}

func TestDialFailure(t *testing.T) {
	if _, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", nil); err == nil {
		t.Fatalf("expected dial to fail")
	}
}
