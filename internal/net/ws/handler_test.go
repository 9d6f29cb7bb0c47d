package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tableslate/server"
	"tableslate/server/internal/auth"
	"tableslate/server/internal/net/proto"
	"tableslate/server/internal/perms"
	"tableslate/server/internal/scene"
)

func websocketURL(t *testing.T, base string, query url.Values) string {
	t.Helper()
	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.RawQuery = query.Encode()
	return u.String()
}

func dial(t *testing.T, rawURL string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(rawURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) proto.ServerEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	ev, err := proto.DecodeServerEvent(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return ev
}

func TestHandlePrimesAndAcksOverWire(t *testing.T) {
	hub := server.NewHub(server.DefaultConfig(), nil)
	userID, _ := hub.Join(context.Background(), "alice")

	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	query := url.Values{"user": []string{strconv.FormatInt(int64(userID), 10)}}
	conn := dial(t, websocketURL(t, srv.URL, query))

	if ev := readEvent(t, conn); ev.Type != proto.ServerUserID || ev.UserID != userID {
		t.Fatalf("first event = %+v, want userId %d", ev, userID)
	}
	change := readEvent(t, conn)
	if change.Type != proto.ServerSceneChange || change.Scene == nil {
		t.Fatalf("second event = %+v, want scene change", change)
	}
	if ev := readEvent(t, conn); ev.Type != proto.ServerPermsChange {
		t.Fatalf("third event = %+v, want perms change", ev)
	}

	client := change.Scene.NonCanon()
	client.RefreshLocalIDs(scene.NewAllocator())
	update := client.NewLayer("props", 5)
	data, err := proto.EncodeClientMessage(proto.Update(1, update, time.Now().UnixMilli()))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	approval := readEvent(t, conn)
	if approval.Type != proto.ServerApproval || approval.ID != 1 {
		t.Fatalf("expected approval for request 1, got %+v", approval)
	}
	if approval.Ack == nil || approval.Ack.Kind != scene.AckLayerNew {
		t.Fatalf("approval ack = %+v", approval.Ack)
	}
}

func TestHandleAnswersHeartbeat(t *testing.T) {
	hub := server.NewHub(server.DefaultConfig(), nil)
	userID, _ := hub.Join(context.Background(), "alice")

	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	query := url.Values{"user": []string{strconv.FormatInt(int64(userID), 10)}}
	conn := dial(t, websocketURL(t, srv.URL, query))

	for i := 0; i < 3; i++ {
		readEvent(t, conn)
	}

	beat := proto.ClientMessage{Ver: proto.Version, Type: proto.ClientHeartbeat, SentAt: time.Now().UnixMilli()}
	data, err := proto.EncodeClientMessage(beat)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	echo := readEvent(t, conn)
	if echo.Type != proto.ServerHeartbeat || echo.ServerTime == 0 {
		t.Fatalf("heartbeat echo = %+v", echo)
	}
}

func TestHandleRejectsUnknownUser(t *testing.T) {
	hub := server.NewHub(server.DefaultConfig(), nil)

	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	query := url.Values{"user": []string{"99"}}
	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, query), nil)
	if err == nil {
		// Upgrade succeeds; the policy violation close arrives on read.
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Fatalf("expected close for unknown user")
		}
		conn.Close()
		return
	}
	if resp != nil {
		resp.Body.Close()
	}
}

func TestHandleRequiresValidToken(t *testing.T) {
	hub := server.NewHub(server.DefaultConfig(), nil)
	userID, role := hub.Join(context.Background(), "alice")

	authority := auth.New([]byte("table-secret"), time.Hour)
	handler := NewHandler(hub, HandlerConfig{Authority: authority})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	t.Run("missing token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, url.Values{}), nil)
		if err == nil {
			t.Fatalf("dial succeeded without a token")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("response = %+v, want 401", resp)
		}
		resp.Body.Close()
	})

	t.Run("valid token", func(t *testing.T) {
		if role != perms.RoleOwner {
			t.Fatalf("first user role = %s, want owner", role)
		}
		token, err := authority.Issue(userID, "alice", role)
		if err != nil {
			t.Fatalf("issue failed: %v", err)
		}
		conn := dial(t, websocketURL(t, srv.URL, url.Values{"token": []string{token}}))
		if ev := readEvent(t, conn); ev.Type != proto.ServerUserID || ev.UserID != userID {
			t.Fatalf("first event = %+v, want userId %d", ev, userID)
		}
	})
}
