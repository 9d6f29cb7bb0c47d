package ws

import (
	"log"
	nethttp "net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"tableslate/server"
	"tableslate/server/internal/auth"
	"tableslate/server/internal/net/proto"
	"tableslate/server/internal/scene"
)

type HandlerConfig struct {
	Logger *log.Logger
	// Authority verifies the session token presented in the query
	// string. Nil disables authentication; the endpoint then trusts a
	// plain user query parameter, which is only sane in tests and local
	// single-user setups.
	Authority *auth.Authority
}

// Handler upgrades HTTP requests to websocket sessions and pumps decoded
// client messages into the hub.
type Handler struct {
	hub       *server.Hub
	logger    *log.Logger
	authority *auth.Authority
	upgrader  websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:       hub,
		logger:    logger,
		authority: cfg.Authority,
		upgrader:  upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	userID, ok := h.identify(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for user %d: %v", userID, err)
		return
	}

	sess := newSession(conn)
	sub, ok := h.hub.Subscribe(userID, sess)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown user")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(r.Context(), sub.ID, "read_failed")
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from user %d: %v", userID, err)
			continue
		}

		h.hub.ProcessMessage(r.Context(), sub, msg)
	}
}

func (h *Handler) identify(w nethttp.ResponseWriter, r *nethttp.Request) (scene.Id, bool) {
	if h.authority != nil {
		token := r.URL.Query().Get("token")
		if token == "" {
			nethttp.Error(w, "missing token", nethttp.StatusUnauthorized)
			return 0, false
		}
		id, _, err := h.authority.Verify(token)
		if err != nil {
			nethttp.Error(w, "invalid token", nethttp.StatusUnauthorized)
			return 0, false
		}
		return id, true
	}

	raw := r.URL.Query().Get("user")
	if raw == "" {
		nethttp.Error(w, "missing user", nethttp.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		nethttp.Error(w, "bad user", nethttp.StatusBadRequest)
		return 0, false
	}
	return scene.Id(id), true
}
