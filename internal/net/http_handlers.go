package net

import (
	"encoding/json"
	"io"
	"log"
	nethttp "net/http"
	"strings"
	"time"

	"tableslate/server"
	"tableslate/server/internal/auth"
	"tableslate/server/internal/export"
	"tableslate/server/internal/net/ws"
	"tableslate/server/internal/perms"
	"tableslate/server/internal/scene"
)

type HTTPHandlerConfig struct {
	ClientDir string
	Logger    *log.Logger
	// Authority signs join tokens and authenticates privileged routes.
	// Nil disables authentication everywhere.
	Authority *auth.Authority
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	User  scene.Id   `json:"user"`
	Role  perms.Role `json:"role"`
	Token string     `json:"token,omitempty"`
}

type permsRequest struct {
	User scene.Id   `json:"user"`
	Role perms.Role `json:"role"`
}

// NewHTTPHandler wires the hub's HTTP surface: join, diagnostics, scene
// import and export, role management, and the websocket endpoint.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string             `json:"status"`
			ServerTime int64              `json:"serverTime"`
			Hub        server.Diagnostics `json:"hub"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Hub:        hub.DiagnosticsSnapshot(),
		}
		writeJSON(w, payload)
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var req joinRequest
		if r.Body != nil {
			defer r.Body.Close()
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}
		if req.Name == "" {
			req.Name = "anonymous"
		}

		user, role := hub.Join(r.Context(), req.Name)
		resp := joinResponse{User: user, Role: role}
		if cfg.Authority != nil {
			token, err := cfg.Authority.Issue(user, req.Name, role)
			if err != nil {
				logger.Printf("failed to issue token for user %d: %v", user, err)
				httpError(w, "failed to issue token", nethttp.StatusInternalServerError)
				return
			}
			resp.Token = token
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("/scene", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.Method {
		case nethttp.MethodGet:
			data, err := hub.ExportScene()
			if err != nil {
				httpError(w, "failed to encode", nethttp.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
		case nethttp.MethodPost:
			_, claims, ok := authorize(w, r, cfg.Authority)
			if !ok {
				return
			}
			if claims != nil && claims.Role != perms.RoleOwner {
				httpError(w, "owner role required", nethttp.StatusForbidden)
				return
			}
			defer r.Body.Close()
			data, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
			if err != nil {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
			imported, err := scene.ImportScene(data, scene.NewAllocator())
			if err != nil {
				httpError(w, "invalid scene", nethttp.StatusBadRequest)
				return
			}
			imported.Canon = true
			hub.ReplaceScene(r.Context(), imported)
			w.WriteHeader(nethttp.StatusNoContent)
		default:
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/scene.pdf", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		if err := export.PDF(w, hub.SceneSnapshot()); err != nil {
			logger.Printf("failed to render scene pdf: %v", err)
		}
	})

	mux.HandleFunc("/perms", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		updater, _, ok := authorize(w, r, cfg.Authority)
		if !ok {
			return
		}

		defer r.Body.Close()
		var req permsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		if !hub.SetRole(r.Context(), updater, perms.Event{User: req.User, Role: req.Role}) {
			httpError(w, "not permitted", nethttp.StatusForbidden)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	})

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{
		Logger:    logger,
		Authority: cfg.Authority,
	})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

// authorize parses the Bearer token when an authority is configured. A nil
// authority authorizes everything as the server itself, which only makes
// sense in tests and local single-user setups.
func authorize(w nethttp.ResponseWriter, r *nethttp.Request, authority *auth.Authority) (scene.Id, *auth.Claims, bool) {
	if authority == nil {
		return perms.CanonicalUpdater, nil, true
	}
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		httpError(w, "missing token", nethttp.StatusUnauthorized)
		return 0, nil, false
	}
	user, claims, err := authority.Verify(token)
	if err != nil {
		httpError(w, "invalid token", nethttp.StatusUnauthorized)
		return 0, nil, false
	}
	return user, claims, true
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
