// Package session implements the full-duplex session multiplexer (spec
// §4.6/§4.7): websocket upgrade, an authentication handshake carried over
// the first frame, and per-connection routing to either an exec session
// (live logs + command injection) or a stats session (periodic resource
// sampling + disk-quota enforcement).
package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/auth"
	"github.com/kswarrior/ks-wings/internal/logger"
	"github.com/kswarrior/ks-wings/internal/pubsub"
	"github.com/kswarrior/ks-wings/internal/runtime"
	"github.com/kswarrior/ks-wings/internal/state"
)

// Frame is the wire shape of every inbound/outbound JSON frame (spec §4.6
// "Frame contract").
type Frame struct {
	Event   string   `json:"event"`
	Args    []string `json:"args,omitempty"`
	Command string   `json:"command,omitempty"`
}

const (
	kindExec  = "exec"
	kindStats = "stats"

	eventAuth         = "auth"
	eventCmd          = "cmd"
	eventPowerStart   = "power:start"
	eventPowerStop    = "power:stop"
	eventPowerRestart = "power:restart"
)

// bannerFrame is sent once authentication succeeds (spec §4.6 "Handshake").
const bannerText = "\r\n[32m[kswings] connected![0m\r\n"

// Server upgrades HTTP connections into session channels. Grounded on the
// teacher's graph.NewServerWithWebSocket Upgrader configuration and
// InitFunc auth-on-first-message pattern, generalized from gqlgen's
// connection_init protocol to this system's own {event,args,command} frames.
type Server struct {
	rt         runtime.Runtime
	store      *state.Store
	auth       *auth.Middleware
	ps         pubsub.PubSub
	volumeRoot string
	upgrad     websocket.Upgrader

	pumpMu sync.Mutex
	pumps  map[string]*logPump
}

// NewServer builds a session Server. volumeRoot must match the root the
// deployment pipeline (C4) materializes volumes under, so volume-size
// measurement (§4.7 step 2) looks in the same place.
func NewServer(rt runtime.Runtime, store *state.Store, authMiddleware *auth.Middleware, ps pubsub.PubSub, volumeRoot string) *Server {
	return &Server{
		rt:         rt,
		store:      store,
		auth:       authMiddleware,
		ps:         ps,
		volumeRoot: volumeRoot,
		upgrad: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pumps: make(map[string]*logPump),
	}
}

// ServeHTTP upgrades the connection, runs the auth handshake, then hands
// off to the exec or stats session loop for containerId/volumeId encoded in
// the URL (spec §4.6 "/<kind>/<container_id>/<volume_id?>").
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	containerID := chi.URLParam(r, "containerId")
	volumeID := chi.URLParam(r, "volumeId")
	log := logger.GetLogger(r.Context())

	conn, err := s.upgrad.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("session upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if kind != kindExec && kind != kindStats {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseProtocolError, "Unsupported session kind"))
		return
	}
	if containerID == "" {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Container ID not specified"))
		return
	}

	if !s.authenticate(conn) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Authentication failed"))
		return
	}
	conn.WriteMessage(websocket.TextMessage, []byte(bannerText))

	ctx, cancel := context.WithCancel(logger.WithComponent(r.Context(), "session"))
	defer cancel()

	switch kind {
	case kindExec:
		s.runExecSession(ctx, conn, containerID)
	case kindStats:
		s.runStatsSession(ctx, conn, containerID, volumeID)
	}
}

// authenticate reads the first frame and validates it as an auth frame
// against the configured shared secret (spec §4.6 "Handshake"). Any first
// frame other than a valid auth frame fails the handshake.
func (s *Server) authenticate(conn *websocket.Conn) bool {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return false
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		conn.WriteMessage(websocket.TextMessage, []byte("Invalid JSON"))
		return false
	}
	if frame.Event != eventAuth || len(frame.Args) == 0 {
		return false
	}
	return s.auth.ValidSecret(frame.Args[0])
}
