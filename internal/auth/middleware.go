package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/logger"
)

// Principal is the fixed HTTP Basic auth username checked against the
// configured shared secret. There is only one caller (the panel), so unlike
// the teacher's multi-tenant Keycloak setup there is nothing to look up,
// only one password to compare.
const Principal = "wings"

// Middleware gates the Control API behind a single shared secret, compared
// in constant time to avoid leaking timing information about the secret.
type Middleware struct {
	secret string
}

// NewMiddleware creates an auth middleware bound to the given shared secret.
func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: secret}
}

// Handler returns the HTTP middleware handler.
//
// Session-multiplexer upgrade requests are let through unchecked: those
// connections start unauthenticated and authenticate via the first frame
// of the duplex protocol instead of an HTTP header.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !m.valid(user, pass) {
			logger.GetLogger(r.Context()).Warn("rejected unauthenticated control API request",
				zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
			m.unauthorized(w)
			return
		}

		id := &Identity{Principal: user}
		next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), id)))
	})
}

// ValidSecret reports whether secret authenticates the session multiplexer's
// handshake frame ({event: "auth", args: [secret]}).
func (m *Middleware) ValidSecret(secret string) bool {
	return subtle.ConstantTimeCompare([]byte(secret), []byte(m.secret)) == 1
}

func (m *Middleware) valid(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(Principal)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(m.secret)) == 1
	return userOK && passOK
}

func isWebSocketUpgrade(r *http.Request) bool {
	connection := strings.ToLower(r.Header.Get("Connection"))
	upgrade := strings.ToLower(r.Header.Get("Upgrade"))
	return strings.Contains(connection, "upgrade") && upgrade == "websocket"
}

func (m *Middleware) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="wings"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
