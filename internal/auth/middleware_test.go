package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware_Handler(t *testing.T) {
	mw := NewMiddleware("correct-secret")
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name           string
		user           string
		pass           string
		withAuth       bool
		expectedStatus int
	}{
		{"valid credentials", Principal, "correct-secret", true, http.StatusOK},
		{"wrong username", "someone-else", "correct-secret", true, http.StatusUnauthorized},
		{"wrong secret", Principal, "wrong-secret", true, http.StatusUnauthorized},
		{"missing header", "", "", false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/instances", nil)
			if tt.withAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestMiddleware_Handler_SkipsWebSocketUpgrade(t *testing.T) {
	mw := NewMiddleware("correct-secret")
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/exec/abc123", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_ValidSecret(t *testing.T) {
	mw := NewMiddleware("correct-secret")

	assert.True(t, mw.ValidSecret("correct-secret"))
	assert.False(t, mw.ValidSecret("wrong-secret"))
	assert.False(t, mw.ValidSecret(""))
}

func TestIdentityContext(t *testing.T) {
	ctx := SetIdentity(context.Background(), &Identity{Principal: Principal})

	id, err := GetIdentity(ctx)
	assert.NoError(t, err)
	assert.Equal(t, Principal, id.Principal)
}

func TestGetIdentity_Unauthenticated(t *testing.T) {
	_, err := GetIdentity(context.Background())
	assert.Error(t, err)
}
