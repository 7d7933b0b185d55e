package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ledgerbank/backend/internal/config"
	"github.com/ledgerbank/backend/internal/services"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *SessionHandler {
	t.Helper()
	viper.Set("jwt.secret_key", "test-secret")
	cfg := &config.SessionConfig{
		Timeout:           300 * time.Second,
		TickInterval:      time.Second,
		LoanApprovalDelay: 1500 * time.Millisecond,
		JWTExpiryHours:    24,
	}
	mock := clock.NewMock()
	d := services.NewAccountDirectory()
	require.NoError(t, d.Seed(config.SeedAccounts(), mock.Now()))
	sessions := services.NewSessionService(d, mock, nil, cfg)
	sessions.OnTick = func(string, int) {}
	sessions.OnEnd = func(string, string) {}
	return NewSessionHandler(sessions)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSessionHandler_Login(t *testing.T) {
	t.Run("valid credentials return a token and countdown", func(t *testing.T) {
		h := newTestHandler(t)
		rec := postJSON(t, h.Login, map[string]string{"username": "js", "pin": "1111"})

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp loginResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "js", resp.Username)
		assert.Equal(t, 300, resp.SecondsRemaining)
	})

	t.Run("wrong pin returns 401", func(t *testing.T) {
		h := newTestHandler(t)
		rec := postJSON(t, h.Login, map[string]string{"username": "js", "pin": "9999"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown username returns 401", func(t *testing.T) {
		h := newTestHandler(t)
		rec := postJSON(t, h.Login, map[string]string{"username": "ghost", "pin": "1111"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed pin fails validation", func(t *testing.T) {
		h := newTestHandler(t)

		tests := []struct {
			name string
			pin  string
		}{
			{"too short", "11"},
			{"non-numeric", "abcd"},
			{"missing", ""},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := postJSON(t, h.Login, map[string]string{"username": "js", "pin": tt.pin})
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})
		}
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		h := newTestHandler(t)
		rec := postJSON(t, h.Login, map[string]string{"username": "js", "pin": "1111", "extra": "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid JSON is rejected", func(t *testing.T) {
		h := newTestHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessionHandler_Logout(t *testing.T) {
	h := newTestHandler(t)
	rec := postJSON(t, h.Login, map[string]string{"username": "jd", "pin": "2222"})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	out := httptest.NewRecorder()
	h.Logout(out, req)
	assert.Equal(t, http.StatusOK, out.Code)

	statusReq := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	statusRec := httptest.NewRecorder()
	h.Status(statusRec, statusReq)
	assert.Equal(t, http.StatusUnauthorized, statusRec.Code)
}

func TestSessionHandler_Status(t *testing.T) {
	t.Run("active session reports remaining seconds", func(t *testing.T) {
		h := newTestHandler(t)
		rec := postJSON(t, h.Login, map[string]string{"username": "stw", "pin": "3333"})
		require.Equal(t, http.StatusOK, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
		out := httptest.NewRecorder()
		h.Status(out, req)

		assert.Equal(t, http.StatusOK, out.Code)
		var state struct {
			Username         string `json:"username"`
			SecondsRemaining int    `json:"secondsRemaining"`
		}
		require.NoError(t, json.NewDecoder(out.Body).Decode(&state))
		assert.Equal(t, "stw", state.Username)
		assert.Equal(t, 300, state.SecondsRemaining)
	})

	t.Run("no session returns 401", func(t *testing.T) {
		h := newTestHandler(t)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
		out := httptest.NewRecorder()
		h.Status(out, req)
		assert.Equal(t, http.StatusUnauthorized, out.Code)
	})
}
