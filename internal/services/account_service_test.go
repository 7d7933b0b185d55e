package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ledgerbank/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedGet(target, username string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(context.WithValue(req.Context(), "username", username))
}

func TestAccountService_GetSummary(t *testing.T) {
	t.Run("returns the computed view for the active session", func(t *testing.T) {
		f := newOperationFixture(t, testSessionConfig())
		f.login(t, "js", "1111")

		svc := NewAccountService(f.ledger, f.sessions)
		rec := httptest.NewRecorder()
		svc.GetSummary(rec, authedGet("/api/v1/accounts/summary", "js"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var summary models.Summary
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
		assert.Equal(t, "Jonas", summary.WelcomeName)
		assert.InDelta(t, 3840.0, summary.Balance, 1e-9)
		assert.Equal(t, 300, summary.SecondsRemaining)
	})

	t.Run("reads do not extend the countdown", func(t *testing.T) {
		f := newOperationFixture(t, testSessionConfig())
		f.login(t, "js", "1111")

		f.clock.Add(5 * time.Second)
		assert.Eventually(t, func() bool {
			state := f.sessions.State()
			return state != nil && state.SecondsRemaining < 300
		}, time.Second, 5*time.Millisecond)
		before := f.sessions.State().SecondsRemaining

		svc := NewAccountService(f.ledger, f.sessions)
		rec := httptest.NewRecorder()
		svc.GetSummary(rec, authedGet("/api/v1/accounts/summary", "js"))
		require.Equal(t, http.StatusOK, rec.Code)

		state := f.sessions.State()
		require.NotNil(t, state)
		assert.Equal(t, before, state.SecondsRemaining)
	})

	t.Run("without a session returns 401", func(t *testing.T) {
		f := newOperationFixture(t, testSessionConfig())
		svc := NewAccountService(f.ledger, f.sessions)
		rec := httptest.NewRecorder()
		svc.GetSummary(rec, authedGet("/api/v1/accounts/summary", "js"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("without an identity in context returns 401", func(t *testing.T) {
		f := newOperationFixture(t, testSessionConfig())
		svc := NewAccountService(f.ledger, f.sessions)
		rec := httptest.NewRecorder()
		svc.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/summary", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAccountService_GetMovements(t *testing.T) {
	type movementsResponse struct {
		Movements []models.Movement `json:"movements"`
		Sorted    bool              `json:"sorted"`
		Count     int               `json:"count"`
	}

	t.Run("chronological order by default", func(t *testing.T) {
		f := newOperationFixture(t, testSessionConfig())
		f.login(t, "js", "1111")

		svc := NewAccountService(f.ledger, f.sessions)
		rec := httptest.NewRecorder()
		svc.GetMovements(rec, authedGet("/api/v1/accounts/movements", "js"))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp movementsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Sorted)
		assert.Equal(t, 8, resp.Count)

		acc := f.directory.FindByUsername("js")
		for i, m := range resp.Movements {
			assert.Equal(t, acc.Movements[i], m.Amount)
		}
	})

	t.Run("sorted=true returns ascending amounts", func(t *testing.T) {
		f := newOperationFixture(t, testSessionConfig())
		f.login(t, "js", "1111")

		svc := NewAccountService(f.ledger, f.sessions)
		rec := httptest.NewRecorder()
		svc.GetMovements(rec, authedGet("/api/v1/accounts/movements?sorted=true", "js"))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp movementsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Sorted)
		for i := 1; i < len(resp.Movements); i++ {
			assert.LessOrEqual(t, resp.Movements[i-1].Amount, resp.Movements[i].Amount)
		}
	})
}
