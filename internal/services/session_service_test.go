package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-redis/redismock/v8"
	"github.com/ledgerbank/backend/internal/config"
	"github.com/ledgerbank/backend/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessionConfig() *config.SessionConfig {
	return &config.SessionConfig{
		Timeout:           300 * time.Second,
		TickInterval:      time.Second,
		LoanApprovalDelay: 1500 * time.Millisecond,
		JWTExpiryHours:    24,
	}
}

func newSessionFixture(t *testing.T, cfg *config.SessionConfig) (*SessionService, *clock.Mock, *AccountDirectory) {
	t.Helper()
	viper.Set("jwt.secret_key", "test-secret")
	mock := clock.NewMock()
	d := NewAccountDirectory()
	require.NoError(t, d.Seed(config.SeedAccounts(), mock.Now()))
	svc := NewSessionService(d, mock, nil, cfg)
	svc.OnTick = func(string, int) {}
	svc.OnEnd = func(string, string) {}
	return svc, mock, d
}

func TestSessionService_Login(t *testing.T) {
	svc, _, _ := newSessionFixture(t, testSessionConfig())

	t.Run("unknown username", func(t *testing.T) {
		_, _, err := svc.Login("nobody", "1111")
		assert.ErrorIs(t, err, ErrAuthFailure)
		assert.Nil(t, svc.State())
	})

	t.Run("wrong pin", func(t *testing.T) {
		_, _, err := svc.Login("js", "9999")
		assert.ErrorIs(t, err, ErrAuthFailure)
		assert.Nil(t, svc.State())
	})

	t.Run("countdown starts at full value", func(t *testing.T) {
		state, token, err := svc.Login("js", "1111")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "js", state.Username)
		assert.Equal(t, 300, state.SecondsRemaining)
	})

	t.Run("new login discards the previous session", func(t *testing.T) {
		first := svc.State()
		require.NotNil(t, first)

		state, _, err := svc.Login("jd", "2222")
		require.NoError(t, err)
		assert.Equal(t, "jd", state.Username)
		assert.NotEqual(t, first.SessionID, state.SessionID)
	})
}

func TestSessionService_CountdownExpiry(t *testing.T) {
	cfg := testSessionConfig()
	cfg.Timeout = 5 * time.Second
	svc, mock, _ := newSessionFixture(t, cfg)

	_, _, err := svc.Login("js", "1111")
	require.NoError(t, err)

	mock.Add(4 * time.Second)
	assert.Eventually(t, func() bool {
		state := svc.State()
		return state != nil && state.SecondsRemaining < 5
	}, time.Second, 5*time.Millisecond)

	mock.Add(5 * time.Second)
	assert.Eventually(t, func() bool {
		return svc.State() == nil
	}, time.Second, 5*time.Millisecond)
}

func TestSessionService_ActivityReset(t *testing.T) {
	svc, mock, _ := newSessionFixture(t, testSessionConfig())

	_, _, err := svc.Login("js", "1111")
	require.NoError(t, err)

	mock.Add(3 * time.Second)
	assert.Eventually(t, func() bool {
		state := svc.State()
		return state != nil && state.SecondsRemaining < 300
	}, time.Second, 5*time.Millisecond)

	err = svc.RunMutating("js", func(acc *models.Account, state *models.SessionState) error {
		return nil
	})
	require.NoError(t, err)

	state := svc.State()
	require.NotNil(t, state)
	assert.Equal(t, 300, state.SecondsRemaining)
}

func TestSessionService_RunRejectsWithoutSession(t *testing.T) {
	svc, _, _ := newSessionFixture(t, testSessionConfig())

	err := svc.Run("js", func(acc *models.Account, state *models.SessionState) error {
		t.Fatal("callback must not run without a session")
		return nil
	})
	assert.ErrorIs(t, err, ErrNoSession)

	_, _, err = svc.Login("jd", "2222")
	require.NoError(t, err)

	// The session belongs to a different account.
	err = svc.Run("js", func(acc *models.Account, state *models.SessionState) error {
		t.Fatal("callback must not run for a foreign session")
		return nil
	})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionService_RunFailureKeepsCountdown(t *testing.T) {
	svc, mock, _ := newSessionFixture(t, testSessionConfig())

	_, _, err := svc.Login("js", "1111")
	require.NoError(t, err)

	mock.Add(2 * time.Second)
	assert.Eventually(t, func() bool {
		state := svc.State()
		return state != nil && state.SecondsRemaining < 300
	}, time.Second, 5*time.Millisecond)
	before := svc.State().SecondsRemaining

	err = svc.RunMutating("js", func(acc *models.Account, state *models.SessionState) error {
		return fmt.Errorf("%w: rejected", ErrValidation)
	})
	assert.ErrorIs(t, err, ErrValidation)

	state := svc.State()
	require.NotNil(t, state)
	assert.Equal(t, before, state.SecondsRemaining)
}

func TestSessionService_SessionEndsWhenAccountRemoved(t *testing.T) {
	svc, _, d := newSessionFixture(t, testSessionConfig())

	_, _, err := svc.Login("ss", "4444")
	require.NoError(t, err)

	d.Remove("ss")

	err = svc.Run("ss", func(acc *models.Account, state *models.SessionState) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, svc.State())
}

func TestSessionService_LogoutBlacklistsToken(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	cfg := testSessionConfig()
	mockClock := clock.NewMock()
	d := NewAccountDirectory()
	require.NoError(t, d.Seed(config.SeedAccounts(), mockClock.Now()))

	client, redisMock := redismock.NewClientMock()
	svc := NewSessionService(d, mockClock, client, cfg)
	svc.OnTick = func(string, int) {}
	svc.OnEnd = func(string, string) {}

	state, _, err := svc.Login("js", "1111")
	require.NoError(t, err)

	key := fmt.Sprintf("blacklist:%s", state.SessionID)
	redisMock.ExpectSet(key, "1", 24*time.Hour).SetVal("OK")

	svc.Logout()
	assert.Nil(t, svc.State())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestSessionService_LogoutWhenLoggedOutIsNoop(t *testing.T) {
	svc, _, _ := newSessionFixture(t, testSessionConfig())
	svc.Logout()
	assert.Nil(t, svc.State())
}
