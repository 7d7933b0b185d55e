package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ledgerbank/backend/internal/audit"
	"github.com/ledgerbank/backend/internal/config"
	"github.com/ledgerbank/backend/internal/models"
	"github.com/spf13/viper"
)

// session is the transient record created on login and destroyed on timeout,
// logout or account closure. At most one exists at a time.
type session struct {
	id         string
	username   string
	remaining  int
	ticker     *clock.Ticker
	done       chan struct{}
	loanTimers map[string]*clock.Timer
}

// SessionService sequences the session lifecycle: login, countdown ticks,
// activity resets, timeout and logout. Its mutex serializes ticks and mutating
// operations, so a tick can never expire the session between "operation
// validated" and "countdown reset".
type SessionService struct {
	mu        sync.Mutex
	directory *AccountDirectory
	clk       clock.Clock
	redis     *redis.Client
	audit     *audit.Logger
	cfg       *config.SessionConfig

	sess *session

	// OnTick re-renders the remaining time each second; OnEnd signals the
	// presentation collaborator to drop the authenticated view. Both default
	// to log output.
	OnTick func(username string, remaining int)
	OnEnd  func(username, reason string)
}

func NewSessionService(directory *AccountDirectory, clk clock.Clock, redisClient *redis.Client, cfg *config.SessionConfig) *SessionService {
	s := &SessionService{
		directory: directory,
		clk:       clk,
		redis:     redisClient,
		audit:     audit.NewLogger(),
		cfg:       cfg,
	}
	s.OnTick = func(username string, remaining int) {
		log.Printf("[SESSION] %s %02d:%02d remaining", username, remaining/60, remaining%60)
	}
	s.OnEnd = func(username, reason string) {
		log.Printf("[SESSION] Ended for %s: %s", username, reason)
	}
	return s
}

// Login authenticates a username/pin pair. On success any previous session and
// its timer are discarded, a fresh countdown starts and a signed session token
// is returned. On failure state is unchanged; there is no lockout.
func (s *SessionService) Login(username, pin string) (*models.SessionState, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.directory.FindByUsername(username)
	if acc == nil || !s.directory.VerifyPIN(acc, pin) {
		log.Printf("[AUTH] Login failed for username: %s", username)
		return nil, "", ErrAuthFailure
	}

	if s.sess != nil {
		s.endSessionLocked("superseded by new login")
	}

	sess := &session{
		id:         uuid.NewString(),
		username:   acc.Username,
		remaining:  s.cfg.TimeoutSeconds(),
		done:       make(chan struct{}),
		loanTimers: make(map[string]*clock.Timer),
	}
	sess.ticker = s.clk.Ticker(s.cfg.TickInterval)
	s.sess = sess
	go s.run(sess)

	token, err := s.generateToken(sess)
	if err != nil {
		s.endSessionLocked("token generation failed")
		return nil, "", fmt.Errorf("generating session token: %w", err)
	}

	s.audit.LogSession(sess.id, sess.username, "LOGIN")
	log.Printf("[AUTH] Login successful for %s, session %s", sess.username, sess.id)
	return s.stateLocked(), token, nil
}

// Logout ends the active session explicitly. Ending an already ended session
// is a no-op.
func (s *SessionService) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return
	}
	s.endSessionLocked("logout")
}

// State returns a snapshot of the active session, or nil when logged out.
func (s *SessionService) State() *models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Run resolves the session's account through the directory and executes fn
// under the session lock without resetting the countdown. Reads use this path.
func (s *SessionService) Run(username string, fn func(acc *models.Account, state *models.SessionState) error) error {
	return s.execute(username, false, fn)
}

// RunMutating is Run for mutating operations: on success the countdown resets
// to its full value, atomically with respect to the tick.
func (s *SessionService) RunMutating(username string, fn func(acc *models.Account, state *models.SessionState) error) error {
	return s.execute(username, true, fn)
}

func (s *SessionService) execute(username string, resetOnSuccess bool, fn func(acc *models.Account, state *models.SessionState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil || s.sess.username != username {
		return ErrNoSession
	}
	// Re-resolve on every use: the account may have been removed while the
	// session referenced it.
	acc := s.directory.FindByUsername(username)
	if acc == nil {
		s.endSessionLocked("account removed")
		return ErrNotFound
	}
	if err := fn(acc, s.stateLocked()); err != nil {
		return err
	}
	if resetOnSuccess {
		s.resetCountdownLocked()
	}
	return nil
}

// ScheduleForSession registers a one-shot deferred task keyed to the current
// session. When the delay elapses the task runs under the session lock with
// the account re-resolved, but only if that same session is still active;
// otherwise the completion is discarded. On success the countdown resets.
// Overlapping tasks are permitted and cancelled independently.
func (s *SessionService) ScheduleForSession(username string, delay time.Duration, apply func(acc *models.Account) error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil || s.sess.username != username {
		return "", ErrNoSession
	}

	sess := s.sess
	taskID := uuid.NewString()
	timer := s.clk.AfterFunc(delay, func() {
		s.completeScheduled(sess, taskID, apply)
	})
	sess.loanTimers[taskID] = timer
	return taskID, nil
}

func (s *SessionService) completeScheduled(sess *session, taskID string, apply func(acc *models.Account) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The session ended before the delay elapsed: no phantom deposit.
	if s.sess != sess {
		return
	}
	delete(sess.loanTimers, taskID)

	acc := s.directory.FindByUsername(sess.username)
	if acc == nil {
		s.endSessionLocked("account removed")
		return
	}
	if err := apply(acc); err != nil {
		s.audit.LogError(sess.id, sess.username, err)
		return
	}
	s.resetCountdownLocked()
}

// CloseAccount verifies the caller against the active session's account,
// removes the account from the directory and terminates the session. Not
// reversible.
func (s *SessionService) CloseAccount(username string, verify func(acc *models.Account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil || s.sess.username != username {
		return ErrNoSession
	}
	acc := s.directory.FindByUsername(username)
	if acc == nil {
		s.endSessionLocked("account removed")
		return ErrNotFound
	}
	if err := verify(acc); err != nil {
		return err
	}

	s.directory.Remove(username)
	s.audit.LogAccountClosed(s.sess.id, username)
	s.endSessionLocked("account closed")
	return nil
}

// run drains the countdown ticker until the session ends.
func (s *SessionService) run(sess *session) {
	for {
		select {
		case <-sess.done:
			return
		case <-sess.ticker.C:
			s.tick(sess)
		}
	}
}

func (s *SessionService) tick(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A stale tick can arrive after the session was replaced or ended.
	if s.sess != sess {
		return
	}
	sess.remaining--
	if s.OnTick != nil {
		s.OnTick(sess.username, sess.remaining)
	}
	if sess.remaining <= 0 {
		s.endSessionLocked("inactivity timeout")
	}
}

// resetCountdownLocked restores the countdown to its full value. It is the
// sole session-extension mechanism and is invoked only by mutating operations.
func (s *SessionService) resetCountdownLocked() {
	s.sess.remaining = s.cfg.TimeoutSeconds()
}

func (s *SessionService) endSessionLocked(reason string) {
	sess := s.sess
	sess.ticker.Stop()
	close(sess.done)
	for taskID, timer := range sess.loanTimers {
		if timer.Stop() {
			s.audit.LogLoan(sess.id, sess.username, taskID, 0, "CANCELLED")
		}
		delete(sess.loanTimers, taskID)
	}
	s.sess = nil

	s.blacklistToken(sess.id)
	s.audit.LogSession(sess.id, sess.username, "END")
	if s.OnEnd != nil {
		s.OnEnd(sess.username, reason)
	}
}

// blacklistToken voids the session's token for its remaining JWT lifetime.
// Redis is optional; without it the middleware's active-session check alone
// rejects stale tokens.
func (s *SessionService) blacklistToken(sessionID string) {
	if s.redis == nil {
		return
	}
	ctx := context.Background()
	key := fmt.Sprintf("blacklist:%s", sessionID)
	expiry := time.Duration(s.cfg.JWTExpiryHours) * time.Hour
	if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
		log.Printf("[SESSION] Failed to blacklist session token: %v", err)
	}
}

func (s *SessionService) stateLocked() *models.SessionState {
	if s.sess == nil {
		return nil
	}
	return &models.SessionState{
		SessionID:        s.sess.id,
		Username:         s.sess.username,
		SecondsRemaining: s.sess.remaining,
	}
}

func (s *SessionService) generateToken(sess *session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sess.username,
		"sid": sess.id,
		"exp": s.clk.Now().Add(time.Duration(s.cfg.JWTExpiryHours) * time.Hour).Unix(),
	})
	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// Now exposes the injected clock for collaborators that timestamp movements.
func (s *SessionService) Now() time.Time {
	return s.clk.Now()
}
