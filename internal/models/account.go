package models

import (
	"strings"
	"time"
)

// Account is the directory-owned record for one ledger account. Movements and
// MovementDates are parallel slices in insertion order; they must stay the same
// length after every mutation. Balance is never stored, it is always derived
// from Movements.
type Account struct {
	Owner         string      `json:"owner"`
	Username      string      `json:"username"`
	PINHash       string      `json:"-"`
	InterestRate  float64     `json:"interest_rate"` // percent, e.g. 1.2
	Currency      string      `json:"currency"`
	Locale        string      `json:"locale"`
	Movements     []float64   `json:"movements"`
	MovementDates []time.Time `json:"movement_dates"`
}

// FirstName returns the leading token of the owner name, used for the
// welcome banner.
func (a *Account) FirstName() string {
	fields := strings.Fields(a.Owner)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Summary is the computed view of an account that the presentation
// collaborator renders after login and after every mutating operation.
type Summary struct {
	Owner            string    `json:"owner"`
	WelcomeName      string    `json:"welcomeName"`
	Username         string    `json:"username"`
	Balance          float64   `json:"balance"`
	TotalDeposits    float64   `json:"totalDeposits"`
	TotalWithdrawals float64   `json:"totalWithdrawals"`
	AccruedInterest  float64   `json:"accruedInterest"`
	Currency         string    `json:"currency"`
	Locale           string    `json:"locale"`
	AsOf             time.Time `json:"asOf"`
	SecondsRemaining int       `json:"secondsRemaining"`
}

// Movement pairs one signed amount with its timestamp for rendering.
// Positive amounts are deposits, negative are withdrawals.
type Movement struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// SessionState is the externally visible snapshot of the active session.
type SessionState struct {
	SessionID        string `json:"sessionId"`
	Username         string `json:"username"`
	SecondsRemaining int    `json:"secondsRemaining"`
}
