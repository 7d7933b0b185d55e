package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	SessionID string    `json:"session_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogTransfer(sessionID, fromUser, toUser string, amount float64, status string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "TRANSFER",
		SessionID: sessionID,
		Username:  fromUser,
		Amount:    amount,
		Status:    status,
		Details:   map[string]string{"recipient": toUser},
	})
}

func (a *Logger) LogLoan(sessionID, username, loanID string, amount float64, status string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "LOAN",
		SessionID: sessionID,
		Username:  username,
		Amount:    amount,
		Status:    status,
		Details:   map[string]string{"loan_id": loanID},
	})
}

func (a *Logger) LogSession(sessionID, username, event string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "SESSION",
		SessionID: sessionID,
		Username:  username,
		Status:    event,
	})
}

func (a *Logger) LogAccountClosed(sessionID, username string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ACCOUNT_CLOSED",
		SessionID: sessionID,
		Username:  username,
		Status:    "SUCCESS",
	})
}

func (a *Logger) LogError(sessionID, username string, err error) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		SessionID: sessionID,
		Username:  username,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
