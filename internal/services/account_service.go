package services

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ledgerbank/backend/internal/models"
)

// AccountService exposes the read accessors the presentation collaborator
// renders from: the computed summary and the movement history in either
// chronological or sorted order. Reads do not extend the session.
type AccountService struct {
	ledger   *LedgerService
	sessions *SessionService
}

func NewAccountService(ledger *LedgerService, sessions *SessionService) *AccountService {
	return &AccountService{
		ledger:   ledger,
		sessions: sessions,
	}
}

// GetSummary returns the computed account view
// @Summary Account summary
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Summary
// @Failure 401 {object} ErrorResponse
// @Router /accounts/summary [get]
func (s *AccountService) GetSummary(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var summary models.Summary
	err := s.sessions.Run(username, func(acc *models.Account, state *models.SessionState) error {
		summary = s.ledger.Summarize(acc, s.sessions.Now(), state.SecondsRemaining)
		return nil
	})
	if err != nil {
		log.Printf("[ACCOUNT] Summary rejected for %s: %v", username, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// GetMovements returns the movement history
// @Summary Movement history
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param sorted query bool false "Ascending numeric order instead of chronological"
// @Success 200 {object} map[string]any
// @Failure 401 {object} ErrorResponse
// @Router /accounts/movements [get]
func (s *AccountService) GetMovements(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	sorted := r.URL.Query().Get("sorted") == "true"

	var view []models.Movement
	err := s.sessions.Run(username, func(acc *models.Account, state *models.SessionState) error {
		if sorted {
			view = s.ledger.SortedView(acc)
		} else {
			view = s.ledger.MovementsView(acc)
		}
		return nil
	})
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"movements": view,
		"sorted":    sorted,
		"count":     len(view),
	})
}
