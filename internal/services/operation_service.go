package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"

	"github.com/ledgerbank/backend/internal/audit"
	"github.com/ledgerbank/backend/internal/config"
	"github.com/ledgerbank/backend/internal/models"
)

// OperationService validates and applies the mutating operations: transfers
// between two accounts, loan requests with deferred approval, and account
// closure. Every operation is all-or-nothing; a rejection leaves both parties
// untouched.
type OperationService struct {
	directory *AccountDirectory
	ledger    *LedgerService
	sessions  *SessionService
	audit     *audit.Logger
	validator *ValidationHelper
	cfg       *config.SessionConfig
}

func NewOperationService(directory *AccountDirectory, ledger *LedgerService, sessions *SessionService, cfg *config.SessionConfig) *OperationService {
	return &OperationService{
		directory: directory,
		ledger:    ledger,
		sessions:  sessions,
		audit:     audit.NewLogger(),
		validator: NewValidationHelper(),
		cfg:       cfg,
	}
}

// Transfer moves amount from the session's account to the recipient. Both legs
// are recorded with the same instant, and the countdown reset is applied in
// the same critical section as the mutation.
func (o *OperationService) Transfer(username, recipientUsername string, amount float64) error {
	return o.sessions.RunMutating(username, func(sender *models.Account, state *models.SessionState) error {
		if amount <= 0 {
			return fmt.Errorf("%w: transfer amount must be positive", ErrValidation)
		}
		recipient := o.directory.FindByUsername(recipientUsername)
		if recipient == nil {
			return fmt.Errorf("%w: unknown recipient %q", ErrValidation, recipientUsername)
		}
		if recipient.Username == sender.Username {
			return fmt.Errorf("%w: cannot transfer to own account", ErrValidation)
		}
		if amount > o.ledger.Balance(sender) {
			return fmt.Errorf("%w: amount exceeds balance", ErrValidation)
		}

		now := o.sessions.Now()
		o.ledger.RecordMovement(sender, -amount, now)
		o.ledger.RecordMovement(recipient, amount, now)
		o.audit.LogTransfer(state.SessionID, sender.Username, recipient.Username, amount, "SUCCESS")
		return nil
	})
}

// RequestLoan applies the creditworthiness heuristic and, when it passes,
// schedules the approval to complete after the configured delay. The deposit
// lands only if the same session is still active when the delay elapses; the
// request itself does not extend the session.
func (o *OperationService) RequestLoan(username string, requested float64) (string, error) {
	// Raw form amounts are rounded to the nearest whole unit before
	// validation.
	amount := math.Round(requested)

	err := o.sessions.Run(username, func(acc *models.Account, state *models.SessionState) error {
		if amount <= 0 {
			return fmt.Errorf("%w: loan amount must be positive", ErrValidation)
		}
		if !hasQualifyingMovement(acc, amount) {
			return fmt.Errorf("%w: no prior movement covers 10%% of the requested loan", ErrValidation)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	loanID, err := o.sessions.ScheduleForSession(username, o.cfg.LoanApprovalDelay, func(acc *models.Account) error {
		o.ledger.RecordMovement(acc, amount, o.sessions.Now())
		log.Printf("[LOAN] Approved %.2f for %s", amount, acc.Username)
		return nil
	})
	if err != nil {
		return "", err
	}

	state := o.sessions.State()
	if state != nil {
		o.audit.LogLoan(state.SessionID, username, loanID, amount, "REQUESTED")
	}
	return loanID, nil
}

// hasQualifyingMovement reports whether any existing movement is at least 10%
// of the requested amount.
func hasQualifyingMovement(acc *models.Account, amount float64) bool {
	for _, mov := range acc.Movements {
		if mov >= amount*0.1 {
			return true
		}
	}
	return false
}

// CloseAccount removes the session's account after the submitted username and
// pin both match it exactly, then terminates the session.
func (o *OperationService) CloseAccount(sessionUser, username, pin string) error {
	return o.sessions.CloseAccount(sessionUser, func(acc *models.Account) error {
		if username != acc.Username || !o.directory.VerifyPIN(acc, pin) {
			return ErrAuthFailure
		}
		return nil
	})
}

// HTTP surface. The handlers only extract form values and map errors; all
// rules live in the operation methods above.

type transferRequest struct {
	To     string  `json:"to" validate:"required"`
	Amount float64 `json:"amount" validate:"required"`
}

type loanRequest struct {
	Amount float64 `json:"amount" validate:"required"`
}

type closeAccountRequest struct {
	Username string `json:"username" validate:"required"`
	PIN      string `json:"pin" validate:"required,len=4,numeric"`
}

// HandleTransfer processes a transfer form submission
// @Summary Transfer to another account
// @Tags operations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body transferRequest true "Transfer details"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /transactions/transfer [post]
func (o *OperationService) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req transferRequest
	if !o.decode(w, r, &req) {
		return
	}

	if err := o.Transfer(username, req.To, req.Amount); err != nil {
		log.Printf("[TRANSFER] Rejected for %s: %v", username, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[TRANSFER] %s -> %s: %.2f", username, req.To, req.Amount)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// HandleLoanRequest processes a loan form submission
// @Summary Request a loan
// @Tags operations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body loanRequest true "Loan details"
// @Success 202 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /loans [post]
func (o *OperationService) HandleLoanRequest(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req loanRequest
	if !o.decode(w, r, &req) {
		return
	}

	loanID, err := o.RequestLoan(username, req.Amount)
	if err != nil {
		log.Printf("[LOAN] Rejected for %s: %v", username, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[LOAN] Request %s accepted for %s", loanID, username)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"loanId":  loanID,
		"status":  "PENDING",
	})
}

// HandleCloseAccount processes an account closure form submission
// @Summary Close the authenticated account
// @Tags operations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body closeAccountRequest true "Closure confirmation"
// @Success 200 {object} map[string]any
// @Failure 401 {object} ErrorResponse
// @Router /accounts/close [post]
func (o *OperationService) HandleCloseAccount(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req closeAccountRequest
	if !o.decode(w, r, &req) {
		return
	}

	if err := o.CloseAccount(username, req.Username, req.PIN); err != nil {
		log.Printf("[CLOSE] Rejected for %s: %v", username, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[CLOSE] Account %s closed", username)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (o *OperationService) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	if err := o.validator.ValidateStruct(dst); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func usernameFromContext(r *http.Request) (string, bool) {
	username, ok := r.Context().Value("username").(string)
	return username, ok && username != ""
}
