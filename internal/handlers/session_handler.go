package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/ledgerbank/backend/internal/services"
)

type SessionHandler struct {
	sessions  *services.SessionService
	validator *services.ValidationHelper
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		validator: services.NewValidationHelper(),
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	PIN      string `json:"pin" validate:"required,len=4,numeric"`
}

type loginResponse struct {
	Token            string `json:"token"`
	Username         string `json:"username"`
	SecondsRemaining int    `json:"secondsRemaining"`
}

// Login authenticates a username/pin pair and opens a session
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} loginResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/login [post]
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req loginRequest
	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	state, token, err := h.sessions.Login(req.Username, req.PIN)
	if err != nil {
		services.SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		Token:            token,
		Username:         state.Username,
		SecondsRemaining: state.SecondsRemaining,
	})
}

// Logout ends the active session
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// Status reports the active session's remaining time
// @Summary Session status
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SessionState
// @Failure 401 {object} services.ErrorResponse
// @Router /session [get]
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	state := h.sessions.State()
	if state == nil {
		services.SendErrorResponse(w, "No active session", http.StatusUnauthorized, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}
