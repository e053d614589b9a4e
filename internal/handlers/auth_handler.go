package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"weddingrsvp/internal/service"
)

// genericSentMessage acknowledges recovery and access requests without
// revealing whether anything was sent.
const genericSentMessage = "If your details match our guest list, an email is on its way."

// AuthHandler serves the guest sign-in endpoints.
type AuthHandler struct {
	authService *service.AuthService
	// Retry-After hints per throttled endpoint, from the rate-limit windows.
	loginRetry   time.Duration
	recoverRetry time.Duration
	requestRetry time.Duration
}

func NewAuthHandler(authService *service.AuthService, loginWindow, recoverWindow, requestWindow time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginRetry:   loginWindow,
		recoverRetry: recoverWindow,
		requestRetry: requestWindow,
	}
}

type loginRequest struct {
	Code    string `json:"code"`
	Contact string `json:"contact"`
}

type sessionResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	Guest       *guestProfile `json:"guest"`
}

// Login authenticates by invitation code plus contact address.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tok, guest, err := h.authService.Login(r.Context(), req.Code, req.Contact)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			respondRateLimited(w, int(h.loginRetry.Seconds()))
		case errors.Is(err, service.ErrNotRecognized):
			respondAuthFailure(w)
		default:
			log.Error().Err(err).Msg("login failed")
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{
		AccessToken: tok,
		TokenType:   "bearer",
		Guest:       newGuestProfile(guest),
	})
}

type recoverRequest struct {
	Identifier string `json:"identifier"`
	Language   string `json:"language,omitempty"`
}

// RecoverCode emails a guest their invitation code, looked up by email or
// phone. The response is the same whether or not anyone matched.
func (h *AuthHandler) RecoverCode(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.authService.RecoverCode(r.Context(), req.Identifier, req.Language, r.Header.Get("Accept-Language"))
	if err != nil {
		if errors.Is(err, service.ErrRateLimited) {
			respondRateLimited(w, int(h.recoverRetry.Seconds()))
			return
		}
		// Unmatched, contactless and delivery failures all get the same
		// acknowledgement; only the log knows the difference.
		if !errors.Is(err, service.ErrNotRecognized) && !errors.Is(err, service.ErrNoContact) {
			log.Error().Err(err).Msg("code recovery failed")
		}
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"message": genericSentMessage})
}

type requestAccessRequest struct {
	FullName   string `json:"full_name"`
	PhoneLast4 string `json:"phone_last4"`
	Email      string `json:"email,omitempty"`
	Language   string `json:"language,omitempty"`
}

// RequestAccess emails a magic link (or the invitation code, depending on
// configuration) to the guest matching the name and phone tail.
func (h *AuthHandler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var req requestAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.authService.RequestAccess(r.Context(), req.FullName, req.PhoneLast4, req.Email, req.Language, r.Header.Get("Accept-Language"))
	if err != nil {
		if errors.Is(err, service.ErrRateLimited) {
			respondRateLimited(w, int(h.requestRetry.Seconds()))
			return
		}
		if !errors.Is(err, service.ErrNotRecognized) && !errors.Is(err, service.ErrNoContact) {
			log.Error().Err(err).Msg("access request failed")
		}
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"message": genericSentMessage})
}

type magicLoginRequest struct {
	Token string `json:"token"`
}

// MagicLogin exchanges a one-time link token for a session.
func (h *AuthHandler) MagicLogin(w http.ResponseWriter, r *http.Request) {
	var req magicLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tok, guest, err := h.authService.MagicLogin(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExpired):
			respondError(w, http.StatusUnauthorized, "This link has expired. Request a new one to sign in.")
		case errors.Is(err, service.ErrAlreadyUsed):
			respondError(w, http.StatusUnauthorized, "This link has already been used. Request a new one to sign in.")
		case errors.Is(err, service.ErrNotRecognized):
			respondAuthFailure(w)
		default:
			log.Error().Err(err).Msg("magic login failed")
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{
		AccessToken: tok,
		TokenType:   "bearer",
		Guest:       newGuestProfile(guest),
	})
}
