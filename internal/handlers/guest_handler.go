package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"weddingrsvp/internal/models"
	"weddingrsvp/internal/service"
)

// GuestHandler serves the authenticated guest endpoints.
type GuestHandler struct {
	rsvpService *service.RSVPService
}

func NewGuestHandler(rsvpService *service.RSVPService) *GuestHandler {
	return &GuestHandler{rsvpService: rsvpService}
}

// Me returns the authenticated guest's profile and current response.
func (h *GuestHandler) Me(w http.ResponseWriter, r *http.Request) {
	guest := GuestFromContext(r.Context())
	if guest == nil {
		respondAuthFailure(w)
		return
	}
	respondJSON(w, http.StatusOK, newGuestProfile(guest))
}

type rsvpRequest struct {
	Attending          *bool              `json:"attending"`
	NumAdults          int                `json:"num_adults"`
	NumChildren        int                `json:"num_children"`
	MenuChoice         string             `json:"menu_choice,omitempty"`
	Allergies          string             `json:"allergies,omitempty"`
	Notes              string             `json:"notes,omitempty"`
	NeedsAccommodation bool               `json:"needs_accommodation"`
	NeedsTransport     bool               `json:"needs_transport"`
	Companions         []companionRequest `json:"companions,omitempty"`
	Language           string             `json:"language,omitempty"`
}

type companionRequest struct {
	Name       string `json:"name"`
	IsChild    bool   `json:"is_child"`
	MenuChoice string `json:"menu_choice,omitempty"`
	Allergies  string `json:"allergies,omitempty"`
}

// SubmitRSVP records or revises the guest's response. Unlike the login
// endpoints, validation failures here are specific: the caller is already
// authenticated.
func (h *GuestHandler) SubmitRSVP(w http.ResponseWriter, r *http.Request) {
	guest := GuestFromContext(r.Context())
	if guest == nil {
		respondAuthFailure(w)
		return
	}

	var req rsvpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Attending == nil {
		respondError(w, http.StatusBadRequest, "attending is required")
		return
	}

	companions := make([]models.Companion, 0, len(req.Companions))
	for _, c := range req.Companions {
		companions = append(companions, models.Companion{
			Name:       c.Name,
			IsChild:    c.IsChild,
			MenuChoice: c.MenuChoice,
			Allergies:  c.Allergies,
		})
	}

	updated, err := h.rsvpService.Submit(r.Context(), guest, service.RSVPSubmission{
		Attending:          *req.Attending,
		NumAdults:          req.NumAdults,
		NumChildren:        req.NumChildren,
		MenuChoice:         req.MenuChoice,
		Allergies:          req.Allergies,
		Notes:              req.Notes,
		NeedsAccommodation: req.NeedsAccommodation,
		NeedsTransport:     req.NeedsTransport,
		Companions:         companions,
		Language:           req.Language,
		AcceptLanguage:     r.Header.Get("Accept-Language"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeadlinePassed):
			respondError(w, http.StatusConflict, "The response deadline has passed.")
		case errors.Is(err, service.ErrCapacityExceeded):
			respondError(w, http.StatusBadRequest, "Your party size exceeds your invitation's allowance.")
		case errors.Is(err, service.ErrMenuRequired):
			respondError(w, http.StatusBadRequest, "Please choose a menu for your invitation.")
		case errors.Is(err, service.ErrNegativeCounts), errors.Is(err, service.ErrCompanionNameRequired):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Str("guest_code", guest.GuestCode).Msg("rsvp submission failed")
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, newGuestProfile(updated))
}
