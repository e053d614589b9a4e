package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"weddingrsvp/internal/service"
)

// AdminHandler serves the API-key-guarded admin endpoints.
type AdminHandler struct {
	importService *service.ImportService
}

func NewAdminHandler(importService *service.ImportService) *AdminHandler {
	return &AdminHandler{importService: importService}
}

type importRequest struct {
	Guests []service.ImportRecord `json:"guests"`
}

// ImportGuests loads a guest-list batch. Bad rows are reported per row;
// the rest of the batch still applies.
func (h *AdminHandler) ImportGuests(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Guests) == 0 {
		respondError(w, http.StatusBadRequest, "guests list is empty")
		return
	}

	report, err := h.importService.Import(r.Context(), req.Guests)
	if err != nil {
		log.Error().Err(err).Msg("guest import failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, report)
}
