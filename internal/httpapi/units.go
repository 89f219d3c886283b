package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type instructionsResponse struct {
	Unit         int    `json:"unit"`
	Mode         string `json:"mode"`
	Instructions string `json:"instructions"`
}

func (s *Server) handleListUnits(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.units.List())
}

func (s *Server) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	n, ok := unitParam(r)
	if !ok {
		respondError(w, http.StatusNotFound, "unit_not_found", "unit not found")
		return
	}
	unit, ok := s.units.Lookup(n)
	if !ok {
		respondError(w, http.StatusNotFound, "unit_not_found", "unit not found")
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

// handleUnitInstructions serves the composed instructions. The realtime
// variant is what the browser hands to the provider on its direct channel.
func (s *Server) handleUnitInstructions(w http.ResponseWriter, r *http.Request) {
	n, ok := unitParam(r)
	if !ok {
		respondError(w, http.StatusNotFound, "unit_not_found", "unit not found")
		return
	}
	mode := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode")))
	if mode != "realtime" {
		mode = "turn"
	}
	text, err := s.service.Instructions(n, mode == "realtime")
	if err != nil {
		respondError(w, http.StatusNotFound, "unit_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, instructionsResponse{Unit: n, Mode: mode, Instructions: text})
}

func unitParam(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "n")))
	if err != nil {
		return 0, false
	}
	return n, true
}
