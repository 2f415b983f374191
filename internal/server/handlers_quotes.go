package server

import (
	"encoding/json"
	"net/http"

	"github.com/quotelane/exchange-cli/internal/model"
)

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	var profile model.RatingProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be a rating profile")
		return
	}
	quotes, err := s.engine.Quote(&profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_profile", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quotes": quotes,
		"count":  len(quotes),
	})
}
