package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/model"
	"github.com/quotelane/exchange-cli/pkg/events"
)

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	f := connection.Filter{
		ProviderID: r.URL.Query().Get("provider_id"),
		BuyerID:    r.URL.Query().Get("buyer_id"),
		Status:     model.ConnectionStatus(r.URL.Query().Get("status")),
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	f.Limit = limit

	conns, err := s.conns.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if conns == nil {
		conns = []model.Connection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connections": conns,
		"count":       len(conns),
	})
}

type initiateRequest struct {
	ProviderID string `json:"provider_id"`
	BuyerID    string `json:"buyer_id"`
	Message    string `json:"message"`
}

func (s *Server) handleInitiateConnection(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	if strings.TrimSpace(req.ProviderID) == "" || strings.TrimSpace(req.BuyerID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "provider_id and buyer_id are required")
		return
	}
	if req.ProviderID == req.BuyerID {
		writeError(w, http.StatusBadRequest, "invalid_body", "provider_id and buyer_id must differ")
		return
	}

	conn, err := s.conns.Initiate(r.Context(), actorFrom(r), req.ProviderID, req.BuyerID, req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.conns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (s *Server) handleSetTerms(w http.ResponseWriter, r *http.Request) {
	terms, ok := decodeTerms(w, r)
	if !ok {
		return
	}
	conn, err := s.conns.SetTerms(r.Context(), actorFrom(r), chi.URLParam(r, "id"), terms)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (s *Server) handleUpdateTerms(w http.ResponseWriter, r *http.Request) {
	terms, ok := decodeTerms(w, r)
	if !ok {
		return
	}
	conn, err := s.conns.UpdateTerms(r.Context(), actorFrom(r), chi.URLParam(r, "id"), terms)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	conn, err := s.conns.Accept(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.publish(r, events.KeyConnectionActivated, conn)
	writeJSON(w, http.StatusOK, conn)
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	conn, err := s.conns.Decline(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	conn, err := s.conns.Reject(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

type terminateRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	// The reason is optional and so is the body.
	var req terminateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	conn, err := s.conns.Terminate(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.publish(r, events.KeyConnectionTerminated, conn)
	writeJSON(w, http.StatusOK, conn)
}

// decodeTerms parses and validates a contract terms body. On failure it
// writes the error response and reports false.
func decodeTerms(w http.ResponseWriter, r *http.Request) (model.ContractTerms, bool) {
	var terms model.ContractTerms
	if err := json.NewDecoder(r.Body).Decode(&terms); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be contract terms")
		return terms, false
	}
	if err := connection.ValidateTerms(&terms); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_terms", err.Error())
		return terms, false
	}
	return terms, true
}

// queryLimit parses the optional limit query parameter. On failure it
// writes the error response and reports false.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "invalid_query", "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}
