package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quotelane/exchange-cli/internal/ledger"
	"github.com/quotelane/exchange-cli/internal/model"
	"github.com/quotelane/exchange-cli/pkg/events"
)

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	f := ledger.Filter{
		ConnectionID: r.URL.Query().Get("connection_id"),
		ProviderID:   r.URL.Query().Get("provider_id"),
		BuyerID:      r.URL.Query().Get("buyer_id"),
		Status:       model.LeadStatus(r.URL.Query().Get("status")),
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	f.Limit = limit

	leads, err := s.leads.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"count": len(leads),
	})
}

type submitLeadRequest struct {
	ConnectionID  string          `json:"connection_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerEmail string          `json:"customer_email"`
	CustomerState string          `json:"customer_state"`
	Vehicle       string          `json:"vehicle"`
	QuoteType     model.QuoteType `json:"quote_type"`
	Quote         *model.Quote    `json:"quote,omitempty"`
}

func (s *Server) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	var req submitLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	if strings.TrimSpace(req.ConnectionID) == "" || strings.TrimSpace(req.CustomerName) == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "connection_id and customer_name are required")
		return
	}
	switch req.QuoteType {
	case model.QuoteTypeCall, model.QuoteTypeQuote, "":
	default:
		writeError(w, http.StatusBadRequest, "invalid_body", "quote_type must be call or quote")
		return
	}

	lead, err := s.leads.Submit(r.Context(), actorFrom(r), ledger.SubmitInput{
		ConnectionID:  req.ConnectionID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		CustomerState: req.CustomerState,
		Vehicle:       req.Vehicle,
		QuoteType:     req.QuoteType,
		Quote:         req.Quote,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.publish(r, events.KeyLeadSubmitted, lead)
	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

type leadStatusRequest struct {
	Status model.LeadStatus `json:"status"`
}

func (s *Server) handleUpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	var req leadStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	switch req.Status {
	case model.LeadClaimed, model.LeadConverted, model.LeadRejected, model.LeadExpired:
	default:
		writeError(w, http.StatusBadRequest, "invalid_body", "status must be claimed, converted, rejected, or expired")
		return
	}

	lead, err := s.leads.UpdateStatus(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.publish(r, events.KeyLeadStatusChanged, lead)
	writeJSON(w, http.StatusOK, lead)
}
