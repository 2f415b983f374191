package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/ledger"
	"github.com/quotelane/exchange-cli/internal/store"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message, Details: details}})
}

// writeDomainError maps service errors onto HTTP statuses. Anything
// unrecognized is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var capErr *ledger.CapReachedError
	if errors.As(err, &capErr) {
		writeErrorDetails(w, http.StatusConflict, "cap_reached", capErr.Error(), map[string]any{
			"connection_id": capErr.ConnectionID,
			"scope":         capErr.Scope,
			"limit":         capErr.Limit,
			"count":         capErr.Count,
		})
		return
	}
	var dupErr *connection.AlreadyConnectedError
	if errors.As(err, &dupErr) {
		writeErrorDetails(w, http.StatusConflict, "already_connected", dupErr.Error(), map[string]any{
			"connection_id": dupErr.ConnectionID,
			"status":        dupErr.Status,
		})
		return
	}
	var transErr *connection.InvalidTransitionError
	if errors.As(err, &transErr) {
		writeError(w, http.StatusConflict, "invalid_transition", transErr.Error())
		return
	}
	var leadErr *ledger.LeadStatusError
	if errors.As(err, &leadErr) {
		writeError(w, http.StatusConflict, "invalid_lead_status", leadErr.Error())
		return
	}
	var inactiveErr *ledger.NotActiveError
	if errors.As(err, &inactiveErr) {
		writeError(w, http.StatusUnprocessableEntity, "connection_not_active", inactiveErr.Error())
		return
	}
	var forbiddenErr *connection.ForbiddenError
	if errors.As(err, &forbiddenErr) {
		writeError(w, http.StatusForbidden, "forbidden", forbiddenErr.Error())
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	zap.L().Error("unhandled domain error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal", "internal error")
}
