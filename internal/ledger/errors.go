package ledger

import (
	"fmt"

	"github.com/quotelane/exchange-cli/internal/model"
)

// CapReachedError reports a submission blocked because the cap window is
// already full.
type CapReachedError struct {
	ConnectionID string
	Scope        string // "weekly" or "monthly"
	Limit        int
	Count        int
}

func (e *CapReachedError) Error() string {
	return fmt.Sprintf("connection %s: %s lead cap reached (%d of %d)",
		e.ConnectionID, e.Scope, e.Count, e.Limit)
}

// NotActiveError reports a submission against a connection that is not
// taking leads.
type NotActiveError struct {
	ConnectionID string
	Status       model.ConnectionStatus
}

func (e *NotActiveError) Error() string {
	return fmt.Sprintf("connection %s is %s, not active", e.ConnectionID, e.Status)
}

// LeadStatusError reports a lead status change the funnel does not allow.
type LeadStatusError struct {
	LeadID string
	From   model.LeadStatus
	To     model.LeadStatus
}

func (e *LeadStatusError) Error() string {
	return fmt.Sprintf("lead %s: cannot move from %s to %s", e.LeadID, e.From, e.To)
}
