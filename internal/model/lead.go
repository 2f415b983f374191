package model

import "time"

// LeadStatus tracks a lead through the buyer's intake funnel.
type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadClaimed   LeadStatus = "claimed"
	LeadConverted LeadStatus = "converted"
	LeadRejected  LeadStatus = "rejected"
	LeadExpired   LeadStatus = "expired"
)

// leadTransitions maps each lead status to the statuses it may move to.
// Converted, rejected, and expired are terminal.
var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadPending: {LeadClaimed, LeadConverted, LeadRejected, LeadExpired},
	LeadClaimed: {LeadConverted, LeadRejected},
}

// CanTransitionTo reports whether a lead in status s may move to next.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	for _, allowed := range leadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// QuoteType distinguishes how the lead was generated.
type QuoteType string

const (
	// QuoteTypeCall marks a lead captured from a live phone interaction.
	QuoteTypeCall QuoteType = "call"
	// QuoteTypeQuote marks a lead captured from a completed rating flow.
	QuoteTypeQuote QuoteType = "quote"
)

// Lead is a customer referral submitted by a provider under an active
// connection. Payout is frozen at submission time from the contract's
// rate per lead and never changes afterwards.
type Lead struct {
	ID            string     `json:"id"`
	ConnectionID  string     `json:"connection_id"`
	ProviderID    string     `json:"provider_id"`
	BuyerID       string     `json:"buyer_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	CustomerState string     `json:"customer_state,omitempty"`
	Vehicle       string     `json:"vehicle,omitempty"`
	QuoteType     QuoteType  `json:"quote_type"`
	Status        LeadStatus `json:"status"`
	Payout        float64    `json:"payout"`
	Quote         *Quote     `json:"quote,omitempty"` // snapshot of the quote the customer selected
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
