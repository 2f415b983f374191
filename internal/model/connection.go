package model

import "time"

// Role identifies which side of the marketplace an actor operates.
type Role string

const (
	RoleProvider Role = "provider"
	RoleBuyer    Role = "buyer"
	RoleAdmin    Role = "admin"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// ConnectionStatus represents the lifecycle state of a provider-buyer connection.
type ConnectionStatus string

const (
	StatusPendingBuyerReview    ConnectionStatus = "pending_buyer_review"
	StatusPendingProviderAccept ConnectionStatus = "pending_provider_accept"
	StatusActive                ConnectionStatus = "active"
	StatusDeclinedByProvider    ConnectionStatus = "declined_by_provider"
	StatusRejectedByBuyer       ConnectionStatus = "rejected_by_buyer"
	StatusTerminated            ConnectionStatus = "terminated"
)

// Terminal reports whether no further transitions are possible from s.
func (s ConnectionStatus) Terminal() bool {
	switch s {
	case StatusDeclinedByProvider, StatusRejectedByBuyer, StatusTerminated:
		return true
	}
	return false
}

// Live reports whether s still occupies the provider-buyer pair. Only one
// live connection may exist per pair at a time.
func (s ConnectionStatus) Live() bool {
	return !s.Terminal()
}

// PaymentTiming is the settlement cadence agreed in the contract terms.
type PaymentTiming string

const (
	PayPerLead  PaymentTiming = "per_lead"
	PayWeekly   PaymentTiming = "weekly"
	PayBiweekly PaymentTiming = "biweekly"
	PayMonthly  PaymentTiming = "monthly"
)

// Valid reports whether t is one of the supported cadences.
func (t PaymentTiming) Valid() bool {
	switch t {
	case PayPerLead, PayWeekly, PayBiweekly, PayMonthly:
		return true
	}
	return false
}

// ContractTerms is the buyer-proposed commercial agreement for a connection.
// Lead limits of zero mean uncapped.
type ContractTerms struct {
	RatePerLead         float64       `json:"rate_per_lead"`
	PaymentTiming       PaymentTiming `json:"payment_timing"`
	MinimumPayout       float64       `json:"minimum_payout,omitempty"`
	LeadTypes           []string      `json:"lead_types,omitempty"`
	Exclusive           bool          `json:"exclusive,omitempty"`
	TerminationNotice   int           `json:"termination_notice_days,omitempty"`
	WeeklyLeadLimit     int           `json:"weekly_lead_limit,omitempty"`
	MonthlyLeadLimit    int           `json:"monthly_lead_limit,omitempty"`
	PauseWhenCapReached bool          `json:"pause_when_cap_reached,omitempty"`
}

// Connection tracks a provider-buyer relationship from initiation through
// termination, including running lead and payout totals.
type Connection struct {
	ID                string           `json:"id"`
	ProviderID        string           `json:"provider_id"`
	BuyerID           string           `json:"buyer_id"`
	Status            ConnectionStatus `json:"status"`
	Message           string           `json:"message,omitempty"` // free-text note from the initiator
	Terms             *ContractTerms   `json:"terms,omitempty"`
	TotalLeads        int              `json:"total_leads"`
	TotalPaid         float64          `json:"total_paid"`
	CreatedAt         time.Time        `json:"created_at"`
	AcceptedAt        *time.Time       `json:"accepted_at,omitempty"`
	TermsUpdatedAt    *time.Time       `json:"terms_updated_at,omitempty"`
	TerminatedAt      *time.Time       `json:"terminated_at,omitempty"`
	TerminatedBy      string           `json:"terminated_by,omitempty"`
	TerminationReason string           `json:"termination_reason,omitempty"`
}

// Party reports whether the actor is the provider or buyer on the connection.
// Admins are not a party; they are authorized separately.
func (c *Connection) Party(a Actor) bool {
	switch a.Role {
	case RoleProvider:
		return a.ID == c.ProviderID
	case RoleBuyer:
		return a.ID == c.BuyerID
	}
	return false
}
