package ledger

import (
	"context"
	"time"

	"github.com/quotelane/exchange-cli/internal/model"
)

// Store is the persistence the ledger needs. Both the SQLite and
// Postgres stores satisfy it.
type Store interface {
	GetConnection(ctx context.Context, id string) (*model.Connection, error)
	UpdateConnection(ctx context.Context, conn *model.Connection) error

	// CreateLead persists a new lead, assigning its ID when empty.
	CreateLead(ctx context.Context, lead *model.Lead) error
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus, updatedAt time.Time) error
	ListLeads(ctx context.Context, f Filter) ([]model.Lead, error)

	// CountLeadsSince counts every lead on a connection created at or
	// after the cutoff, regardless of lead status.
	CountLeadsSince(ctx context.Context, connectionID string, since time.Time) (int, error)

	// ExpireLeadsBefore marks pending leads created before the cutoff as
	// expired and reports how many changed.
	ExpireLeadsBefore(ctx context.Context, cutoff, updatedAt time.Time) (int, error)
}

// Filter narrows ListLeads. Zero values match everything.
type Filter struct {
	ConnectionID string
	ProviderID   string
	BuyerID      string
	Status       model.LeadStatus
	Limit        int
}

// SubmitInput carries one lead submission.
type SubmitInput struct {
	ConnectionID  string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	CustomerState string
	Vehicle       string
	QuoteType     model.QuoteType
	// Quote optionally snapshots the offer the customer selected.
	Quote *model.Quote
}
