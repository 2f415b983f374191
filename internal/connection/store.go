package connection

import (
	"context"

	"github.com/quotelane/exchange-cli/internal/model"
)

// Store is the persistence the connection service needs. Both the SQLite
// and Postgres stores satisfy it.
type Store interface {
	// CreateConnection persists a new connection, assigning its ID when
	// empty.
	CreateConnection(ctx context.Context, conn *model.Connection) error
	GetConnection(ctx context.Context, id string) (*model.Connection, error)
	// LiveConnectionByPair returns the non-terminal connection between a
	// provider and buyer, or nil when the pair has none.
	LiveConnectionByPair(ctx context.Context, providerID, buyerID string) (*model.Connection, error)
	UpdateConnection(ctx context.Context, conn *model.Connection) error
	ListConnections(ctx context.Context, f Filter) ([]model.Connection, error)
	// CountActiveByParty counts active connections where the given id is
	// the provider or the buyer, per role.
	CountActiveByParty(ctx context.Context, role model.Role, partyID string) (int, error)
}

// Filter narrows ListConnections. Zero values match everything.
type Filter struct {
	ProviderID string
	BuyerID    string
	Status     model.ConnectionStatus
	Limit      int
}
