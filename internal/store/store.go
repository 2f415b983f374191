// Package store persists connections and leads behind the ports the
// lifecycle service and the ledger define, with SQLite and PostgreSQL
// implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/ledger"
)

// ErrNotFound reports a lookup that matched no row. Callers translate it
// into their own not-found responses with errors.Is.
var ErrNotFound = eris.New("not found")

// Store is the combined persistence surface: the connection lifecycle
// port, the lead ledger port, and lifecycle management for the backing
// database.
type Store interface {
	connection.Store
	ledger.Store

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
