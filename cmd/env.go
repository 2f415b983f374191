package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/ledger"
	"github.com/quotelane/exchange-cli/internal/store"
)

// exchangeEnv holds the store-backed services the connection, lead, and
// serve commands share.
type exchangeEnv struct {
	Store store.Store
	Conns *connection.Service
	Leads *ledger.Ledger
}

// Close releases resources held by the environment.
func (e *exchangeEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initExchange opens the store, migrates it, and wires the services over
// a shared lock set. Callers should defer env.Close().
func initExchange(ctx context.Context) (*exchangeEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	conns := connection.NewService(st)
	return &exchangeEnv{
		Store: st,
		Conns: conns,
		Leads: ledger.New(st, conns.Locks()),
	}, nil
}
