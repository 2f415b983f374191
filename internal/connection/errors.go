package connection

import (
	"fmt"

	"github.com/quotelane/exchange-cli/internal/model"
)

// InvalidTransitionError reports an operation applied while the
// connection is in a state that does not allow it.
type InvalidTransitionError struct {
	ConnectionID string
	Op           string
	Status       model.ConnectionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("connection %s: cannot %s while %s", e.ConnectionID, e.Op, e.Status)
}

// ForbiddenError reports an actor invoking an operation reserved for the
// other side of the connection, or for a party the actor is not.
type ForbiddenError struct {
	ConnectionID string
	Op           string
	Actor        model.Actor
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("connection %s: %s %s may not %s", e.ConnectionID, e.Actor.Role, e.Actor.ID, e.Op)
}

// AlreadyConnectedError reports an initiation attempt for a pair that
// already has a live connection.
type AlreadyConnectedError struct {
	ProviderID   string
	BuyerID      string
	ConnectionID string
	Status       model.ConnectionStatus
}

func (e *AlreadyConnectedError) Error() string {
	return fmt.Sprintf("provider %s and buyer %s already have connection %s (%s)",
		e.ProviderID, e.BuyerID, e.ConnectionID, e.Status)
}
