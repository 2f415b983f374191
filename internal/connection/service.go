package connection

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quotelane/exchange-cli/internal/model"
)

// Operation names, used in transition errors and audit logs.
const (
	OpInitiate    = "initiate"
	OpSetTerms    = "set_terms"
	OpReject      = "reject"
	OpAccept      = "accept"
	OpDecline     = "decline"
	OpTerminate   = "terminate"
	OpUpdateTerms = "update_terms"
)

// transitions maps each operation to the status it requires and the
// status it produces. Operations missing here never change status.
var transitions = map[string]struct {
	from model.ConnectionStatus
	to   model.ConnectionStatus
}{
	OpSetTerms:    {model.StatusPendingBuyerReview, model.StatusPendingProviderAccept},
	OpReject:      {model.StatusPendingBuyerReview, model.StatusRejectedByBuyer},
	OpAccept:      {model.StatusPendingProviderAccept, model.StatusActive},
	OpDecline:     {model.StatusPendingProviderAccept, model.StatusDeclinedByProvider},
	OpTerminate:   {model.StatusActive, model.StatusTerminated},
	OpUpdateTerms: {model.StatusActive, model.StatusActive},
}

// Service owns the connection lifecycle. Every mutation runs under a
// per-connection lock so the status check and the write are atomic.
type Service struct {
	store Store
	locks *KeyMutex
	now   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the service wall clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLocks shares a lock set with other components, typically the lead
// ledger.
func WithLocks(locks *KeyMutex) ServiceOption {
	return func(s *Service) { s.locks = locks }
}

// NewService builds a connection service over the given store.
func NewService(st Store, opts ...ServiceOption) *Service {
	s := &Service{store: st, locks: NewKeyMutex(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locks exposes the per-connection lock set for components that must
// serialize against connection mutations.
func (s *Service) Locks() *KeyMutex {
	return s.locks
}

// Get returns a connection by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Connection, error) {
	return s.store.GetConnection(ctx, id)
}

// List returns connections matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Connection, error) {
	return s.store.ListConnections(ctx, f)
}

// Initiate creates a connection between a provider and a buyer. Either
// party may start it; the new connection always waits on buyer review,
// since terms do not exist yet. Only one live connection may exist per
// pair.
func (s *Service) Initiate(ctx context.Context, actor model.Actor, providerID, buyerID, message string) (*model.Connection, error) {
	if providerID == "" || buyerID == "" {
		return nil, eris.New("connection: provider and buyer ids are required")
	}
	if providerID == buyerID {
		return nil, eris.New("connection: provider and buyer must differ")
	}
	if actor.Role != model.RoleAdmin {
		isProvider := actor.Role == model.RoleProvider && actor.ID == providerID
		isBuyer := actor.Role == model.RoleBuyer && actor.ID == buyerID
		if !isProvider && !isBuyer {
			return nil, &ForbiddenError{Op: OpInitiate, Actor: actor}
		}
	}

	unlock := s.locks.Lock(pairKey(providerID, buyerID))
	defer unlock()

	existing, err := s.store.LiveConnectionByPair(ctx, providerID, buyerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &AlreadyConnectedError{
			ProviderID:   providerID,
			BuyerID:      buyerID,
			ConnectionID: existing.ID,
			Status:       existing.Status,
		}
	}

	conn := &model.Connection{
		ProviderID: providerID,
		BuyerID:    buyerID,
		Status:     model.StatusPendingBuyerReview,
		Message:    message,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateConnection(ctx, conn); err != nil {
		return nil, err
	}

	zap.L().Info("connection initiated",
		zap.String("connection_id", conn.ID),
		zap.String("provider_id", providerID),
		zap.String("buyer_id", buyerID),
		zap.String("initiated_by", string(actor.Role)))
	return conn, nil
}

// SetTerms records the buyer's proposed contract terms and hands the
// connection to the provider for acceptance.
func (s *Service) SetTerms(ctx context.Context, actor model.Actor, connID string, terms model.ContractTerms) (*model.Connection, error) {
	if err := ValidateTerms(&terms); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, connID, OpSetTerms, model.RoleBuyer, func(conn *model.Connection) {
		ts := s.now().UTC()
		conn.Terms = &terms
		conn.TermsUpdatedAt = &ts
	})
}

// Reject closes a connection the buyer does not want to price.
func (s *Service) Reject(ctx context.Context, actor model.Actor, connID string) (*model.Connection, error) {
	return s.transition(ctx, actor, connID, OpReject, model.RoleBuyer, nil)
}

// Accept activates the connection under the proposed terms. AcceptedAt
// is set exactly once.
func (s *Service) Accept(ctx context.Context, actor model.Actor, connID string) (*model.Connection, error) {
	conn, err := s.transition(ctx, actor, connID, OpAccept, model.RoleProvider, func(conn *model.Connection) {
		if conn.AcceptedAt == nil {
			ts := s.now().UTC()
			conn.AcceptedAt = &ts
		}
	})
	if err != nil {
		return nil, err
	}

	// Exclusivity is advisory: surface the conflict, never block.
	if conn.Terms != nil && conn.Terms.Exclusive {
		if n, cerr := s.store.CountActiveByParty(ctx, model.RoleProvider, conn.ProviderID); cerr == nil && n > 1 {
			zap.L().Warn("provider accepted exclusive terms while holding other active connections",
				zap.String("connection_id", conn.ID),
				zap.String("provider_id", conn.ProviderID),
				zap.Int("active_connections", n))
		}
	}
	return conn, nil
}

// Decline closes a connection whose terms the provider will not work
// under.
func (s *Service) Decline(ctx context.Context, actor model.Actor, connID string) (*model.Connection, error) {
	return s.transition(ctx, actor, connID, OpDecline, model.RoleProvider, nil)
}

// Terminate ends an active connection. Either party may terminate;
// totals and lead history are preserved.
func (s *Service) Terminate(ctx context.Context, actor model.Actor, connID, reason string) (*model.Connection, error) {
	return s.transition(ctx, actor, connID, OpTerminate, "", func(conn *model.Connection) {
		ts := s.now().UTC()
		conn.TerminatedAt = &ts
		conn.TerminatedBy = actor.ID
		conn.TerminationReason = reason
	})
}

// UpdateTerms adjusts the terms of an active connection in place. Leads
// submitted afterwards accrue at the new rate; prior payouts are
// untouched.
func (s *Service) UpdateTerms(ctx context.Context, actor model.Actor, connID string, terms model.ContractTerms) (*model.Connection, error) {
	if err := ValidateTerms(&terms); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, connID, OpUpdateTerms, model.RoleBuyer, func(conn *model.Connection) {
		ts := s.now().UTC()
		conn.Terms = &terms
		conn.TermsUpdatedAt = &ts
	})
}

// transition loads the connection under its lock, authorizes the actor,
// applies the status change plus any extra mutation, and persists. An
// empty required role admits both parties.
func (s *Service) transition(ctx context.Context, actor model.Actor, connID, op string, required model.Role, mutate func(*model.Connection)) (*model.Connection, error) {
	spec, ok := transitions[op]
	if !ok {
		return nil, eris.Errorf("connection: unknown operation %s", op)
	}

	unlock := s.locks.Lock(connID)
	defer unlock()

	conn, err := s.store.GetConnection(ctx, connID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, required, op, conn); err != nil {
		return nil, err
	}
	if conn.Status != spec.from {
		return nil, &InvalidTransitionError{ConnectionID: connID, Op: op, Status: conn.Status}
	}

	if mutate != nil {
		mutate(conn)
	}
	conn.Status = spec.to
	if err := s.store.UpdateConnection(ctx, conn); err != nil {
		return nil, err
	}

	zap.L().Info("connection "+op,
		zap.String("connection_id", conn.ID),
		zap.String("status", string(conn.Status)),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)))
	return conn, nil
}

// authorize admits admins always, and otherwise requires the actor to be
// the right party on the connection. An empty required role admits
// either party.
func authorize(actor model.Actor, required model.Role, op string, conn *model.Connection) error {
	if actor.Role == model.RoleAdmin {
		return nil
	}
	if required != "" && actor.Role != required {
		return &ForbiddenError{ConnectionID: conn.ID, Op: op, Actor: actor}
	}
	if !conn.Party(actor) {
		return &ForbiddenError{ConnectionID: conn.ID, Op: op, Actor: actor}
	}
	return nil
}

// ValidateTerms checks the commercial fields of a proposed contract.
// The HTTP layer calls it to reject bad terms before they reach a
// transition.
func ValidateTerms(t *model.ContractTerms) error {
	if t.RatePerLead <= 0 {
		return eris.New("connection: rate_per_lead must be positive")
	}
	if !t.PaymentTiming.Valid() {
		return eris.Errorf("connection: invalid payment_timing %q", t.PaymentTiming)
	}
	if t.MinimumPayout < 0 {
		return eris.New("connection: minimum_payout must not be negative")
	}
	if t.TerminationNotice < 0 {
		return eris.New("connection: termination_notice_days must not be negative")
	}
	if t.WeeklyLeadLimit < 0 || t.MonthlyLeadLimit < 0 {
		return eris.New("connection: lead limits must not be negative")
	}
	return nil
}

func pairKey(providerID, buyerID string) string {
	return "pair:" + providerID + ":" + buyerID
}
