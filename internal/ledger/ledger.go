package ledger

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/model"
)

// Ledger accrues leads and payouts under active connections. It shares
// the per-connection locks with the connection service, so a submission
// cannot interleave with a termination or a terms change on the same
// connection.
type Ledger struct {
	store Store
	locks *connection.KeyMutex
	now   func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the ledger wall clock. Cap windows and timestamps
// derive from it.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New builds a ledger. Pass the connection service's lock set so both
// components serialize on the same keys; nil gets a private set.
func New(st Store, locks *connection.KeyMutex, opts ...Option) *Ledger {
	if locks == nil {
		locks = connection.NewKeyMutex()
	}
	l := &Ledger{store: st, locks: locks, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns a lead by id.
func (l *Ledger) Get(ctx context.Context, id string) (*model.Lead, error) {
	return l.store.GetLead(ctx, id)
}

// List returns leads matching the filter.
func (l *Ledger) List(ctx context.Context, f Filter) ([]model.Lead, error) {
	return l.store.ListLeads(ctx, f)
}

// Submit records a lead under an active connection. The cap check, the
// insert, and the total accrual all happen under the connection lock so
// concurrent submissions near the cap stay exact. The payout is frozen
// from the current rate per lead and never changes afterwards.
func (l *Ledger) Submit(ctx context.Context, actor model.Actor, in SubmitInput) (*model.Lead, error) {
	if in.ConnectionID == "" {
		return nil, eris.New("ledger: connection id is required")
	}
	if in.CustomerName == "" {
		return nil, eris.New("ledger: customer name is required")
	}
	switch in.QuoteType {
	case model.QuoteTypeCall, model.QuoteTypeQuote:
	case "":
		in.QuoteType = model.QuoteTypeQuote
	default:
		return nil, eris.Errorf("ledger: invalid quote type %q", in.QuoteType)
	}

	unlock := l.locks.Lock(in.ConnectionID)
	defer unlock()

	conn, err := l.store.GetConnection(ctx, in.ConnectionID)
	if err != nil {
		return nil, err
	}

	// Only the provider on the connection submits leads.
	if actor.Role != model.RoleAdmin {
		if actor.Role != model.RoleProvider || actor.ID != conn.ProviderID {
			return nil, &connection.ForbiddenError{ConnectionID: conn.ID, Op: "submit_lead", Actor: actor}
		}
	}
	if conn.Status != model.StatusActive {
		return nil, &NotActiveError{ConnectionID: conn.ID, Status: conn.Status}
	}
	if conn.Terms == nil {
		return nil, eris.Errorf("ledger: connection %s is active without terms", conn.ID)
	}

	now := l.now().UTC()
	if err := l.checkCaps(ctx, conn, now); err != nil {
		return nil, err
	}

	lead := &model.Lead{
		ConnectionID:  conn.ID,
		ProviderID:    conn.ProviderID,
		BuyerID:       conn.BuyerID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		CustomerEmail: in.CustomerEmail,
		CustomerState: in.CustomerState,
		Vehicle:       in.Vehicle,
		QuoteType:     in.QuoteType,
		Status:        model.LeadPending,
		Payout:        conn.Terms.RatePerLead,
		Quote:         in.Quote,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.store.CreateLead(ctx, lead); err != nil {
		return nil, err
	}

	// Totals move at submission and are never reversed, whatever happens
	// to the lead later.
	conn.TotalLeads++
	conn.TotalPaid += lead.Payout
	if err := l.store.UpdateConnection(ctx, conn); err != nil {
		return nil, eris.Wrap(err, "ledger: update connection totals")
	}

	zap.L().Info("lead submitted",
		zap.String("lead_id", lead.ID),
		zap.String("connection_id", conn.ID),
		zap.String("quote_type", string(lead.QuoteType)),
		zap.Float64("payout", lead.Payout),
		zap.Int("total_leads", conn.TotalLeads))
	return lead, nil
}

// checkCaps blocks the submission when a cap window is full and the
// terms ask for pausing. Counts come from the store, never from memory,
// so restarts cannot reset a window.
func (l *Ledger) checkCaps(ctx context.Context, conn *model.Connection, now time.Time) error {
	t := conn.Terms
	if !t.PauseWhenCapReached {
		return nil
	}
	if t.WeeklyLeadLimit > 0 {
		n, err := l.store.CountLeadsSince(ctx, conn.ID, WeekStart(now))
		if err != nil {
			return eris.Wrap(err, "ledger: count weekly leads")
		}
		if n >= t.WeeklyLeadLimit {
			return &CapReachedError{ConnectionID: conn.ID, Scope: "weekly", Limit: t.WeeklyLeadLimit, Count: n}
		}
	}
	if t.MonthlyLeadLimit > 0 {
		n, err := l.store.CountLeadsSince(ctx, conn.ID, MonthStart(now))
		if err != nil {
			return eris.Wrap(err, "ledger: count monthly leads")
		}
		if n >= t.MonthlyLeadLimit {
			return &CapReachedError{ConnectionID: conn.ID, Scope: "monthly", Limit: t.MonthlyLeadLimit, Count: n}
		}
	}
	return nil
}

// UpdateStatus moves a lead through the buyer's intake funnel. Totals
// never move here; payouts accrued at submission stand even for leads
// the buyer rejects.
func (l *Ledger) UpdateStatus(ctx context.Context, actor model.Actor, leadID string, status model.LeadStatus) (*model.Lead, error) {
	switch status {
	case model.LeadClaimed, model.LeadConverted, model.LeadRejected, model.LeadExpired:
	default:
		return nil, eris.Errorf("ledger: invalid lead status %q", status)
	}

	unlock := l.locks.Lock("lead:" + leadID)
	defer unlock()

	lead, err := l.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	// Buyers work their own intake; admins may touch anything.
	if actor.Role != model.RoleAdmin {
		if actor.Role != model.RoleBuyer || actor.ID != lead.BuyerID {
			return nil, &connection.ForbiddenError{ConnectionID: lead.ConnectionID, Op: "update_lead", Actor: actor}
		}
	}
	if !lead.Status.CanTransitionTo(status) {
		return nil, &LeadStatusError{LeadID: leadID, From: lead.Status, To: status}
	}

	now := l.now().UTC()
	if err := l.store.UpdateLeadStatus(ctx, leadID, status, now); err != nil {
		return nil, err
	}
	lead.Status = status
	lead.UpdatedAt = now

	zap.L().Info("lead status updated",
		zap.String("lead_id", leadID),
		zap.String("status", string(status)),
		zap.String("actor_id", actor.ID))
	return lead, nil
}

// ExpireStale marks pending leads older than maxAge as expired and
// returns how many were swept. The serve loop runs this on a schedule.
func (l *Ledger) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, eris.New("ledger: max age must be positive")
	}
	now := l.now().UTC()
	n, err := l.store.ExpireLeadsBefore(ctx, now.Add(-maxAge), now)
	if err != nil {
		return 0, eris.Wrap(err, "ledger: expire stale leads")
	}
	if n > 0 {
		zap.L().Info("expired stale leads", zap.Int("count", n))
	}
	return n, nil
}
