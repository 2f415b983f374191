package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/ledger"
	"github.com/quotelane/exchange-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testConnection() *model.Connection {
	return &model.Connection{
		ProviderID: "prov-1",
		BuyerID:    "buy-1",
		Status:     model.StatusPendingBuyerReview,
		Message:    "looking to sell auto leads",
		CreatedAt:  time.Now().UTC(),
	}
}

func testLead(connID string) *model.Lead {
	now := time.Now().UTC()
	return &model.Lead{
		ConnectionID:  connID,
		ProviderID:    "prov-1",
		BuyerID:       "buy-1",
		CustomerName:  "Dana Whitfield",
		CustomerState: "OH",
		Vehicle:       "2021 Honda Accord",
		QuoteType:     model.QuoteTypeQuote,
		Status:        model.LeadPending,
		Payout:        25,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// --- Connections ---

func TestSQLite_CreateConnection_MintsID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	conn := testConnection()
	require.NoError(t, st.CreateConnection(ctx, conn))
	assert.NotEmpty(t, conn.ID)

	// A caller-supplied ID is kept as-is.
	given := testConnection()
	given.ID = "conn-fixed"
	given.BuyerID = "buy-2"
	require.NoError(t, st.CreateConnection(ctx, given))
	assert.Equal(t, "conn-fixed", given.ID)
}

func TestSQLite_ConnectionRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	conn := testConnection()
	conn.Terms = &model.ContractTerms{
		RatePerLead:         27.5,
		PaymentTiming:       model.PayWeekly,
		LeadTypes:           []string{"call", "quote"},
		WeeklyLeadLimit:     40,
		PauseWhenCapReached: true,
	}
	require.NoError(t, st.CreateConnection(ctx, conn))

	fetched, err := st.GetConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, fetched.ID)
	assert.Equal(t, "prov-1", fetched.ProviderID)
	assert.Equal(t, "buy-1", fetched.BuyerID)
	assert.Equal(t, model.StatusPendingBuyerReview, fetched.Status)
	assert.Equal(t, "looking to sell auto leads", fetched.Message)
	require.NotNil(t, fetched.Terms)
	assert.Equal(t, 27.5, fetched.Terms.RatePerLead)
	assert.Equal(t, model.PayWeekly, fetched.Terms.PaymentTiming)
	assert.Equal(t, []string{"call", "quote"}, fetched.Terms.LeadTypes)
	assert.True(t, fetched.Terms.PauseWhenCapReached)
	assert.Nil(t, fetched.AcceptedAt)
	assert.Nil(t, fetched.TerminatedAt)
	assert.WithinDuration(t, conn.CreatedAt, fetched.CreatedAt, time.Second)
}

func TestSQLite_GetConnection_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetConnection(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateConnection(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	conn := testConnection()
	require.NoError(t, st.CreateConnection(ctx, conn))

	accepted := time.Now().UTC()
	conn.Status = model.StatusActive
	conn.Terms = &model.ContractTerms{RatePerLead: 30, PaymentTiming: model.PayMonthly}
	conn.AcceptedAt = &accepted
	conn.TotalLeads = 3
	conn.TotalPaid = 90
	require.NoError(t, st.UpdateConnection(ctx, conn))

	fetched, err := st.GetConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, fetched.Status)
	require.NotNil(t, fetched.Terms)
	assert.Equal(t, 30.0, fetched.Terms.RatePerLead)
	require.NotNil(t, fetched.AcceptedAt)
	assert.WithinDuration(t, accepted, *fetched.AcceptedAt, time.Second)
	assert.Equal(t, 3, fetched.TotalLeads)
	assert.Equal(t, 90.0, fetched.TotalPaid)
}

func TestSQLite_UpdateConnection_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	conn := testConnection()
	conn.ID = "ghost"
	err := st.UpdateConnection(context.Background(), conn)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_LiveConnectionByPair(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// A terminated connection does not hold the pair.
	dead := testConnection()
	dead.Status = model.StatusTerminated
	require.NoError(t, st.CreateConnection(ctx, dead))

	found, err := st.LiveConnectionByPair(ctx, "prov-1", "buy-1")
	require.NoError(t, err)
	assert.Nil(t, found)

	live := testConnection()
	live.Status = model.StatusActive
	require.NoError(t, st.CreateConnection(ctx, live))

	found, err = st.LiveConnectionByPair(ctx, "prov-1", "buy-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, live.ID, found.ID)

	// Unknown pair.
	found, err = st.LiveConnectionByPair(ctx, "prov-1", "buy-9")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSQLite_ListConnections_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testConnection()
	require.NoError(t, st.CreateConnection(ctx, a))

	b := testConnection()
	b.BuyerID = "buy-2"
	b.Status = model.StatusActive
	require.NoError(t, st.CreateConnection(ctx, b))

	c := testConnection()
	c.ProviderID = "prov-2"
	c.Status = model.StatusActive
	require.NoError(t, st.CreateConnection(ctx, c))

	all, err := st.ListConnections(ctx, connection.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byProvider, err := st.ListConnections(ctx, connection.Filter{ProviderID: "prov-1"})
	require.NoError(t, err)
	assert.Len(t, byProvider, 2)

	byBuyer, err := st.ListConnections(ctx, connection.Filter{BuyerID: "buy-2"})
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assert.Equal(t, b.ID, byBuyer[0].ID)

	active, err := st.ListConnections(ctx, connection.Filter{Status: model.StatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	limited, err := st.ListConnections(ctx, connection.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_CountActiveByParty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, buyer := range []string{"buy-1", "buy-2"} {
		conn := testConnection()
		conn.BuyerID = buyer
		conn.Status = model.StatusActive
		require.NoError(t, st.CreateConnection(ctx, conn))
	}
	dead := testConnection()
	dead.BuyerID = "buy-3"
	dead.Status = model.StatusTerminated
	require.NoError(t, st.CreateConnection(ctx, dead))

	n, err := st.CountActiveByParty(ctx, model.RoleProvider, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.CountActiveByParty(ctx, model.RoleBuyer, "buy-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.CountActiveByParty(ctx, model.RoleAdmin, "admin-1")
	assert.Error(t, err)
}

// --- Leads ---

func TestSQLite_CreateLead_And_Get(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	conn := testConnection()
	require.NoError(t, st.CreateConnection(ctx, conn))

	lead := testLead(conn.ID)
	lead.Quote = &model.Quote{
		CarrierID:      "meridian",
		CarrierName:    "Meridian Mutual",
		AnnualPremium:  1240,
		MonthlyPremium: 103,
	}
	require.NoError(t, st.CreateLead(ctx, lead))
	assert.NotEmpty(t, lead.ID)

	fetched, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, fetched.ConnectionID)
	assert.Equal(t, "Dana Whitfield", fetched.CustomerName)
	assert.Equal(t, "2021 Honda Accord", fetched.Vehicle)
	assert.Equal(t, model.QuoteTypeQuote, fetched.QuoteType)
	assert.Equal(t, model.LeadPending, fetched.Status)
	assert.Equal(t, 25.0, fetched.Payout)
	require.NotNil(t, fetched.Quote)
	assert.Equal(t, "meridian", fetched.Quote.CarrierID)
	assert.Equal(t, 1240, fetched.Quote.AnnualPremium)
}

func TestSQLite_GetLead_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetLead(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateLeadStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	conn := testConnection()
	require.NoError(t, st.CreateConnection(ctx, conn))
	lead := testLead(conn.ID)
	require.NoError(t, st.CreateLead(ctx, lead))

	updatedAt := time.Now().UTC().Add(time.Hour)
	require.NoError(t, st.UpdateLeadStatus(ctx, lead.ID, model.LeadClaimed, updatedAt))

	fetched, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadClaimed, fetched.Status)
	assert.WithinDuration(t, updatedAt, fetched.UpdatedAt, time.Second)

	err = st.UpdateLeadStatus(ctx, "ghost", model.LeadClaimed, updatedAt)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListLeads_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	conn := testConnection()
	require.NoError(t, st.CreateConnection(ctx, conn))
	other := testConnection()
	other.BuyerID = "buy-2"
	require.NoError(t, st.CreateConnection(ctx, other))

	first := testLead(conn.ID)
	require.NoError(t, st.CreateLead(ctx, first))
	second := testLead(conn.ID)
	second.Status = model.LeadConverted
	require.NoError(t, st.CreateLead(ctx, second))
	third := testLead(other.ID)
	third.BuyerID = "buy-2"
	require.NoError(t, st.CreateLead(ctx, third))

	byConn, err := st.ListLeads(ctx, ledger.Filter{ConnectionID: conn.ID})
	require.NoError(t, err)
	assert.Len(t, byConn, 2)

	byStatus, err := st.ListLeads(ctx, ledger.Filter{Status: model.LeadConverted})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, second.ID, byStatus[0].ID)

	byBuyer, err := st.ListLeads(ctx, ledger.Filter{BuyerID: "buy-2"})
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assert.Equal(t, third.ID, byBuyer[0].ID)

	limited, err := st.ListLeads(ctx, ledger.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_CountLeadsSince_IgnoresStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	conn := testConnection()
	require.NoError(t, st.CreateConnection(ctx, conn))

	base := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	for i, status := range []model.LeadStatus{model.LeadPending, model.LeadRejected, model.LeadConverted} {
		lead := testLead(conn.ID)
		lead.Status = status
		lead.CreatedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		lead.UpdatedAt = lead.CreatedAt
		require.NoError(t, st.CreateLead(ctx, lead))
	}

	// All three count, regardless of status.
	n, err := st.CountLeadsSince(ctx, conn.ID, base)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Only the two at or after day two.
	n, err = st.CountLeadsSince(ctx, conn.ID, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.CountLeadsSince(ctx, "other-conn", base)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLite_ExpireLeadsBefore(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	conn := testConnection()
	require.NoError(t, st.CreateConnection(ctx, conn))

	now := time.Now().UTC()
	oldPending := testLead(conn.ID)
	oldPending.CreatedAt = now.Add(-72 * time.Hour)
	require.NoError(t, st.CreateLead(ctx, oldPending))

	oldClaimed := testLead(conn.ID)
	oldClaimed.Status = model.LeadClaimed
	oldClaimed.CreatedAt = now.Add(-72 * time.Hour)
	require.NoError(t, st.CreateLead(ctx, oldClaimed))

	freshPending := testLead(conn.ID)
	require.NoError(t, st.CreateLead(ctx, freshPending))

	n, err := st.ExpireLeadsBefore(ctx, now.Add(-48*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fetched, err := st.GetLead(ctx, oldPending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadExpired, fetched.Status)

	fetched, err = st.GetLead(ctx, oldClaimed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadClaimed, fetched.Status)

	fetched, err = st.GetLead(ctx, freshPending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadPending, fetched.Status)
}

// --- Migrate ---

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	// Migrate already ran in newTestSQLiteStore; a second pass is a no-op.
	require.NoError(t, st.Migrate(context.Background()))
}
