package connection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quotelane/exchange-cli/internal/model"
)

var (
	testProvider = model.Actor{ID: "prov-1", Role: model.RoleProvider}
	testBuyer    = model.Actor{ID: "buy-1", Role: model.RoleBuyer}
	testAdmin    = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService() (*Service, *testClock) {
	clock := &testClock{now: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
	return NewService(newMemStore(), WithClock(clock.Now)), clock
}

func validTerms() model.ContractTerms {
	return model.ContractTerms{
		RatePerLead:         25,
		PaymentTiming:       model.PayWeekly,
		WeeklyLeadLimit:     10,
		PauseWhenCapReached: true,
	}
}

// mustInitiate seeds a fresh pending_buyer_review connection.
func mustInitiate(t *testing.T, svc *Service) *model.Connection {
	t.Helper()
	conn, err := svc.Initiate(context.Background(), testProvider, testProvider.ID, testBuyer.ID, "looking to sell auto leads")
	require.NoError(t, err)
	return conn
}

// mustActivate walks a connection to active.
func mustActivate(t *testing.T, svc *Service) *model.Connection {
	t.Helper()
	ctx := context.Background()
	conn := mustInitiate(t, svc)
	_, err := svc.SetTerms(ctx, testBuyer, conn.ID, validTerms())
	require.NoError(t, err)
	conn, err = svc.Accept(ctx, testProvider, conn.ID)
	require.NoError(t, err)
	return conn
}

func TestLifecycleHappyPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clock := newTestService()

	conn := mustInitiate(t, svc)
	assert.Equal(t, model.StatusPendingBuyerReview, conn.Status)
	assert.Equal(t, clock.Now(), conn.CreatedAt)
	assert.Nil(t, conn.Terms)
	assert.Nil(t, conn.AcceptedAt)

	clock.Advance(time.Hour)
	conn, err := svc.SetTerms(ctx, testBuyer, conn.ID, validTerms())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingProviderAccept, conn.Status)
	require.NotNil(t, conn.Terms)
	assert.Equal(t, 25.0, conn.Terms.RatePerLead)
	require.NotNil(t, conn.TermsUpdatedAt)
	termsAt := *conn.TermsUpdatedAt

	clock.Advance(time.Hour)
	conn, err = svc.Accept(ctx, testProvider, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, conn.Status)
	require.NotNil(t, conn.AcceptedAt)
	acceptedAt := *conn.AcceptedAt
	assert.True(t, acceptedAt.After(termsAt))

	clock.Advance(time.Hour)
	newTerms := validTerms()
	newTerms.RatePerLead = 40
	conn, err = svc.UpdateTerms(ctx, testBuyer, conn.ID, newTerms)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, conn.Status)
	assert.Equal(t, 40.0, conn.Terms.RatePerLead)
	assert.Equal(t, acceptedAt, *conn.AcceptedAt, "accepted_at is set exactly once")
	assert.True(t, conn.TermsUpdatedAt.After(termsAt))

	clock.Advance(time.Hour)
	conn, err = svc.Terminate(ctx, testBuyer, conn.ID, "volume too low")
	require.NoError(t, err)
	assert.Equal(t, model.StatusTerminated, conn.Status)
	require.NotNil(t, conn.TerminatedAt)
	assert.Equal(t, testBuyer.ID, conn.TerminatedBy)
	assert.Equal(t, "volume too low", conn.TerminationReason)
}

func TestInitiateByBuyer(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()

	conn, err := svc.Initiate(context.Background(), testBuyer, testProvider.ID, testBuyer.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingBuyerReview, conn.Status)
}

func TestInitiateValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Initiate(ctx, testProvider, "", testBuyer.ID, "")
	assert.ErrorContains(t, err, "ids are required")

	_, err = svc.Initiate(ctx, testProvider, "same", "same", "")
	assert.ErrorContains(t, err, "must differ")

	// A provider cannot open a connection on another provider's behalf.
	_, err = svc.Initiate(ctx, testProvider, "prov-2", testBuyer.ID, "")
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, OpInitiate, forbidden.Op)

	// A buyer cannot open a connection for another buyer.
	_, err = svc.Initiate(ctx, testBuyer, testProvider.ID, "buy-2", "")
	require.ErrorAs(t, err, &forbidden)
}

func TestInitiatePairConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	first := mustInitiate(t, svc)

	_, err := svc.Initiate(ctx, testProvider, testProvider.ID, testBuyer.ID, "")
	var conflict *AlreadyConnectedError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.ConnectionID)
	assert.Equal(t, model.StatusPendingBuyerReview, conflict.Status)

	// A terminal connection frees the pair.
	_, err = svc.Reject(ctx, testBuyer, first.ID)
	require.NoError(t, err)
	second, err := svc.Initiate(ctx, testProvider, testProvider.ID, testBuyer.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSetTermsValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()
	conn := mustInitiate(t, svc)

	terms := validTerms()
	terms.RatePerLead = 0
	_, err := svc.SetTerms(ctx, testBuyer, conn.ID, terms)
	assert.ErrorContains(t, err, "rate_per_lead")

	terms = validTerms()
	terms.PaymentTiming = "quarterly"
	_, err = svc.SetTerms(ctx, testBuyer, conn.ID, terms)
	assert.ErrorContains(t, err, "payment_timing")

	terms = validTerms()
	terms.WeeklyLeadLimit = -1
	_, err = svc.SetTerms(ctx, testBuyer, conn.ID, terms)
	assert.ErrorContains(t, err, "lead limits")

	terms = validTerms()
	terms.MinimumPayout = -10
	_, err = svc.SetTerms(ctx, testBuyer, conn.ID, terms)
	assert.ErrorContains(t, err, "minimum_payout")
}

func TestTransitionGuards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()
	conn := mustInitiate(t, svc)

	// Accept before terms exist.
	_, err := svc.Accept(ctx, testProvider, conn.ID)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, OpAccept, invalid.Op)
	assert.Equal(t, model.StatusPendingBuyerReview, invalid.Status)

	// Terms can only be proposed once per review.
	_, err = svc.SetTerms(ctx, testBuyer, conn.ID, validTerms())
	require.NoError(t, err)
	_, err = svc.SetTerms(ctx, testBuyer, conn.ID, validTerms())
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, model.StatusPendingProviderAccept, invalid.Status)

	// Reject is a review-stage operation.
	_, err = svc.Reject(ctx, testBuyer, conn.ID)
	require.ErrorAs(t, err, &invalid)

	// Terminate requires an active connection.
	_, err = svc.Terminate(ctx, testBuyer, conn.ID, "")
	require.ErrorAs(t, err, &invalid)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	conn := mustActivate(t, svc)
	_, err := svc.Terminate(ctx, testProvider, conn.ID, "done")
	require.NoError(t, err)

	var invalid *InvalidTransitionError
	_, err = svc.SetTerms(ctx, testBuyer, conn.ID, validTerms())
	require.ErrorAs(t, err, &invalid)
	_, err = svc.Accept(ctx, testProvider, conn.ID)
	require.ErrorAs(t, err, &invalid)
	_, err = svc.UpdateTerms(ctx, testBuyer, conn.ID, validTerms())
	require.ErrorAs(t, err, &invalid)
	_, err = svc.Terminate(ctx, testBuyer, conn.ID, "again")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, model.StatusTerminated, invalid.Status)
}

func TestRoleGates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()
	conn := mustInitiate(t, svc)

	var forbidden *ForbiddenError

	// Terms are the buyer's to propose.
	_, err := svc.SetTerms(ctx, testProvider, conn.ID, validTerms())
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, OpSetTerms, forbidden.Op)

	// Reject is the buyer's as well.
	_, err = svc.Reject(ctx, testProvider, conn.ID)
	require.ErrorAs(t, err, &forbidden)

	_, err = svc.SetTerms(ctx, testBuyer, conn.ID, validTerms())
	require.NoError(t, err)

	// Accept and decline belong to the provider.
	_, err = svc.Accept(ctx, testBuyer, conn.ID)
	require.ErrorAs(t, err, &forbidden)
	_, err = svc.Decline(ctx, testBuyer, conn.ID)
	require.ErrorAs(t, err, &forbidden)

	// A different provider is not a party to this connection.
	stranger := model.Actor{ID: "prov-9", Role: model.RoleProvider}
	_, err = svc.Accept(ctx, stranger, conn.ID)
	require.ErrorAs(t, err, &forbidden)

	_, err = svc.Accept(ctx, testProvider, conn.ID)
	require.NoError(t, err)

	// Term updates stay with the buyer after activation.
	_, err = svc.UpdateTerms(ctx, testProvider, conn.ID, validTerms())
	require.ErrorAs(t, err, &forbidden)

	// Strangers cannot terminate.
	_, err = svc.Terminate(ctx, stranger, conn.ID, "")
	require.ErrorAs(t, err, &forbidden)
}

func TestAdminBypassesRoleGates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()
	conn := mustInitiate(t, svc)

	_, err := svc.SetTerms(ctx, testAdmin, conn.ID, validTerms())
	require.NoError(t, err)
	_, err = svc.Accept(ctx, testAdmin, conn.ID)
	require.NoError(t, err)
	got, err := svc.Terminate(ctx, testAdmin, conn.ID, "fraud review")
	require.NoError(t, err)
	assert.Equal(t, testAdmin.ID, got.TerminatedBy)
}

func TestRejectAndDecline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	conn := mustInitiate(t, svc)
	got, err := svc.Reject(ctx, testBuyer, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejectedByBuyer, got.Status)

	// Fresh pair for the decline path.
	conn2, err := svc.Initiate(ctx, testProvider, testProvider.ID, "buy-2", "")
	require.NoError(t, err)
	buyer2 := model.Actor{ID: "buy-2", Role: model.RoleBuyer}
	_, err = svc.SetTerms(ctx, buyer2, conn2.ID, validTerms())
	require.NoError(t, err)
	got, err = svc.Decline(ctx, testProvider, conn2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeclinedByProvider, got.Status)
}

func TestTerminateByEitherParty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	conn := mustActivate(t, svc)
	got, err := svc.Terminate(ctx, testProvider, conn.ID, "rates changed")
	require.NoError(t, err)
	assert.Equal(t, testProvider.ID, got.TerminatedBy)
}

func TestExclusivityIsAdvisory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	// First active connection for the provider.
	mustActivate(t, svc)

	// Second buyer proposes exclusive terms; acceptance still succeeds.
	buyer2 := model.Actor{ID: "buy-2", Role: model.RoleBuyer}
	conn, err := svc.Initiate(ctx, testProvider, testProvider.ID, buyer2.ID, "")
	require.NoError(t, err)
	terms := validTerms()
	terms.Exclusive = true
	_, err = svc.SetTerms(ctx, buyer2, conn.ID, terms)
	require.NoError(t, err)
	got, err := svc.Accept(ctx, testProvider, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
}

func TestListConnections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	mustActivate(t, svc)
	conn2, err := svc.Initiate(ctx, testProvider, testProvider.ID, "buy-2", "")
	require.NoError(t, err)

	all, err := svc.List(ctx, Filter{ProviderID: testProvider.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := svc.List(ctx, Filter{Status: model.StatusPendingBuyerReview})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, conn2.ID, pending[0].ID)
}

func TestStoreErrorsPropagate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := &mockStore{}
	svc := NewService(st)

	st.On("GetConnection", mock.Anything, "missing").Return(nil, assert.AnError)
	_, err := svc.Accept(ctx, testProvider, "missing")
	assert.ErrorIs(t, err, assert.AnError)

	st.On("LiveConnectionByPair", mock.Anything, "p", "b").Return(nil, nil)
	st.On("CreateConnection", mock.Anything, mock.Anything).Return(assert.AnError)
	_, err = svc.Initiate(ctx, model.Actor{ID: "p", Role: model.RoleProvider}, "p", "b", "")
	assert.ErrorIs(t, err, assert.AnError)

	st.AssertExpectations(t)
}
