//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotelane/exchange-cli/internal/model"
)

func TestFormatConnectionsList(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	conns := []model.Connection{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			ProviderID: "prov-1",
			BuyerID:    "buy-1",
			Status:     model.StatusActive,
			Terms:      &model.ContractTerms{RatePerLead: 27.5, PaymentTiming: model.PayWeekly},
			TotalLeads: 4,
			TotalPaid:  110,
			CreatedAt:  now,
		},
		{
			ID:         "def12345-6789-0000-0000-000000000000",
			ProviderID: "prov-2",
			BuyerID:    "buy-1",
			Status:     model.StatusPendingBuyerReview,
			CreatedAt:  now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatConnectionsList(&buf, conns)

	output := buf.String()
	assert.Contains(t, output, "PROVIDER")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "prov-1")
	assert.Contains(t, output, "active")
	assert.Contains(t, output, "$27.50")
	assert.Contains(t, output, "$110.00")
	assert.Contains(t, output, "2025-03-10 09:00")
	assert.Contains(t, output, "def12345")
	assert.Contains(t, output, "pending_buyer_review")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}

func newActorCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	registerActorFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestActorFromFlags_Provider(t *testing.T) {
	cmd := newActorCmd(t, "--as-provider", "prov-1")

	actor, err := actorFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, model.Actor{ID: "prov-1", Role: model.RoleProvider}, actor)
}

func TestActorFromFlags_Buyer(t *testing.T) {
	cmd := newActorCmd(t, "--as-buyer", "buy-1")

	actor, err := actorFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, model.Actor{ID: "buy-1", Role: model.RoleBuyer}, actor)
}

func TestActorFromFlags_NoneSet(t *testing.T) {
	cmd := newActorCmd(t)

	_, err := actorFromFlags(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestActorFromFlags_TwoSet(t *testing.T) {
	cmd := newActorCmd(t, "--as-provider", "prov-1", "--as-buyer", "buy-1")

	_, err := actorFromFlags(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestTermsFromFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	registerTermsFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--rate", "27.5",
		"--timing", "monthly",
		"--lead-types", "call,quote",
		"--weekly-limit", "50",
		"--pause-at-cap",
	}))

	terms := termsFromFlags(cmd)
	assert.Equal(t, 27.5, terms.RatePerLead)
	assert.Equal(t, model.PayMonthly, terms.PaymentTiming)
	assert.Equal(t, []string{"call", "quote"}, terms.LeadTypes)
	assert.Equal(t, 50, terms.WeeklyLeadLimit)
	assert.Equal(t, 0, terms.MonthlyLeadLimit)
	assert.True(t, terms.PauseWhenCapReached)
	assert.False(t, terms.Exclusive)
}
