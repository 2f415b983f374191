package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from LeadStatus
		to   LeadStatus
		want bool
	}{
		{"pending to claimed", LeadPending, LeadClaimed, true},
		{"pending to converted", LeadPending, LeadConverted, true},
		{"pending to rejected", LeadPending, LeadRejected, true},
		{"pending to expired", LeadPending, LeadExpired, true},
		{"claimed to converted", LeadClaimed, LeadConverted, true},
		{"claimed to rejected", LeadClaimed, LeadRejected, true},
		{"claimed back to pending", LeadClaimed, LeadPending, false},
		{"claimed to expired", LeadClaimed, LeadExpired, false},
		{"converted is terminal", LeadConverted, LeadClaimed, false},
		{"rejected is terminal", LeadRejected, LeadConverted, false},
		{"expired is terminal", LeadExpired, LeadClaimed, false},
		{"no self loop", LeadPending, LeadPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}
