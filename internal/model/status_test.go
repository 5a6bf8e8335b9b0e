package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_Next(t *testing.T) {
	testCases := []struct {
		from     OrderStatus
		expected OrderStatus
		ok       bool
	}{
		{OrderReceived, OrderInProgress, true},
		{OrderInProgress, OrderPickup, true},
		{OrderPickup, OrderComplete, true},
		{OrderComplete, "", false},
		{OrderStatus("WASHING"), "", false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from), func(t *testing.T) {
			next, ok := tc.from.Next()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, next)
		})
	}
}

func TestOrderStatus_RequiresPrice(t *testing.T) {
	assert.True(t, OrderPickup.RequiresPrice())
	assert.False(t, OrderInProgress.RequiresPrice())
	assert.False(t, OrderComplete.RequiresPrice())
}

func TestReservationStatus_Transitions(t *testing.T) {
	assert.True(t, ReservationPending.CanTransitionTo(ReservationConfirmed))
	assert.True(t, ReservationPending.CanTransitionTo(ReservationCancelled))
	assert.False(t, ReservationPending.CanTransitionTo(ReservationCompleted))
	assert.True(t, ReservationConfirmed.CanTransitionTo(ReservationCompleted))
	assert.True(t, ReservationConfirmed.CanTransitionTo(ReservationCancelled))
	assert.False(t, ReservationConfirmed.CanTransitionTo(ReservationPending))

	assert.True(t, ReservationCompleted.Terminal())
	assert.True(t, ReservationCancelled.Terminal())
	assert.False(t, ReservationCancelled.CanTransitionTo(ReservationPending))
	assert.False(t, ReservationStatus("ARCHIVED").Valid())
}

func TestBlacklistType_Reason(t *testing.T) {
	assert.Equal(t, ReasonBlacklistEmail, BlacklistEmail.Reason())
	assert.Equal(t, ReasonBlacklistPhone, BlacklistPhone.Reason())
	assert.Equal(t, ReasonBlacklistIP, BlacklistIP.Reason())
}

func TestUserSettings_EmailConfigured(t *testing.T) {
	key, from, empty := "re_123", "shop@example.com", ""

	assert.False(t, (*UserSettings)(nil).EmailConfigured())
	assert.False(t, (&UserSettings{ResendAPIKey: &key}).EmailConfigured())
	assert.False(t, (&UserSettings{ResendAPIKey: &empty, EmailFromAddress: &from}).EmailConfigured())
	assert.True(t, (&UserSettings{ResendAPIKey: &key, EmailFromAddress: &from}).EmailConfigured())
}
