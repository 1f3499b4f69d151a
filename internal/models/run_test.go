package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusTerminal(t *testing.T) {
	assert.False(t, RunStatusInitializing.Terminal())
	assert.False(t, RunStatusRunning.Terminal())
	assert.True(t, RunStatusCompleted.Terminal())
	assert.True(t, RunStatusError.Terminal())
	assert.True(t, RunStatusStopped.Terminal())
}

func TestRunStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to RunStatus
		ok       bool
	}{
		{RunStatusInitializing, RunStatusRunning, true},
		{RunStatusInitializing, RunStatusCompleted, true},
		{RunStatusInitializing, RunStatusError, true},
		{RunStatusInitializing, RunStatusStopped, true},
		{RunStatusRunning, RunStatusCompleted, true},
		{RunStatusRunning, RunStatusError, true},
		{RunStatusRunning, RunStatusStopped, true},
		{RunStatusRunning, RunStatusRunning, true},
		{RunStatusRunning, RunStatusInitializing, false},
		{RunStatusCompleted, RunStatusRunning, false},
		{RunStatusCompleted, RunStatusError, false},
		{RunStatusCompleted, RunStatusCompleted, false},
		{RunStatusError, RunStatusCompleted, false},
		{RunStatusStopped, RunStatusRunning, false},
		{RunStatus("bogus"), RunStatusRunning, false},
		{RunStatusRunning, RunStatus("bogus"), false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestProviderValid(t *testing.T) {
	assert.True(t, ProviderGoogle.Valid())
	assert.True(t, ProviderMicrosoft.Valid())
	assert.False(t, ProviderType("dropbox").Valid())
	assert.False(t, ProviderType("").Valid())
}
