package acct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext_ListedTransitions(t *testing.T) {
	tests := []struct {
		from  State
		event EventKind
		to    State
	}{
		{StateStart, EventInitialize, StateStart},
		{StateStart, EventAccountNotFound, StateNotAuthenticated},
		{StateStart, EventAccountRestored, StateAuthenticatedNoProfile},

		{StateNotAuthenticated, EventAuthenticated, StateAuthenticatedNoProfile},

		{StateAuthenticatedNoProfile, EventAuthenticationError, StateAuthenticationProblem},
		{StateAuthenticatedNoProfile, EventFetchProfile, StateAuthenticatedNoProfile},
		{StateAuthenticatedNoProfile, EventFetchedProfile, StateAuthenticatedWithProfile},
		{StateAuthenticatedNoProfile, EventFailedToFetchProfile, StateAuthenticatedNoProfile},
		{StateAuthenticatedNoProfile, EventLogout, StateNotAuthenticated},

		{StateAuthenticatedWithProfile, EventAuthenticationError, StateAuthenticationProblem},
		{StateAuthenticatedWithProfile, EventLogout, StateNotAuthenticated},

		{StateAuthenticationProblem, EventAuthenticated, StateAuthenticatedNoProfile},
		{StateAuthenticationProblem, EventRecoveredFromAuthProblem, StateAuthenticatedNoProfile},
		{StateAuthenticationProblem, EventLogout, StateNotAuthenticated},
	}

	for _, tc := range tests {
		t.Run(tc.from.String()+"/"+tc.event.String(), func(t *testing.T) {
			got, ok := next(tc.from, tc.event)
			assert.True(t, ok, "transition should be listed")
			assert.Equal(t, tc.to, got)
		})
	}
}

func TestNext_UnlistedPairsLeaveStateUnchanged(t *testing.T) {
	states := []State{
		StateStart,
		StateNotAuthenticated,
		StateAuthenticatedNoProfile,
		StateAuthenticatedWithProfile,
		StateAuthenticationProblem,
	}
	events := []EventKind{
		EventInitialize,
		EventAccountNotFound,
		EventAccountRestored,
		EventAuthenticated,
		EventAuthenticationError,
		EventRecoveredFromAuthProblem,
		EventFetchProfile,
		EventFetchedProfile,
		EventFailedToFetchProfile,
		EventLogout,
	}

	listed := map[[2]int]bool{}
	record := func(s State, k EventKind) { listed[[2]int{int(s), int(k)}] = true }
	record(StateStart, EventInitialize)
	record(StateStart, EventAccountNotFound)
	record(StateStart, EventAccountRestored)
	record(StateNotAuthenticated, EventAuthenticated)
	record(StateAuthenticatedNoProfile, EventAuthenticationError)
	record(StateAuthenticatedNoProfile, EventFetchProfile)
	record(StateAuthenticatedNoProfile, EventFetchedProfile)
	record(StateAuthenticatedNoProfile, EventFailedToFetchProfile)
	record(StateAuthenticatedNoProfile, EventLogout)
	record(StateAuthenticatedWithProfile, EventAuthenticationError)
	record(StateAuthenticatedWithProfile, EventLogout)
	record(StateAuthenticationProblem, EventAuthenticated)
	record(StateAuthenticationProblem, EventRecoveredFromAuthProblem)
	record(StateAuthenticationProblem, EventLogout)

	for _, s := range states {
		for _, k := range events {
			if listed[[2]int{int(s), int(k)}] {
				continue
			}
			got, ok := next(s, k)
			assert.False(t, ok, "pair (%s, %s) should be unlisted", s, k)
			assert.Equal(t, s, got, "unlisted pair must leave state unchanged")
		}
	}
}

func TestNext_Deterministic(t *testing.T) {
	// Same inputs, same outputs, every time.
	for i := 0; i < 3; i++ {
		got, ok := next(StateAuthenticatedNoProfile, EventFetchedProfile)
		assert.True(t, ok)
		assert.Equal(t, StateAuthenticatedWithProfile, got)
	}
}
