package acct

// next is the pure transition function. It returns the successor state
// and true for listed (state, event) pairs; unlisted pairs return the
// current state and false, and the driver logs and ignores the event.
func next(s State, k EventKind) (State, bool) {
	switch s {
	case StateStart:
		switch k {
		case EventInitialize:
			return StateStart, true
		case EventAccountNotFound:
			return StateNotAuthenticated, true
		case EventAccountRestored:
			return StateAuthenticatedNoProfile, true
		}

	case StateNotAuthenticated:
		if k == EventAuthenticated {
			return StateAuthenticatedNoProfile, true
		}

	case StateAuthenticatedNoProfile:
		switch k {
		case EventAuthenticationError:
			return StateAuthenticationProblem, true
		case EventFetchProfile:
			return StateAuthenticatedNoProfile, true
		case EventFetchedProfile:
			return StateAuthenticatedWithProfile, true
		case EventFailedToFetchProfile:
			return StateAuthenticatedNoProfile, true
		case EventLogout:
			return StateNotAuthenticated, true
		}

	case StateAuthenticatedWithProfile:
		switch k {
		case EventAuthenticationError:
			return StateAuthenticationProblem, true
		case EventLogout:
			return StateNotAuthenticated, true
		}

	case StateAuthenticationProblem:
		switch k {
		case EventAuthenticated:
			return StateAuthenticatedNoProfile, true
		case EventRecoveredFromAuthProblem:
			return StateAuthenticatedNoProfile, true
		case EventLogout:
			return StateNotAuthenticated, true
		}
	}

	return s, false
}
