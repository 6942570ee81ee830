package workflow

// State is the orchestrator's position in the share-application session.
// States only ever advance; any failure jumps straight to StateFailed.
type State int

const (
	StateStart State = iota
	StateAwaitingParticipantSelection
	StateAwaitingCredentials
	StateAuthenticatingSubmit
	StateSessionEstablished
	StateTokenExtracted
	StateFormPopulating
	StateAwaitingConfirmation
	StateSubmitted
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateStart:                        "start",
	StateAwaitingParticipantSelection: "awaiting_participant_selection",
	StateAwaitingCredentials:          "awaiting_credentials",
	StateAuthenticatingSubmit:         "authenticating_submit",
	StateSessionEstablished:           "session_established",
	StateTokenExtracted:               "token_extracted",
	StateFormPopulating:               "form_populating",
	StateAwaitingConfirmation:         "awaiting_confirmation",
	StateSubmitted:                    "submitted",
	StateSucceeded:                    "succeeded",
	StateFailed:                       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
