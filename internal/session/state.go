package session

import "github.com/rickgao/predict-core/internal/model"

// Status is the state machine position.
type Status int

const (
	SignedOut Status = iota
	Authenticating
	SignedIn
)

func (s Status) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case SignedIn:
		return "signed_in"
	default:
		return "signed_out"
	}
}

// State is an immutable view of the manager. Session is set only when
// Status is SignedIn.
type State struct {
	Status  Status
	Session *model.Session
}

var signedOut = &State{Status: SignedOut}

func signedInState(s model.Session) *State {
	return &State{Status: SignedIn, Session: &s}
}
