package enums

import "fmt"

// SessionState tracks the lifecycle of an order-collection session.
type SessionState string

const (
	SessionStateOpeningControl SessionState = "opening_control"
	SessionStateOpened         SessionState = "opened"
	SessionStateClosingControl SessionState = "closing_control"
	SessionStateClosed         SessionState = "closed"
)

var validSessionStates = []SessionState{
	SessionStateOpeningControl,
	SessionStateOpened,
	SessionStateClosingControl,
	SessionStateClosed,
}

// OpenFamily reports whether the state still accepts new orders.
func (s SessionState) OpenFamily() bool {
	return s == SessionStateOpened || s == SessionStateOpeningControl
}

// String implements fmt.Stringer.
func (s SessionState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SessionState.
func (s SessionState) IsValid() bool {
	for _, candidate := range validSessionStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSessionState converts raw input into a SessionState.
func ParseSessionState(value string) (SessionState, error) {
	for _, candidate := range validSessionStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session state %q", value)
}
