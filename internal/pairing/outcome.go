package pairing

import (
	"github.com/dokzlo13/huelink/internal/hue"
)

// Status is the state of a pairing session.
type Status int

const (
	// StatusNotStarted means no attempt has been answered yet.
	StatusNotStarted Status = iota
	// StatusPending means the bridge is waiting for its link button.
	StatusPending
	// StatusGranted means the bridge issued an application key.
	StatusGranted
	// StatusDenied means the bridge refused with an error other than 101.
	StatusDenied
	// StatusTimedOut means the caller's deadline passed before the button was pressed.
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusPending:
		return "pending"
	case StatusGranted:
		return "granted"
	case StatusDenied:
		return "denied"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusGranted || s == StatusDenied || s == StatusTimedOut
}

// Outcome is the result of one attempt.
type Outcome struct {
	Status Status

	// Token is the application key, set when Granted.
	Token string
	// ClientKey is the entertainment client key, set when Granted and requested.
	ClientKey string

	// Reason and Code describe a denial.
	Reason string
	Code   hue.ErrorCode
}

func pending() Outcome {
	return Outcome{Status: StatusPending}
}

func granted(token, clientKey string) Outcome {
	return Outcome{Status: StatusGranted, Token: token, ClientKey: clientKey}
}

func denied(err *hue.APIError) Outcome {
	reason := err.Description
	if reason == "" {
		reason = err.Type.String()
	}
	return Outcome{Status: StatusDenied, Reason: reason, Code: err.Type}
}

func timedOut() Outcome {
	return Outcome{Status: StatusTimedOut}
}
