package conversation

import (
	"errors"
	"fmt"

	"gora/internal/llm"
)

var (
	// ErrNotConfigured blocks the turn protocol until a credential and model exist.
	ErrNotConfigured = errors.New("workspace not configured: enter a Gemini API key and select a model")

	// ErrNoSession is returned when a turn is submitted without a session.
	ErrNoSession = errors.New("no active session: start a new session first")

	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// QuotaAdvice is the user-facing advisory for rate/quota failures.
var QuotaAdvice = fmt.Sprintf("quota exceeded: wait %s before retrying", llm.QuotaBackoff)

// TurnError is a failed remote call. The session is left untouched.
type TurnError struct {
	Model string
	Quota bool
	Err   error
}

func (e *TurnError) Error() string {
	if e.Quota {
		return fmt.Sprintf("%s (%v)", QuotaAdvice, e.Err)
	}
	return fmt.Sprintf("model %s failed: %v", e.Model, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// UserMessage is the banner text for the error.
func (e *TurnError) UserMessage() string {
	if e.Quota {
		return QuotaAdvice
	}
	return fmt.Sprintf("The model call failed: %v", e.Err)
}
