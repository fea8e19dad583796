// Package llm is the remote model collaborator: model enumeration, chats
// seeded by replaying a session's history, and quota error recognition.
package llm

import (
	"context"
	"errors"
	"strings"

	"gora/internal/session"
)

// GenerateContentAction marks models usable for chat.
const GenerateContentAction = "generateContent"

// QuotaBackoff is the advisory wait shown after a quota error.
const QuotaBackoff = "60 seconds"

// ErrUnknownModel is returned when selecting a model the registry does not list.
var ErrUnknownModel = errors.New("unknown model")

// ErrNoModels is returned when the credential enumerates no chat models.
var ErrNoModels = errors.New("no models supporting generateContent are available for this key")

// Client is a remote model service bound to one credential.
type Client interface {
	// ListModels returns ids of models that support content generation.
	ListModels(ctx context.Context) ([]string, error)

	// StartChat returns a chat handle whose context is the replayed history.
	StartChat(ctx context.Context, model string, history []session.Turn) (Chat, error)
}

// Chat is a resumable chat handle.
type Chat interface {
	// Send sends one multimodal message and returns the full reply text.
	Send(ctx context.Context, parts []session.Part) (string, error)

	// SendStream is Send with incremental text delivered to onChunk.
	// The returned text is the concatenation of all chunks.
	SendStream(ctx context.Context, parts []session.Part, onChunk func(string)) (string, error)
}

// Factory builds a Client for a credential.
type Factory func(ctx context.Context, apiKey string) (Client, error)

// StatusError is an upstream failure carrying a status indicator.
type StatusError interface {
	error
	StatusCode() int
	StatusText() string
}

// IsQuotaError reports whether err is a rate/quota condition.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if code, status, ok := apiStatus(err); ok {
		return code == 429 || strings.EqualFold(status, "RESOURCE_EXHAUSTED")
	}
	var se StatusError
	if errors.As(err, &se) {
		return se.StatusCode() == 429 || strings.EqualFold(se.StatusText(), "RESOURCE_EXHAUSTED")
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}
