// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"strings"

	"gora/internal/llm"
	"gora/internal/session"
)

// Call records one message sent through a fake chat.
type Call struct {
	Model   string
	History []session.Turn
	Parts   []session.Part
	Stream  bool
}

// Fake is a scripted llm.Client. Replies are consumed in order; when an
// entry in Errors is non-nil at the same index, that call fails instead.
type Fake struct {
	Models  []string
	ListErr error

	Replies []string
	Errors  []error

	// ChunkSize splits streamed replies; 0 streams the reply as one chunk.
	ChunkSize int

	Calls []Call
}

var _ llm.Client = (*Fake)(nil)

// ListModels returns the scripted models.
func (f *Fake) ListModels(ctx context.Context) ([]string, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]string(nil), f.Models...), nil
}

// StartChat returns a chat recording into f.
func (f *Fake) StartChat(ctx context.Context, model string, history []session.Turn) (llm.Chat, error) {
	return &fakeChat{fake: f, model: model, history: history}, nil
}

type fakeChat struct {
	fake    *Fake
	model   string
	history []session.Turn
}

func (c *fakeChat) next(parts []session.Part, stream bool) (string, error) {
	f := c.fake
	i := len(f.Calls)
	f.Calls = append(f.Calls, Call{Model: c.model, History: c.history, Parts: parts, Stream: stream})
	if i < len(f.Errors) && f.Errors[i] != nil {
		return "", f.Errors[i]
	}
	if i < len(f.Replies) {
		return f.Replies[i], nil
	}
	return "", nil
}

func (c *fakeChat) Send(ctx context.Context, parts []session.Part) (string, error) {
	return c.next(parts, false)
}

func (c *fakeChat) SendStream(ctx context.Context, parts []session.Part, onChunk func(string)) (string, error) {
	text, err := c.next(parts, true)
	if err != nil {
		return "", err
	}
	size := c.fake.ChunkSize
	if size <= 0 {
		size = len(text)
	}
	var sb strings.Builder
	for start := 0; start < len(text); start += size {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		sb.WriteString(text[start:end])
		if onChunk != nil {
			onChunk(text[start:end])
		}
	}
	return sb.String(), nil
}

// StatusErr is an error carrying an HTTP-style status, for quota tests.
type StatusErr struct {
	Code   int
	Status string
}

func (e StatusErr) Error() string      { return e.Status }
func (e StatusErr) StatusCode() int    { return e.Code }
func (e StatusErr) StatusText() string { return e.Status }
