package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gora/internal/attach"
	"gora/internal/llm/llmtest"
	"gora/internal/reply"
	"gora/internal/session"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReply = "Answer text\nCÓDIGO:\nprint(1)\nSUGESTÕES:\nA,B,C"

func newSession() *session.Session {
	return session.NewStore().Create()
}

func TestSubmit_SuccessAppendsTwoTurns(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{sampleReply}}
	engine := NewEngine(fake, nil, Options{})
	sess := newSession()

	res, err := engine.Submit(context.Background(), Request{Session: sess, Model: "models/a", Prompt: "Hello there"})
	require.NoError(t, err)

	require.Equal(t, 2, sess.Len())
	assert.Equal(t, session.RoleUser, sess.History[0].Role)
	assert.Equal(t, "Hello there", sess.History[0].Text())
	assert.Equal(t, session.RoleModel, sess.History[1].Role)
	assert.Equal(t, "Answer text", sess.History[1].Text())

	assert.Equal(t, "print(1)", res.Reply.Code)
	if diff := cmp.Diff([]string{"A", "B", "C"}, res.Reply.Suggestions); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, sampleReply, res.Raw)
}

func TestSubmit_PayloadCarriesInstructionsAndContextOrder(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{"ok"}}
	engine := NewEngine(fake, attach.New(attach.DefaultOptions()), Options{})
	sess := newSession()

	files := []attach.File{
		{Name: "pic.png", MediaType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")},
		{Name: "notes.txt", Data: []byte("remember this")},
	}
	_, err := engine.Submit(context.Background(), Request{Session: sess, Model: "models/a", Prompt: "Explain", Files: files})
	require.NoError(t, err)

	require.Len(t, fake.Calls, 1)
	parts := fake.Calls[0].Parts
	require.Len(t, parts, 3)
	assert.True(t, strings.HasPrefix(parts[0].Text, attach.ContextHeading))
	assert.Contains(t, parts[0].Text, "[notes.txt]\nremember this")
	assert.Equal(t, "Explain"+reply.Instructions, parts[1].Text)
	assert.True(t, parts[2].IsImage())

	// The persisted user turn keeps the context and image but not the instructions.
	user := sess.History[0]
	require.Len(t, user.Parts, 3)
	assert.Equal(t, "Explain", user.Parts[1].Text)
	assert.NotContains(t, user.Text(), reply.CodeSentinel)
}

func TestSubmit_ReplaysPriorHistory(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{"first SUGESTÕES: x", "second"}}
	engine := NewEngine(fake, nil, Options{})
	sess := newSession()
	ctx := context.Background()

	_, err := engine.Submit(ctx, Request{Session: sess, Model: "models/a", Prompt: "one"})
	require.NoError(t, err)
	_, err = engine.Submit(ctx, Request{Session: sess, Model: "models/a", Prompt: "two"})
	require.NoError(t, err)

	require.Len(t, fake.Calls, 2)
	assert.Empty(t, fake.Calls[0].History)
	replayed := fake.Calls[1].History
	require.Len(t, replayed, 2)
	assert.Equal(t, "one", replayed[0].Text())
	assert.Equal(t, "first", replayed[1].Text())
	assert.Equal(t, 4, sess.Len())
}

func TestSubmit_PersistedModelTurnHasNoSentinels(t *testing.T) {
	raws := []string{
		sampleReply,
		"CÓDIGO:\nx := 1\nSUGESTÕES: a",
		"SUGESTÕES: a, b",
		"quote CÓDIGO: inside CÓDIGO: twice SUGESTÕES: s",
	}
	for _, raw := range raws {
		fake := &llmtest.Fake{Replies: []string{raw}}
		engine := NewEngine(fake, nil, Options{})
		sess := newSession()

		_, err := engine.Submit(context.Background(), Request{Session: sess, Model: "m", Prompt: "p"})
		require.NoError(t, err)

		model := sess.History[1].Text()
		assert.NotEmpty(t, model)
		assert.NotContains(t, model, reply.CodeSentinel, "raw %q", raw)
		assert.NotContains(t, model, reply.SuggestionsSentinel, "raw %q", raw)
	}
}

func TestSubmit_CodeOnlyReplyPersistsFencedCode(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{"CÓDIGO:\nx := 1"}}
	engine := NewEngine(fake, nil, Options{})
	sess := newSession()

	_, err := engine.Submit(context.Background(), Request{Session: sess, Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "```go\nx := 1\n```", sess.History[1].Text())
}

func TestSubmit_FailureLeavesSessionUntouched(t *testing.T) {
	fake := &llmtest.Fake{Errors: []error{errors.New("connection reset")}}
	engine := NewEngine(fake, nil, Options{})
	sess := newSession()

	_, err := engine.Submit(context.Background(), Request{Session: sess, Model: "models/a", Prompt: "hello"})
	require.Error(t, err)

	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.False(t, turnErr.Quota)
	assert.Contains(t, turnErr.UserMessage(), "connection reset")

	assert.Zero(t, sess.Len(), "no user or model turn is appended")
	assert.Equal(t, session.PlaceholderTitle, sess.Title)
}

func TestSubmit_QuotaFailureIsDistinguished(t *testing.T) {
	fake := &llmtest.Fake{Errors: []error{llmtest.StatusErr{Code: 429, Status: "RESOURCE_EXHAUSTED"}}}
	engine := NewEngine(fake, nil, Options{})

	_, err := engine.Submit(context.Background(), Request{Session: newSession(), Model: "m", Prompt: "p"})

	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.True(t, turnErr.Quota)
	assert.Equal(t, QuotaAdvice, turnErr.UserMessage())
	assert.Contains(t, err.Error(), "60 seconds")
}

func TestSubmit_Preconditions(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{"ok"}}
	ctx := context.Background()

	_, err := NewEngine(nil, nil, Options{}).Submit(ctx, Request{Session: newSession(), Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewEngine(fake, nil, Options{}).Submit(ctx, Request{Session: newSession(), Prompt: "p"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewEngine(fake, nil, Options{}).Submit(ctx, Request{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = NewEngine(fake, nil, Options{}).Submit(ctx, Request{Session: newSession(), Model: "m", Prompt: "  "})
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	assert.Empty(t, fake.Calls, "nothing is dispatched")
}

func TestSubmit_AutoTitleOnce(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{"a", "b"}}
	engine := NewEngine(fake, nil, Options{TitleLength: 10})
	sess := newSession()
	ctx := context.Background()

	res, err := engine.Submit(ctx, Request{Session: sess, Model: "m", Prompt: "Plan my week please"})
	require.NoError(t, err)
	assert.True(t, res.Titled)
	assert.Equal(t, "Plan my we...", sess.Title)

	res, err = engine.Submit(ctx, Request{Session: sess, Model: "m", Prompt: "Something else entirely"})
	require.NoError(t, err)
	assert.False(t, res.Titled)
	assert.Equal(t, "Plan my we...", sess.Title)
}

func TestSubmit_StreamingCompletesAfterStream(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{sampleReply}, ChunkSize: 5}
	var states []State
	engine := NewEngine(fake, nil, Options{Observer: func(_ string, s State) { states = append(states, s) }})
	sess := newSession()

	var streamed strings.Builder
	res, err := engine.Submit(context.Background(), Request{
		Session: sess,
		Model:   "m",
		Prompt:  "p",
		OnChunk: func(c string) {
			streamed.WriteString(c)
			assert.Zero(t, sess.Len(), "history is not appended while streaming")
		},
	})
	require.NoError(t, err)
	assert.Equal(t, sampleReply, streamed.String())
	assert.Equal(t, "Answer text", res.Reply.Answer)
	assert.Equal(t, []State{StateComposing, StateDispatched, StateCompleted}, states)
	assert.True(t, fake.Calls[0].Stream)
}

func TestSubmit_ObserverSeesFailure(t *testing.T) {
	fake := &llmtest.Fake{Errors: []error{errors.New("x")}}
	var states []State
	engine := NewEngine(fake, nil, Options{Observer: func(_ string, s State) { states = append(states, s) }})

	_, err := engine.Submit(context.Background(), Request{Session: newSession(), Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, []State{StateComposing, StateDispatched, StateFailed}, states)
	assert.True(t, states[2].Terminal())
	assert.Equal(t, "failed", states[2].String())
}
