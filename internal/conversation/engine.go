// Package conversation runs the turn protocol: compose a multimodal message
// from a prompt and its files, replay the session into a fresh chat, send,
// parse the structured reply and append both sides of the exchange.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gora/internal/attach"
	"gora/internal/llm"
	"gora/internal/logging"
	"gora/internal/reply"
	"gora/internal/session"

	"go.uber.org/zap"
)

// DefaultTitleLength is the auto-title prefix length in runes.
const DefaultTitleLength = 24

// emptyReply is persisted when the model returned neither answer nor code.
const emptyReply = "(empty reply)"

// Options configures an Engine.
type Options struct {
	TitleLength int
	Observer    Observer
}

// Engine executes turns against a remote model.
type Engine struct {
	client      llm.Client
	assembler   *attach.Assembler
	titleLength int
	observer    Observer
}

// NewEngine creates an engine. client may be nil until a credential is
// configured; every Submit then fails with ErrNotConfigured.
func NewEngine(client llm.Client, assembler *attach.Assembler, opts Options) *Engine {
	if assembler == nil {
		assembler = attach.New(attach.DefaultOptions())
	}
	if opts.TitleLength <= 0 {
		opts.TitleLength = DefaultTitleLength
	}
	return &Engine{
		client:      client,
		assembler:   assembler,
		titleLength: opts.TitleLength,
		observer:    opts.Observer,
	}
}

// SetClient swaps the remote client after a credential change.
func (e *Engine) SetClient(client llm.Client) {
	e.client = client
}

// Request is one turn submission.
type Request struct {
	Session *session.Session
	Model   string
	Prompt  string
	Files   []attach.File

	// OnChunk, when set, streams the reply. The turn only completes once
	// the stream ends.
	OnChunk func(chunk string)
}

// Result is a completed turn.
type Result struct {
	Reply    reply.Reply
	Raw      string
	Assembly attach.Assembly
	Titled   bool
	Elapsed  time.Duration
}

// Submit runs one turn. On success the session has grown by exactly one
// user turn and one model turn. On failure the session is unchanged and the
// error is ErrNotConfigured, ErrNoSession, ErrEmptyPrompt or a *TurnError.
func (e *Engine) Submit(ctx context.Context, req Request) (*Result, error) {
	log := logging.Get(logging.CategoryTurn)

	if e.client == nil || req.Model == "" {
		return nil, ErrNotConfigured
	}
	if req.Session == nil {
		return nil, ErrNoSession
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	sess := req.Session
	start := time.Now()

	e.transition(sess.ID, StateComposing)
	asm := e.assembler.Assemble(ctx, req.Prompt, req.Files)
	payload := asm.Parts(reply.Instructions)

	e.transition(sess.ID, StateDispatched)
	log.Info("turn dispatched",
		zap.String("session", sess.ID),
		zap.String("model", req.Model),
		zap.Int("history", sess.Len()),
		zap.Int("parts", len(payload)),
		zap.Bool("stream", req.OnChunk != nil))

	raw, err := e.dispatch(ctx, req, sess, payload)
	if err != nil {
		e.transition(sess.ID, StateFailed)
		turnErr := &TurnError{Model: req.Model, Quota: llm.IsQuotaError(err), Err: err}
		log.Warn("turn failed",
			zap.String("session", sess.ID),
			zap.Bool("quota", turnErr.Quota),
			zap.Error(err))
		return nil, turnErr
	}

	parsed := reply.Parse(raw)
	sess.Append(
		session.Turn{Role: session.RoleUser, Parts: asm.Parts("")},
		session.Turn{Role: session.RoleModel, Parts: []session.Part{session.TextPart(persistedAnswer(parsed))}},
	)
	titled := sess.AutoTitle(req.Prompt, e.titleLength)

	e.transition(sess.ID, StateCompleted)
	res := &Result{
		Reply:    parsed,
		Raw:      raw,
		Assembly: asm,
		Titled:   titled,
		Elapsed:  time.Since(start),
	}
	log.Info("turn completed",
		zap.String("session", sess.ID),
		zap.Bool("code", parsed.HasCode()),
		zap.Int("suggestions", len(parsed.Suggestions)),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, req Request, sess *session.Session, payload []session.Part) (string, error) {
	chat, err := e.client.StartChat(ctx, req.Model, sess.HistoryCopy())
	if err != nil {
		return "", err
	}
	if req.OnChunk != nil {
		return chat.SendStream(ctx, payload, req.OnChunk)
	}
	return chat.Send(ctx, payload)
}

// persistedAnswer is the model turn text. It never holds a sentinel.
func persistedAnswer(r reply.Reply) string {
	if r.Answer != "" {
		return r.Answer
	}
	if r.Code != "" {
		return fmt.Sprintf("```go\n%s\n```", r.Code)
	}
	return emptyReply
}

func (e *Engine) transition(sessionID string, s State) {
	logging.Get(logging.CategoryTurn).Debug("turn state", zap.String("session", sessionID), zap.Stringer("state", s))
	if e.observer != nil {
		e.observer(sessionID, s)
	}
}
