// Package workspace is the explicit application state of one GORA Workspace
// process: the session store, the pending suggestions of the active session,
// the Lab code buffer and namespace, and the model registry. It is owned by
// the top-level process and passed by reference to the shell.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gora/internal/attach"
	"gora/internal/config"
	"gora/internal/conversation"
	"gora/internal/export"
	"gora/internal/llm"
	"gora/internal/logging"
	"gora/internal/scratch"
	"gora/internal/session"

	"go.uber.org/zap"
)

var (
	// ErrEmptyAPIKey is returned by Configure for a blank credential.
	ErrEmptyAPIKey = errors.New("API key is empty")

	// ErrNoOfferedCode is returned by TransferCode when the last reply had no code.
	ErrNoOfferedCode = errors.New("the last reply offered no code")

	// ErrEmptyCodeBuffer is returned when running or exporting an empty buffer.
	ErrEmptyCodeBuffer = errors.New("code buffer is empty")

	// ErrNoSuggestion is returned for an out-of-range suggestion index.
	ErrNoSuggestion = errors.New("no such suggestion")

	// ErrNothingToRestore is returned by RestoreLab before any ResetLab.
	ErrNothingToRestore = errors.New("no discarded lab namespace to restore")
)

// Deps are the collaborators a Workspace is built from. Zero values select
// the production implementations.
type Deps struct {
	Factory llm.Factory
	Lab     scratch.Executor
}

// Workspace is the whole mutable state of the application.
type Workspace struct {
	Sessions *session.Store

	// Suggestions are the follow-up questions of the last successful turn
	// in the active session.
	Suggestions []string

	// OfferedCode is the code extracted from the last successful reply.
	OfferedCode string

	// CodeBuffer is the Lab's editable code.
	CodeBuffer string

	// LastRun is the result of the most recent RunCode, nil before any.
	LastRun *scratch.Result

	Lab      scratch.Executor
	Registry *llm.Registry
	Client   llm.Client

	cfg       *config.Config
	factory   llm.Factory
	engine    *conversation.Engine
	turnState conversation.State
	discarded *scratch.Snapshot
}

// New builds a workspace from the configuration. The workspace starts
// unconfigured; call Configure with a credential before submitting turns.
func New(cfg *config.Config, deps Deps) (*Workspace, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Factory == nil {
		deps.Factory = llm.NewGeminiClient
	}
	if deps.Lab == nil {
		opts := scratch.Options{}
		if cfg.Lab.WatchArtifacts {
			opts.WatchDir = cfg.Lab.WatchDir
			opts.WatchDepth = cfg.Lab.WatchDepth
		}
		lab, err := scratch.New(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to start lab: %w", err)
		}
		deps.Lab = lab
	}

	w := &Workspace{
		Sessions: session.NewStore(),
		Lab:      deps.Lab,
		Registry: llm.NewRegistry(),
		cfg:      cfg,
		factory:  deps.Factory,
	}
	assembler := attach.New(attach.Options{
		PDFMaxPages:    cfg.Context.PDFMaxPages,
		CSVPreviewRows: cfg.Context.CSVPreviewRows,
		MaxParallel:    cfg.Context.MaxParallel,
	})
	w.engine = conversation.NewEngine(nil, assembler, conversation.Options{
		TitleLength: cfg.Session.TitleLength,
		Observer:    w.observe,
	})
	return w, nil
}

// Config returns the configuration the workspace was built from.
func (w *Workspace) Config() *config.Config {
	return w.cfg
}

// Configure installs a credential: a new client is built and the model
// registry refreshed. Any failure leaves the workspace unconfigured.
func (w *Workspace) Configure(ctx context.Context, apiKey string) error {
	log := logging.Get(logging.CategoryAPI)

	key := strings.TrimSpace(apiKey)
	if key == "" {
		w.unconfigure()
		return ErrEmptyAPIKey
	}

	client, err := w.factory(ctx, key)
	if err != nil {
		w.unconfigure()
		return fmt.Errorf("failed to create model client: %w", err)
	}
	if err := w.Registry.Refresh(ctx, client, w.cfg.LLM.Model); err != nil {
		w.unconfigure()
		log.Warn("model enumeration failed", zap.Error(err))
		return err
	}

	w.Client = client
	w.cfg.LLM.APIKey = key
	w.engine.SetClient(client)
	log.Info("workspace configured",
		zap.Int("models", len(w.Registry.Models())),
		zap.String("selected", w.Registry.Selected()))
	return nil
}

func (w *Workspace) unconfigure() {
	w.Client = nil
	w.Registry.Clear()
	w.engine.SetClient(nil)
}

// Configured reports whether turns can be submitted.
func (w *Workspace) Configured() bool {
	return w.Client != nil && w.Registry.Selected() != ""
}

// SelectModel changes the model used by subsequent turns.
func (w *Workspace) SelectModel(id string) error {
	if err := w.Registry.Select(id); err != nil {
		return err
	}
	w.cfg.LLM.Model = w.Registry.Selected()
	return nil
}

// NewSession creates a session, makes it active and clears the pending
// suggestions.
func (w *Workspace) NewSession() *session.Session {
	s := w.Sessions.Create()
	w.clearReplyState()
	logging.Get(logging.CategorySession).Info("session created", zap.String("session", s.ID))
	return s
}

// SelectSession activates an existing session. Switching to a different
// session clears the pending suggestions.
func (w *Workspace) SelectSession(id string) (*session.Session, error) {
	prev := w.Sessions.ActiveID()
	s, err := w.Sessions.Select(id)
	if err != nil {
		return nil, err
	}
	if prev != id {
		w.clearReplyState()
	}
	return s, nil
}

// DeleteSession removes a session. Deleting the active one leaves no
// session active.
func (w *Workspace) DeleteSession(id string) error {
	wasActive := w.Sessions.ActiveID() == id
	if err := w.Sessions.Delete(id); err != nil {
		return err
	}
	if wasActive {
		w.clearReplyState()
	}
	logging.Get(logging.CategorySession).Info("session deleted",
		zap.String("session", id), zap.Bool("was_active", wasActive))
	return nil
}

func (w *Workspace) clearReplyState() {
	w.Suggestions = nil
	w.OfferedCode = ""
}

// Submit runs one turn on the active session. On success the pending
// suggestions are replaced wholesale and the extracted code is offered for
// transfer; on failure both are left as they were. A non-nil onChunk
// streams the reply.
func (w *Workspace) Submit(ctx context.Context, prompt string, files []attach.File, onChunk func(string)) (*conversation.Result, error) {
	res, err := w.engine.Submit(ctx, conversation.Request{
		Session: w.Sessions.Active(),
		Model:   w.Registry.Selected(),
		Prompt:  prompt,
		Files:   files,
		OnChunk: onChunk,
	})
	if err != nil {
		return nil, err
	}
	w.Suggestions = append([]string(nil), res.Reply.Suggestions...)
	w.OfferedCode = res.Reply.Code
	return res, nil
}

// AskSuggestion submits pending suggestion i as the next prompt.
func (w *Workspace) AskSuggestion(ctx context.Context, i int, onChunk func(string)) (*conversation.Result, error) {
	if i < 0 || i >= len(w.Suggestions) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuggestion, i+1)
	}
	return w.Submit(ctx, w.Suggestions[i], nil, onChunk)
}

// TurnState is the protocol state of the most recent turn.
func (w *Workspace) TurnState() conversation.State {
	return w.turnState
}

func (w *Workspace) observe(_ string, s conversation.State) {
	w.turnState = s
}

// TransferCode moves the offered code into the Lab code buffer.
func (w *Workspace) TransferCode() error {
	if w.OfferedCode == "" {
		return ErrNoOfferedCode
	}
	w.CodeBuffer = w.OfferedCode
	return nil
}

// ClearCode empties the code buffer. The namespace keeps its names.
func (w *Workspace) ClearCode() {
	w.CodeBuffer = ""
}

// ResetLab discards the namespace and the last run. The discarded
// namespace can be rebuilt once with RestoreLab.
func (w *Workspace) ResetLab() error {
	snap := w.Lab.Snapshot()
	if err := w.Lab.Reset(); err != nil {
		return fmt.Errorf("failed to reset lab: %w", err)
	}
	w.discarded = &snap
	w.LastRun = nil
	logging.Get(logging.CategoryLab).Info("lab reset", zap.Int("discarded_cells", len(snap.Cells)))
	return nil
}

// RestoreLab replays the cells of the namespace discarded by the last
// ResetLab and returns how many ran. Replayed cells repeat their side effects.
func (w *Workspace) RestoreLab() (int, error) {
	if w.discarded == nil {
		return 0, ErrNothingToRestore
	}
	snap := *w.discarded
	if err := w.Lab.Restore(snap); err != nil {
		return 0, fmt.Errorf("failed to restore lab: %w", err)
	}
	w.discarded = nil
	return len(snap.Cells), nil
}

// RunCode executes the code buffer in the namespace. Execution failures are
// reported in the result, not as an error.
func (w *Workspace) RunCode(ctx context.Context) (scratch.Result, error) {
	if strings.TrimSpace(w.CodeBuffer) == "" {
		return scratch.Result{}, ErrEmptyCodeBuffer
	}
	res := w.Lab.Execute(ctx, w.CodeBuffer)
	w.LastRun = &res
	return res, nil
}

// ExportCode downloads the code buffer and returns the written path.
func (w *Workspace) ExportCode() (string, error) {
	if strings.TrimSpace(w.CodeBuffer) == "" {
		return "", ErrEmptyCodeBuffer
	}
	return w.save(export.CodeAttachment(w.CodeBuffer))
}

// ExportArtifact downloads a file produced by a Lab run.
func (w *Workspace) ExportArtifact(a scratch.Artifact) (string, error) {
	att, err := export.FromArtifact(a)
	if err != nil {
		return "", err
	}
	return w.save(att)
}

// ExportTranscript downloads the active session as markdown.
func (w *Workspace) ExportTranscript() (string, error) {
	s := w.Sessions.Active()
	if s == nil {
		return "", conversation.ErrNoSession
	}
	return w.save(export.TextAttachment(transcriptName(s), Transcript(s)))
}

func (w *Workspace) save(att export.Attachment) (string, error) {
	return export.Save(w.cfg.Export.Dir, att)
}
