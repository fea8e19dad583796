package chat

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gora/internal/config"
	"gora/internal/llm"
	"gora/internal/llm/llmtest"
	"gora/internal/scratch"
	"gora/internal/workspace"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLab struct {
	cells []string
}

func (l *stubLab) Execute(ctx context.Context, code string) scratch.Result {
	l.cells = append(l.cells, code)
	return scratch.Result{Cell: len(l.cells), Output: "6\n"}
}
func (l *stubLab) Snapshot() scratch.Snapshot          { return scratch.Snapshot{Cells: l.cells} }
func (l *stubLab) Restore(snap scratch.Snapshot) error { l.cells = snap.Cells; return nil }
func (l *stubLab) Reset() error                        { l.cells = nil; return nil }

func newTestModel(t *testing.T, replies ...string) (Model, *llmtest.Fake, *stubLab) {
	t.Helper()
	fake := &llmtest.Fake{Models: []string{"models/gemini-a", "models/gemini-b"}, Replies: replies}
	lab := &stubLab{}
	cfg := config.DefaultConfig()
	cfg.Export.Dir = t.TempDir()
	ws, err := workspace.New(cfg, workspace.Deps{
		Factory: func(ctx context.Context, apiKey string) (llm.Client, error) { return fake, nil },
		Lab:     lab,
	})
	require.NoError(t, err)
	m := New(ws, Config{Theme: "dark"})
	return m, fake, lab
}

// collect runs a command tree synchronously and returns its messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// step applies msg and then every message its command produces.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for _, out := range collect(cmd) {
		if out == nil {
			continue
		}
		switch out.(type) {
		case tea.QuitMsg, spinner.TickMsg:
			// Ticks would re-arm forever while loading.
			continue
		}
		m = step(t, m, out)
	}
	return m
}

// drive runs commands concurrently, as the bubbletea runtime does, and
// applies their messages until none are outstanding.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	msgs := make(chan tea.Msg)
	pending := 0
	launch := func(cmd tea.Cmd) {
		if cmd == nil {
			return
		}
		pending++
		go func() { msgs <- cmd() }()
	}
	apply := func(msg tea.Msg) {
		next, cmd := m.Update(msg)
		m = next.(Model)
		launch(cmd)
	}

	apply(msg)
	timeout := time.After(5 * time.Second)
	for pending > 0 {
		select {
		case out := <-msgs:
			pending--
			switch out := out.(type) {
			case nil, tea.QuitMsg, spinner.TickMsg:
			case tea.BatchMsg:
				for _, c := range out {
					launch(c)
				}
			default:
				apply(out)
			}
		case <-timeout:
			t.Fatal("commands still outstanding after 5s")
		}
	}
	return m
}

func configured(t *testing.T, m Model) Model {
	t.Helper()
	m.keyInput.SetValue("secret")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, InputModeNormal, m.inputMode)
	require.NoError(t, m.err)
	return m
}

func command(t *testing.T, m Model, input string) Model {
	t.Helper()
	m.input.SetValue(input)
	return step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestNew_StartsWithSessionAndKeyPrompt(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Equal(t, InputModeAPIKey, m.inputMode)
	require.Len(t, m.sessions, 1)
	assert.Equal(t, m.sessions[0].id, m.activeID)
	assert.Contains(t, m.View(), "Gemini API key")
}

func TestConfigure_SwitchesToChat(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = configured(t, m)
	assert.Equal(t, "models/gemini-a", m.model)
	assert.Contains(t, m.status, "2 models")
}

func TestConfigure_FailureKeepsPrompt(t *testing.T) {
	m, fake, _ := newTestModel(t)
	fake.ListErr = assert.AnError
	m.keyInput.SetValue("bad")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, InputModeAPIKey, m.inputMode)
	assert.Error(t, m.err)
	assert.Empty(t, m.model)
}

func TestSubmit_RendersReplyAndSuggestions(t *testing.T) {
	m, fake, _ := newTestModel(t, "Answer text\nCÓDIGO:\nx := 5\nSUGESTÕES:\nA,B,C")
	m = configured(t, m)

	m = command(t, m, "What is five?")

	require.Len(t, fake.Calls, 1)
	assert.False(t, m.loading)
	assert.NoError(t, m.err)
	assert.Equal(t, []string{"A", "B", "C"}, m.suggestions)
	assert.True(t, m.offered)
	assert.Equal(t, "What is five?...", m.sessions[0].title)
	assert.Equal(t, 2, m.sessions[0].turns)
	assert.Contains(t, m.transcript, "What is five?")
	assert.Contains(t, m.status, "code offered")
}

func TestSubmit_FailureShowsBannerAndKeepsHistory(t *testing.T) {
	m, fake, _ := newTestModel(t)
	fake.Errors = []error{llmtest.StatusErr{Code: 429, Status: "RESOURCE_EXHAUSTED"}}
	m = configured(t, m)

	m = command(t, m, "hello")

	require.Error(t, m.err)
	assert.Contains(t, errorText(m.err), "60 seconds")
	assert.Zero(t, m.sessions[0].turns)
}

func TestSuggestionKeyResubmits(t *testing.T) {
	m, fake, _ := newTestModel(t, "One SUGESTÕES: first, second", "Two")
	m = configured(t, m)
	m = command(t, m, "start")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}, Alt: true})

	require.Len(t, fake.Calls, 2)
	assert.Equal(t, "second", userPrompt(m.ws.Sessions.Active().History[2]))
	assert.Empty(t, m.suggestions)
}

func TestSessionCommands(t *testing.T) {
	m, _, _ := newTestModel(t, "A SUGESTÕES: x")
	m = configured(t, m)
	m = command(t, m, "hi")
	require.NotEmpty(t, m.suggestions)

	m = command(t, m, "/new")
	require.Len(t, m.sessions, 2)
	assert.Equal(t, m.sessions[1].id, m.activeID)
	assert.Empty(t, m.suggestions)

	m = command(t, m, "/select 1")
	assert.Equal(t, m.sessions[0].id, m.activeID)

	m = command(t, m, "/delete 1")
	require.Len(t, m.sessions, 1)
	assert.Empty(t, m.activeID)
	assert.Contains(t, m.transcript, "No active session")

	m = command(t, m, "/select 9")
	assert.Error(t, m.err)
}

func TestAttachCommands(t *testing.T) {
	m, fake, _ := newTestModel(t, "ok")
	m = configured(t, m)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("remember"), 0644))

	m = command(t, m, "/attach "+path)
	require.Len(t, m.attachments, 1)
	assert.Equal(t, "notes.txt", m.attachments[0].Name)

	m = command(t, m, "summarise")
	require.Len(t, fake.Calls, 1)
	assert.Contains(t, fake.Calls[0].Parts[0].Text, "remember")
	assert.Empty(t, m.attachments, "attachments are consumed by a successful turn")

	m = command(t, m, "/attach "+filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, m.err)
}

func TestLabFlow(t *testing.T) {
	m, _, lab := newTestModel(t, "Here\nCÓDIGO:\nfmt.Println(x + 1)")
	m = configured(t, m)
	m = command(t, m, "show me")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, LabView, m.viewMode)
	assert.Equal(t, "fmt.Println(x + 1)", m.editor.Value())

	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, m.lastRun)
	assert.Equal(t, "6\n", m.lastRun.Output)
	assert.Equal(t, []string{"fmt.Println(x + 1)"}, lab.cells)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.Contains(t, m.status, "gora.go")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.editor.Value())
	assert.Equal(t, []string{"fmt.Println(x + 1)"}, lab.cells, "clearing keeps the namespace")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ChatView, m.viewMode)
}

func TestStaleChunkIgnored(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.loading = true
	m.turnSeq = 2
	m = step(t, m, chunkMsg{seq: 1, text: "old"})
	assert.Empty(t, m.streamed)
	m = step(t, m, chunkMsg{seq: 2, text: "new"})
	assert.Equal(t, "new", m.streamed)
}

func TestStreamedTurnDrainsEveryChunk(t *testing.T) {
	var reply strings.Builder
	for i := 0; i < 100; i++ {
		reply.WriteString("c ")
	}
	reply.WriteString("SUGESTÕES: next")
	m, fake, _ := newTestModel(t, reply.String())
	fake.ChunkSize = 2
	m.cfg.Stream = true
	m = configured(t, m)

	m.input.SetValue("stream it")
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, fake.Calls, 1)
	assert.True(t, fake.Calls[0].Stream)
	assert.False(t, m.loading)
	require.NoError(t, m.err)
	assert.Equal(t, []string{"next"}, m.suggestions)
	assert.Equal(t, 2, m.sessions[0].turns)
}

func TestUnknownCommand(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = configured(t, m)
	m = command(t, m, "/bogus")
	require.Error(t, m.err)
	assert.Contains(t, m.err.Error(), "/help")
}
