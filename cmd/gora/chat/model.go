// Package chat implements the interactive terminal shell of GORA Workspace:
// a session sidebar, the conversation pane and the Lab pane, all driving one
// workspace.Workspace.
//
// Background commands (turns, Lab runs, credential changes) mutate the
// workspace off the Update goroutine. While one is in flight the model does
// not touch the workspace; View only reads the fields cached by sync.
package chat

import (
	"context"
	"fmt"

	"gora/cmd/gora/ui"
	"gora/internal/attach"
	"gora/internal/conversation"
	"gora/internal/logging"
	"gora/internal/scratch"
	"gora/internal/session"
	"gora/internal/workspace"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

const (
	chatPlaceholder = "Ask anything... (Enter to send, Alt+Enter for newline, /help for commands)"
	labPlaceholder  = "Go code for the Lab. Ctrl+R runs it."
)

// Model is the bubbletea model of the shell.
type Model struct {
	ws     *workspace.Workspace
	cfg    Config
	styles ui.Styles
	layout ui.LayoutConfig

	// UI Components
	input    textarea.Model
	editor   textarea.Model
	keyInput textinput.Model
	viewport viewport.Model
	output   viewport.Model
	spinner  spinner.Model
	picker   list.Model
	renderer *glamour.TermRenderer

	viewMode   ViewMode
	inputMode  InputMode
	pickerKind pickerKind

	width, height int

	// Cached workspace state, refreshed by sync
	sessions    []sessionEntry
	activeID    string
	activeTitle string
	model       string
	suggestions []string
	offered     bool
	transcript  string
	lastRun     *scratch.Result

	// In-flight work
	loading       bool
	turnSeq       int
	pendingPrompt string
	streamed      string

	attachments []attach.File
	status      string
	err         error
}

// New builds the shell around a workspace. A session is created when the
// workspace has none so the first prompt has somewhere to go.
func New(ws *workspace.Workspace, cfg Config) Model {
	styles := ui.NewStyles(ui.ThemeFor(cfg.Theme))

	in := textarea.New()
	in.Placeholder = chatPlaceholder
	in.ShowLineNumbers = false
	in.CharLimit = 0
	in.SetHeight(ui.InputHeight)
	in.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	in.Focus()

	ed := textarea.New()
	ed.Placeholder = labPlaceholder
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.SetHeight(ui.EditorHeight)

	key := textinput.New()
	key.Placeholder = "Gemini API key"
	key.Prompt = "🔑 "
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	picker := list.New(nil, list.NewDefaultDelegate(), 40, 20)
	picker.SetShowHelp(false)

	m := Model{
		ws:       ws,
		cfg:      cfg,
		styles:   styles,
		input:    in,
		editor:   ed,
		keyInput: key,
		viewport: viewport.New(80, 20),
		output:   viewport.New(80, 8),
		spinner:  sp,
		picker:   picker,
	}
	m.resize(80, 24)

	if ws.Sessions.Len() == 0 {
		ws.NewSession()
	}
	if !ws.Configured() {
		m = m.promptForKey()
	}
	m.sync()
	return m
}

// Init starts the shell. A credential from config or env is tried at once.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.cfg.APIKey != "" && !m.ws.Configured() {
		cmds = append(cmds, m.spinner.Tick, configureCmd(m.ws, m.cfg.APIKey))
	}
	return tea.Batch(cmds...)
}

// Run starts the interactive shell and blocks until it exits.
func Run(ws *workspace.Workspace, cfg Config) error {
	m := New(ws, cfg)
	if cfg.APIKey != "" && !ws.Configured() {
		m.loading = true
		m.status = "Connecting to Gemini..."
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func (m Model) promptForKey() Model {
	m.inputMode = InputModeAPIKey
	m.keyInput.SetValue("")
	m.keyInput.Focus()
	m.input.Blur()
	return m
}

// sync refreshes the cached view of the workspace. Never call it while a
// background command is running.
func (m *Model) sync() {
	ws := m.ws
	m.sessions = make([]sessionEntry, 0, ws.Sessions.Len())
	for _, s := range ws.Sessions.List() {
		m.sessions = append(m.sessions, sessionEntry{id: s.ID, title: s.Title, turns: s.Len()})
	}
	m.activeID = ws.Sessions.ActiveID()
	m.activeTitle = ""
	m.model = ws.Registry.Selected()
	m.suggestions = append([]string(nil), ws.Suggestions...)
	m.offered = ws.OfferedCode != ""

	active := ws.Sessions.Active()
	if active != nil {
		m.activeTitle = active.Title
	}
	m.transcript = m.renderTranscript(active)

	if m.editor.Value() != ws.CodeBuffer {
		m.editor.SetValue(ws.CodeBuffer)
	}
	m.refreshViewport()
	m.refreshOutput()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.layout = ui.NewLayoutConfig(width, height, m.cfg.SidebarWidth)
	w := m.layout.MainWidth()

	m.input.SetWidth(w)
	m.editor.SetWidth(w)
	m.keyInput.Width = w - 4
	m.viewport.Width = w
	m.viewport.Height = m.layout.BodyHeight(ui.SuggestionHeight + 1)
	m.output.Width = w
	m.output.Height = max(m.layout.BodyHeight(ui.EditorHeight-ui.InputHeight+2), 3)
	m.picker.SetSize(w, m.layout.BodyHeight(0))

	style := "dark"
	if !m.styles.Theme.IsDark {
		style = "light"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(w-4, 20)),
	)
	if err != nil {
		logging.Get(logging.CategoryUI).Warn("markdown renderer unavailable", zap.Error(err))
		renderer = nil
	}
	m.renderer = renderer
}

// =============================================================================
// BACKGROUND COMMANDS
// =============================================================================

func configureCmd(ws *workspace.Workspace, key string) tea.Cmd {
	return func() tea.Msg {
		return configuredMsg{err: ws.Configure(context.Background(), key)}
	}
}

// turnFunc performs one turn against the workspace.
type turnFunc func(ctx context.Context, onChunk func(string)) (*conversation.Result, error)

// startTurn dispatches a turn in the background. The prompt is shown as
// pending until the turn ends; streamed text arrives as chunkMsg.
func (m Model) startTurn(prompt string, run turnFunc) (Model, tea.Cmd) {
	m.turnSeq++
	seq := m.turnSeq
	m.loading = true
	m.pendingPrompt = prompt
	m.streamed = ""
	m.err = nil
	m.status = ""

	var chunks chan string
	var onChunk func(string)
	if m.cfg.Stream {
		chunks = make(chan string, 64)
		onChunk = func(s string) { chunks <- s }
	}
	submit := func() tea.Msg {
		res, err := run(context.Background(), onChunk)
		if chunks != nil {
			close(chunks)
		}
		return turnDoneMsg{seq: seq, res: res, err: err}
	}

	cmds := []tea.Cmd{m.spinner.Tick, submit}
	if chunks != nil {
		cmds = append(cmds, waitForChunk(seq, chunks))
	}
	m.refreshViewport()
	return m, tea.Batch(cmds...)
}

// waitForChunk delivers the next streamed chunk; it ends when the stream does.
func waitForChunk(seq int, chunks <-chan string) tea.Cmd {
	return func() tea.Msg {
		text, ok := <-chunks
		if !ok {
			return nil
		}
		return chunkMsg{seq: seq, text: text, chunks: chunks}
	}
}

func (m Model) submitPrompt(prompt string) (Model, tea.Cmd) {
	ws, files := m.ws, append([]attach.File(nil), m.attachments...)
	return m.startTurn(prompt, func(ctx context.Context, onChunk func(string)) (*conversation.Result, error) {
		return ws.Submit(ctx, prompt, files, onChunk)
	})
}

func (m Model) askSuggestion(i int) (Model, tea.Cmd) {
	if i < 0 || i >= len(m.suggestions) {
		m.err = fmt.Errorf("%w: %d", workspace.ErrNoSuggestion, i+1)
		return m, nil
	}
	ws := m.ws
	return m.startTurn(m.suggestions[i], func(ctx context.Context, onChunk func(string)) (*conversation.Result, error) {
		return ws.AskSuggestion(ctx, i, onChunk)
	})
}

func (m Model) runLab() (Model, tea.Cmd) {
	m.ws.CodeBuffer = m.editor.Value()
	m.loading = true
	m.err = nil
	m.status = "Running..."
	ws := m.ws
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		res, err := ws.RunCode(context.Background())
		return runDoneMsg{res: res, err: err}
	})
}

// activeSession is only safe to call from Update while nothing runs.
func (m Model) activeSession() *session.Session {
	return m.ws.Sessions.Active()
}
