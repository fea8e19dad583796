package chat

import (
	"errors"
	"fmt"
	"strings"

	"gora/internal/conversation"
	"gora/internal/logging"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		if !m.loading {
			m.sync()
		} else {
			m.refreshViewport()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case configuredMsg:
		return m.handleConfigured(msg)

	case chunkMsg:
		// Keep draining even for stale turns so the producer never blocks.
		var next tea.Cmd
		if msg.chunks != nil {
			next = waitForChunk(msg.seq, msg.chunks)
		}
		if !m.loading || msg.seq != m.turnSeq {
			return m, next
		}
		m.streamed += msg.text
		m.refreshViewport()
		return m, next

	case turnDoneMsg:
		return m.handleTurnDone(msg)

	case runDoneMsg:
		return m.handleRunDone(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleConfigured(msg configuredMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.err = msg.err
		m.status = ""
		m = m.promptForKey()
		m.sync()
		return m, nil
	}
	m.inputMode = InputModeNormal
	m.keyInput.Blur()
	m.input.Focus()
	m.err = nil
	m.sync()
	m.status = fmt.Sprintf("Connected: %d models, using %s", len(m.ws.Registry.Models()), m.model)
	return m, nil
}

func (m Model) handleTurnDone(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.turnSeq {
		return m, nil
	}
	m.loading = false
	m.pendingPrompt = ""
	m.streamed = ""

	if msg.err != nil {
		m.err = msg.err
		if errors.Is(msg.err, conversation.ErrNotConfigured) {
			m = m.promptForKey()
		}
		m.sync()
		return m, nil
	}

	m.attachments = nil
	m.sync()
	res := msg.res
	var notes []string
	if len(res.Assembly.Skipped) > 0 {
		notes = append(notes, "skipped: "+strings.Join(res.Assembly.Skipped, ", "))
	}
	if res.Reply.HasCode() {
		notes = append(notes, "code offered (Ctrl+T to send it to the Lab)")
	}
	m.status = strings.Join(notes, " | ")
	logging.Get(logging.CategoryUI).Debug("turn rendered",
		zap.Bool("titled", res.Titled),
		zap.Duration("elapsed", res.Elapsed))
	return m, nil
}

func (m Model) handleRunDone(msg runDoneMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	m.status = ""
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	res := msg.res
	m.lastRun = &res
	if len(res.Artifacts) > 0 {
		m.status = fmt.Sprintf("%d new file(s); /download N saves one", len(res.Artifacts))
	}
	m.refreshOutput()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.viewMode == PickerView {
		return m.handlePickerKey(msg)
	}

	if m.loading {
		// Only scrolling is allowed while a background command runs.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.inputMode == InputModeAPIKey {
		return m.handleKeyInput(msg)
	}

	switch msg.String() {
	case "tab":
		m = m.toggleLab()
		return m, nil
	case "ctrl+n":
		return m.handleCommand("/new")
	case "ctrl+t":
		return m.handleCommand("/transfer")
	case "pgup", "pgdown":
		var cmd tea.Cmd
		if m.viewMode == LabView {
			m.output, cmd = m.output.Update(msg)
		} else {
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd
	}

	if m.viewMode == LabView {
		return m.handleLabKey(msg)
	}

	switch msg.String() {
	case "alt+1", "alt+2", "alt+3":
		return m.askSuggestion(int(msg.String()[len("alt+")] - '1'))
	case "enter":
		return m.handleSubmit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(m.keyInput.Value())
		if key == "" {
			return m, nil
		}
		m.loading = true
		m.err = nil
		m.status = "Connecting to Gemini..."
		return m, tea.Batch(m.spinner.Tick, configureCmd(m.ws, key))
	case "esc":
		// Browse sessions and the Lab without a credential.
		m.inputMode = InputModeNormal
		m.keyInput.Blur()
		m.input.Focus()
		return m, nil
	}
	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

func (m Model) handleLabKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+r":
		return m.runLab()
	case "ctrl+l":
		return m.handleCommand("/clear")
	case "ctrl+e":
		return m.handleCommand("/export")
	case "ctrl+x":
		return m.handleCommand("/reset")
	case "esc":
		m = m.toggleLab()
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.ws.CodeBuffer = m.editor.Value()
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc", "q":
		m.viewMode = ChatView
		return m, nil
	case "enter":
		item, ok := m.picker.SelectedItem().(pickerItem)
		m.viewMode = ChatView
		if !ok {
			return m, nil
		}
		if m.pickerKind == pickModel {
			return m.handleCommand("/model " + item.id)
		}
		return m.selectSession(item.id)
	case "d":
		if m.pickerKind != pickSession {
			break
		}
		if item, ok := m.picker.SelectedItem().(pickerItem); ok {
			if err := m.ws.DeleteSession(item.id); err != nil {
				m.err = err
			}
			m.sync()
			m.openSessionPicker()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) toggleLab() Model {
	if m.viewMode == LabView {
		m.viewMode = ChatView
		m.editor.Blur()
		m.input.Focus()
		return m
	}
	m.viewMode = LabView
	m.input.Blur()
	m.editor.Focus()
	return m
}

// handleSubmit sends the chat input as a prompt or runs it as a command.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}
	return m.submitPrompt(input)
}
