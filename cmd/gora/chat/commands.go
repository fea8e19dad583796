package chat

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gora/internal/attach"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// helpText lists the slash commands.
const helpText = `## Commands

| Command | Action |
|---------|--------|
| /new | start a new session (Ctrl+N) |
| /sessions | pick a session; d deletes |
| /select N, /delete [N] | select or delete session N |
| /attach PATH... | attach files to the next prompt |
| /detach | drop pending attachments |
| /ask N | send suggestion N (Alt+N) |
| /model [ID] | list or select a model |
| /key | enter a new API key |
| /lab | toggle the Lab (Tab) |
| /transfer | copy offered code into the Lab (Ctrl+T) |
| /run | run the Lab code (Ctrl+R in the Lab) |
| /clear | clear the Lab code, keep the namespace |
| /reset | reset the Lab namespace |
| /restore | rebuild the namespace discarded by /reset |
| /export | download the Lab code as gora.go |
| /download N | download file N produced by the last run |
| /save | download the session transcript |
| /quit | exit |
`

// handleCommand runs one slash command.
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]
	m.err = nil
	m.status = ""

	switch cmd {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/help":
		m.transcript = m.renderMarkdown(helpText)
		m.refreshViewport()
		return m, nil

	case "/new":
		m.ws.NewSession()
		m.attachments = nil

	case "/sessions":
		m.openSessionPicker()
		return m, nil

	case "/select":
		id, err := m.sessionArg(args)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.selectSession(id)

	case "/delete":
		id, err := m.sessionArg(args)
		if err != nil {
			m.err = err
			return m, nil
		}
		if err := m.ws.DeleteSession(id); err != nil {
			m.err = err
		}

	case "/attach":
		if len(args) == 0 {
			m.err = errors.New("usage: /attach PATH...")
			return m, nil
		}
		for _, path := range args {
			f, err := readAttachment(path)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.attachments = append(m.attachments, f)
		}
		m.status = fmt.Sprintf("%d file(s) attached to the next prompt", len(m.attachments))
		return m, nil

	case "/detach":
		m.attachments = nil
		m.status = "attachments cleared"
		return m, nil

	case "/ask":
		n, err := indexArg(args)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.askSuggestion(n)

	case "/model", "/models":
		if len(args) == 0 {
			m.openModelPicker()
			return m, nil
		}
		if err := m.ws.SelectModel(args[0]); err != nil {
			m.err = err
			return m, nil
		}
		m.status = "model: " + m.ws.Registry.Selected()

	case "/key":
		m = m.promptForKey()
		return m, nil

	case "/lab":
		m = m.toggleLab()
		return m, nil

	case "/transfer":
		if err := m.ws.TransferCode(); err != nil {
			m.err = err
			return m, nil
		}
		m.sync()
		if m.viewMode != LabView {
			m = m.toggleLab()
		}
		m.status = "code transferred to the Lab"
		return m, nil

	case "/run":
		if m.viewMode != LabView {
			m = m.toggleLab()
		}
		return m.runLab()

	case "/clear":
		m.ws.ClearCode()
		m.status = "code cleared; variables are kept"

	case "/reset":
		if err := m.ws.ResetLab(); err != nil {
			m.err = err
			return m, nil
		}
		m.lastRun = nil
		m.status = "Lab namespace reset"

	case "/restore":
		n, err := m.ws.RestoreLab()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.status = fmt.Sprintf("Lab namespace restored (%d cells replayed)", n)

	case "/export":
		m.ws.CodeBuffer = m.editor.Value()
		path, err := m.ws.ExportCode()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.status = "saved " + path

	case "/download":
		n, err := indexArg(args)
		if err != nil {
			m.err = err
			return m, nil
		}
		if m.lastRun == nil || n >= len(m.lastRun.Artifacts) {
			m.err = fmt.Errorf("no produced file %d", n+1)
			return m, nil
		}
		path, err := m.ws.ExportArtifact(m.lastRun.Artifacts[n])
		if err != nil {
			m.err = err
			return m, nil
		}
		m.status = "saved " + path
		return m, nil

	case "/save":
		path, err := m.ws.ExportTranscript()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.status = "saved " + path
		return m, nil

	default:
		m.err = fmt.Errorf("unknown command %s (try /help)", cmd)
		return m, nil
	}

	status := m.status
	m.sync()
	m.status = status
	return m, nil
}

func (m Model) selectSession(id string) (tea.Model, tea.Cmd) {
	if _, err := m.ws.SelectSession(id); err != nil {
		m.err = err
		return m, nil
	}
	m.attachments = nil
	m.sync()
	return m, nil
}

// sessionArg resolves a 1-based sidebar index; no argument means the
// active session.
func (m Model) sessionArg(args []string) (string, error) {
	if len(args) == 0 {
		if s := m.activeSession(); s != nil {
			return s.ID, nil
		}
		return "", errors.New("no active session")
	}
	n, err := indexArg(args)
	if err != nil {
		return "", err
	}
	if n >= len(m.sessions) {
		return "", fmt.Errorf("no session %d", n+1)
	}
	return m.sessions[n].id, nil
}

func indexArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("a number is required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n - 1, nil
}

func (m *Model) openModelPicker() {
	models := m.ws.Registry.Models()
	if len(models) == 0 {
		m.err = errors.New("no models: enter an API key with /key")
		return
	}
	items := make([]list.Item, 0, len(models))
	selected := 0
	for i, id := range models {
		desc := ""
		if id == m.ws.Registry.Selected() {
			desc = "current"
			selected = i
		}
		items = append(items, pickerItem{id: id, title: id, desc: desc})
	}
	m.picker.Title = "Select a model"
	m.picker.SetItems(items)
	m.picker.Select(selected)
	m.pickerKind = pickModel
	m.viewMode = PickerView
}

func (m *Model) openSessionPicker() {
	items := make([]list.Item, 0, len(m.sessions))
	selected := 0
	for i, s := range m.sessions {
		desc := fmt.Sprintf("%d turns", s.turns)
		if s.id == m.activeID {
			desc += " · active"
			selected = i
		}
		items = append(items, pickerItem{id: s.id, title: s.title, desc: desc})
	}
	m.picker.Title = "Sessions (enter selects, d deletes)"
	m.picker.SetItems(items)
	m.picker.Select(selected)
	m.pickerKind = pickSession
	m.viewMode = PickerView
}

// readAttachment loads a file for the next prompt.
func readAttachment(path string) (attach.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return attach.File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	name := filepath.Base(path)
	return attach.File{
		Name:      name,
		MediaType: mime.TypeByExtension(filepath.Ext(name)),
		Data:      data,
	}, nil
}
