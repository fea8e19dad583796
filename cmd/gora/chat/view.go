package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gora/cmd/gora/ui"
	"gora/internal/conversation"
	"gora/internal/export"
	"gora/internal/session"

	"github.com/charmbracelet/lipgloss"
)

var labHint = fmt.Sprintf("Ctrl+R run · Ctrl+T transfer · Ctrl+L clear · Ctrl+X reset · Ctrl+E save %s · Tab chat", export.CodeFileName)

const chatHint = "Enter send · Alt+1..3 suggestion · Ctrl+N new · Tab Lab · /help"

// View renders the shell from cached state only.
func (m Model) View() string {
	var main string
	switch m.viewMode {
	case PickerView:
		main = m.picker.View()
	case LabView:
		main = m.labView()
	default:
		main = m.chatView()
	}

	body := main
	if m.layout.ShowSidebar() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), main)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body, m.footerView())
}

func (m Model) headerView() string {
	title := "GORA Workspace"
	if m.activeTitle != "" {
		title += " · " + m.activeTitle
	}
	model := m.model
	if model == "" {
		model = "not configured"
	}
	left := m.styles.Header.Render(title)
	right := m.styles.Badge.Render(strings.TrimPrefix(model, "models/"))
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) footerView() string {
	var line string
	switch {
	case m.err != nil:
		line = m.styles.Error.Render(errorText(m.err))
	case m.loading:
		label := "Thinking..."
		if m.status != "" {
			label = m.status
		}
		line = m.spinner.View() + " " + m.styles.Muted.Render(label)
	case m.status != "":
		line = m.styles.Info.Render(m.status)
	case m.viewMode == LabView:
		line = m.styles.Muted.Render(labHint)
	default:
		line = m.styles.Muted.Render(chatHint)
	}
	return m.styles.Footer.Render(line)
}

// errorText is the banner text for an error.
func errorText(err error) string {
	var te *conversation.TurnError
	if errors.As(err, &te) {
		return te.UserMessage()
	}
	return "Error: " + err.Error()
}

func (m Model) sidebarView() string {
	w := m.layout.SidebarWidth
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Sessions"))
	b.WriteString("\n")
	if len(m.sessions) == 0 {
		b.WriteString(m.styles.Muted.Render("(none) Ctrl+N"))
	}
	for i, s := range m.sessions {
		line := truncate(fmt.Sprintf("%d. %s", i+1, s.title), w-3)
		if s.id == m.activeID {
			b.WriteString(m.styles.SessionActive.Render("▸ " + line))
		} else {
			b.WriteString(m.styles.SessionItem.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if len(m.attachments) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.Title.Render("Attached"))
		b.WriteString("\n")
		for _, f := range m.attachments {
			b.WriteString(m.styles.Muted.Render(truncate("• "+f.Name, w-1)))
			b.WriteString("\n")
		}
	}
	height := max(m.height-2, 1)
	return m.styles.Sidebar.Width(w).Height(height).Render(b.String())
}

func (m Model) chatView() string {
	parts := []string{m.viewport.View()}

	if len(m.suggestions) > 0 && !m.loading {
		chips := make([]string, 0, len(m.suggestions))
		for i, s := range m.suggestions {
			chips = append(chips, m.styles.Suggestion.Render(fmt.Sprintf("%d %s", i+1, truncate(s, 40))))
		}
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, chips...))
	} else {
		parts = append(parts, strings.Repeat("\n", 2))
	}

	if m.inputMode == InputModeAPIKey {
		parts = append(parts, m.styles.Prompt.Render("Enter your Gemini API key (Esc skips):"), m.keyInput.View())
	} else {
		parts = append(parts, m.input.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) labView() string {
	title := m.styles.Title.Render("Lab")
	if m.offered {
		title += " " + m.styles.Muted.Render("(code offered: Ctrl+T)")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.editor.View(),
		m.styles.Muted.Render("Output"),
		m.output.View(),
	)
}

// refreshViewport sets the conversation content, including the pending
// prompt and streamed text of an in-flight turn.
func (m *Model) refreshViewport() {
	content := m.transcript
	if m.loading && m.pendingPrompt != "" {
		content += "\n" + m.renderUser(m.pendingPrompt, len(m.attachments))
		if m.streamed != "" {
			content += "\n" + m.styles.AgentResponse.Render(m.streamed)
		}
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m *Model) refreshOutput() {
	if m.lastRun == nil {
		m.output.SetContent(m.styles.Muted.Render("Nothing run yet. Variables persist between runs."))
		return
	}
	res := m.lastRun
	var b strings.Builder
	header := fmt.Sprintf("cell %d · %s", res.Cell, res.Duration.Round(time.Millisecond))
	if res.OK() {
		b.WriteString(m.styles.Success.Render(header))
	} else {
		b.WriteString(m.styles.Error.Render(header))
	}
	b.WriteString("\n")
	b.WriteString(res.Display())
	for i, a := range res.Artifacts {
		fmt.Fprintf(&b, "\n%s", m.styles.Info.Render(fmt.Sprintf("[%d] %s (%s, %d bytes)", i+1, a.Name, a.MediaType, a.Size)))
	}
	m.output.SetContent(b.String())
	m.output.GotoTop()
}

// renderTranscript renders a session history.
func (m Model) renderTranscript(s *session.Session) string {
	if s == nil {
		return m.styles.Muted.Render("No active session. Press Ctrl+N or use /sessions.")
	}
	if s.Len() == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			ui.Logo(m.styles),
			m.styles.Subtitle.Render("Ask a question, attach files with /attach, or press Tab for the Lab."),
		)
	}
	var b strings.Builder
	for _, t := range s.History {
		if t.Role == session.RoleUser {
			b.WriteString(m.renderUser(userPrompt(t), t.Images()))
		} else {
			b.WriteString(m.styles.AgentResponse.Render(m.renderMarkdown(t.Text())))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderUser(prompt string, files int) string {
	line := m.styles.Prompt.Render("▸ ") + m.styles.UserInput.Render(prompt)
	if files > 0 {
		line += " " + m.styles.Muted.Render(fmt.Sprintf("(+%d attachment(s))", files))
	}
	return line + "\n"
}

// userPrompt is the prompt of a user turn without its context block.
func userPrompt(t session.Turn) string {
	var prompt string
	for _, p := range t.Parts {
		if !p.IsImage() && p.Text != "" {
			prompt = p.Text
		}
	}
	return prompt
}

func (m Model) renderMarkdown(md string) string {
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
