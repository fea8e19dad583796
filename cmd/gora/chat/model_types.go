package chat

import (
	"gora/internal/conversation"
	"gora/internal/scratch"
)

// Config holds configuration for initializing the chat interface.
type Config struct {
	// APIKey is tried once at startup; empty opens the credential prompt.
	APIKey string

	// Stream renders replies progressively.
	Stream bool

	Theme        string
	SidebarWidth int
}

// ViewMode determines which pane is focused
type ViewMode int

const (
	ChatView ViewMode = iota
	LabView
	PickerView
)

// InputMode is what the bottom input is currently collecting.
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeAPIKey
)

// pickerKind is what the list picker is choosing.
type pickerKind int

const (
	pickModel pickerKind = iota
	pickSession
)

// sessionEntry is the cached sidebar view of one session.
type sessionEntry struct {
	id, title string
	turns     int
}

// pickerItem is a list item for the model and session pickers
type pickerItem struct {
	id, title, desc string
}

func (i pickerItem) Title() string       { return i.title }
func (i pickerItem) Description() string { return i.desc }
func (i pickerItem) FilterValue() string { return i.title }

// =============================================================================
// MESSAGES
// =============================================================================

// configuredMsg reports the outcome of a credential change.
type configuredMsg struct {
	err error
}

// turnDoneMsg is the end of one turn. seq identifies the turn.
type turnDoneMsg struct {
	seq int
	res *conversation.Result
	err error
}

// chunkMsg is streamed reply text for turn seq. chunks is the stream it
// came from, read again for the next chunk.
type chunkMsg struct {
	seq    int
	text   string
	chunks <-chan string
}

// runDoneMsg is the end of one Lab execution.
type runDoneMsg struct {
	res scratch.Result
	err error
}
