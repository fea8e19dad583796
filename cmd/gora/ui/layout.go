package ui

// Layout constants for panel sizing
const (
	HeaderHeight     = 1
	FooterHeight     = 1
	InputHeight      = 3
	SuggestionHeight = 3
	EditorHeight     = 12

	DefaultSidebarWidth = 28
	MinSidebarWidth     = 18
	CompactModeWidth    = 80
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	SidebarWidth   int
}

// NewLayoutConfig creates a layout for the terminal size. A sidebarWidth of
// zero picks the default; narrow terminals hide the sidebar.
func NewLayoutConfig(width, height, sidebarWidth int) LayoutConfig {
	if sidebarWidth <= 0 {
		sidebarWidth = DefaultSidebarWidth
	}
	if sidebarWidth < MinSidebarWidth {
		sidebarWidth = MinSidebarWidth
	}
	if width < CompactModeWidth {
		sidebarWidth = 0
	}
	return LayoutConfig{TerminalWidth: width, TerminalHeight: height, SidebarWidth: sidebarWidth}
}

// ShowSidebar reports whether the session sidebar fits.
func (l LayoutConfig) ShowSidebar() bool {
	return l.SidebarWidth > 0
}

// MainWidth is the width left for the conversation or lab pane.
func (l LayoutConfig) MainWidth() int {
	w := l.TerminalWidth - l.SidebarWidth
	if l.ShowSidebar() {
		w-- // sidebar border
	}
	return max(w, 20)
}

// BodyHeight is the height of the scrollable region above the input.
func (l LayoutConfig) BodyHeight(extra int) int {
	return max(l.TerminalHeight-HeaderHeight-FooterHeight-InputHeight-extra, 3)
}
