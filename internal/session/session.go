package session

import (
	"time"
	"unicode"
)

// PlaceholderTitle is the title of a session that has not received a prompt.
const PlaceholderTitle = "New Session"

// TitleEllipsis marks a truncated auto-title.
const TitleEllipsis = "..."

// Session is an independent, titled, ordered conversation history.
type Session struct {
	ID        string
	Title     string
	History   []Turn
	CreatedAt time.Time

	titled bool
}

// Len returns the number of turns in the history.
func (s *Session) Len() int {
	return len(s.History)
}

// Append adds turns to the end of the history.
// The store does not enforce user/model alternation.
func (s *Session) Append(turns ...Turn) {
	s.History = append(s.History, turns...)
}

// HistoryCopy returns a copy of the history safe to hand to a chat replay.
func (s *Session) HistoryCopy() []Turn {
	out := make([]Turn, len(s.History))
	copy(out, s.History)
	return out
}

// AutoTitle renames a placeholder-titled session after its first prompt.
// It fires at most once per session and reports whether it did.
func (s *Session) AutoTitle(prompt string, length int) bool {
	if s.titled || s.Title != PlaceholderTitle {
		return false
	}
	title := TruncateTitle(prompt, length)
	if title == "" {
		return false
	}
	s.Title = title
	s.titled = true
	return true
}

// TruncateTitle returns the first length runes of the prompt followed by the
// ellipsis marker. Whitespace runs are folded so multi-line prompts read well.
func TruncateTitle(prompt string, length int) string {
	folded := make([]rune, 0, len(prompt))
	space := false
	for _, r := range prompt {
		if unicode.IsSpace(r) {
			space = len(folded) > 0
			continue
		}
		if space {
			folded = append(folded, ' ')
			space = false
		}
		folded = append(folded, r)
	}
	if len(folded) == 0 {
		return ""
	}
	if length > 0 && len(folded) > length {
		folded = folded[:length]
	}
	return string(folded) + TitleEllipsis
}
