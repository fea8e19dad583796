package workspace

import (
	"fmt"
	"strings"
	"unicode"

	"gora/internal/session"
)

// Transcript renders a session history as markdown.
func Transcript(s *session.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", s.Title)
	for _, t := range s.History {
		heading := "You"
		if t.Role == session.RoleModel {
			heading = "GORA"
		}
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", heading, t.Text())
		if n := t.Images(); n > 0 {
			fmt.Fprintf(&sb, "\n_(%d image(s) attached)_\n", n)
		}
	}
	return sb.String()
}

// transcriptName derives a file name from the session title.
func transcriptName(s *session.Session) string {
	title := strings.TrimSuffix(s.Title, session.TitleEllipsis)
	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	if name == "" {
		name = "session"
	}
	return name + ".md"
}
