package session

import "strings"

// Role tags a turn as coming from the user or the model.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is one element of a turn's content: inline text or an inline image.
type Part struct {
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart returns an inline image part.
func ImagePart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsImage reports whether the part carries image bytes.
func (p Part) IsImage() bool {
	return len(p.Data) > 0
}

// Turn is one role-tagged message within a session's history.
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Text joins the text parts of the turn.
func (t Turn) Text() string {
	var texts []string
	for _, p := range t.Parts {
		if !p.IsImage() && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// Images returns the number of image parts.
func (t Turn) Images() int {
	n := 0
	for _, p := range t.Parts {
		if p.IsImage() {
			n++
		}
	}
	return n
}
