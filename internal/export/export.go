// Package export is the download surface: any text or byte buffer can be
// offered as a named attachment with a declared media type. In a terminal
// a download is a file written into the downloads directory.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gora/internal/logging"
	"gora/internal/scratch"

	"go.uber.org/zap"
)

const (
	// CodeFileName is the download name of the Lab code buffer.
	CodeFileName = "gora.go"

	// CodeMediaType is the media type declared for exported code.
	CodeMediaType = "text/x-go"
)

// ErrEmptyName is returned for an attachment without a usable name.
var ErrEmptyName = errors.New("attachment name is empty")

// Attachment is a named downloadable buffer.
type Attachment struct {
	Name      string
	MediaType string
	Data      []byte
}

// CodeAttachment wraps the code buffer for download.
func CodeAttachment(code string) Attachment {
	return Attachment{Name: CodeFileName, MediaType: CodeMediaType, Data: []byte(code)}
}

// TextAttachment wraps arbitrary text.
func TextAttachment(name, text string) Attachment {
	return Attachment{Name: name, MediaType: "text/plain; charset=utf-8", Data: []byte(text)}
}

// FromArtifact loads a file produced by a Lab cell.
func FromArtifact(a scratch.Artifact) (Attachment, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return Attachment{}, fmt.Errorf("read artifact %s: %w", a.Name, err)
	}
	return Attachment{Name: filepath.Base(a.Name), MediaType: a.MediaType, Data: data}, nil
}

// Save writes the attachment into dir without overwriting existing files:
// "gora.go" becomes "gora (1).go" and so on. It returns the written path.
func Save(dir string, att Attachment) (string, error) {
	name := filepath.Base(strings.TrimSpace(att.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", ErrEmptyName
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create downloads directory: %w", err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", candidate, err)
		}
		_, werr := f.Write(att.Data)
		cerr := f.Close()
		if werr != nil {
			return "", fmt.Errorf("write %s: %w", candidate, werr)
		}
		if cerr != nil {
			return "", fmt.Errorf("close %s: %w", candidate, cerr)
		}

		logging.Get(logging.CategoryExport).Info("attachment saved",
			zap.String("path", path),
			zap.String("media_type", att.MediaType),
			zap.Int("bytes", len(att.Data)))
		return path, nil
	}
}
