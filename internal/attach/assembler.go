// Package attach merges uploaded files into the context of one outgoing turn:
// a single labeled text block for documents and a list of inline images.
package attach

import (
	"context"
	"fmt"
	"strings"

	"gora/internal/extract"
	"gora/internal/logging"
	"gora/internal/session"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ContextHeading introduces the context block in the outgoing payload.
const ContextHeading = "CONTEXT:"

// File is one uploaded file.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Image is an inline image attachment.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Assembly is the assembled context of one turn.
type Assembly struct {
	Prompt  string
	Context string // "" when no textual context was gathered
	Images  []Image
	Skipped []string // files that contributed nothing
}

// Parts returns the payload in contract order:
// [context-block?, prompt+suffix, image...].
func (a Assembly) Parts(suffix string) []session.Part {
	parts := make([]session.Part, 0, len(a.Images)+2)
	if a.Context != "" {
		parts = append(parts, session.TextPart(a.Context))
	}
	parts = append(parts, session.TextPart(a.Prompt+suffix))
	for _, img := range a.Images {
		parts = append(parts, session.ImagePart(img.MIMEType, img.Data))
	}
	return parts
}

// Options configures an Assembler.
type Options struct {
	PDFMaxPages    int
	CSVPreviewRows int
	MaxParallel    int
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		PDFMaxPages:    extract.DefaultMaxPages,
		CSVPreviewRows: 5,
		MaxParallel:    4,
	}
}

// Assembler builds turn context from uploaded files.
type Assembler struct {
	extractor   *extract.Extractor
	csvRows     int
	maxParallel int
}

// New creates an assembler.
func New(opts Options) *Assembler {
	if opts.CSVPreviewRows <= 0 {
		opts.CSVPreviewRows = 5
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 1
	}
	return &Assembler{
		extractor:   extract.New(opts.PDFMaxPages),
		csvRows:     opts.CSVPreviewRows,
		maxParallel: opts.MaxParallel,
	}
}

// Assemble classifies every file, extracts document text concurrently and
// returns the assembled context. Upload order is preserved in both the
// context block and the image list. It never fails: unusable files are
// listed in Skipped.
func (a *Assembler) Assemble(ctx context.Context, prompt string, files []File) Assembly {
	log := logging.Get(logging.CategoryContext)
	out := Assembly{Prompt: prompt}

	kinds := make([]Kind, len(files))
	texts := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxParallel)
	for i, f := range files {
		kinds[i] = Classify(f)
		if kinds[i] == KindImage || kinds[i] == KindUnknown {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			texts[i] = a.extractText(f, kinds[i])
			return nil
		})
	}
	_ = g.Wait()

	var blocks []string
	for i, f := range files {
		switch kinds[i] {
		case KindImage:
			out.Images = append(out.Images, Image{Name: f.Name, MIMEType: imageMIME(f), Data: f.Data})
		case KindUnknown:
			out.Skipped = append(out.Skipped, f.Name)
		default:
			text := strings.TrimSpace(texts[i])
			if text == "" {
				out.Skipped = append(out.Skipped, f.Name)
				continue
			}
			blocks = append(blocks, fmt.Sprintf("[%s]\n%s", f.Name, text))
		}
	}

	if len(blocks) > 0 {
		out.Context = ContextHeading + "\n" + strings.Join(blocks, "\n\n")
	}

	log.Debug("context assembled",
		zap.Int("files", len(files)),
		zap.Int("blocks", len(blocks)),
		zap.Int("images", len(out.Images)),
		zap.Strings("skipped", out.Skipped))
	return out
}

func (a *Assembler) extractText(f File, kind Kind) string {
	switch kind {
	case KindPDF:
		return a.extractor.PDF(f.Name, f.Data)
	case KindDOCX:
		return a.extractor.DOCX(f.Name, f.Data)
	case KindCSV:
		preview, err := Preview(f.Data, a.csvRows)
		if err != nil {
			logging.Get(logging.CategoryExtract).Debug("csv preview failed", zap.String("file", f.Name), zap.Error(err))
			return ""
		}
		return preview
	case KindText:
		return a.extractor.Text(f.Name, f.Data)
	}
	return ""
}
