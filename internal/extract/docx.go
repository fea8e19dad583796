package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

var errNoDocumentBody = errors.New("docx: word/document.xml missing")

// docxParagraphs streams word/document.xml and returns each <w:p> as a line.
func docxParagraphs(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docx: open archive: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return nil, errNoDocumentBody
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("docx: open body: %w", err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	// Paragraphs nest inside text boxes; each open <w:p> has its own builder.
	var (
		paragraphs []string
		open       []*strings.Builder
		inText     bool
	)
	top := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docx: parse body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if p := top(); p != nil {
					p.WriteByte('\t')
				}
			case "br", "cr":
				if p := top(); p != nil {
					p.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if p := top(); p != nil {
					paragraphs = append(paragraphs, p.String())
					open = open[:len(open)-1]
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if p := top(); inText && p != nil {
				p.Write(t)
			}
		}
	}
	return paragraphs, nil
}
