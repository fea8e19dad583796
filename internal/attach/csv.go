package attach

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Preview parses CSV data and renders the header plus the first rows as a
// text table. The total row count is appended when rows were cut.
func Preview(data []byte, rows int) (string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return "", nil
		}
		return "", fmt.Errorf("csv header: %w", err)
	}

	var (
		body  [][]string
		total int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("csv row %d: %w", total+1, err)
		}
		total++
		if len(body) < rows {
			body = append(body, pad(rec, len(header)))
		}
	}

	out := RenderTable(header, body)
	if total > len(body) {
		out += fmt.Sprintf("\n(%d of %d rows shown)", len(body), total)
	}
	return out, nil
}

// RenderTable draws rows under a header with a plain border.
func RenderTable(header []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(header...).
		Rows(rows...)
	return strings.TrimRight(t.String(), "\n")
}

func pad(rec []string, n int) []string {
	if len(rec) >= n {
		return rec[:n]
	}
	out := make([]string, n)
	copy(out, rec)
	return out
}
