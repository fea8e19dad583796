package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func buildDOCX(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCX_ParagraphsInOrder(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document ` + wordNS + `><w:body>
<w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>tabbed</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Fourth</w:t></w:r></w:p>
</w:body></w:document>`
	data := buildDOCX(t, map[string]string{"word/document.xml": doc})

	got := New(0).DOCX("notes.docx", data)
	assert.Equal(t, "First paragraph\nSecond\ttabbed\n\nFourth", got)
}

func TestDOCX_TextBoxKeepsOuterParagraph(t *testing.T) {
	doc := `<w:document ` + wordNS + `><w:body>
<w:p><w:r><w:t>Before </w:t></w:r><w:r><w:txbxContent><w:p><w:r><w:t>Boxed</w:t></w:r></w:p></w:txbxContent></w:r><w:r><w:t>after</w:t></w:r></w:p>
</w:body></w:document>`
	data := buildDOCX(t, map[string]string{"word/document.xml": doc})

	assert.Equal(t, "Boxed\nBefore after", New(0).DOCX("box.docx", data))
}

func TestDOCX_FailuresReturnEmpty(t *testing.T) {
	e := New(DefaultMaxPages)

	t.Run("not a zip", func(t *testing.T) {
		assert.Equal(t, "", e.DOCX("bad.docx", []byte("definitely not a zip")))
	})
	t.Run("missing body", func(t *testing.T) {
		data := buildDOCX(t, map[string]string{"word/styles.xml": "<x/>"})
		assert.Equal(t, "", e.DOCX("empty.docx", data))
	})
	t.Run("broken xml", func(t *testing.T) {
		data := buildDOCX(t, map[string]string{"word/document.xml": "<w:document " + wordNS + "><w:p>"})
		assert.Equal(t, "", e.DOCX("broken.docx", data))
	})
}

// buildPDF writes a minimal PDF with one text line per page.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDF_PagesInOrderUpToCap(t *testing.T) {
	data := buildPDF(t, "alpha", "bravo", "charlie")

	t.Run("unbounded", func(t *testing.T) {
		got := New(0).PDF("three.pdf", data)
		a, b, c := strings.Index(got, "alpha"), strings.Index(got, "bravo"), strings.Index(got, "charlie")
		require.NotEqual(t, -1, a, got)
		assert.Less(t, a, b)
		assert.Less(t, b, c)
	})
	t.Run("capped", func(t *testing.T) {
		got := New(2).PDF("three.pdf", data)
		assert.Contains(t, got, "alpha")
		assert.Contains(t, got, "bravo")
		assert.NotContains(t, got, "charlie")
	})
}

func TestPDF_FailuresReturnEmpty(t *testing.T) {
	e := New(DefaultMaxPages)
	assert.NotPanics(t, func() {
		assert.Equal(t, "", e.PDF("junk.pdf", []byte("%PDF-1.4 truncated")))
		assert.Equal(t, "", e.PDF("empty.pdf", nil))
	})
}

func TestNew_NegativeCapIsUnbounded(t *testing.T) {
	assert.Equal(t, 0, New(-3).MaxPages)
	assert.Equal(t, 15, New(DefaultMaxPages).MaxPages)
}

func TestText(t *testing.T) {
	e := New(0)
	assert.Equal(t, "plain", e.Text("a.txt", []byte("\xef\xbb\xbfplain")))
	assert.Equal(t, "a�b", e.Text("b.txt", []byte("a\xffb")))
}
