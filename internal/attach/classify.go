package attach

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Kind is how an uploaded file contributes to a turn.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindPDF
	KindDOCX
	KindCSV
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	case KindDOCX:
		return "docx"
	case KindCSV:
		return "csv"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var suffixKinds = map[string]Kind{
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".webp": KindImage,
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".csv":  KindCSV,
	".txt":  KindText,
	".md":   KindText,
	".json": KindText,
	".yaml": KindText,
	".yml":  KindText,
	".go":   KindText,
	".py":   KindText,
	".log":  KindText,
}

var suffixMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Classify decides a file's kind from its declared media type, then its
// name suffix, then by sniffing the content.
func Classify(f File) Kind {
	if k := kindForMediaType(f.MediaType); k != KindUnknown {
		return k
	}
	if k, ok := suffixKinds[strings.ToLower(filepath.Ext(f.Name))]; ok {
		return k
	}
	if len(f.Data) > 0 {
		return kindForMediaType(http.DetectContentType(f.Data))
	}
	return KindUnknown
}

func kindForMediaType(mediaType string) Kind {
	if mediaType == "" {
		return KindUnknown
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mediaType))
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case mt == mimePDF:
		return KindPDF
	case mt == mimeDOCX:
		return KindDOCX
	case mt == "text/csv", mt == "application/csv":
		return KindCSV
	case strings.HasPrefix(mt, "text/"), mt == "application/json":
		return KindText
	}
	return KindUnknown
}

// imageMIME returns the image media type to send upstream.
func imageMIME(f File) string {
	if mt, _, err := mime.ParseMediaType(f.MediaType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	if mt, ok := suffixMIME[strings.ToLower(filepath.Ext(f.Name))]; ok {
		return mt
	}
	return http.DetectContentType(f.Data)
}
