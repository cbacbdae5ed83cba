// Package textextract turns uploaded documents into plain text for the
// extraction provider.
package textextract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultExtensions are the accepted upload types.
var DefaultExtensions = []string{".pdf", ".docx", ".txt", ".md", ".csv", ".json", ".rtf", ".html", ".xlsx"}

// ErrUnsupported is returned for file types outside the accepted set.
var ErrUnsupported = eris.New("textextract: unsupported file type")

// Extractor turns a named document into text.
type Extractor interface {
	Supported(name string) bool
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

// Option configures the Service.
type Option func(*Service)

// WithPdfToText sets the pdftotext binary path.
func WithPdfToText(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.pdf = newPdfToText(path)
		}
	}
}

// WithExtensions restricts the accepted extensions.
func WithExtensions(exts []string) Option {
	return func(s *Service) {
		if len(exts) > 0 {
			s.accepted = extensionSet(exts)
		}
	}
}

// Service dispatches on file extension.
type Service struct {
	pdf      *pdfToText
	accepted map[string]bool
}

// New creates a text extraction service.
func New(opts ...Option) *Service {
	s := &Service{
		pdf:      newPdfToText(""),
		accepted: extensionSet(DefaultExtensions),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func extensionSet(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[e] = true
	}
	return m
}

// Ext returns the lower-cased extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Supported reports whether name has an accepted extension.
func (s *Service) Supported(name string) bool {
	return s.accepted[Ext(name)]
}

// Extract returns the document's text, trimmed.
func (s *Service) Extract(ctx context.Context, name string, data []byte) (string, error) {
	ext := Ext(name)
	if !s.accepted[ext] {
		return "", eris.Wrapf(ErrUnsupported, "%q", ext)
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = s.pdf.extract(ctx, data)
	case ".docx":
		text, err = extractDocx(data)
	case ".xlsx":
		text, err = extractXLSX(data)
	case ".html", ".htm":
		text, err = extractHTML(data)
	case ".rtf":
		text, err = extractRTF(data)
	default:
		text, err = decodeText(data)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
