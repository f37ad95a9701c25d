package resume

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/spigell/labconnect/internal/domain"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	ErrEmpty           = errors.New("resume file is empty")
	ErrUnsupportedType = errors.New("unsupported resume type")
	ErrNoText          = errors.New("no text found in resume")

	xmlTag = regexp.MustCompile(`<[^>]+>`)
	spaces = regexp.MustCompile(`[ \t]+`)
)

type Option func(*options)

type options struct {
	onlyImages bool
}

// OnlyImages rejects every document that is not an image.
func OnlyImages() Option {
	return func(o *options) {
		o.onlyImages = true
	}
}

// FromBytes builds a resume document from an uploaded file. Images are kept
// as they are, PDF and DOCX files are reduced to their text.
func FromBytes(name string, data []byte, mimeHint string, opts ...Option) (*domain.ResumeDocument, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(data) == 0 {
		return nil, ErrEmpty
	}

	mime := detectMIME(name, data, mimeHint)
	doc := &domain.ResumeDocument{Name: name, MIMEType: mime, Data: data}

	if doc.IsImage() {
		return doc, nil
	}
	if o.onlyImages {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	var (
		text string
		err  error
	)
	switch mime {
	case MIMEPDF:
		text, err = pdfText(data)
	case MIMEDOCX:
		text, err = docxText(data)
	case "text/plain":
		text = string(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}
	doc.Text = text

	return doc, nil
}

func detectMIME(name string, data []byte, hint string) string {
	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}

	switch {
	case strings.HasPrefix(sniffed, "image/"), sniffed == MIMEPDF:
		return sniffed
	case strings.EqualFold(filepath.Ext(name), ".docx"), hint == MIMEDOCX:
		// docx is a zip archive, sniffing alone reports application/zip.
		return MIMEDOCX
	case sniffed == "text/plain":
		return sniffed
	}

	if hint != "" && hint != "application/octet-stream" {
		return hint
	}
	return sniffed
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTag.ReplaceAllString(content, "")
	content = spaces.ReplaceAllString(content, " ")

	return content, nil
}
