// Package ingest turns uploaded bytes into a Document the parsers accept.
package ingest

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/utils"
)

const (
	MimePDF      = "application/pdf"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimeHTML     = "text/html"

	DefaultMaxFileSize int64 = 10 * 1024 * 1024
)

var pdfMagic = []byte("%PDF-")

// Document is an ingested upload. For PDFs Data holds the raw bytes and
// Content stays empty; for every other type Content holds normalised text.
type Document struct {
	Filename  string `json:"filename,omitempty"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
	Content   string `json:"-"`
	Data      []byte `json:"-"`
}

// IsPDF reports whether the document is a PDF.
func (d Document) IsPDF() bool {
	return d.MimeType == MimePDF
}

// Options bounds what Ingest accepts.
type Options struct {
	MaxFileSize int64
	// AllowHTML admits HTML documents, reduced to visible text. Resumes are
	// never HTML; job postings often are.
	AllowHTML bool
}

// Ingest validates an upload and normalises it into a Document.
func Ingest(filename string, data []byte, opts Options) (Document, error) {
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	size := int64(len(data))
	if size == 0 {
		return Document{}, errors.NewValidationError(errors.ErrCodeEmptyContent,
			"document is empty", nil)
	}
	if size > maxSize {
		return Document{}, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("%s exceeds the %s upload limit", utils.FormatFileSize(size), utils.FormatFileSize(maxSize)), nil).
			WithContext("size_bytes", size)
	}

	mimeType := DetectMimeType(filename, data)
	doc := Document{Filename: filename, MimeType: mimeType, SizeBytes: size}

	switch mimeType {
	case MimePDF:
		if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
			return Document{}, errors.NewValidationError(errors.ErrCodeExtractionFailed,
				"file has a .pdf name but is not a PDF document", nil)
		}
		doc.Data = data
		return doc, nil

	case MimeText, MimeMarkdown:
		text, err := decodeText(data)
		if err != nil {
			return Document{}, err
		}
		doc.Content = text

	case MimeHTML:
		if !opts.AllowHTML {
			return Document{}, unsupported(filename, mimeType)
		}
		text, err := decodeText(data)
		if err != nil {
			return Document{}, err
		}
		if text, err = HTMLToText(text); err != nil {
			return Document{}, errors.NewValidationError(errors.ErrCodeExtractionFailed,
				"could not read HTML document", err)
		}
		doc.Content = text
		doc.MimeType = MimeText

	default:
		return Document{}, unsupported(filename, mimeType)
	}

	if strings.TrimSpace(doc.Content) == "" {
		return Document{}, errors.NewValidationError(errors.ErrCodeEmptyContent,
			"document contains no text", nil)
	}
	return doc, nil
}

// FromText wraps pasted text as a Document.
func FromText(text string) (Document, error) {
	return Ingest("pasted.txt", []byte(text), Options{})
}

// DetectMimeType resolves the media type by extension, then by sniffing.
func DetectMimeType(filename string, data []byte) string {
	switch {
	case utils.IsPDFFile(filename):
		return MimePDF
	case utils.GetFileExtension(filename) == ".md" || utils.GetFileExtension(filename) == ".markdown":
		return MimeMarkdown
	case utils.IsTextFile(filename):
		return MimeText
	case utils.IsHTMLFile(filename):
		return MimeHTML
	case utils.GetFileExtension(filename) != "":
		if byExt := mime.TypeByExtension(utils.GetFileExtension(filename)); byExt != "" {
			return stripParams(byExt)
		}
		return "application/octet-stream"
	}

	if bytes.HasPrefix(data, pdfMagic) {
		return MimePDF
	}
	return stripParams(http.DetectContentType(data))
}

func stripParams(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.TrimSpace(mediaType)
}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.NewValidationError(errors.ErrCodeExtractionFailed,
			"text is not valid UTF-8", nil)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}

func unsupported(filename, mimeType string) error {
	return errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
		fmt.Sprintf("unsupported file type %q; upload a PDF or plain text file", mimeType), nil).
		WithContext("filename", filename)
}
