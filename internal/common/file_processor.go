package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ingest"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
	opts   ingest.Options
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger, opts ingest.Options) *FileProcessor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &FileProcessor{logger: logger, opts: opts}
}

// ReadFile reads a whole file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	info, statErr := os.Stat(filename)
	if err := utils.ValidateInputFile(filename, fp.opts.MaxFileSize); err != nil {
		switch {
		case os.IsNotExist(statErr):
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		case statErr == nil && !info.IsDir():
			return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
				fmt.Sprintf("File too large: %s", filename), err)
		default:
			return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
				fmt.Sprintf("Cannot read file: %s", filename), err)
		}
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	return content, nil
}

// LoadDocument reads and ingests a resume file.
func (fp *FileProcessor) LoadDocument(filename string) (ingest.Document, error) {
	data, err := fp.ReadFile(filename)
	if err != nil {
		return ingest.Document{}, err
	}
	doc, err := ingest.Ingest(filepath.Base(filename), data, fp.opts)
	if err != nil {
		return ingest.Document{}, err
	}
	fp.logger.Debug("Document ingested", "filename", filename,
		"mime_type", doc.MimeType, "size", utils.FormatFileSize(doc.SizeBytes))
	return doc, nil
}

// LoadJobText reads a job description file. HTML pages are reduced to text
// and PDFs to their text layer.
func (fp *FileProcessor) LoadJobText(filename string) (string, error) {
	data, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	opts := fp.opts
	opts.AllowHTML = true
	doc, err := ingest.Ingest(filepath.Base(filename), data, opts)
	if err != nil {
		return "", err
	}
	if doc.IsPDF() {
		return ingest.ExtractPDFText(doc.Data)
	}
	return doc.Content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
