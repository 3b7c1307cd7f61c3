package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

// ExtractPDFText pulls the plain text layer out of a PDF. It is only used
// when a PDF must be read without the model: the regex fallback and job
// descriptions uploaded as PDF.
func ExtractPDFText(data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.NewValidationError(errors.ErrCodeExtractionFailed,
				"PDF text layer could not be read", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeExtractionFailed,
			"PDF could not be opened", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeExtractionFailed,
			"PDF text layer could not be read", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", errors.NewValidationError(errors.ErrCodeExtractionFailed,
			"PDF text layer could not be read", err)
	}

	text = cleanLines(buf.String(), true)
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyContent,
			"PDF has no extractable text layer", nil)
	}
	return text, nil
}

var jobPostingSelectors = []string{
	".job-description",
	"#job-description",
	".job-details",
	".posting-content",
	"[data-testid='job-description']",
	"main",
	"article",
}

// HTMLToText reduces a job posting page to its visible text, one block
// element per line.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, footer, header, svg, form").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr, section").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})

	var root *goquery.Selection
	for _, sel := range jobPostingSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			root = found.First()
			break
		}
	}
	if root == nil {
		root = doc.Find("body")
	}

	return cleanLines(root.Text(), false), nil
}

// cleanLines collapses whitespace inside each line. With keepBlank a run of
// blank lines becomes one blank line, so paragraph breaks survive; otherwise
// blank lines are dropped. Leading and trailing blank lines always go.
func cleanLines(text string, keepBlank bool) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	cleaned := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = true
			continue
		}
		if blank && keepBlank && len(cleaned) > 0 {
			cleaned = append(cleaned, "")
		}
		blank = false
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}
