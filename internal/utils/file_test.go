package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestFileKinds(t *testing.T) {
	tests := []struct {
		name            string
		text, html, pdf bool
	}{
		{"resume.TXT", true, false, false},
		{"cv.md", true, false, false},
		{"posting.htm", false, true, false},
		{"resume.pdf", false, false, true},
		{"resume.docx", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsTextFile(tt.name) != tt.text || IsHTMLFile(tt.name) != tt.html || IsPDFFile(tt.name) != tt.pdf {
				t.Errorf("unexpected classification for %s", tt.name)
			}
		})
	}
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(path, []byte("Jane Doe\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := ValidateInputFile(path, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateInputFile(path, 4); err == nil {
		t.Error("expected size limit error")
	}
	if err := ValidateInputFile(dir, 0); err == nil {
		t.Error("expected directory error")
	}
	if err := ValidateInputFile(filepath.Join(dir, "missing.txt"), 0); err == nil {
		t.Error("expected missing file error")
	}
	if err := ValidateInputFile("", 0); err == nil {
		t.Error("expected empty name error")
	}
}
