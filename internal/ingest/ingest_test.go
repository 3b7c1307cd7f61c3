package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

func TestIngest(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		opts     Options
		wantMime string
		wantCode string
	}{
		{"plain text", "resume.txt", []byte("Jane Doe\nEngineer"), Options{}, MimeText, ""},
		{"markdown", "resume.md", []byte("# Jane Doe"), Options{}, MimeMarkdown, ""},
		{"pdf", "resume.pdf", []byte("%PDF-1.7\n..."), Options{}, MimePDF, ""},
		{"sniffed pdf", "upload", []byte("%PDF-1.4 binary"), Options{}, MimePDF, ""},
		{"sniffed text", "upload", []byte("Jane Doe"), Options{}, MimeText, ""},
		{"docx", "resume.docx", []byte("PK\x03\x04"), Options{}, "", errors.ErrCodeUnsupportedFileType},
		{"png", "photo.png", []byte("\x89PNG\r\n\x1a\n"), Options{}, "", errors.ErrCodeUnsupportedFileType},
		{"html without permission", "jd.html", []byte("<p>Go</p>"), Options{}, "", errors.ErrCodeUnsupportedFileType},
		{"empty file", "resume.txt", nil, Options{}, "", errors.ErrCodeEmptyContent},
		{"whitespace only", "resume.txt", []byte(" \n\t\n"), Options{}, "", errors.ErrCodeEmptyContent},
		{"too large", "resume.txt", []byte(strings.Repeat("a", 11)), Options{MaxFileSize: 10}, "", errors.ErrCodeFileTooLarge},
		{"invalid utf8", "resume.txt", []byte{0xff, 0xfe, 0xfd}, Options{}, "", errors.ErrCodeExtractionFailed},
		{"fake pdf", "resume.pdf", []byte("hello"), Options{}, "", errors.ErrCodeExtractionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Ingest(tt.filename, tt.data, tt.opts)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMime, doc.MimeType)
			assert.Equal(t, int64(len(tt.data)), doc.SizeBytes)
		})
	}
}

func TestIngestKeepsPDFBytesRaw(t *testing.T) {
	data := []byte("%PDF-1.7\n%binary\x00\x01")
	doc, err := Ingest("cv.pdf", data, Options{})
	require.NoError(t, err)
	assert.True(t, doc.IsPDF())
	assert.Equal(t, data, doc.Data)
	assert.Empty(t, doc.Content)
}

func TestIngestNormalisesText(t *testing.T) {
	doc, err := Ingest("cv.txt", []byte("\xef\xbb\xbfJane Doe\r\nEngineer\r\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEngineer\n", doc.Content)
}

func TestIngestHTMLJobPosting(t *testing.T) {
	page := `<html><head><script>track()</script><style>p{}</style></head>
<body><nav>Home | Jobs</nav>
<div class="job-description"><h1>Senior Go Engineer</h1>
<p>Build   payment services.</p>
<ul><li>Go</li><li>PostgreSQL</li></ul></div>
<footer>© Acme</footer></body></html>`

	doc, err := Ingest("posting.html", []byte(page), Options{AllowHTML: true})
	require.NoError(t, err)
	assert.Equal(t, MimeText, doc.MimeType)
	assert.Contains(t, doc.Content, "Senior Go Engineer")
	assert.Contains(t, doc.Content, "Build payment services.")
	assert.Contains(t, doc.Content, "- Go")
	assert.NotContains(t, doc.Content, "track()")
	assert.NotContains(t, doc.Content, "Home | Jobs")
	assert.NotContains(t, doc.Content, "Acme")
}

func TestExtractPDFTextRejectsGarbage(t *testing.T) {
	_, err := ExtractPDFText([]byte("%PDF-1.4 not really a pdf"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExtractionFailed, errors.Code(err))
}

func TestFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jd":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<main><h2>Data Engineer</h2><p>Spark and Go</p></main>"))
		case "/jd.txt":
			_, _ = w.Write([]byte("Platform Engineer\nKubernetes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), 0, Options{})

	doc, err := f.Fetch(context.Background(), srv.URL+"/jd")
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "Data Engineer")
	assert.Contains(t, doc.Content, "Spark and Go")

	doc, err = f.Fetch(context.Background(), srv.URL+"/jd.txt")
	require.NoError(t, err)
	assert.Equal(t, "Platform Engineer\nKubernetes", doc.Content)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "ftp://example.com/jd.txt")
	require.Error(t, err)
	assert.True(t, errors.IsUnsupportedInput(err))
}

func TestFetcherRejectsNonPublicAddresses(t *testing.T) {
	f := NewFetcher(nil, time.Second, Options{})

	tests := []string{
		"http://127.0.0.1/jd.txt",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.5/jd.txt",
		"http://[::1]/jd.txt",
		"http://0.0.0.0/jd.txt",
		"http://localhost:1/jd.txt",
	}
	for _, rawURL := range tests {
		t.Run(rawURL, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), rawURL)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidContext, errors.Code(err))
		})
	}
}

func TestIsPublicAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:4700::1111", true},
		{"127.0.0.1", false},
		{"192.168.1.10", false},
		{"172.16.0.1", false},
		{"fe80::1", false},
		{"::ffff:10.1.2.3", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isPublicAddr(netip.MustParseAddr(tt.addr)), tt.addr)
	}
}

func TestCleanLines(t *testing.T) {
	text := "\n\nSoftware Engineer, Acme   Corp, 2019-2022\n- Built APIs\n  \n\n\nEngineer, Beta, 2016-2019\r\n- Ran ops\n\n"

	assert.Equal(t,
		"Software Engineer, Acme Corp, 2019-2022\n- Built APIs\n\nEngineer, Beta, 2016-2019\n- Ran ops",
		cleanLines(text, true))
	assert.Equal(t,
		"Software Engineer, Acme Corp, 2019-2022\n- Built APIs\nEngineer, Beta, 2016-2019\n- Ran ops",
		cleanLines(text, false))
}
